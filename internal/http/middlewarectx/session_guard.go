package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sitematcher/access-service/internal/http/response"
	"github.com/sitematcher/access-service/internal/lib/sl"
	"github.com/sitematcher/access-service/internal/services/session"
)

// SessionValidator сверяет предъявленный токен сессии с сохранённым.
type SessionValidator interface {
	Validate(ctx context.Context, userUID, presented string) (session.ValidationResult, error)
}

// SessionGuard сверяет токен сессии из JWT claims с записью пользователя.
// Устаревший вход получает 401, чтобы клиент запустил повторную
// аутентификацию. NULL в хранилище пропускает любой токен (fail open).
func SessionGuard(sessions SessionValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}
			sessionID, _ := r.Context().Value(SessionID).(string)

			res, err := sessions.Validate(r.Context(), userUID, sessionID)
			if err != nil {
				switch res.Reason {
				case session.ReasonNoTokenProvided, session.ReasonNotAuthenticated:
					log.Error("session token missing from credentials", sl.Err(err))
					w.WriteHeader(http.StatusUnauthorized)
					render.JSON(w, r, response.Error("session token missing, re-authentication required"))
				default:
					log.Error("failed to validate session", sl.Err(err))
					w.WriteHeader(http.StatusInternalServerError)
					render.JSON(w, r, response.Error("internal service error"))
				}
				return
			}
			if !res.Valid {
				log.Warn("stale session rejected", slog.String("user_uid", userUID))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("session superseded by a newer login"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
