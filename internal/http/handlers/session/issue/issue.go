// Package issue реализует HTTP-обработчик выдачи нового токена сессии.
//
// Новый токен перезаписывает прежний, чем неявно завершается предыдущая
// сессия пользователя на другом устройстве.
package issue

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sitematcher/access-service/internal/http/middlewarectx"
	"github.com/sitematcher/access-service/internal/http/response"
	"github.com/sitematcher/access-service/internal/lib/sl"
	"github.com/sitematcher/access-service/internal/services/session"
)

// Handler обрабатывает запросы на выдачу токена сессии.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис реестра сессий
}

// Service описывает интерфейс реестра сессий для выдачи токена.
type Service interface {
	Issue(ctx context.Context, userUID string) (string, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выдача нового токена сессии
// @Description Генерирует свежий токен и сохраняет его как текущую сессию пользователя.
// @Tags Session
// @Produce  json
// @Success 200 {object} response.Response "Новый токен сессии"
// @Failure 401 {object} response.ErrorResponse "Вызывающий не идентифицирован"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Security BearerAuth
// @Router /session/issue [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.issue"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	sessionID, err := h.service.Issue(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, session.ErrUserNotFound) {
			log.Error("user not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to issue session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not issue session"))
		return
	}

	log.Info("session issued", slog.String("user_uid", userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session_id": sessionID,
	}))
}
