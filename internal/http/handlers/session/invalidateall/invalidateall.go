// Package invalidateall реализует HTTP-обработчик сброса текущей сессии
// пользователя ("выйти на всех устройствах").
package invalidateall

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

// Handler обрабатывает запросы на сброс сессии.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис реестра сессий
}

// Service описывает интерфейс реестра сессий для сброса токена.
type Service interface {
	InvalidateAll(ctx context.Context, userUID string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сброс текущей сессии пользователя
// @Description Обнуляет сохраненный токен сессии. После сброса любой предъявленный токен считается валидным до следующей выдачи.
// @Tags Session
// @Produce  json
// @Success 200 {object} response.Response "Сессия сброшена"
// @Failure 401 {object} response.ErrorResponse "Вызывающий не идентифицирован"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Security BearerAuth
// @Router /session/invalidate-all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.invalidateall"

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

	if err := h.service.InvalidateAll(r.Context(), userUID); err != nil {
		if errors.Is(err, session.ErrUserNotFound) {
			log.Error("user not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to invalidate sessions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not invalidate sessions"))
		return
	}

	log.Info("sessions invalidated", slog.String("user_uid", userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"success": true,
	}))
}
