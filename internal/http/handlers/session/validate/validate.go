// Package validate реализует HTTP-обработчик явной проверки токена сессии.
//
// Несовпадение токена — штатный результат, а не ошибка: ответ несет флаг
// валидности и машинно-читаемую причину отказа.
package validate

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

// Request описывает тело запроса проверки токена сессии.
// Отсутствие session_id — ошибка вызывающего (400), решение
// принимает бизнес-логика.
type Request struct {
	SessionID string `json:"session_id"`
}

// Handler обрабатывает запросы на проверку токена сессии.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис реестра сессий
}

// Service описывает интерфейс реестра сессий для проверки токена.
type Service interface {
	Validate(ctx context.Context, userUID, presented string) (session.ValidationResult, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверка токена сессии
// @Description Сравнивает предъявленный токен с текущим токеном пользователя. Пустой сохраненный токен пропускает любой предъявленный.
// @Tags Session
// @Accept  json
// @Produce  json
// @Param request body Request true "Предъявленный токен сессии"
// @Success 200 {object} response.Response "Результат проверки"
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса либо отсутствующий токен"
// @Failure 401 {object} response.ErrorResponse "Вызывающий не идентифицирован"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Security BearerAuth
// @Router /session/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.validate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, _ := r.Context().Value(middlewarectx.UserUID).(string)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	result, err := h.service.Validate(r.Context(), userUID, req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotAuthenticated):
			log.Error("caller not authenticated", sl.Err(err))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("user identification missing"))
		case errors.Is(err, session.ErrNoTokenProvided):
			log.Error("session token missing", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("session token missing"))
		default:
			log.Error("failed to validate session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not validate session"))
		}
		return
	}

	log.Info("session validated",
		slog.String("user_uid", userUID),
		slog.Bool("valid", result.Valid))
	render.JSON(w, r, response.StatusOKWithData(result))
}
