// Package starttrial реализует HTTP-обработчик запуска пробного периода.
//
// Пробный период открывается на фиксированное окно с привязкой платежного
// метода, поэтому запуск требует идентификаторов клиента и подписки
// у платежного провайдера.
package starttrial

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/sitematcher/access-service/internal/http/middlewarectx"
	"github.com/sitematcher/access-service/internal/http/response"
	"github.com/sitematcher/access-service/internal/lib/sl"
	"github.com/sitematcher/access-service/internal/services/subscription"
)

// Request описывает тело запроса запуска пробного периода.
type Request struct {
	ProviderCustomerID     string `json:"provider_customer_id" validate:"required"`
	ProviderSubscriptionID string `json:"provider_subscription_id" validate:"required"`
}

// Handler обрабатывает запросы запуска пробного периода.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис статусов подписки
	validate *validator.Validate // Валидатор входных данных
}

// Service описывает интерфейс запуска пробного периода.
type Service interface {
	StartTrial(ctx context.Context, userUID, providerCustomerID, providerSubscriptionID string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запуск пробного периода
// @Description Открывает пробный период на 30 дней с привязанным платежным методом и флагом автоконвертации.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификаторы платежного провайдера"
// @Success 200 {object} response.Response "Пробный период запущен"
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса"
// @Failure 401 {object} response.ErrorResponse "Вызывающий не идентифицирован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Security BearerAuth
// @Router /subscription/trial [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.starttrial"

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

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			log.Error("invalid request", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(validateErrs))
			return
		}
		log.Error("failed to validate request", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	if err := h.service.StartTrial(r.Context(), userUID, req.ProviderCustomerID, req.ProviderSubscriptionID); err != nil {
		if errors.Is(err, subscription.ErrUserNotFound) {
			log.Error("user not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to start trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not start trial"))
		return
	}

	log.Info("trial started", slog.String("user_uid", userUID))
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
