// Package reconcile реализует административный HTTP-обработчик сверки
// полей подписки с данными платежного провайдера.
//
// Принимает частичное обновление: nil-поля записи пользователя не трогаются.
// Активная подписка всегда влечет привязанный платежный метод, это правило
// применяется на уровне бизнес-логики.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/sitematcher/access-service/internal/http/response"
	"github.com/sitematcher/access-service/internal/lib/sl"
	"github.com/sitematcher/access-service/internal/models"
	"github.com/sitematcher/access-service/internal/services/subscription"
)

// Request описывает тело запроса сверки подписки. Все поля, кроме
// идентификатора пользователя, опциональны.
type Request struct {
	UserUID                string     `json:"user_uid" validate:"required,uuid"`
	Status                 *string    `json:"status,omitempty" validate:"omitempty,oneof=none trialing active past_due canceled"`
	TrialStartDate         *time.Time `json:"trial_start_date,omitempty"`
	TrialEndDate           *time.Time `json:"trial_end_date,omitempty"`
	PaymentMethodAdded     *bool      `json:"payment_method_added,omitempty"`
	TrialWillConvert       *bool      `json:"trial_will_convert,omitempty"`
	ProviderCustomerID     *string    `json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID *string    `json:"provider_subscription_id,omitempty"`
}

// Handler обрабатывает запросы сверки подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис статусов подписки
	validate *validator.Validate // Валидатор входных данных
}

// Service описывает интерфейс сверки подписки.
type Service interface {
	Reconcile(ctx context.Context, userUID string, patch models.SubscriptionPatch) error
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
// @Summary Сверка полей подписки
// @Description Применяет частичное обновление полей подписки пользователя. Доступно только администраторам.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Частичное обновление подписки"
// @Success 200 {object} response.Response "Сверка выполнена"
// @Failure 400 {object} response.ErrorResponse "Некорректное или пустое обновление"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Security BearerAuth
// @Router /admin/subscription/reconcile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.reconcile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	patch := models.SubscriptionPatch{
		TrialStartDate:         req.TrialStartDate,
		TrialEndDate:           req.TrialEndDate,
		PaymentMethodAdded:     req.PaymentMethodAdded,
		TrialWillConvert:       req.TrialWillConvert,
		ProviderCustomerID:     req.ProviderCustomerID,
		ProviderSubscriptionID: req.ProviderSubscriptionID,
	}
	if req.Status != nil {
		status := models.ParseStatus(*req.Status)
		patch.Status = &status
	}

	if err := h.service.Reconcile(r.Context(), req.UserUID, patch); err != nil {
		switch {
		case errors.Is(err, subscription.ErrEmptyPatch):
			log.Error("empty subscription patch", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("empty subscription patch"))
		case errors.Is(err, subscription.ErrUserNotFound):
			log.Error("user not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to reconcile subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not reconcile subscription"))
		}
		return
	}

	log.Info("subscription reconciled", slog.String("user_uid", req.UserUID))
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
