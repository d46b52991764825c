// Package status реализует HTTP-обработчик получения развернутого статуса
// подписки пользователя.
//
// Для неидентифицированного вызывающего и для отсутствующего пользователя
// ответ содержит null вместо статуса: отсутствие подписки — штатный случай.
package status

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
	"github.com/sitematcher/access-service/internal/models"
	"github.com/sitematcher/access-service/internal/services/subscription"
)

// Handler обрабатывает запросы статуса подписки.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис статусов подписки
}

// Service описывает интерфейс получения статуса подписки.
type Service interface {
	ResolveStatus(ctx context.Context, userUID string) (models.SubscriptionView, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Статус подписки пользователя
// @Description Возвращает строку статуса и развернутое представление: эффективный тариф, флаг истечения пробного периода и остаток дней. Для неидентифицированного вызывающего оба поля null.
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response "Статус подписки либо null"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Router /subscription/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, _ := r.Context().Value(middlewarectx.UserUID).(string)
	if userUID == "" {
		render.JSON(w, r, response.StatusOKWithData(map[string]any{
			"subscription_status": nil,
			"subscription":        nil,
		}))
		return
	}

	view, err := h.service.ResolveStatus(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, subscription.ErrUserNotFound) {
			log.Info("user not found", slog.String("user_uid", userUID))
			render.JSON(w, r, response.StatusOKWithData(map[string]any{
				"subscription_status": nil,
				"subscription":        nil,
			}))
			return
		}
		log.Error("failed to resolve subscription status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not resolve subscription status"))
		return
	}

	log.Info("subscription status resolved",
		slog.String("user_uid", userUID),
		slog.String("status", string(view.Status)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_status": string(view.Status),
		"subscription":        view,
	}))
}
