// Package access реализует HTTP-обработчик проверки права доступа
// к закрытым разделам сервиса.
//
// Ответ — строго булев флаг: любое исключение (неизвестный пользователь,
// сбой хранилища, отсутствие идентификации) трактуется как отказ в доступе,
// а не как ошибка HTTP.
package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sitematcher/access-service/internal/http/middlewarectx"
	"github.com/sitematcher/access-service/internal/http/response"
)

var accessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "access_gate_decisions_total",
	Help: "Количество решений шлюза доступа по исходу проверки.",
}, []string{"outcome"})

// Handler обрабатывает запросы проверки доступа.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис статусов подписки
}

// Service описывает интерфейс проверки права доступа.
type Service interface {
	HasAccess(ctx context.Context, userUID string) bool
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверка права доступа
// @Description Возвращает булев флаг доступа. Для неидентифицированного вызывающего всегда false без ошибки.
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response "Флаг доступа"
// @Router /subscription/access [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.access"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, _ := r.Context().Value(middlewarectx.UserUID).(string)

	hasAccess := h.service.HasAccess(r.Context(), userUID)

	outcome := "denied"
	if hasAccess {
		outcome = "granted"
	}
	accessDecisions.WithLabelValues(outcome).Inc()

	log.Info("access decision",
		slog.String("user_uid", userUID),
		slog.Bool("has_access", hasAccess))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"has_access": hasAccess,
	}))
}
