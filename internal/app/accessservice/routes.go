// Package accessservice предоставляет маршруты для основного приложения.
package accessservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sitematcher/access-service/internal/http/handlers/auth/login"
	"github.com/sitematcher/access-service/internal/http/handlers/auth/register"
	"github.com/sitematcher/access-service/internal/http/handlers/health"
	"github.com/sitematcher/access-service/internal/http/handlers/session/invalidateall"
	"github.com/sitematcher/access-service/internal/http/handlers/session/issue"
	"github.com/sitematcher/access-service/internal/http/handlers/session/validate"
	"github.com/sitematcher/access-service/internal/http/handlers/subscription/access"
	"github.com/sitematcher/access-service/internal/http/handlers/subscription/reconcile"
	"github.com/sitematcher/access-service/internal/http/handlers/subscription/starttrial"
	"github.com/sitematcher/access-service/internal/http/handlers/subscription/status"
	"github.com/sitematcher/access-service/internal/http/middlewarectx"
	"github.com/sitematcher/access-service/internal/lib/jwt"
	authservice "github.com/sitematcher/access-service/internal/services/auth"
	sessionservice "github.com/sitematcher/access-service/internal/services/session"
	subscriptionservice "github.com/sitematcher/access-service/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker,
	authService *authservice.Service, sessionService *sessionservice.Service,
	subscriptionService *subscriptionservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Шлюз доступа и статус подписки: идентификация опциональна,
		// анонимный вызывающий получает отказ/null без ошибки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.OptionalJWTMiddleware(jwtMaker))
			r.Get("/subscription/access", access.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscription/status", status.New(logger, subscriptionService).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			// Проверка токена сообщает результат и не отклоняет устаревший вход
			r.Post("/session/validate", validate.New(logger, sessionService).ServeHTTP)

			// Остальные операции требуют актуальной сессии
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.SessionGuard(sessionService, logger))
				r.Post("/session/issue", issue.New(logger, sessionService).ServeHTTP)
				r.Post("/session/invalidate-all", invalidateall.New(logger, sessionService).ServeHTTP)
				r.Post("/subscription/trial", starttrial.New(logger, subscriptionService).ServeHTTP)

				// Административная сверка
				r.Group(func(r chi.Router) {
					r.Use(middlewarectx.RequireRole("admin", logger))
					r.Post("/admin/subscription/reconcile", reconcile.New(logger, subscriptionService).ServeHTTP)
				})
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
