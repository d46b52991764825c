// Package accessservice собирает HTTP-сервис контроля доступа: хранилище,
// кеш, брокер событий, бизнес-сервисы и маршрутизатор.
package accessservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/sitematcher/access-service/internal/cache"
	"github.com/sitematcher/access-service/internal/config"
	"github.com/sitematcher/access-service/internal/lib/jwt"
	"github.com/sitematcher/access-service/internal/lib/rabbitmq"
	"github.com/sitematcher/access-service/internal/migrations"
	authservice "github.com/sitematcher/access-service/internal/services/auth"
	sessionservice "github.com/sitematcher/access-service/internal/services/session"
	subscriptionservice "github.com/sitematcher/access-service/internal/services/subscription"
	"github.com/sitematcher/access-service/internal/storage/repository"
)

// App держит собранный HTTP-сервер и ресурсы, требующие закрытия.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	rabbitCh *amqp.Channel
	rabbit   *amqp.Connection
}

// New создает приложение: подключает хранилище, применяет миграции,
// поднимает кеш и брокер, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.AddressRabbit, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	rabbitCh, err := rabbitmq.SetupChannel(rabbitConn, rabbitmq.GetSubscriptionQueues())
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(rabbitCh)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	sessionService := sessionservice.New(db, logger)
	subscriptionService := subscriptionservice.New(db, cacheRedis, publisher, logger)
	authService := authservice.New(db, sessionService, jwtMaker)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, authService, sessionService, subscriptionService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		rabbitCh: rabbitCh,
		rabbit:   rabbitConn,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до завершения контекста либо
// фатальной ошибки сервера. При отмене контекста выполняется graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.rabbitCh.Close()
		_ = a.rabbit.Close()
		_ = a.db.DB.Close()
		return err
	}
}
