// Команда trial-reaper закрывает просроченные пробные периоды.
//
// Пользователи в статусе trialing с истекшей датой окончания и без флага
// автоконвертации переводятся в canceled. Конвертируемые пробные периоды
// не трогаются: их переводит в active вебхук платежного провайдера.
// Запуск идемпотентен, повторный проход не находит уже закрытых записей.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sitematcher/access-service/internal/cache"
	"github.com/sitematcher/access-service/internal/config"
	"github.com/sitematcher/access-service/internal/lib/rabbitmq"
	"github.com/sitematcher/access-service/internal/lib/sl"
	"github.com/sitematcher/access-service/internal/models"
	subscriptionservice "github.com/sitematcher/access-service/internal/services/subscription"
	"github.com/sitematcher/access-service/internal/storage/repository"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "only report expired trials, do not modify them")
	batch := flag.Int("batch", 500, "maximum number of trials processed per run")
	flag.Parse()

	cfg := config.MustLoad()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting trial-reaper",
		slog.String("env", cfg.Env),
		slog.Bool("dry_run", *dryRun),
		slog.Int("batch", *batch))

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Error("failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	conn, err := rabbitmq.Connect(cfg.AddressRabbit, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetSubscriptionQueues())
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = ch.Close()
	}()

	subscriptionService := subscriptionservice.New(db, cacheRedis, rabbitmq.NewPublisher(ch), logger)

	now := time.Now().UTC()
	expired, err := db.FindExpiredTrials(ctx, now, *batch)
	if err != nil {
		logger.Error("failed to find expired trials", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("expired trials found", slog.Int("count", len(expired)))

	var closed, skipped, failed int
	for _, user := range expired {
		if user.TrialWillConvert {
			// Перевод в active выполнит платежный провайдер
			skipped++
			continue
		}
		if *dryRun {
			logger.Info("would cancel expired trial",
				slog.String("user_uid", user.UID),
				slog.Time("trial_end_date", *user.TrialEndDate))
			continue
		}

		canceled := models.StatusCanceled
		err = subscriptionService.Reconcile(ctx, user.UID, models.SubscriptionPatch{Status: &canceled})
		if err != nil {
			logger.Error("failed to cancel expired trial",
				slog.String("user_uid", user.UID), sl.Err(err))
			failed++
			continue
		}
		closed++
	}

	logger.Info("trial-reaper finished",
		slog.Int("closed", closed),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}
