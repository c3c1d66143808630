package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/ayursutra/booking-api/internal/config"
	"github.com/ayursutra/booking-api/internal/email"
	"github.com/ayursutra/booking-api/internal/repository/postgres"
	"github.com/ayursutra/booking-api/pkg/logger"
	redisbroker "github.com/ayursutra/booking-api/pkg/messaging/redis"
	"github.com/ayursutra/booking-api/pkg/metrics"
	"github.com/ayursutra/booking-api/pkg/worker"
)

// workerEnv carries deployment-level overrides that do not belong in the
// shared config file.
type workerEnv struct {
	HealthAddr      string `envconfig:"WORKER_HEALTH_ADDR" default:":8081"`
	RedisPoolSize   int    `envconfig:"WORKER_REDIS_POOL_SIZE" default:"10"`
	RedisMinIdle    int    `envconfig:"WORKER_REDIS_MIN_IDLE" default:"2"`
	RedisMaxRetries int    `envconfig:"WORKER_REDIS_MAX_RETRIES" default:"3"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to load environment overrides")
	}

	l := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		l.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   env.RedisMaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     env.RedisPoolSize,
		MinIdleConns: env.RedisMinIdle,
	}, &log.Logger)
	if err != nil {
		l.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Worker.BatchSize,
			PollInterval:  cfg.Worker.PollInterval,
			RetryAttempts: cfg.Worker.RetryAttempts,
			RetryDelay:    cfg.Worker.RetryDelay,
		},
		l,
		metrics.NewMetrics("ayursutra", "worker"),
	)

	notifier := worker.NewNotifier(broker, email.NewService(cfg.SMTP), l)

	setupHealthCheck(env.HealthAddr, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Shutting down")
		cancel()
	}()

	go func() {
		if err := notifier.Start(ctx); err != nil {
			l.Error(err, "Payment notifier stopped")
		}
	}()

	processor.Start(ctx)
}

func setupHealthCheck(addr string, l *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			l.Fatal(err, "Health check server failed")
		}
	}()
}
