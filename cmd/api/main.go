package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ayursutra/booking-api/internal/config"
	"github.com/ayursutra/booking-api/internal/gateway/razorpay"
	"github.com/ayursutra/booking-api/internal/handler"
	advisorHandler "github.com/ayursutra/booking-api/internal/handler/advisor"
	bookingHandler "github.com/ayursutra/booking-api/internal/handler/booking"
	catalogHandler "github.com/ayursutra/booking-api/internal/handler/catalog"
	paymentHandler "github.com/ayursutra/booking-api/internal/handler/payment"
	"github.com/ayursutra/booking-api/internal/middleware"
	"github.com/ayursutra/booking-api/internal/repository/postgres"
	"github.com/ayursutra/booking-api/internal/router"
	advisorService "github.com/ayursutra/booking-api/internal/service/advisor"
	availabilityService "github.com/ayursutra/booking-api/internal/service/availability"
	bookingService "github.com/ayursutra/booking-api/internal/service/booking"
	catalogService "github.com/ayursutra/booking-api/internal/service/catalog"
	eventService "github.com/ayursutra/booking-api/internal/service/event"
	paymentService "github.com/ayursutra/booking-api/internal/service/payment"
	"github.com/ayursutra/booking-api/pkg/auth"
	"github.com/ayursutra/booking-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	therapyRepo := postgres.NewTherapyRepository(db)
	timeSlotRepo := postgres.NewTimeSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	wellnessRepo := postgres.NewWellnessRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("ayursutra", "booking")

	// Services
	eventSvc := eventService.NewService(outboxRepo)
	catalogSvc := catalogService.NewService(therapyRepo, timeSlotRepo)
	availabilitySvc := availabilityService.NewService(timeSlotRepo, appointmentRepo)
	bookingSvc := bookingService.NewService(appointmentRepo, catalogSvc, availabilitySvc, eventSvc, m)

	gateway := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.BaseURL)
	paymentSvc := paymentService.NewService(
		paymentRepo,
		appointmentRepo,
		gateway,
		cfg.Razorpay.KeySecret,
		cfg.Razorpay.Currency,
		eventSvc,
		m,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The advisor degrades to its deterministic fallback when no model is
	// configured.
	var llm advisorService.LLMClient
	if cfg.Gemini.APIKey != "" {
		gemini, err := advisorService.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.ModelID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create advisor model client")
		}
		defer gemini.Close()
		llm = gemini
	} else {
		log.Warn().Msg("no advisor model configured, suggestions will use the fallback arrangement")
	}
	advisorSvc := advisorService.NewService(catalogSvc, availabilitySvc, wellnessRepo, llm, m)

	// HTTP surface
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	h := handler.NewHandler(db)
	r := router.NewRouter(
		authMiddleware,
		catalogHandler.NewHandler(catalogSvc),
		bookingHandler.NewHandler(bookingSvc, availabilitySvc),
		paymentHandler.NewHandler(paymentSvc),
		advisorHandler.NewHandler(advisorSvc),
		h,
		router.Config{
			RateLimit:     rate.Limit(100),
			RateBurst:     200,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "booking_api",
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting booking API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
