package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinicdesk/clinicdesk/libs/config"
	"github.com/clinicdesk/clinicdesk/libs/db"
	"github.com/clinicdesk/clinicdesk/libs/httpx"
	"github.com/clinicdesk/clinicdesk/libs/kafkax"
	otelx "github.com/clinicdesk/clinicdesk/libs/otel"
	"github.com/clinicdesk/clinicdesk/libs/runtime"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/handlers"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/outbox"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "clinic-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 2)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.New(pool, outboxRepo)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	directoryHandler := handlers.NewDirectoryHandler(repo, logger)
	catalogHandler := handlers.NewCatalogHandler(repo, logger)
	scheduleHandler := handlers.NewScheduleHandler(repo, logger)
	appointmentHandler := handlers.NewAppointmentHandler(repo, logger)
	paymentHandler := handlers.NewPaymentHandler(repo, logger)
	feedbackHandler := handlers.NewFeedbackHandler(repo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMux(readyChecks...)
	mux.HandleFunc("/api/v1/users", directoryHandler.Users)
	mux.HandleFunc("/api/v1/doctors", directoryHandler.Doctors)
	mux.HandleFunc("/api/v1/services", catalogHandler.Services)
	mux.HandleFunc("/api/v1/services/status", catalogHandler.ServiceStatus)
	mux.HandleFunc("/api/v1/promotions", catalogHandler.Promotions)
	mux.HandleFunc("/api/v1/schedules", scheduleHandler.Schedules)
	mux.HandleFunc("/api/v1/schedules/update", scheduleHandler.Update)
	mux.HandleFunc("/api/v1/appointments", appointmentHandler.Appointments)
	mux.HandleFunc("/api/v1/appointments/cancel", appointmentHandler.Cancel)
	mux.HandleFunc("/api/v1/payments", paymentHandler.Payments)
	mux.HandleFunc("/api/v1/payments/transition", paymentHandler.Transition)
	mux.HandleFunc("/api/v1/feedback", feedbackHandler.Feedback)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(15 * time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-User-Id"},
			MaxAge:         10 * time.Minute,
		}),
	}
	// Shared fixed-window limiting through Redis when configured, a
	// per-process window otherwise.
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute)
		middlewares = append(middlewares, limiter.Middleware())
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "clinic")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
