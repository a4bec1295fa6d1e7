package main

import (
	"context"
	"net/http"
	"time"

	"github.com/medbook-app/medbook/libs/config"
	"github.com/medbook-app/medbook/libs/db"
	"github.com/medbook-app/medbook/libs/httpx"
	"github.com/medbook-app/medbook/libs/kafkax"
	otelx "github.com/medbook-app/medbook/libs/otel"
	"github.com/medbook-app/medbook/libs/runtime"
	"github.com/medbook-app/medbook/services/clinic-service/internal/handlers"
	"github.com/medbook-app/medbook/services/clinic-service/internal/outbox"
	"github.com/medbook-app/medbook/services/clinic-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "clinic-service")
	port, err := config.Port("PORT", "8083")
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	loc, err := config.Location("TIMEZONE", "UTC")
	if err != nil {
		logger.Error("invalid timezone", "err", err)
		panic(err)
	}

	apptRepo := storage.NewAppointmentRepository(pool)
	dirRepo := storage.NewDirectoryRepository(pool)
	paymentRepo := storage.NewPaymentRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	webhookTolerance, err := config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)
	if err != nil {
		panic(err)
	}

	apptHandler := handlers.NewAppointmentHandler(apptRepo, dirRepo, outboxRepo, logger, loc)
	dirHandler := handlers.NewDirectoryHandler(dirRepo, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentRepo, apptRepo, outboxRepo, logger,
		config.String("STRIPE_WEBHOOK_SECRET", ""), int64(webhookTolerance))

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apptHandler.List(w, r)
			return
		}
		apptHandler.Create(w, r)
	})
	mux.HandleFunc("/api/v1/appointments/reschedule", apptHandler.Reschedule)
	mux.HandleFunc("/api/v1/appointments/status", apptHandler.UpdateStatus)
	mux.HandleFunc("/api/v1/appointments/cancel", apptHandler.Cancel)
	mux.HandleFunc("/api/v1/calendar", apptHandler.Calendar)
	mux.HandleFunc("/api/v1/slots", apptHandler.Slots)
	mux.HandleFunc("/api/v1/practitioners", dirHandler.Practitioners)
	mux.HandleFunc("/api/v1/practitioners/deactivate", dirHandler.DeactivatePractitioner)
	mux.HandleFunc("/api/v1/patients", dirHandler.Patients)
	mux.HandleFunc("/api/v1/services", dirHandler.Services)
	mux.HandleFunc("/api/v1/payments", paymentHandler.Payments)
	mux.HandleFunc("/api/v1/payments/webhooks/stripe", paymentHandler.StripeWebhook)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
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
