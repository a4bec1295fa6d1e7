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
	"github.com/medbook-app/medbook/services/auth-service/internal/audit"
	"github.com/medbook-app/medbook/services/auth-service/internal/handlers"
	"github.com/medbook-app/medbook/services/auth-service/internal/outbox"
	"github.com/medbook-app/medbook/services/auth-service/internal/sessions"
	"github.com/medbook-app/medbook/services/auth-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "auth-service")
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	userRepo := storage.NewUserRepository(pool)
	auditRepo := audit.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	refreshRepo := sessions.NewRefreshRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := refreshRepo.DeleteExpired(ctx, time.Now()); err != nil {
					logger.Error("refresh token cleanup failed", "err", err)
				} else if n > 0 {
					logger.Info("expired refresh tokens removed", "count", n)
				}
			}
		}
	}()

	signer := handlers.NewHS256Signer(config.String("JWT_SECRET", "dev-secret"))

	accessTTLMinutes, err := config.Int("ACCESS_TTL_MINUTES", 60)
	if err != nil || accessTTLMinutes <= 0 {
		logger.Error("invalid access ttl minutes", "value", accessTTLMinutes, "err", err)
		panic("invalid ACCESS_TTL_MINUTES")
	}
	refreshTTLHours, err := config.Int("REFRESH_TTL_HOURS", 720)
	if err != nil || refreshTTLHours <= 0 {
		logger.Error("invalid refresh ttl hours", "value", refreshTTLHours, "err", err)
		panic("invalid REFRESH_TTL_HOURS")
	}

	authHandler := handlers.NewAuthHandler(
		signer,
		pool,
		userRepo,
		auditRepo,
		outboxRepo,
		refreshRepo,
		time.Duration(accessTTLMinutes)*time.Minute,
		time.Duration(refreshTTLHours)*time.Hour,
	)
	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("/api/v1/auth/me", authHandler.Me)
	mux.HandleFunc("/api/v1/auth/audit", authHandler.Audit)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "auth")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
