package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/medbook-app/medbook/libs/config"
	"github.com/medbook-app/medbook/libs/db"
	"github.com/medbook-app/medbook/libs/httpx"
	"github.com/medbook-app/medbook/libs/kafkax"
	otelx "github.com/medbook-app/medbook/libs/otel"
	"github.com/medbook-app/medbook/libs/runtime"
	"github.com/medbook-app/medbook/services/analytics-service/internal/consumer"
	"github.com/medbook-app/medbook/services/analytics-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8086")
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

	inboxRepo := inbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "analytics-service")

	handleAppointmentEvent := func(ctx context.Context, msg kafka.Message, kind string) error {
		var payload struct {
			AppointmentID  string `json:"appointment_id"`
			PractitionerID string `json:"practitioner_id"`
			StartTime      string `json:"start_time"`
		}

		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid appointment payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.AppointmentID == "" || payload.PractitionerID == "" || payload.StartTime == "" {
			logger.Error("missing appointment fields", "topic", msg.Topic)
			return nil
		}
		startTime, err := time.Parse(time.RFC3339, payload.StartTime)
		if err != nil {
			logger.Error("invalid start_time", "err", err)
			return nil
		}

		meta := kafkax.ExtractEventMeta(msg)

		tx, err := pool.Begin(ctx)
		if err != nil {
			logger.Error("db begin failed", "err", err)
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		tag, err := tx.Exec(ctx, `
			INSERT INTO appointment_events (event_id, event_type, practitioner_id, appointment_id, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id) DO NOTHING
		`, meta.EventID, meta.EventType, payload.PractitionerID, payload.AppointmentID, startTime.UTC())
		if err != nil {
			logger.Error("failed to insert appointment event", "err", err)
			return err
		}
		if tag.RowsAffected() == 0 {
			_ = tx.Commit(ctx)
			return nil
		}

		bookedInc, rescheduledInc, cancelledInc := 0, 0, 0
		switch kind {
		case "booked":
			bookedInc = 1
		case "rescheduled":
			rescheduledInc = 1
		case "cancelled":
			cancelledInc = 1
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_appointment_metrics (practitioner_id, day, booked_count, rescheduled_count, cancelled_count)
			VALUES ($1, $2::date, $3, $4, $5)
			ON CONFLICT (practitioner_id, day)
			DO UPDATE SET booked_count = daily_appointment_metrics.booked_count + EXCLUDED.booked_count,
			              rescheduled_count = daily_appointment_metrics.rescheduled_count + EXCLUDED.rescheduled_count,
			              cancelled_count = daily_appointment_metrics.cancelled_count + EXCLUDED.cancelled_count,
			              updated_at = now()
		`, payload.PractitionerID, startTime.UTC(), bookedInc, rescheduledInc, cancelledInc); err != nil {
			logger.Error("failed to update daily metrics", "err", err)
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			logger.Error("failed to commit appointment metric", "err", err)
			return err
		}

		logger.Info("appointment metric recorded",
			"appointment_id", payload.AppointmentID,
			"practitioner_id", payload.PractitionerID,
			"event_type", meta.EventType,
		)
		return nil
	}

	startConsumer := func(topic, kind string) {
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			return handleAppointmentEvent(ctx, msg, kind)
		})
		go c.Run(ctx)
	}

	startConsumer("scheduling.appointment.booked.v1", "booked")
	startConsumer("scheduling.appointment.rescheduled.v1", "rescheduled")
	startConsumer("scheduling.appointment.cancelled.v1", "cancelled")

	paymentConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "scheduling.payment.received.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			PaymentID     string `json:"payment_id"`
			AppointmentID string `json:"appointment_id"`
			AmountCents   int64  `json:"amount_cents"`
			Currency      string `json:"currency"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid payment payload", "err", err)
			return nil
		}
		if payload.PaymentID == "" || payload.AmountCents <= 0 {
			logger.Error("missing payment fields")
			return nil
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO daily_revenue_metrics (day, amount_cents, payment_count)
			VALUES (CURRENT_DATE, $1, 1)
			ON CONFLICT (day)
			DO UPDATE SET amount_cents = daily_revenue_metrics.amount_cents + EXCLUDED.amount_cents,
			              payment_count = daily_revenue_metrics.payment_count + 1,
			              updated_at = now()
		`, payload.AmountCents)
		if err != nil {
			logger.Error("failed to update revenue metrics", "err", err)
			return err
		}
		logger.Info("payment metric recorded", "payment_id", payload.PaymentID)
		return nil
	})
	go paymentConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/analytics/daily", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		from, to, ok := parseDayRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if !ok {
			http.Error(w, "from and to must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		rows, err := pool.Query(r.Context(), `
			SELECT practitioner_id::text, day, booked_count, rescheduled_count, cancelled_count
			FROM daily_appointment_metrics
			WHERE day >= $1::date AND day <= $2::date
			ORDER BY day ASC, practitioner_id ASC
		`, from, to)
		if err != nil {
			http.Error(w, "failed to load metrics", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		type dailyRow struct {
			PractitionerID   string `json:"practitioner_id"`
			Day              string `json:"day"`
			BookedCount      int    `json:"booked_count"`
			RescheduledCount int    `json:"rescheduled_count"`
			CancelledCount   int    `json:"cancelled_count"`
		}
		out := []dailyRow{}
		for rows.Next() {
			var row dailyRow
			var day time.Time
			if err := rows.Scan(&row.PractitionerID, &day, &row.BookedCount, &row.RescheduledCount, &row.CancelledCount); err != nil {
				http.Error(w, "failed to scan metrics", http.StatusInternalServerError)
				return
			}
			row.Day = day.Format("2006-01-02")
			out = append(out, row)
		}
		if rows.Err() != nil {
			http.Error(w, "failed to load metrics", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(out)
	})

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
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

func parseDayRange(fromRaw, toRaw string) (string, string, bool) {
	fromRaw = strings.TrimSpace(fromRaw)
	toRaw = strings.TrimSpace(toRaw)
	if fromRaw == "" {
		fromRaw = time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	}
	if toRaw == "" {
		toRaw = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", fromRaw); err != nil {
		return "", "", false
	}
	if _, err := time.Parse("2006-01-02", toRaw); err != nil {
		return "", "", false
	}
	return fromRaw, toRaw, true
}
