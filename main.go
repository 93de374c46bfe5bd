package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"gatepass/internal/analytics"
	analytics_api "gatepass/internal/analytics/api"
	"gatepass/internal/auth"
	"gatepass/internal/config"
	"gatepass/internal/fulfillment"
	"gatepass/internal/fulfillment/fulfillment_api"
	fulfillredis "gatepass/internal/fulfillment/redis"
	"gatepass/internal/kafka"
	"gatepass/internal/logger"
	"gatepass/internal/notify"
	"gatepass/internal/orders/order_api"
	"gatepass/internal/qr"
	"gatepass/internal/refund"
	"gatepass/internal/refund/refund_api"
	"gatepass/internal/scan"
	"gatepass/internal/scan/scan_api"
	"gatepass/internal/store"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting gatepass fulfillment service")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", "No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	db := &store.DB{Bun: bunDB}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		topics := []string{
			cfg.Kafka.Topics.OrderFulfilled,
			cfg.Kafka.Topics.ItemScanned,
			cfg.Kafka.Topics.ItemRefunded,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to ensure topics exist: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		log.Info("KAFKA", fmt.Sprintf("Producer connected to %v", cfg.Kafka.Brokers))
	} else {
		log.Warn("KAFKA", "Kafka disabled, events will not be streamed")
	}

	guard := fulfillredis.NewGuard(redisClient)
	qrGen := qr.NewGenerator(cfg.Site.BaseURL)
	qrCache := qr.NewImageCache(redisClient)

	emailSender := notify.NewEmailSender(cfg.Email)
	var smsSender *notify.SMSSender
	if cfg.SMSEnabled() {
		smsSender = notify.NewSMSSender(cfg.SMS, cfg.Site.BaseURL)
		log.Info("NOTIFY", "SMS notifications enabled")
	}
	var pdfGen *notify.PassSheetGenerator
	if gen, err := notify.NewPassSheetGenerator(cfg.Site.FontPath); err != nil {
		log.Warn("NOTIFY", fmt.Sprintf("Pass sheet PDFs disabled: %v", err))
	} else {
		pdfGen = gen
	}
	dispatcher := notify.NewDispatcher(emailSender, smsSender, pdfGen, log)

	var fulfillKafka fulfillment.KafkaPublisher
	var scanKafka scan.KafkaPublisher
	var refundKafka refund.KafkaPublisher
	if producer != nil {
		fulfillKafka = producer
		scanKafka = producer
		refundKafka = producer
	}

	fulfillService := fulfillment.NewService(db, guard, qrGen, dispatcher, fulfillKafka, log)
	worker := fulfillment.NewWorker(fulfillService, log)
	worker.Start()

	webhookHandler := &fulfillment_api.Handler{
		Worker:        worker,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Logger:        log,
	}

	tokens := auth.NewTokenIssuer(cfg.Scanner.JWTSecret, cfg.Scanner.TokenTTL)
	scanService := scan.NewService(db, tokens, scanKafka, log)
	scanHandler := scan_api.NewHandler(scanService)

	provider, err := refund.NewStripeProvider(cfg.Stripe.SecretKey)
	if err != nil {
		log.Fatal("STRIPE", fmt.Sprintf("Failed to initialize Stripe client: %v", err))
	}
	refundService := refund.NewService(db, provider, dispatcher, refundKafka, log)
	refundHandler := refund_api.NewHandler(refundService)

	orderHandler := order_api.NewHandler(db, qrCache, log)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(bunDB), log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Post("/api/stripe/webhook", webhookHandler.StripeWebhook)
	r.Get("/api/orders", orderHandler.GetOrder)
	r.Get("/api/qr/{item_id}", orderHandler.GetQRImage)
	r.Post("/api/scan", scanHandler.Scan)
	r.Post("/api/scanner/login", scanHandler.PINLogin)
	r.Post("/api/refund", refundHandler.Refund)
	r.Get("/api/events/{event_id}/analytics", analyticsHandler.GetEventAnalytics)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("APP", fmt.Sprintf("Listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("APP", fmt.Sprintf("Server failed: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("APP", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("APP", fmt.Sprintf("Server shutdown error: %v", err))
	}

	// Stop accepting webhooks first, then let queued fulfillments finish.
	worker.Stop()

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Producer close error: %v", err))
		}
	}
	redisClient.Close()
	bunDB.Close()

	log.Info("APP", "Shutdown complete")
}
