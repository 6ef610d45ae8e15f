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
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"conf-registration/internal/allocation"
	allocation_db "conf-registration/internal/allocation/db"
	allocredis "conf-registration/internal/allocation/redis"
	"conf-registration/internal/config"
	"conf-registration/internal/database/migrations"
	fees_db "conf-registration/internal/fees/db"
	"conf-registration/internal/fees/fee_api"
	fees_service "conf-registration/internal/fees/service"
	"conf-registration/internal/kafka"
	"conf-registration/internal/logger"
	"conf-registration/internal/registration"
	"conf-registration/internal/registration/confirm"
	registration_db "conf-registration/internal/registration/db"
	"conf-registration/internal/registration/registration_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.Ping()
		}
		if err == nil {
			break
		}
		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	logger.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Registration Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if err := migrations.NewRunner(bunDB, "./migrations").Up(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.Topics()); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	catalogDB := &fees_db.DB{Bun: bunDB}

	var feePublisher fees_service.EventPublisher
	var regCreatedPublisher allocation.KafkaPublisher
	var regCancelledPublisher registration.KafkaPublisher
	if producer != nil {
		feePublisher = producer
		regCreatedPublisher = producer
		regCancelledPublisher = producer
	}

	feeService := fees_service.NewFeeService(catalogDB, feePublisher, fees_service.SystemClock(), cfg.Registration.DefaultCurrency)

	gate := allocation.NewService(
		&allocation_db.DB{Bun: bunDB},
		allocredis.NewRedis(redisClient),
		regCreatedPublisher,
	)
	gate.LockWait = cfg.Registration.FeeLockWait

	registrationService := registration.NewService(
		&registration_db.DB{Bun: bunDB},
		gate,
		catalogDB,
		confirm.NewQRGenerator(cfg.Registration.QRSecret),
		regCancelledPublisher,
	)

	feeHandler := fee_api.NewHandler(feeService, catalogDB, logger)
	regHandler := &registration_api.Handler{
		RegistrationService: registrationService,
		Logger:              logger,
	}

	logger.Info("HTTP", "Setting up router")
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/conferences/{conference}", func(r chi.Router) {
			r.Get("/fees", feeHandler.GetPublicFees)
			r.Post("/registrations", regHandler.Register)
			r.Get("/registrations", regHandler.ListRegistrations)
		})
		r.Post("/registrations/verify", regHandler.VerifyConfirmation)
		r.Route("/registrations/{registrationID}", func(r chi.Router) {
			r.Get("/", regHandler.GetRegistration)
			r.Get("/qr", regHandler.GetConfirmationQR)
			r.Delete("/", regHandler.CancelRegistration)
		})
	})
	logger.Info("ROUTER", "Public routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Registration Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "Registration Service shutdown complete")
	}
}
