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
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"conf-registration/internal/config"
	fees_db "conf-registration/internal/fees/db"
	"conf-registration/internal/fees/fee_api"
	fees_service "conf-registration/internal/fees/service"
	"conf-registration/internal/kafka"
	"conf-registration/internal/logger"
)

// The fees service exposes the admin catalog API. It shares the database
// with the registration service but never touches the allocation path.
func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	logger.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	var producer *kafka.Producer
	var feePublisher fees_service.EventPublisher
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		feePublisher = producer
	}

	catalogDB := &fees_db.DB{Bun: bunDB}
	feeService := fees_service.NewFeeService(catalogDB, feePublisher, fees_service.SystemClock(), cfg.Registration.DefaultCurrency)
	handler := fee_api.NewHandler(feeService, catalogDB, logger)

	r := chi.NewRouter()
	r.Route("/api/admin/conferences/{conference}/fees", func(r chi.Router) {
		r.Get("/", handler.GetAdminFees)
		r.Post("/", handler.CreateFee)
		r.Put("/reorder", handler.ReorderFees)
		r.Put("/{feeID}", handler.UpdateFee)
		r.Delete("/{feeID}", handler.DeactivateFee)
	})
	logger.Info("ROUTER", "Admin fee routes registered under /api/admin")

	port := os.Getenv("FEES_SERVICE_PORT")
	if port == "" {
		port = ":8081"
	}
	server := &http.Server{
		Addr:         port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Fees Service running on %s", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "Fees Service shutdown complete")
	}
}
