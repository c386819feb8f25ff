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

	"ms-campsite/internal/availability"
	availability_api "ms-campsite/internal/availability/api"
	availability_db "ms-campsite/internal/availability/db"
	"ms-campsite/internal/config"
	"ms-campsite/internal/database/migrations"
	"ms-campsite/internal/kafka"
	"ms-campsite/internal/logger"
	"ms-campsite/internal/pass"
	"ms-campsite/internal/stay"
	stay_db "ms-campsite/internal/stay/db"
	stay_kafka "ms-campsite/internal/stay/kafka"
	rediswrap "ms-campsite/internal/stay/redis"
	"ms-campsite/internal/stay/stay_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := cfg.Database.DSN
	if dsn == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
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

	logger.Info("APP", "Starting Campsite Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.Database.MigrationsDir,
			AutoMigrate:   true,
		})
		if err := runner.RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		logger.Info("DATABASE", "Migrations applied")
	}

	var publisher stay.EventPublisher
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.StayRegistered,
			cfg.Kafka.Topics.StayCheckedIn,
			cfg.Kafka.Topics.StayMerged,
			cfg.Kafka.Topics.StayCheckedOut,
			cfg.Kafka.Topics.PlotsAssigned,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}

		publisher = stay_kafka.NewPublisher(kafkaProducer, cfg.Kafka.Topics)
	} else {
		logger.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	plotLocks := rediswrap.NewRedis(redisClient, cfg.Redis.PlotLockTTL)

	stayService := stay.NewService(&stay_db.DB{Bun: bunDB}, plotLocks, publisher)
	checker := availability.NewChecker(&availability_db.DB{Bun: bunDB})
	passes := pass.NewGenerator(cfg.Pass.Secret)

	stayHandler := stay_api.NewHandler(stayService, passes, logger)
	availabilityHandler := availability_api.NewHandler(checker, logger)

	logger.Info("HTTP", "Setting up router")
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/availability", availabilityHandler.CheckAvailability)

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", availabilityHandler.CreateReservation)
			r.Get("/{reservationId}", availabilityHandler.GetReservation)
			r.Post("/{reservationId}/cancel", availabilityHandler.CancelReservation)
		})
		logger.Info("ROUTER", "Reservation routes registered under /api/v1/reservations")

		r.Route("/stays", func(r chi.Router) {
			r.Post("/", stayHandler.RegisterStay)
			r.Get("/{stayId}", stayHandler.GetStay)
			r.Get("/{stayId}/occupants", stayHandler.GetOccupants)
			r.Get("/{stayId}/pass", stayHandler.GetCheckInPass)
			r.Post("/{stayId}/checkin", stayHandler.ConfirmCheckIn)
			r.Post("/{stayId}/checkout", stayHandler.Checkout)
			r.Post("/{stayId}/cancel", stayHandler.CancelStay)
			r.Post("/{stayId}/merge", stayHandler.MergeStays)
			r.Post("/{stayId}/plots", stayHandler.AssignPlots)
		})
		logger.Info("ROUTER", "Stay routes registered under /api/v1/stays")

		r.Route("/plots", func(r chi.Router) {
			r.Get("/{plotId}", stayHandler.GetPlot)
			r.Post("/{plotId}/maintenance", stayHandler.SetPlotMaintenance)
		})
		logger.Info("ROUTER", "Plot routes registered under /api/v1/plots")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Campsite Service running on %s", cfg.Server.Port))
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
		logger.Info("HTTP", "Campsite Service shutdown complete")
	}
}
