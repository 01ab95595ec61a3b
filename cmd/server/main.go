package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/application"
	"github.com/autopool/service-rides/internal/common/auth"
	"github.com/autopool/service-rides/internal/common/database"
	"github.com/autopool/service-rides/internal/common/health"
	"github.com/autopool/service-rides/internal/common/kafka"
	"github.com/autopool/service-rides/internal/common/logger"
	"github.com/autopool/service-rides/internal/common/middleware"
	"github.com/autopool/service-rides/internal/config"
	"github.com/autopool/service-rides/internal/consumer"
	bookingDomain "github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/domain/catalog"
	"github.com/autopool/service-rides/internal/handler"
	"github.com/autopool/service-rides/internal/repository"
	"github.com/autopool/service-rides/internal/statussync"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-rides")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-rides",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations. File migrations carry the partial unique
	// index that backs the one-active-booking rule, so auto-migrate is
	// dev-only.
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.DriverModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_one_active_per_rider
			ON bookings (rider_id) WHERE status IN ('pending', 'confirmed')`).Error; err != nil {
			log.Fatal("failed to create active-booking index", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		dbURL := dbConfig.DatabaseURL()
		if err := database.RunMigrations(dbURL, "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer func() { _ = redisClient.Close() }()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize stores
	bookingRepo := repository.NewGormBookingRepository(db)
	driverAssigner := repository.NewGormDriverAssigner(db)
	riderLocker := repository.NewRedisRiderLocker(redisClient)
	locationStore := repository.NewRedisLocationStore(redisClient)

	// Initialize domain services
	destinations := catalog.Default()
	fares := catalog.NewTieredFareCalculator()
	codes := bookingDomain.NewRandomCodeGenerator()
	guard := application.NewActiveBookingGuard(bookingRepo)

	// Initialize application services
	bookingService := application.NewBookingService(
		bookingRepo,
		destinations,
		fares,
		codes,
		guard,
		riderLocker,
		kafkaProducer,
		log,
	)
	poolService := application.NewPoolService(
		bookingRepo,
		destinations,
		driverAssigner,
		codes,
		kafkaProducer,
		log,
	)
	locationService := application.NewLocationService(locationStore, bookingRepo, log)

	// Initialize the status synchronizer
	statusSync := statussync.New(log)

	// Initialize and start Kafka consumers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolGroupID := cfg.KafkaConfig.GroupPrefix + "pool-aggregator"
	poolConsumer := consumer.NewPoolEventConsumer(
		cfg.KafkaConfig.Brokers,
		poolGroupID,
		poolService,
		log,
	)
	defer func() { _ = poolConsumer.Close() }()

	go func() {
		log.Info("starting pool event consumer", zap.String("group", poolGroupID))
		if err := poolConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("pool event consumer error", zap.Error(err))
		}
	}()

	// The status consumer uses a per-instance group so every instance sees
	// every event; websocket subscribers live on one instance only.
	statusGroupID := cfg.KafkaConfig.GroupPrefix + "status-sync." + uuid.NewString()
	statusConsumer := consumer.NewStatusEventConsumer(
		cfg.KafkaConfig.Brokers,
		statusGroupID,
		statusSync,
		log,
	)
	defer func() { _ = statusConsumer.Close() }()

	go func() {
		log.Info("starting status event consumer", zap.String("group", statusGroupID))
		if err := statusConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("status event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	eventStreamHandler := handler.NewEventStreamHandler(bookingService, statusSync, log)
	bookingHandler := handler.NewBookingHandler(bookingService, locationService, eventStreamHandler)
	poolHandler := handler.NewPoolHandler(poolService)
	catalogHandler := handler.NewCatalogHandler(destinations, fares)
	locationHandler := handler.NewLocationHandler(locationService)
	adminBookingHandler := handler.NewAdminBookingHandler(bookingService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check and metrics routes
	healthHandler := health.NewHandler(db, "service-rides")
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register routes
	catalogHandler.RegisterRoutes(&router.RouterGroup)
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	poolHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	locationHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	eventStreamHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminBookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-rides...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-rides stopped")
}
