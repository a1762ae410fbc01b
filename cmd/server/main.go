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
	"go.uber.org/zap"

	"github.com/Klinik-Sehat/service-appointment/internal/application"
	"github.com/Klinik-Sehat/service-appointment/internal/auth"
	"github.com/Klinik-Sehat/service-appointment/internal/channel"
	"github.com/Klinik-Sehat/service-appointment/internal/config"
	"github.com/Klinik-Sehat/service-appointment/internal/database"
	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
	"github.com/Klinik-Sehat/service-appointment/internal/events"
	"github.com/Klinik-Sehat/service-appointment/internal/handler"
	"github.com/Klinik-Sehat/service-appointment/internal/logger"
	"github.com/Klinik-Sehat/service-appointment/internal/middleware"
	"github.com/Klinik-Sehat/service-appointment/internal/repository"
	"github.com/Klinik-Sehat/service-appointment/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-appointment")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-appointment",
		zap.String("port", cfg.Port),
		zap.String("clinic_timezone", cfg.ClinicConfig.Timezone),
	)

	// Resolve the clinic's operating timezone
	clinicLoc, err := time.LoadLocation(cfg.ClinicConfig.Timezone)
	if err != nil {
		log.Fatal("invalid clinic timezone", zap.Error(err))
	}

	// Connect to database
	db, err := database.Connect(cfg.DBConfig.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.NotificationLogModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		if err := repository.EnsureSlotConstraint(db); err != nil {
			log.Fatal("failed to ensure slot constraint", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.URL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewManager(cfg.JWTConfig.Secret)

	// Initialize Kafka producer
	producer := events.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = producer.Close() }()

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	logRepo := repository.NewGormNotificationLogRepository(db)

	// Initialize notification channel
	var notifyChannel notification.Channel
	switch cfg.NotifyConfig.Channel {
	case "gateway":
		notifyChannel = channel.NewGatewayChannel(cfg.NotifyConfig.GatewayURL, cfg.NotifyConfig.GatewayToken)
	default:
		notifyChannel = channel.NewConsoleChannel(log)
	}

	recipientMode := notification.ModePhone
	if cfg.NotifyConfig.RecipientMode == string(notification.ModeChat) {
		recipientMode = notification.ModeChat
	}

	// Initialize application services
	notificationService := application.NewNotificationService(logRepo, notifyChannel, recipientMode, log)
	bookingService := application.NewBookingService(
		bookingRepo,
		notificationService,
		producer,
		clinicLoc,
		cfg.ClinicConfig.AutoConfirm,
		log,
	)

	// Start the auto-cancellation sweeper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := worker.NewSweeper(func(ctx context.Context) (int, error) {
		result, err := bookingService.SweepAutoCancel(ctx)
		if err != nil {
			return 0, err
		}
		return result.CancelledCount, nil
	}, cfg.SweepInterval, log)
	go sweeper.Start(ctx)

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	notificationHandler := handler.NewNotificationHandler(bookingService, notificationService)
	adminHandler := handler.NewAdminHandler(bookingService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	// Register health check routes
	healthHandler := handler.NewHealthHandler(db, "service-appointment")
	healthHandler.RegisterRoutes(router)

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	notificationHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

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

	log.Info("shutting down service-appointment...")

	// Stop the sweeper
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-appointment stopped")
}
