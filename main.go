package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/config"
	"github.com/natek434/gardenit/database"
	"github.com/natek434/gardenit/interfaces"
	"github.com/natek434/gardenit/repositories"
	"github.com/natek434/gardenit/routes"
	"github.com/natek434/gardenit/services"
	"github.com/natek434/gardenit/utils"
	"github.com/natek434/gardenit/workers"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize logger
	setupLogger(cfg)

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	if cfg.Environment == "development" {
		if err := database.RunSeeders(db); err != nil {
			logrus.Warnf("Seeding failed: %v", err)
		}
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	reminderRepo := repositories.NewReminderRepository(db)
	gardenRepo := repositories.NewGardenRepository(db)
	plantingRepo := repositories.NewPlantingRepository(db)
	focusRepo := repositories.NewFocusRepository(db)
	plantRepo := repositories.NewPlantRepository(db)

	// Initialize services
	weatherService := services.NewWeatherService(cfg.Engine.WeatherTimeout)
	forecaster := services.NewCachedForecaster(weatherService, redisClient, cfg.Engine.WeatherCacheTTL)

	mailer := buildMailer(cfg)

	contextService := services.NewContextService(forecaster, focusRepo, reminderRepo, plantingRepo, plantRepo)
	actionService := services.NewActionService(notificationRepo, reminderRepo, gardenRepo, mailer)
	ruleService := services.NewRuleService(ruleRepo)
	evaluationService := services.NewEvaluationService(ruleRepo, contextService, actionService, ruleService)
	notificationService := services.NewNotificationService(notificationRepo)

	// Initialize the engine worker
	worker := workers.NewEvaluationWorker(redisClient, evaluationService, userRepo, cfg.Engine)
	if err := worker.Start(); err != nil {
		logrus.Fatal("Failed to start evaluation worker: ", err)
	}
	defer worker.Stop()

	// Setup routes
	router := routes.SetupRoutes(routes.Dependencies{
		DB:          db,
		Redis:       redisClient,
		JWTService:  utils.NewJWTService(cfg.JWTSecret),
		UserRepo:    userRepo,
		RuleService: ruleService,
		Notifier:    notificationService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		logrus.Info("Gardenit engine starting on port ", cfg.Port)
		logrus.Info("Health check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("Server shutdown complete")
}

func buildMailer(cfg *config.Config) interfaces.Mailer {
	if cfg.EmailProvider == "smtp" && cfg.SMTPUsername != "" {
		return services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	logrus.Warn("SMTP not configured, email delivery will be logged only")
	return services.NewMockMailer()
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
