package main

import (
	"errors"
	"log"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/api"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/services"
	"github.com/sahilhd/unify/pkg/logger"
)

// @title UniLLM Gateway API
// @version 2.0
// @description Multi-provider LLM gateway with metering and credit billing.

// @host localhost:8000
// @BasePath /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
		Console:    !cfg.IsProduction(),
	}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if _, err := database.Connect(cfg.DSN()); err != nil {
		logger.Log.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.ConnectRedis(cfg); err != nil {
		logger.Log.Fatal("failed to connect redis", zap.Error(err))
	}

	if err := database.DB.AutoMigrate(
		&models.User{},
		&models.UsageLog{},
		&models.BillingHistory{},
	); err != nil {
		logger.Log.Fatal("failed to migrate database", zap.Error(err))
	}

	initAdminUser(cfg)

	router := api.NewRouter(cfg)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	logger.Log.Info("starting gateway", zap.String("port", port), zap.String("version", api.Version))
	if err := router.Run(":" + port); err != nil {
		logger.Log.Fatal("failed to run server", zap.Error(err))
	}
}

// initAdminUser seeds the admin account from ADMIN_EMAIL / ADMIN_PASSWORD.
// Skipped when the variables are unset or the account already exists.
func initAdminUser(cfg *config.Config) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		return
	}

	var admin models.User
	err := database.DB.Where("email = ?", adminEmail).First(&admin).Error
	if err == nil {
		logger.Log.Info("admin user already exists", zap.String("email", adminEmail))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Fatal("failed to check for admin user", zap.Error(err))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash admin password", zap.Error(err))
	}

	apiKey, err := services.GenerateAPIKey()
	if err != nil {
		logger.Log.Fatal("failed to generate admin API key", zap.Error(err))
	}

	admin = models.User{
		Email:              adminEmail,
		PasswordHash:       string(hashedPassword),
		APIKey:             apiKey,
		Credits:            cfg.DefaultCredits,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DailyQuota:         cfg.DailyQuota,
		IsActive:           true,
		IsAdmin:            true,
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		logger.Log.Fatal("failed to create admin user", zap.Error(err))
	}
	logger.Log.Info("admin user created", zap.String("email", adminEmail))
}
