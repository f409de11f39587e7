package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mroshb/quizbot/internal/config"
	"github.com/mroshb/quizbot/internal/database"
	"github.com/mroshb/quizbot/internal/metrics"
	"github.com/mroshb/quizbot/pkg/logger"
	"github.com/mroshb/quizbot/telegram"
)

func main() {
	// Load .env before the logger so LOG_LEVEL from the file takes effect
	envErr := godotenv.Load()

	logger.Init()
	defer logger.Sync()

	if envErr != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := database.SeedQuizzes(db, cfg); err != nil {
		logger.Fatal("Failed to seed quiz catalog", err)
	}

	metrics.Register()
	go func() {
		addr := ":" + cfg.AppPort
		logger.Info("Metrics server listening", "addr", addr)
		if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()

	bot, err := telegram.InitBot(cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize bot", err)
	}

	go bot.Start()
	logger.Info("Bot is running. Press Ctrl+C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	bot.Stop()
}
