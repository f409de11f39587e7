package database

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mroshb/quizbot/internal/catalog"
	"github.com/mroshb/quizbot/internal/config"
	"github.com/mroshb/quizbot/internal/models"
	"github.com/mroshb/quizbot/internal/repositories"
	"github.com/mroshb/quizbot/pkg/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	var logLevel gormlogger.LogLevel
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true, // Skip wrapping every operation in a transaction
		PrepareStmt:            true, // Cache prepared statements
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// The catalog is read once at startup and on uploads; a small pool is plenty.
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	logger.Info("Database connected successfully")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Quiz{},
		&models.QuizQuestion{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// SeedQuizzes fills an empty catalog, preferring the quiz JSON file named in
// the config and falling back to a built-in starter quiz.
func SeedQuizzes(db *gorm.DB, cfg *config.Config) error {
	repo := repositories.NewQuizRepository(db)

	count, err := repo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if data, err := os.ReadFile(cfg.QuizDataPath); err == nil {
		quizzes, err := catalog.ParseJSON(data)
		if err != nil {
			return fmt.Errorf("quiz data file %q is invalid: %w", cfg.QuizDataPath, err)
		}
		logger.Info("Seeding quizzes from file", "path", cfg.QuizDataPath, "quizzes", len(quizzes))
		return repo.SaveAll(quizzes)
	}

	logger.Info("Seeding built-in starter quiz")
	return repo.SaveAll([]*catalog.Quiz{defaultQuiz()})
}

func defaultQuiz() *catalog.Quiz {
	return &catalog.Quiz{
		Name: "general_knowledge",
		Questions: []catalog.Question{
			{
				Text:    "What is the capital of France?",
				Options: []string{"Paris", "London", "Berlin", "Rome"},
			},
			{
				Text:    "Which planet is known as the red planet?",
				Options: []string{"Earth", "Mars", "Jupiter", "Venus"},
			},
		},
	}
}
