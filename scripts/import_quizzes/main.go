// Imports quiz definitions from a local .json or .xlsx file straight into the
// database, bypassing the bot.
//
// Usage: go run scripts/import_quizzes/main.go <file>
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mroshb/quizbot/internal/catalog"
	"github.com/mroshb/quizbot/internal/repositories"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <quizzes.json|quizzes.xlsx>", filepath.Base(os.Args[0]))
	}
	path := os.Args[1]

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "quizbot"),
		os.Getenv("DB_PASSWORD"),
		envOr("DB_NAME", "quizbot_db"),
		envOr("DB_SSLMODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	quizzes, err := parseFile(path)
	if err != nil {
		log.Fatalf("failed to parse %s: %v", path, err)
	}

	repo := repositories.NewQuizRepository(db)
	if err := repo.SaveAll(quizzes); err != nil {
		log.Fatalf("failed to save quizzes: %v", err)
	}

	for _, quiz := range quizzes {
		log.Printf("imported %q (%d questions)", quiz.Name, len(quiz.Questions))
	}
	log.Printf("done: %d quiz(es)", len(quizzes))
}

func parseFile(path string) ([]*catalog.Quiz, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return catalog.ParseWorkbook(f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.ParseJSON(data)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
