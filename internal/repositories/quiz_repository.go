package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mroshb/quizbot/internal/catalog"
	"github.com/mroshb/quizbot/internal/models"
	"github.com/mroshb/quizbot/pkg/logger"
)

// QuizRepository persists quiz definitions; it implements catalog.Store.
type QuizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// LoadAll reads every stored quiz with its questions in position order.
func (r *QuizRepository) LoadAll() ([]*catalog.Quiz, error) {
	var records []models.Quiz
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load quizzes: %w", err)
	}

	quizzes := make([]*catalog.Quiz, 0, len(records))
	for _, record := range records {
		quiz := &catalog.Quiz{
			Name:      record.Name,
			Questions: make([]catalog.Question, 0, len(record.Questions)),
		}
		for _, q := range record.Questions {
			options, err := q.OptionList()
			if err != nil {
				// A bad row must not take the whole catalog down
				logger.Warn("Skipping question with malformed options", "quiz", record.Name, "question_id", q.ID, "error", err)
				continue
			}
			quiz.Questions = append(quiz.Questions, catalog.Question{
				Text:    q.QuestionText,
				Options: options,
			})
		}
		if len(quiz.Questions) == 0 {
			logger.Warn("Skipping quiz with no usable questions", "quiz", record.Name)
			continue
		}
		quizzes = append(quizzes, quiz)
	}

	return quizzes, nil
}

// SaveAll upserts quizzes by name inside one transaction, replacing the
// question set of any quiz that already exists.
func (r *QuizRepository) SaveAll(quizzes []*catalog.Quiz) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, quiz := range quizzes {
			var record models.Quiz
			err := tx.Where("name = ?", quiz.Name).First(&record).Error
			switch {
			case err == nil:
				if err := tx.Where("quiz_id = ?", record.ID).Delete(&models.QuizQuestion{}).Error; err != nil {
					return fmt.Errorf("failed to clear questions for %q: %w", quiz.Name, err)
				}
			case err == gorm.ErrRecordNotFound:
				record = models.Quiz{Name: quiz.Name}
				if err := tx.Create(&record).Error; err != nil {
					return fmt.Errorf("failed to create quiz %q: %w", quiz.Name, err)
				}
			default:
				return fmt.Errorf("failed to look up quiz %q: %w", quiz.Name, err)
			}

			for i, q := range quiz.Questions {
				question := models.QuizQuestion{
					QuizID:       record.ID,
					Position:     i,
					QuestionText: q.Text,
				}
				if err := question.SetOptions(q.Options); err != nil {
					return err
				}
				if err := tx.Create(&question).Error; err != nil {
					return fmt.Errorf("failed to store question %d of %q: %w", i+1, quiz.Name, err)
				}
			}
		}
		return nil
	})
}

// Count reports how many quizzes are stored.
func (r *QuizRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Quiz{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count quizzes: %w", err)
	}
	return count, nil
}
