package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Quiz is a persisted, named quiz definition. Sessions never touch these rows;
// they run off immutable in-memory copies built by the catalog.
type Quiz struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	Questions []QuizQuestion `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

type QuizQuestion struct {
	ID           uint   `gorm:"primaryKey"`
	QuizID       uint   `gorm:"not null;index"`
	Position     int    `gorm:"not null"`
	QuestionText string `gorm:"type:text;not null"`
	Options      string `gorm:"type:jsonb"` // JSON array of option labels
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// OptionList decodes the jsonb options column.
func (q *QuizQuestion) OptionList() ([]string, error) {
	var options []string
	if err := json.Unmarshal([]byte(q.Options), &options); err != nil {
		return nil, fmt.Errorf("question %d has malformed options: %w", q.ID, err)
	}
	return options, nil
}

// SetOptions encodes option labels into the jsonb options column.
func (q *QuizQuestion) SetOptions(options []string) error {
	data, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	q.Options = string(data)
	return nil
}
