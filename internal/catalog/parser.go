package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mroshb/quizbot/internal/security"
	apperrors "github.com/mroshb/quizbot/pkg/errors"
)

// MinOptions is the smallest option list a question may carry.
const MinOptions = 2

// rawQuizFile mirrors the upload format:
// {"quiz_name": {"questions": [{"question": "...", "options": ["...", ...]}]}}
type rawQuizFile map[string]struct {
	Questions []struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	} `json:"questions"`
}

// ParseJSON decodes and validates a quiz definition file. All text is
// sanitized before it can ever reach a session; question and option order is
// preserved.
func ParseJSON(data []byte) ([]*Quiz, error) {
	var raw rawQuizFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid quiz JSON")
	}
	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "quiz file defines no quizzes")
	}

	quizzes := make([]*Quiz, 0, len(raw))
	for name, def := range raw {
		quiz := &Quiz{
			Name:      security.SanitizeText(name),
			Questions: make([]Question, 0, len(def.Questions)),
		}
		for _, q := range def.Questions {
			question := Question{
				Text:    security.SanitizeText(q.Question),
				Options: make([]string, 0, len(q.Options)),
			}
			for _, opt := range q.Options {
				question.Options = append(question.Options, security.SanitizeText(opt))
			}
			quiz.Questions = append(quiz.Questions, question)
		}
		if err := validateQuiz(quiz); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}

	return quizzes, nil
}

// ParseWorkbook reads an xlsx workbook where each sheet is one quiz: the
// sheet name is the quiz name, the first row is a header, and every following
// row holds the question text in column A with option labels in the columns
// after it.
func ParseWorkbook(r io.Reader) ([]*Quiz, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid workbook")
	}
	defer f.Close()

	var quizzes []*Quiz
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation,
				fmt.Sprintf("failed to read sheet %q", sheet))
		}

		quiz := &Quiz{Name: security.SanitizeText(sheet)}
		for i, row := range rows {
			if i == 0 || len(row) == 0 { // header or blank row
				continue
			}

			question := Question{Text: security.SanitizeText(row[0])}
			for _, cell := range row[1:] {
				if opt := security.SanitizeText(cell); opt != "" {
					question.Options = append(question.Options, opt)
				}
			}
			quiz.Questions = append(quiz.Questions, question)
		}

		if err := validateQuiz(quiz); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}

	if len(quizzes) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "workbook defines no quizzes")
	}
	return quizzes, nil
}

func validateQuiz(quiz *Quiz) error {
	if quiz.Name == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "quiz name cannot be empty")
	}
	if len(quiz.Questions) == 0 {
		return apperrors.New(apperrors.ErrCodeValidation,
			fmt.Sprintf("quiz %q has no questions", quiz.Name))
	}
	for i, q := range quiz.Questions {
		if q.Text == "" {
			return apperrors.New(apperrors.ErrCodeValidation,
				fmt.Sprintf("quiz %q question %d has empty text", quiz.Name, i+1))
		}
		if len(q.Options) < MinOptions {
			return apperrors.New(apperrors.ErrCodeValidation,
				fmt.Sprintf("quiz %q question %d needs at least %d options", quiz.Name, i+1, MinOptions))
		}
		for j, opt := range q.Options {
			if opt == "" {
				return apperrors.New(apperrors.ErrCodeValidation,
					fmt.Sprintf("quiz %q question %d option %d is empty", quiz.Name, i+1, j+1))
			}
		}
	}
	return nil
}
