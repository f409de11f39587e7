package catalog

import (
	"errors"
	"testing"

	apperrors "github.com/mroshb/quizbot/pkg/errors"
	"github.com/mroshb/quizbot/pkg/logger"
)

func init() {
	logger.Init()
}

type fakeStore struct {
	quizzes []*Quiz
	saveErr error
}

func (s *fakeStore) LoadAll() ([]*Quiz, error) {
	return s.quizzes, nil
}

func (s *fakeStore) SaveAll(quizzes []*Quiz) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.quizzes = append(s.quizzes, quizzes...)
	return nil
}

func sampleQuiz(name string) *Quiz {
	return &Quiz{
		Name: name,
		Questions: []Question{
			{Text: "Capital of France?", Options: []string{"Paris", "London", "Berlin", "Rome"}},
			{Text: "Red planet?", Options: []string{"Earth", "Mars", "Jupiter", "Venus"}},
		},
	}
}

func TestCatalog_Get(t *testing.T) {
	cat, err := New(&fakeStore{quizzes: []*Quiz{sampleQuiz("general_knowledge")}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	quiz, err := cat.Get("general_knowledge")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Errorf("Get() questions = %d, want 2", len(quiz.Questions))
	}

	if _, err := cat.Get("missing"); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrQuizNotFound", err)
	}
}

func TestCatalog_Upsert(t *testing.T) {
	store := &fakeStore{}
	cat, err := New(store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := cat.Upsert([]*Quiz{sampleQuiz("history")}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if _, err := cat.Get("history"); err != nil {
		t.Errorf("Get() after Upsert error = %v", err)
	}

	names := cat.Names()
	if len(names) != 1 || names[0] != "history" {
		t.Errorf("Names() = %v, want [history]", names)
	}
}

func TestCatalog_UpsertStoreFailureLeavesCacheUntouched(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("db down")}
	cat, err := New(store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := cat.Upsert([]*Quiz{sampleQuiz("science")}); err == nil {
		t.Fatal("Upsert() expected error when store fails, got nil")
	}

	if _, err := cat.Get("science"); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("Get() after failed Upsert error = %v, want ErrQuizNotFound", err)
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{
		"general_knowledge": {
			"questions": [
				{"question": "Capital of France?", "options": ["Paris", "London", "Berlin", "Rome"]},
				{"question": "Red planet?", "options": ["Earth", "Mars", "Jupiter", "Venus"]}
			]
		}
	}`)

	quizzes, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if len(quizzes) != 1 {
		t.Fatalf("ParseJSON() quizzes = %d, want 1", len(quizzes))
	}

	quiz := quizzes[0]
	if quiz.Name != "general_knowledge" {
		t.Errorf("Name = %q, want %q", quiz.Name, "general_knowledge")
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(quiz.Questions))
	}
	if len(quiz.Questions[0].Options) != 4 {
		t.Errorf("options = %d, want 4", len(quiz.Questions[0].Options))
	}
}

func TestParseJSON_SanitizesText(t *testing.T) {
	data := []byte(`{
		"tricky": {
			"questions": [
				{"question": "<b>Bold?</b>\tyes", "options": [" a ", "b"]}
			]
		}
	}`)

	quizzes, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	q := quizzes[0].Questions[0]
	if q.Text != "Bold? yes" {
		t.Errorf("sanitized text = %q, want %q", q.Text, "Bold? yes")
	}
	if q.Options[0] != "a" {
		t.Errorf("sanitized option = %q, want %q", q.Options[0], "a")
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "Malformed JSON",
			data: `{not json`,
		},
		{
			name: "Empty file",
			data: `{}`,
		},
		{
			name: "No questions",
			data: `{"empty": {"questions": []}}`,
		},
		{
			name: "Single option",
			data: `{"thin": {"questions": [{"question": "q", "options": ["only"]}]}}`,
		},
		{
			name: "Empty question text",
			data: `{"blank": {"questions": [{"question": "  ", "options": ["a", "b"]}]}}`,
		},
		{
			name: "Empty option label",
			data: `{"hole": {"questions": [{"question": "q", "options": ["a", ""]}]}}`,
		},
		{
			name: "Empty quiz name",
			data: `{"": {"questions": [{"question": "q", "options": ["a", "b"]}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseJSON() expected error, got nil")
			}
			if code := apperrors.Code(err); code != apperrors.ErrCodeValidation {
				t.Errorf("error code = %q, want %q", code, apperrors.ErrCodeValidation)
			}
		})
	}
}
