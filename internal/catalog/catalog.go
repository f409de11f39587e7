// Package catalog owns the named quiz definitions: parsing uploaded sources,
// validating them eagerly, persisting through a Store and serving lookups
// from an in-memory cache. Everything handed out is immutable; sessions and
// the renderer only ever read these values.
package catalog

import (
	"sort"
	"sync"

	apperrors "github.com/mroshb/quizbot/pkg/errors"
	"github.com/mroshb/quizbot/pkg/logger"
)

var ErrQuizNotFound = apperrors.New(apperrors.ErrCodeNotFound, "quiz not found")

// Question is one prompt with its ordered option labels (always 2+).
type Question struct {
	Text    string
	Options []string
}

// Quiz is an immutable, validated quiz definition.
type Quiz struct {
	Name      string
	Questions []Question
}

// Store is the persistence boundary; implemented by repositories.QuizRepository.
type Store interface {
	LoadAll() ([]*Quiz, error)
	SaveAll(quizzes []*Quiz) error
}

type Catalog struct {
	store   Store
	mu      sync.RWMutex
	quizzes map[string]*Quiz
}

// New builds a catalog warmed from the store.
func New(store Store) (*Catalog, error) {
	quizzes, err := store.LoadAll()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to load quiz catalog")
	}

	c := &Catalog{
		store:   store,
		quizzes: make(map[string]*Quiz, len(quizzes)),
	}
	for _, quiz := range quizzes {
		c.quizzes[quiz.Name] = quiz
	}

	logger.Info("Quiz catalog loaded", "quizzes", len(c.quizzes))
	return c, nil
}

// Get returns the quiz with the given name.
func (c *Catalog) Get(name string) (*Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quiz, ok := c.quizzes[name]
	if !ok {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

// Names lists all known quiz names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.quizzes))
	for name := range c.quizzes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Upsert persists the given quizzes and makes them visible to lookups.
// Existing quizzes with the same name are replaced, others are untouched.
// The cache is only updated after the store accepted the batch.
func (c *Catalog) Upsert(quizzes []*Quiz) error {
	if len(quizzes) == 0 {
		return apperrors.New(apperrors.ErrCodeValidation, "no quizzes to save")
	}

	if err := c.store.SaveAll(quizzes); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to save quizzes")
	}

	c.mu.Lock()
	for _, quiz := range quizzes {
		c.quizzes[quiz.Name] = quiz
	}
	c.mu.Unlock()

	logger.Info("Quiz catalog updated", "quizzes", len(quizzes))
	return nil
}
