// Package session tracks the one active quiz per chat: who started it, which
// question is showing, and the vote tally for that question. All state is in
// memory and dies with the process.
package session

import (
	"sync"

	"github.com/mroshb/quizbot/internal/catalog"
	apperrors "github.com/mroshb/quizbot/pkg/errors"
)

var (
	ErrAlreadyActive   = apperrors.New(apperrors.ErrCodeAlreadyActive, "a quiz is already running in this chat")
	ErrNoActiveSession = apperrors.New(apperrors.ErrCodeNoActiveSession, "no quiz is running in this chat")
	ErrInvalidOption   = apperrors.New(apperrors.ErrCodeInvalidOption, "that option does not exist for the current question")
	ErrAlreadyVoted    = apperrors.New(apperrors.ErrCodeAlreadyVoted, "you already voted on this question")
	ErrNotAuthorized   = apperrors.New(apperrors.ErrCodeNotAuthorized, "only the quiz starter can do that")
)

// Snapshot is the read-only view handed to the renderer. Tally is a copy;
// Options is shared with the immutable catalog quiz.
type Snapshot struct {
	QuizName      string
	QuestionIndex int
	QuestionCount int
	QuestionText  string
	Options       []string
	Tally         []int
	IsFinal       bool
}

type session struct {
	mu        sync.Mutex
	quiz      *catalog.Quiz
	starterID int64
	index     int
	tally     []int
	voted     map[int64]struct{}
	done      bool
}

// Manager owns the chat id → session registry. The registry lock only guards
// the map; each session carries its own mutex, so chats never contend with
// each other.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*session)}
}

// Start creates a session on question 0 with an all-zero tally. Fails with
// ErrAlreadyActive while the chat has a running quiz.
func (m *Manager) Start(chatID int64, quiz *catalog.Quiz, starterID int64) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[chatID]; exists {
		return nil, ErrAlreadyActive
	}

	s := &session{
		quiz:      quiz,
		starterID: starterID,
		tally:     make([]int, len(quiz.Questions[0].Options)),
		voted:     make(map[int64]struct{}),
	}
	m.sessions[chatID] = s

	return s.snapshot(false), nil
}

// Vote records one vote for the current question and returns the updated
// tally. Re-votes by the same user are rejected, not overwritten; every
// failure leaves the session untouched.
func (m *Manager) Vote(chatID, userID int64, optionIndex int) (*Snapshot, error) {
	s := m.lookup(chatID)
	if s == nil {
		return nil, ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, ErrNoActiveSession
	}
	if optionIndex < 0 || optionIndex >= len(s.tally) {
		return nil, ErrInvalidOption
	}
	if _, voted := s.voted[userID]; voted {
		return nil, ErrAlreadyVoted
	}

	s.voted[userID] = struct{}{}
	s.tally[optionIndex]++

	return s.snapshot(false), nil
}

// Advance moves the session to its next question with a fresh tally, or ends
// the quiz when the last question is passed. The final snapshot carries the
// last question's tally with IsFinal set; the session is gone by the time it
// is returned. Only the starter may advance.
func (m *Manager) Advance(chatID, userID int64) (*Snapshot, error) {
	s := m.lookup(chatID)
	if s == nil {
		return nil, ErrNoActiveSession
	}

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if userID != s.starterID {
		s.mu.Unlock()
		return nil, ErrNotAuthorized
	}

	if s.index+1 >= len(s.quiz.Questions) {
		s.done = true
		snap := s.snapshot(true)
		s.mu.Unlock()
		m.remove(chatID, s)
		return snap, nil
	}

	s.index++
	s.tally = make([]int, len(s.quiz.Questions[s.index].Options))
	s.voted = make(map[int64]struct{})
	snap := s.snapshot(false)
	s.mu.Unlock()

	return snap, nil
}

// Stop removes the chat's session if present and reports whether it did.
func (m *Manager) Stop(chatID int64) bool {
	m.mu.Lock()
	s, exists := m.sessions[chatID]
	delete(m.sessions, chatID)
	m.mu.Unlock()

	if !exists {
		return false
	}

	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	return true
}

// Current returns a snapshot of the running question without mutating state.
func (m *Manager) Current(chatID int64) (*Snapshot, error) {
	s := m.lookup(chatID)
	if s == nil {
		return nil, ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, ErrNoActiveSession
	}
	return s.snapshot(false), nil
}

// Active reports how many chats have a running quiz.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(chatID int64) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[chatID]
}

// remove deletes the entry only if it still maps to s, so a quiz started
// right after completion is never torn down by the stale cleanup.
func (m *Manager) remove(chatID int64, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[chatID] == s {
		delete(m.sessions, chatID)
	}
}

// snapshot must be called with s.mu held.
func (s *session) snapshot(final bool) *Snapshot {
	question := s.quiz.Questions[s.index]
	tally := make([]int, len(s.tally))
	copy(tally, s.tally)

	return &Snapshot{
		QuizName:      s.quiz.Name,
		QuestionIndex: s.index,
		QuestionCount: len(s.quiz.Questions),
		QuestionText:  question.Text,
		Options:       question.Options,
		Tally:         tally,
		IsFinal:       final,
	}
}
