package session

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/mroshb/quizbot/internal/catalog"
)

func twoQuestionQuiz() *catalog.Quiz {
	return &catalog.Quiz{
		Name: "general_knowledge",
		Questions: []catalog.Question{
			{Text: "Capital of France?", Options: []string{"Paris", "London", "Berlin", "Rome"}},
			{Text: "Red planet?", Options: []string{"Earth", "Mars", "Jupiter", "Venus"}},
		},
	}
}

func TestManager_Start(t *testing.T) {
	m := NewManager()

	snap, err := m.Start(1, twoQuestionQuiz(), 42)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if snap.QuestionIndex != 0 {
		t.Errorf("QuestionIndex = %d, want 0", snap.QuestionIndex)
	}
	if snap.QuestionCount != 2 {
		t.Errorf("QuestionCount = %d, want 2", snap.QuestionCount)
	}
	if !reflect.DeepEqual(snap.Tally, []int{0, 0, 0, 0}) {
		t.Errorf("Tally = %v, want all zero", snap.Tally)
	}
	if snap.IsFinal {
		t.Error("IsFinal = true on start")
	}
}

func TestManager_StartBusyChat(t *testing.T) {
	m := NewManager()

	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := m.Start(1, twoQuestionQuiz(), 99); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Start() error = %v, want ErrAlreadyActive", err)
	}

	// Another chat is unaffected
	if _, err := m.Start(2, twoQuestionQuiz(), 42); err != nil {
		t.Errorf("Start() on other chat error = %v", err)
	}
}

func TestManager_Vote(t *testing.T) {
	m := NewManager()
	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	snap, err := m.Vote(1, 7, 0)
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	if !reflect.DeepEqual(snap.Tally, []int{1, 0, 0, 0}) {
		t.Errorf("Tally = %v, want [1 0 0 0]", snap.Tally)
	}

	// Second vote by the same user is rejected and changes nothing
	if _, err := m.Vote(1, 7, 1); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("re-vote error = %v, want ErrAlreadyVoted", err)
	}
	current, err := m.Current(1)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !reflect.DeepEqual(current.Tally, []int{1, 0, 0, 0}) {
		t.Errorf("Tally after rejected re-vote = %v, want [1 0 0 0]", current.Tally)
	}

	// A different user may still vote
	snap, err = m.Vote(1, 8, 1)
	if err != nil {
		t.Fatalf("Vote() by second user error = %v", err)
	}
	if !reflect.DeepEqual(snap.Tally, []int{1, 1, 0, 0}) {
		t.Errorf("Tally = %v, want [1 1 0 0]", snap.Tally)
	}
}

func TestManager_VoteFailures(t *testing.T) {
	m := NewManager()

	if _, err := m.Vote(1, 7, 0); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Vote() without session error = %v, want ErrNoActiveSession", err)
	}

	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	tests := []struct {
		name   string
		option int
	}{
		{name: "Negative option", option: -1},
		{name: "Option past range", option: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Vote(1, 9, tt.option); !errors.Is(err, ErrInvalidOption) {
				t.Errorf("Vote() error = %v, want ErrInvalidOption", err)
			}
		})
	}

	// Failed votes left no trace
	snap, err := m.Current(1)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !reflect.DeepEqual(snap.Tally, []int{0, 0, 0, 0}) {
		t.Errorf("Tally = %v, want all zero", snap.Tally)
	}

	// User 9's rejected votes must not count as having voted
	if _, err := m.Vote(1, 9, 3); err != nil {
		t.Errorf("Vote() after rejected attempts error = %v", err)
	}
}

func TestManager_Advance(t *testing.T) {
	m := NewManager()
	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.Vote(1, 7, 0); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	snap, err := m.Advance(1, 42)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if snap.QuestionIndex != 1 {
		t.Errorf("QuestionIndex = %d, want 1", snap.QuestionIndex)
	}
	if !reflect.DeepEqual(snap.Tally, []int{0, 0, 0, 0}) {
		t.Errorf("Tally after advance = %v, want reset to zero", snap.Tally)
	}
	if snap.QuestionText != "Red planet?" {
		t.Errorf("QuestionText = %q, want %q", snap.QuestionText, "Red planet?")
	}

	// The voted set was cleared: user 7 may vote again on the new question
	if _, err := m.Vote(1, 7, 2); err != nil {
		t.Errorf("Vote() on next question error = %v", err)
	}
}

func TestManager_AdvanceAuthorization(t *testing.T) {
	m := NewManager()
	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := m.Advance(1, 99); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Advance() by non-starter error = %v, want ErrNotAuthorized", err)
	}

	// State unchanged
	snap, err := m.Current(1)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if snap.QuestionIndex != 0 {
		t.Errorf("QuestionIndex = %d, want 0 after rejected advance", snap.QuestionIndex)
	}
}

func TestManager_AdvanceToCompletion(t *testing.T) {
	m := NewManager()
	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := m.Advance(1, 42); err != nil {
		t.Fatalf("Advance() to question 1 error = %v", err)
	}
	if _, err := m.Vote(1, 7, 1); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	snap, err := m.Advance(1, 42)
	if err != nil {
		t.Fatalf("final Advance() error = %v", err)
	}
	if !snap.IsFinal {
		t.Error("IsFinal = false on completion")
	}
	if !reflect.DeepEqual(snap.Tally, []int{0, 1, 0, 0}) {
		t.Errorf("final Tally = %v, want [0 1 0 0]", snap.Tally)
	}

	// Session is gone
	if _, err := m.Advance(1, 42); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Advance() after completion error = %v, want ErrNoActiveSession", err)
	}
	if _, err := m.Vote(1, 7, 0); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Vote() after completion error = %v, want ErrNoActiveSession", err)
	}
	if m.Active() != 0 {
		t.Errorf("Active() = %d, want 0", m.Active())
	}

	// The chat is free for a new quiz
	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Errorf("Start() after completion error = %v", err)
	}
}

func TestManager_Stop(t *testing.T) {
	m := NewManager()

	if m.Stop(1) {
		t.Error("Stop() on idle chat = true, want false")
	}

	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !m.Stop(1) {
		t.Error("Stop() = false, want true")
	}
	if m.Stop(1) {
		t.Error("second Stop() = true, want false")
	}

	if _, err := m.Vote(1, 7, 0); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Vote() after Stop error = %v, want ErrNoActiveSession", err)
	}
}

func TestManager_ScenarioFromTwoQuestions(t *testing.T) {
	m := NewManager()
	quiz := twoQuestionQuiz()

	snap, err := m.Start(1, quiz, 42)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if snap.QuestionIndex != 0 || !reflect.DeepEqual(snap.Tally, []int{0, 0, 0, 0}) {
		t.Fatalf("unexpected start snapshot: %+v", snap)
	}

	snap, err = m.Vote(1, 7, 0)
	if err != nil || !reflect.DeepEqual(snap.Tally, []int{1, 0, 0, 0}) {
		t.Fatalf("Vote() = %+v, %v", snap, err)
	}

	if _, err = m.Vote(1, 7, 1); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("re-vote error = %v, want ErrAlreadyVoted", err)
	}

	snap, err = m.Advance(1, 42)
	if err != nil || snap.QuestionIndex != 1 || !reflect.DeepEqual(snap.Tally, []int{0, 0, 0, 0}) {
		t.Fatalf("Advance() = %+v, %v", snap, err)
	}

	snap, err = m.Advance(1, 42)
	if err != nil || !snap.IsFinal {
		t.Fatalf("final Advance() = %+v, %v", snap, err)
	}

	if _, err = m.Vote(1, 7, 0); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("Vote() after completion error = %v, want ErrNoActiveSession", err)
	}
}

func TestManager_SnapshotIsolation(t *testing.T) {
	m := NewManager()
	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	snap, err := m.Vote(1, 7, 0)
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	snap.Tally[0] = 99

	current, err := m.Current(1)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.Tally[0] != 1 {
		t.Errorf("Tally[0] = %d, want 1 (snapshot mutation leaked into session)", current.Tally[0])
	}
}

func TestManager_ConcurrentVotes(t *testing.T) {
	m := NewManager()
	if _, err := m.Start(1, twoQuestionQuiz(), 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const voters = 100
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			m.Vote(1, userID, int(userID)%4)
		}(int64(i + 1000))
	}
	wg.Wait()

	snap, err := m.Current(1)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	total := 0
	for _, n := range snap.Tally {
		total += n
	}
	if total != voters {
		t.Errorf("total votes = %d, want %d", total, voters)
	}
}

func TestManager_ConcurrentStartSingleWinner(t *testing.T) {
	m := NewManager()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(starter int64) {
			defer wg.Done()
			_, err := m.Start(5, twoQuestionQuiz(), starter)
			errs <- err
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyActive) {
			t.Errorf("unexpected Start() error = %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful starts = %d, want exactly 1", succeeded)
	}
	if m.Active() != 1 {
		t.Errorf("Active() = %d, want 1", m.Active())
	}
}

func TestManager_ManyChatsIndependent(t *testing.T) {
	m := NewManager()

	for chat := int64(1); chat <= 5; chat++ {
		if _, err := m.Start(chat, twoQuestionQuiz(), chat*100); err != nil {
			t.Fatalf("Start(chat %d) error = %v", chat, err)
		}
	}

	// Voting in one chat never shows up in another
	if _, err := m.Vote(3, 7, 2); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	for chat := int64(1); chat <= 5; chat++ {
		snap, err := m.Current(chat)
		if err != nil {
			t.Fatalf("Current(chat %d) error = %v", chat, err)
		}
		want := []int{0, 0, 0, 0}
		if chat == 3 {
			want = []int{0, 0, 1, 0}
		}
		if !reflect.DeepEqual(snap.Tally, want) {
			t.Errorf("chat %d Tally = %v, want %v", chat, snap.Tally, want)
		}
	}

	if m.Active() != 5 {
		t.Errorf("Active() = %d, want 5", m.Active())
	}
}

func TestManager_SingleQuestionQuiz(t *testing.T) {
	m := NewManager()
	quiz := &catalog.Quiz{
		Name: "lightning",
		Questions: []catalog.Question{
			{Text: "Yes or no?", Options: []string{"Yes", "No"}},
		},
	}

	if _, err := m.Start(1, quiz, 42); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Vote(1, int64(10+i), i%2); err != nil {
			t.Fatalf("Vote() error = %v", err)
		}
	}

	snap, err := m.Advance(1, 42)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !snap.IsFinal {
		t.Error("IsFinal = false, want true for single-question quiz")
	}
	if !reflect.DeepEqual(snap.Tally, []int{2, 1}) {
		t.Errorf("final Tally = %v, want [2 1]", snap.Tally)
	}
}

func ExampleManager() {
	m := NewManager()
	quiz := &catalog.Quiz{
		Name: "demo",
		Questions: []catalog.Question{
			{Text: "Pick one", Options: []string{"A", "B"}},
		},
	}

	m.Start(1, quiz, 42)
	snap, _ := m.Vote(1, 7, 0)
	fmt.Println(snap.Tally)
	// Output: [1 0]
}
