package middleware

import (
	"sync"
	"time"

	"github.com/mroshb/quizbot/internal/config"
	"github.com/mroshb/quizbot/pkg/logger"
)

// RateLimiter throttles commands and votes with sliding windows, one per user
// and one per chat. Chat limits keep a single busy group from starving the
// worker pool.
type RateLimiter struct {
	mu         sync.Mutex
	userEvents map[int64][]time.Time
	chatEvents map[int64][]time.Time
	userLimit  int
	chatLimit  int
	window     time.Duration
	stopCh     chan struct{}
}

func NewRateLimiter(cfg *config.Config) *RateLimiter {
	rl := &RateLimiter{
		userEvents: make(map[int64][]time.Time),
		chatEvents: make(map[int64][]time.Time),
		userLimit:  cfg.RateLimitPerUser,
		chatLimit:  cfg.RateLimitPerChat,
		window:     cfg.GetRateLimitWindow(),
		stopCh:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow records one event for the user and chat and reports whether both are
// inside their limits. A denied event is not recorded.
func (rl *RateLimiter) Allow(userID, chatID int64) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	userTimes := prune(rl.userEvents[userID], now, rl.window)
	chatTimes := prune(rl.chatEvents[chatID], now, rl.window)

	if len(userTimes) >= rl.userLimit || len(chatTimes) >= rl.chatLimit {
		rl.userEvents[userID] = userTimes
		rl.chatEvents[chatID] = chatTimes
		logger.Debug("Rate limit exceeded", "user_id", userID, "chat_id", chatID)
		return false
	}

	rl.userEvents[userID] = append(userTimes, now)
	rl.chatEvents[chatID] = append(chatTimes, now)
	return true
}

// Reset forgets all recorded events.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.userEvents = make(map[int64][]time.Time)
	rl.chatEvents = make(map[int64][]time.Time)
}

// Stop ends the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, times := range rl.userEvents {
		if pruned := prune(times, now, rl.window); len(pruned) == 0 {
			delete(rl.userEvents, id)
		} else {
			rl.userEvents[id] = pruned
		}
	}
	for id, times := range rl.chatEvents {
		if pruned := prune(times, now, rl.window); len(pruned) == 0 {
			delete(rl.chatEvents, id)
		} else {
			rl.chatEvents[id] = pruned
		}
	}
}

func prune(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
