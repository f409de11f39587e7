// Package metrics exposes Prometheus counters for quiz activity plus the
// HTTP surface that serves them.
package metrics

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsStopped   prometheus.Counter
	votesTotal        *prometheus.CounterVec
	uploadsTotal      *prometheus.CounterVec
)

// Vote outcome labels.
const (
	VoteAccepted   = "accepted"
	VoteDuplicate  = "duplicate"
	VoteStale      = "stale"
	VoteInvalid    = "invalid"
	VoteNoSession  = "no_session"
	UploadOK       = "ok"
	UploadRejected = "rejected"
)

// Register creates the collectors. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "quizbot_sessions_started_total",
			Help: "Number of quiz sessions started.",
		})
		sessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "quizbot_sessions_completed_total",
			Help: "Number of quiz sessions that reached the final question.",
		})
		sessionsStopped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "quizbot_sessions_stopped_total",
			Help: "Number of quiz sessions stopped before completion.",
		})
		votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quizbot_votes_total",
			Help: "Vote attempts by outcome.",
		}, []string{"result"})
		uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quizbot_uploads_total",
			Help: "Quiz file uploads by outcome.",
		}, []string{"result"})
	})
}

func IncSessionStarted()   { sessionsStarted.Inc() }
func IncSessionCompleted() { sessionsCompleted.Inc() }
func IncSessionStopped()   { sessionsStopped.Inc() }

func IncVote(result string) { votesTotal.WithLabelValues(result).Inc() }

func IncUpload(result string) { uploadsTotal.WithLabelValues(result).Inc() }

// Handler returns the HTTP router serving /metrics and /healthz.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}
