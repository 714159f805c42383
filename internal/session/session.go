// Package session tracks search sessions: each run of related searches
// gets a UUID, a history of queries with their outcomes, and running
// quality statistics. Sessions persist as JSON under the data dir.
package session

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one search recorded in a session.
type HistoryEntry struct {
	Query       string    `json:"query"`
	Strategy    string    `json:"strategy"`
	Quality     float64   `json:"quality"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Session is one sequence of searches. TargetQuality is captured at
// creation so the background monitor knows what the session was aiming at.
type Session struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	LastUsedAt    time.Time         `json:"last_used_at"`
	TargetQuality float64           `json:"target_quality"`
	History       []HistoryEntry    `json:"history,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`

	// Running stats over History.
	SearchCount int     `json:"search_count"`
	AvgQuality  float64 `json:"avg_quality"`
	BestQuality float64 `json:"best_quality"`

	// MonitorAttempts counts background re-runs for this session.
	MonitorAttempts int `json:"monitor_attempts,omitempty"`
}

// New creates a session with a fresh UUID.
func New(targetQuality float64) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.NewString(),
		CreatedAt:     now,
		LastUsedAt:    now,
		TargetQuality: targetQuality,
		Metadata:      make(map[string]string),
	}
}

// AddSearch appends a history entry and folds it into the running stats.
func (s *Session) AddSearch(entry HistoryEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.History = append(s.History, entry)
	s.LastUsedAt = entry.Timestamp

	s.AvgQuality = (s.AvgQuality*float64(s.SearchCount) + entry.Quality) / float64(s.SearchCount+1)
	s.SearchCount++
	if entry.Quality > s.BestQuality {
		s.BestQuality = entry.Quality
	}
}

// Recent returns the newest n history entries, newest first.
func (s *Session) Recent(n int) []HistoryEntry {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(s.History) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.History[i])
	}
	return out
}

// BelowTarget reports whether the session's best search missed its target.
func (s *Session) BelowTarget() bool {
	return s.SearchCount > 0 && s.BestQuality < s.TargetQuality
}

// LastQuery returns the most recent query, or "" for a fresh session.
func (s *Session) LastQuery() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1].Query
}
