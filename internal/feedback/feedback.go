// Package feedback stores user satisfaction ratings for searches and
// answers two questions: how well does a candidate rate, and how often do
// searches matching a pattern satisfy users. Records persist as one JSON
// file with atomic writes.
package feedback

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	scouterr "github.com/expertscout/expertscout/internal/errors"
)

// feedbackFileName under the data dir.
const feedbackFileName = "feedback.json"

// maxFeedbackCandidates caps candidate ids per record.
const maxFeedbackCandidates = 10

// satisfiedThreshold is the satisfaction bar for pattern success rates.
const satisfiedThreshold = 0.7

// Record is one piece of user feedback.
type Record struct {
	SessionID    string    `json:"session_id,omitempty"`
	Query        string    `json:"query"`
	CandidateIDs []int64   `json:"candidate_ids,omitempty"`
	Satisfaction float64   `json:"satisfaction"`
	Comment      string    `json:"comment,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Learner is the hook through which feedback sharpens strategy selection.
type Learner interface {
	RecordFeedback(ctx context.Context, query string, satisfaction float64)
}

// Manager owns the feedback file. A nil learner disables the learning hook.
type Manager struct {
	mu      sync.Mutex
	path    string
	records []Record
	learner Learner
}

// NewManager loads existing feedback from dataDir, creating the file lazily
// on first Add.
func NewManager(dataDir string, learner Learner) (*Manager, error) {
	m := &Manager{
		path:    filepath.Join(dataDir, feedbackFileName),
		learner: learner,
	}
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "read feedback file", err)
	}
	if err := json.Unmarshal(data, &m.records); err != nil {
		return nil, scouterr.New(scouterr.ErrCodeRecordMalformed, "parse feedback file", err)
	}
	return m, nil
}

// Add validates and stores one feedback record, persists the file, and
// feeds the satisfaction back to the learner.
func (m *Manager) Add(ctx context.Context, rec Record) error {
	rec.Query = strings.TrimSpace(rec.Query)
	if rec.Query == "" {
		return scouterr.New(scouterr.ErrCodeInvalidFeedback, "feedback needs the query it rates", nil)
	}
	if rec.Satisfaction < 0 || rec.Satisfaction > 1 {
		return scouterr.New(scouterr.ErrCodeInvalidFeedback, "satisfaction must be between 0 and 1", nil)
	}
	if len(rec.CandidateIDs) > maxFeedbackCandidates {
		rec.CandidateIDs = rec.CandidateIDs[:maxFeedbackCandidates]
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.records = append(m.records, rec)
	err := m.saveLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if m.learner != nil {
		m.learner.RecordFeedback(ctx, rec.Query, rec.Satisfaction)
	}
	return nil
}

// CandidateRating returns the running average satisfaction across all
// feedback that listed the candidate, and how many records did.
func (m *Manager) CandidateRating(id int64) (avg float64, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := 0.0
	for _, rec := range m.records {
		for _, cid := range rec.CandidateIDs {
			if cid == id {
				sum += rec.Satisfaction
				count++
				break
			}
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}

// PatternSuccessRate returns the fraction of records whose query contains
// the pattern and whose satisfaction cleared the bar, plus the match count.
func (m *Manager) PatternSuccessRate(pattern string) (rate float64, matches int) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	satisfied := 0
	for _, rec := range m.records {
		if !strings.Contains(strings.ToLower(rec.Query), pattern) {
			continue
		}
		matches++
		if rec.Satisfaction >= satisfiedThreshold {
			satisfied++
		}
	}
	if matches == 0 {
		return 0, 0
	}
	return float64(satisfied) / float64(matches), matches
}

// Records returns a copy of all feedback, oldest first.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Manager) saveLocked() error {
	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return scouterr.New(scouterr.ErrCodeInternal, "encode feedback", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return scouterr.New(scouterr.ErrCodeStoreIO, "write feedback file", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return scouterr.New(scouterr.ErrCodeStoreIO, "save feedback file", err)
	}
	return nil
}
