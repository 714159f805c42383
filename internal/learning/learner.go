package learning

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	scouterr "github.com/expertscout/expertscout/internal/errors"
)

// Defaults for the learner's tunables.
const (
	DefaultAlpha      = 0.1
	DefaultFlushEvery = 10
)

// exhaustedConfidence is reported when every strategy has been tried and
// selection falls back to the global best.
const exhaustedConfidence = 0.5

// Options configures a Learner. Zero values take the defaults.
type Options struct {
	// Alpha is the exponential-moving-average learning rate.
	Alpha float64
	// FlushEvery batches record persistence: every N records the pending
	// set is written through to the store.
	FlushEvery int
	// DataDir, when set, is guarded with a file lock so two processes do
	// not update the same learning state.
	DataDir string
	Logger  *slog.Logger
}

// Learner owns the strategy statistics, query patterns, and outcome
// records. Memory is authoritative; the store is a write-behind copy that
// catches up on flush.
type Learner struct {
	mu         sync.Mutex
	store      Store
	logger     *slog.Logger
	alpha      float64
	flushEvery int

	strategies map[string]*Strategy
	patterns   map[string]*QueryPattern
	records    []*LearningRecord
	pending    []*LearningRecord

	fileLock *flock.Flock
}

// NewLearner loads persisted state from the store, seeds any missing
// built-in strategies, and takes the data-dir lock when one is configured.
func NewLearner(ctx context.Context, store Store, opts Options) (*Learner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alpha := opts.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}

	l := &Learner{
		store:      store,
		logger:     logger,
		alpha:      alpha,
		flushEvery: flushEvery,
	}

	if opts.DataDir != "" {
		lock := flock.New(filepath.Join(opts.DataDir, "learning.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, scouterr.New(scouterr.ErrCodeStoreIO, "acquire learning lock", err)
		}
		if !locked {
			return nil, scouterr.New(scouterr.ErrCodeStoreLocked,
				"learning state is locked by another process", nil)
		}
		l.fileLock = lock
	}

	strategies, err := store.LoadStrategies(ctx)
	if err != nil {
		l.unlock()
		return nil, err
	}
	patterns, err := store.LoadPatterns(ctx)
	if err != nil {
		l.unlock()
		return nil, err
	}
	records, err := store.LoadRecords(ctx)
	if err != nil {
		l.unlock()
		return nil, err
	}

	// Seed any strategy the store does not know yet.
	for name, rate := range seedRates {
		if _, ok := strategies[name]; !ok {
			strategies[name] = &Strategy{Name: name, SuccessRate: rate, AvgQuality: rate}
		}
	}

	l.strategies = strategies
	l.patterns = patterns
	l.records = records
	return l, nil
}

// SelectStrategy picks the next strategy for a query, skipping ones already
// tried this run. Matching query patterns take priority over global success
// rates; when every strategy has been tried the global best is returned at
// half confidence.
func (l *Learner) SelectStrategy(query string, tried []string) (string, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	triedSet := make(map[string]bool, len(tried))
	for _, t := range tried {
		triedSet[t] = true
	}

	untried := make([]*Strategy, 0, len(l.strategies))
	for _, st := range l.strategies {
		if !triedSet[st.Name] {
			untried = append(untried, st)
		}
	}
	if len(untried) == 0 {
		best := l.bestOverallLocked()
		l.logger.Info("all strategies tried, falling back to global best",
			slog.String("strategy", best.Name))
		return best.Name, exhaustedConfidence
	}

	// Pattern match: highest-quality matching pattern whose strategy is
	// still untried wins. Ties break on phrase for determinism.
	if best := l.matchPatternLocked(query, triedSet); best != nil {
		st := l.strategies[best.BestStrategy]
		l.logger.Info("strategy selected from query pattern",
			slog.String("phrase", best.Phrase),
			slog.String("strategy", best.BestStrategy))
		return st.Name, st.SuccessRate
	}

	sort.Slice(untried, func(i, j int) bool {
		if untried[i].SuccessRate != untried[j].SuccessRate {
			return untried[i].SuccessRate > untried[j].SuccessRate
		}
		return untried[i].Name < untried[j].Name
	})
	return untried[0].Name, untried[0].SuccessRate
}

func (l *Learner) matchPatternLocked(query string, tried map[string]bool) *QueryPattern {
	lower := strings.ToLower(query)
	var best *QueryPattern
	for _, p := range l.patterns {
		if !strings.Contains(lower, p.Phrase) {
			continue
		}
		if _, ok := l.strategies[p.BestStrategy]; !ok || tried[p.BestStrategy] {
			continue
		}
		if best == nil || p.AvgQuality > best.AvgQuality ||
			(p.AvgQuality == best.AvgQuality && p.Phrase < best.Phrase) {
			best = p
		}
	}
	return best
}

func (l *Learner) bestOverallLocked() *Strategy {
	var best *Strategy
	for _, st := range l.strategies {
		if best == nil || st.SuccessRate > best.SuccessRate ||
			(st.SuccessRate == best.SuccessRate && st.Name < best.Name) {
			best = st
		}
	}
	return best
}

// RecordOutcome folds one search outcome into the statistics: usage count
// and EMA updates on the strategy, pattern updates when the search was
// successful, and the record itself appended. Persistence is batched; a
// failed flush is logged and retried on the next one.
func (l *Learner) RecordOutcome(ctx context.Context, rec LearningRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if len(rec.CandidateIDs) > maxRecordCandidates {
		rec.CandidateIDs = rec.CandidateIDs[:maxRecordCandidates]
	}

	if st, ok := l.strategies[rec.Strategy]; ok {
		st.UsageCount++
		st.LastUsed = rec.Timestamp
		st.SuccessRate = (1-l.alpha)*st.SuccessRate + l.alpha*rec.Quality
		st.AvgQuality = (1-l.alpha)*st.AvgQuality + l.alpha*rec.Quality
	} else {
		l.logger.Warn("outcome for unknown strategy", slog.String("strategy", rec.Strategy))
	}

	if rec.Quality >= successQuality {
		l.updatePatternsLocked(rec.Query, rec.Strategy, rec.Quality)
	}

	stored := rec
	l.records = append(l.records, &stored)
	l.pending = append(l.pending, &stored)

	if len(l.records)%l.flushEvery == 0 {
		l.flushLocked(ctx)
	}
}

// updatePatternsLocked registers each long-enough token of a successful
// query. An existing pattern switches strategy only when the new quality
// strictly beats the recorded one; the count always increments.
func (l *Learner) updatePatternsLocked(query, strategy string, quality float64) {
	for _, phrase := range strings.Fields(strings.ToLower(query)) {
		if len(phrase) <= minPhraseLen {
			continue
		}
		p, ok := l.patterns[phrase]
		if !ok {
			l.patterns[phrase] = &QueryPattern{
				Phrase:       phrase,
				BestStrategy: strategy,
				AvgQuality:   quality,
				Count:        1,
			}
			continue
		}
		if quality > p.AvgQuality {
			p.BestStrategy = strategy
			p.AvgQuality = quality
		}
		p.Count++
	}
}

// RecordFeedback attaches a satisfaction score to the most recent record
// for the query, so user feedback sharpens future selection.
func (l *Learner) RecordFeedback(ctx context.Context, query string, satisfaction float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Query == query {
			l.records[i].Satisfaction = &satisfaction
			break
		}
	}
	if st, ok := l.strategyForQueryLocked(query); ok {
		st.SuccessRate = (1-l.alpha)*st.SuccessRate + l.alpha*satisfaction
	}
}

func (l *Learner) strategyForQueryLocked(query string) (*Strategy, bool) {
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Query == query {
			st, ok := l.strategies[l.records[i].Strategy]
			return st, ok
		}
	}
	return nil, false
}

// RecentSuccessful returns the newest records whose quality cleared the
// success bar.
func (l *Learner) RecentSuccessful(limit int) []*LearningRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*LearningRecord, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if l.records[i].Quality > successQuality {
			cp := *l.records[i]
			out = append(out, &cp)
		}
	}
	return out
}

// Strategies returns a snapshot of the strategy table sorted by success
// rate descending.
func (l *Learner) Strategies() []*Strategy {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Strategy, 0, len(l.strategies))
	for _, st := range l.strategies {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SuccessRate != out[j].SuccessRate {
			return out[i].SuccessRate > out[j].SuccessRate
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SuccessfulPatterns returns patterns whose quality exceeds min, sorted by
// quality descending.
func (l *Learner) SuccessfulPatterns(min float64) []*QueryPattern {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*QueryPattern, 0, len(l.patterns))
	for _, p := range l.patterns {
		if p.AvgQuality > min {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgQuality != out[j].AvgQuality {
			return out[i].AvgQuality > out[j].AvgQuality
		}
		return out[i].Phrase < out[j].Phrase
	})
	return out
}

// Flush writes strategies, patterns, and pending records through to the
// store immediately.
func (l *Learner) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked(ctx)
}

func (l *Learner) flushLocked(ctx context.Context) error {
	if err := l.store.SaveStrategies(ctx, l.strategies); err != nil {
		l.logger.Error("strategy flush failed, keeping in memory", slog.String("error", err.Error()))
		return scouterr.Wrap(scouterr.ErrCodeLearningFlush, err)
	}
	if err := l.store.SavePatterns(ctx, l.patterns); err != nil {
		l.logger.Error("pattern flush failed, keeping in memory", slog.String("error", err.Error()))
		return scouterr.Wrap(scouterr.ErrCodeLearningFlush, err)
	}
	if err := l.store.AppendRecords(ctx, l.pending); err != nil {
		l.logger.Error("record flush failed, keeping in memory",
			slog.Int("pending", len(l.pending)),
			slog.String("error", err.Error()))
		return scouterr.Wrap(scouterr.ErrCodeLearningFlush, err)
	}
	l.pending = nil
	return nil
}

// Close flushes outstanding state and releases the data-dir lock.
func (l *Learner) Close(ctx context.Context) error {
	err := l.Flush(ctx)
	l.unlock()
	return err
}

func (l *Learner) unlock() {
	if l.fileLock != nil {
		if err := l.fileLock.Unlock(); err != nil {
			l.logger.Warn("releasing learning lock failed", slog.String("error", err.Error()))
		}
		l.fileLock = nil
	}
}
