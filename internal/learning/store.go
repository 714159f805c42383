package learning

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	scouterr "github.com/expertscout/expertscout/internal/errors"
)

// Store persists learning state. Implementations must tolerate repeated
// saves of the same strategy or pattern (upsert semantics).
type Store interface {
	LoadStrategies(ctx context.Context) (map[string]*Strategy, error)
	SaveStrategies(ctx context.Context, strategies map[string]*Strategy) error
	LoadPatterns(ctx context.Context) (map[string]*QueryPattern, error)
	SavePatterns(ctx context.Context, patterns map[string]*QueryPattern) error
	AppendRecords(ctx context.Context, records []*LearningRecord) error
	LoadRecords(ctx context.Context) ([]*LearningRecord, error)
	Close() error
}

const learningSchema = `
CREATE TABLE IF NOT EXISTS strategies (
	name         TEXT PRIMARY KEY,
	success_rate REAL NOT NULL,
	avg_quality  REAL NOT NULL,
	usage_count  INTEGER NOT NULL,
	last_used    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS learning_records (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	query         TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	quality       REAL NOT NULL,
	satisfaction  REAL,
	candidate_ids TEXT NOT NULL,
	ts            TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS query_patterns (
	phrase        TEXT PRIMARY KEY,
	best_strategy TEXT NOT NULL,
	avg_quality   REAL NOT NULL,
	count         INTEGER NOT NULL
);
`

// SQLStore keeps learning state in sqlite. A path of "" opens an in-memory
// database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens or creates the learning database at path.
func NewSQLStore(path string) (*SQLStore, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "open learning store", err)
	}
	// modernc sqlite serializes writers; one connection avoids lock churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(learningSchema); err != nil {
		db.Close()
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "create learning schema", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) LoadStrategies(ctx context.Context) (map[string]*Strategy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, success_rate, avg_quality, usage_count, last_used FROM strategies`)
	if err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "load strategies", err)
	}
	defer rows.Close()

	out := make(map[string]*Strategy)
	for rows.Next() {
		var st Strategy
		var lastUsed string
		if err := rows.Scan(&st.Name, &st.SuccessRate, &st.AvgQuality, &st.UsageCount, &lastUsed); err != nil {
			return nil, scouterr.New(scouterr.ErrCodeRecordMalformed, "scan strategy", err)
		}
		st.LastUsed = parseTime(lastUsed)
		out[st.Name] = &st
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveStrategies(ctx context.Context, strategies map[string]*Strategy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return scouterr.New(scouterr.ErrCodeStoreIO, "begin strategy save", err)
	}
	defer tx.Rollback()

	for _, st := range strategies {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO strategies (name, success_rate, avg_quality, usage_count, last_used)
			 VALUES (?, ?, ?, ?, ?)`,
			st.Name, st.SuccessRate, st.AvgQuality, st.UsageCount, formatTime(st.LastUsed))
		if err != nil {
			return scouterr.New(scouterr.ErrCodeStoreIO, "save strategy "+st.Name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) LoadPatterns(ctx context.Context) (map[string]*QueryPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phrase, best_strategy, avg_quality, count FROM query_patterns`)
	if err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "load patterns", err)
	}
	defer rows.Close()

	out := make(map[string]*QueryPattern)
	for rows.Next() {
		var p QueryPattern
		if err := rows.Scan(&p.Phrase, &p.BestStrategy, &p.AvgQuality, &p.Count); err != nil {
			return nil, scouterr.New(scouterr.ErrCodeRecordMalformed, "scan pattern", err)
		}
		out[p.Phrase] = &p
	}
	return out, rows.Err()
}

func (s *SQLStore) SavePatterns(ctx context.Context, patterns map[string]*QueryPattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return scouterr.New(scouterr.ErrCodeStoreIO, "begin pattern save", err)
	}
	defer tx.Rollback()

	for _, p := range patterns {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO query_patterns (phrase, best_strategy, avg_quality, count)
			 VALUES (?, ?, ?, ?)`,
			p.Phrase, p.BestStrategy, p.AvgQuality, p.Count)
		if err != nil {
			return scouterr.New(scouterr.ErrCodeStoreIO, "save pattern "+p.Phrase, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) AppendRecords(ctx context.Context, records []*LearningRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return scouterr.New(scouterr.ErrCodeStoreIO, "begin record append", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		ids, err := json.Marshal(r.CandidateIDs)
		if err != nil {
			return scouterr.New(scouterr.ErrCodeRecordMalformed, "encode candidate ids", err)
		}
		var satisfaction any
		if r.Satisfaction != nil {
			satisfaction = *r.Satisfaction
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO learning_records (query, strategy, quality, satisfaction, candidate_ids, ts)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.Query, r.Strategy, r.Quality, satisfaction, string(ids), formatTime(r.Timestamp))
		if err != nil {
			return scouterr.New(scouterr.ErrCodeStoreIO, "append learning record", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) LoadRecords(ctx context.Context) ([]*LearningRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, strategy, quality, satisfaction, candidate_ids, ts
		 FROM learning_records ORDER BY id`)
	if err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "load records", err)
	}
	defer rows.Close()

	var out []*LearningRecord
	for rows.Next() {
		var r LearningRecord
		var satisfaction sql.NullFloat64
		var ids, ts string
		if err := rows.Scan(&r.Query, &r.Strategy, &r.Quality, &satisfaction, &ids, &ts); err != nil {
			return nil, scouterr.New(scouterr.ErrCodeRecordMalformed, "scan record", err)
		}
		if satisfaction.Valid {
			v := satisfaction.Float64
			r.Satisfaction = &v
		}
		if err := json.Unmarshal([]byte(ids), &r.CandidateIDs); err != nil {
			return nil, scouterr.New(scouterr.ErrCodeRecordMalformed, "decode candidate ids", err)
		}
		r.Timestamp = parseTime(ts)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	strategies map[string]*Strategy
	patterns   map[string]*QueryPattern
	records    []*LearningRecord

	// FailAppend forces AppendRecords to error, for flush-failure tests.
	FailAppend bool
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		strategies: make(map[string]*Strategy),
		patterns:   make(map[string]*QueryPattern),
	}
}

func (m *MemStore) LoadStrategies(context.Context) (map[string]*Strategy, error) {
	out := make(map[string]*Strategy, len(m.strategies))
	for k, v := range m.strategies {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

func (m *MemStore) SaveStrategies(_ context.Context, strategies map[string]*Strategy) error {
	for k, v := range strategies {
		cp := *v
		m.strategies[k] = &cp
	}
	return nil
}

func (m *MemStore) LoadPatterns(context.Context) (map[string]*QueryPattern, error) {
	out := make(map[string]*QueryPattern, len(m.patterns))
	for k, v := range m.patterns {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

func (m *MemStore) SavePatterns(_ context.Context, patterns map[string]*QueryPattern) error {
	for k, v := range patterns {
		cp := *v
		m.patterns[k] = &cp
	}
	return nil
}

func (m *MemStore) AppendRecords(_ context.Context, records []*LearningRecord) error {
	if m.FailAppend {
		return scouterr.New(scouterr.ErrCodeLearningFlush, "append disabled", nil)
	}
	for _, r := range records {
		cp := *r
		m.records = append(m.records, &cp)
	}
	return nil
}

func (m *MemStore) LoadRecords(context.Context) ([]*LearningRecord, error) {
	out := make([]*LearningRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *MemStore) Close() error { return nil }

// RecordCount reports how many records have been flushed to the store.
func (m *MemStore) RecordCount() int { return len(m.records) }
