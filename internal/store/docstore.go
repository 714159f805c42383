package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DocStore holds full candidate records in sqlite, keyed by
// (collection, id). Retrieval channels return bare ids and scores;
// the doc store supplies the records behind them.
type DocStore struct {
	db *sql.DB
}

const docStoreSchema = `
CREATE TABLE IF NOT EXISTS candidates (
	collection TEXT NOT NULL,
	id         INTEGER NOT NULL,
	doc        TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// NewDocStore opens (creating if needed) the document store at path.
// An empty path opens an in-memory database.
func NewDocStore(path string) (*DocStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create doc store directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open doc store: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// table-lock errors under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(docStoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create doc store schema: %w", err)
	}
	return &DocStore{db: db}, nil
}

// Put inserts or replaces candidate records in one transaction.
func (d *DocStore) Put(ctx context.Context, candidates []*Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin doc store tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO candidates (collection, id, doc) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare doc store insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candidates {
		if !c.Collection.Valid() {
			return fmt.Errorf("unknown collection %q for candidate %d", c.Collection, c.ID)
		}
		doc, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal candidate %d: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, string(c.Collection), c.ID, string(doc)); err != nil {
			return fmt.Errorf("insert candidate %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns one candidate, or (nil, nil) when absent.
func (d *DocStore) Get(ctx context.Context, collection Collection, id int64) (*Candidate, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT doc FROM candidates WHERE collection = ? AND id = ?`,
		string(collection), id)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return decodeCandidate(doc)
}

// GetByIDs returns the candidates found for ids, in the order given.
// Missing ids are skipped silently.
func (d *DocStore) GetByIDs(ctx context.Context, collection Collection, ids []int64) ([]*Candidate, error) {
	if len(ids) == 0 {
		return []*Candidate{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(collection))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, doc FROM candidates WHERE collection = ? AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*Candidate, len(ids))
	for rows.Next() {
		var id int64
		var doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		c, err := decodeCandidate(doc)
		if err != nil {
			return nil, err
		}
		byID[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	out := make([]*Candidate, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Count returns the number of records in a collection.
func (d *DocStore) Count(ctx context.Context, collection Collection) (int, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candidates WHERE collection = ?`, string(collection))

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (d *DocStore) Close() error {
	return d.db.Close()
}

func decodeCandidate(doc string) (*Candidate, error) {
	var c Candidate
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("decode candidate record: %w", err)
	}
	return &c, nil
}
