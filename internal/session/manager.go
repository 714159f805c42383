package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	scouterr "github.com/expertscout/expertscout/internal/errors"
)

// sessionsDirName is the subdirectory of the data dir holding session
// files, one JSON file per session named by its UUID.
const sessionsDirName = "sessions"

// DefaultRecentLimit is how many sessions List returns by default.
const DefaultRecentLimit = 10

var sessionIDPattern = regexp.MustCompile(`^[a-f0-9-]{36}$`)

// ValidateID checks that an id looks like a session UUID before it is used
// to build a file path.
func ValidateID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return scouterr.New(scouterr.ErrCodeInvalidSession, "malformed session id: "+id, nil)
	}
	return nil
}

// Manager loads and saves sessions under dataDir/sessions.
type Manager struct {
	mu  sync.Mutex
	dir string
}

// NewManager ensures the sessions directory exists.
func NewManager(dataDir string) (*Manager, error) {
	dir := filepath.Join(dataDir, sessionsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "create sessions dir", err)
	}
	return &Manager{dir: dir}, nil
}

// Save writes the session atomically (temp file + rename).
func (m *Manager) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return scouterr.New(scouterr.ErrCodeInternal, "encode session", err)
	}

	path := m.path(s.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return scouterr.New(scouterr.ErrCodeStoreIO, "write session file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return scouterr.New(scouterr.ErrCodeStoreIO, "save session file", err)
	}
	return nil
}

// Load reads a session by id.
func (m *Manager) Load(id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path(id))
	if os.IsNotExist(err) {
		return nil, scouterr.New(scouterr.ErrCodeInvalidSession, "no session "+id, nil)
	}
	if err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "read session file", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, scouterr.New(scouterr.ErrCodeRecordMalformed, "parse session "+id, err)
	}
	return &s, nil
}

// Delete removes a session file.
func (m *Manager) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path(id)); err != nil {
		if os.IsNotExist(err) {
			return scouterr.New(scouterr.ErrCodeInvalidSession, "no session "+id, nil)
		}
		return scouterr.New(scouterr.ErrCodeStoreIO, "delete session file", err)
	}
	return nil
}

// List returns up to limit sessions, most recently used first; limit <= 0
// means all. Files that fail to parse are skipped.
func (m *Manager) List(limit int) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, scouterr.New(scouterr.ErrCodeStoreIO, "read sessions dir", err)
	}

	var out []*Session
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		out = append(out, &s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUsedAt.After(out[j].LastUsedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BelowTarget returns sessions whose best search missed its target, for
// the background monitor to retry.
func (m *Manager) BelowTarget() ([]*Session, error) {
	all, err := m.List(0)
	if err != nil {
		return nil, err
	}
	var out []*Session
	for _, s := range all {
		if s.BelowTarget() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}
