package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// FileStore keeps each collection in one JSON document under <dir>. Every access
// reads or rewrites the whole file. An unreadable or corrupt document is treated as
// empty state rather than an error, so a crash mid-write self-heals on next use.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) bountiesPath() string { return filepath.Join(s.dir, "bounties.json") }
func (s *FileStore) activePath() string   { return filepath.Join(s.dir, "active_agent.json") }
func (s *FileStore) runtimePath() string  { return filepath.Join(s.dir, "runtime.json") }

// readDoc loads path into out. Missing or invalid files leave out untouched and
// return false (empty state).
func readDoc(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// writeDoc rewrites path atomically (temp file + rename in the same directory).
func writeDoc(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *FileStore) loadBounties() map[string]models.Bounty {
	m := make(map[string]models.Bounty)
	readDoc(s.bountiesPath(), &m)
	return m
}

// GetBounty returns the bounty with the given id, or ErrNotFound.
func (s *FileStore) GetBounty(id string) (models.Bounty, error) {
	m := s.loadBounties()
	b, ok := m[id]
	if !ok {
		return models.Bounty{}, fmt.Errorf("bounty %s: %w", id, ErrNotFound)
	}
	return b, nil
}

// PutBounty inserts or replaces the record keyed by b.BountyID.
func (s *FileStore) PutBounty(b models.Bounty) error {
	if b.BountyID == "" {
		return fmt.Errorf("bounty id is required")
	}
	m := s.loadBounties()
	m[b.BountyID] = b
	return writeDoc(s.bountiesPath(), m)
}

// ListBounties returns all bounties ordered by id.
func (s *FileStore) ListBounties() ([]models.Bounty, error) {
	m := s.loadBounties()
	out := make([]models.Bounty, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BountyID < out[j].BountyID })
	return out, nil
}

// DeleteBounty removes the record if present. Deleting an absent id is not an error.
func (s *FileStore) DeleteBounty(id string) error {
	m := s.loadBounties()
	if _, ok := m[id]; !ok {
		return nil
	}
	delete(m, id)
	return writeDoc(s.bountiesPath(), m)
}

type activeDoc struct {
	Name string `json:"name"`
}

// GetActiveAgent returns the active identity name, or ErrNotFound if none is set.
func (s *FileStore) GetActiveAgent() (string, error) {
	var doc activeDoc
	if !readDoc(s.activePath(), &doc) || doc.Name == "" {
		return "", fmt.Errorf("active agent: %w", ErrNotFound)
	}
	return doc.Name, nil
}

// SetActiveAgent records name as the active identity.
func (s *FileStore) SetActiveAgent(name string) error {
	if name == "" {
		return fmt.Errorf("agent name is required")
	}
	return writeDoc(s.activePath(), activeDoc{Name: name})
}

// ClearActiveAgent removes the active-identity record.
func (s *FileStore) ClearActiveAgent() error {
	err := os.Remove(s.activePath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetRuntimeRecord returns the recorded seller runtime, or ErrNotFound.
func (s *FileStore) GetRuntimeRecord() (RuntimeRecord, error) {
	var r RuntimeRecord
	if !readDoc(s.runtimePath(), &r) || r.PID == 0 {
		return RuntimeRecord{}, fmt.Errorf("runtime record: %w", ErrNotFound)
	}
	return r, nil
}

// SetRuntimeRecord records the live seller runtime.
func (s *FileStore) SetRuntimeRecord(r RuntimeRecord) error {
	if r.PID <= 0 {
		return fmt.Errorf("runtime pid is required")
	}
	return writeDoc(s.runtimePath(), r)
}

// ClearRuntimeRecord removes the runtime record.
func (s *FileStore) ClearRuntimeRecord() error {
	err := os.Remove(s.runtimePath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
