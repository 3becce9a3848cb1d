// Package credstore persists the single current-user credential record the
// chat client resumes sessions with. The SDK reads the record to decide
// between LOGIN and RE_LOGIN and keeps the re-login code in sync with server
// replies; lifecycle of the backing storage belongs to the caller.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Record is the current-user credential record.
type Record struct {
	Name        string `json:"name"`
	Password    string `json:"password,omitempty"`
	ReLoginCode string `json:"reLoginCode,omitempty"`
}

// ErrNotFound is returned when no record has been saved.
var ErrNotFound = errors.New("credstore: no stored record")

// Store persists one Record.
type Store interface {
	Load() (*Record, error)
	Save(rec *Record) error
	Clear() error
}

// FileStore keeps the record as a JSON file under a data directory.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing current_user.json inside dataDir.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, "current_user.json")}
}

func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("credstore: decode record: %w", err)
	}
	return &rec, nil
}

func (s *FileStore) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: encode record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credstore: create data dir: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, ErrNotFound
	}
	cp := *s.rec
	return &cp, nil
}

func (s *MemStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.rec = &cp
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}
