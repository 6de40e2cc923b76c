// Package store persists agent configuration and the session snapshot to a
// single JSON document under the host-provided user-data directory.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

const stateFileName = "sushiamo-bridge-state.json"

// document is the on-disk shape written by every save.
type document struct {
	Config  model.AgentConfig     `json:"config"`
	Session model.SessionSnapshot `json:"session"`
}

// Store owns the on-disk state file. All writes are full-file rewrites;
// concurrent writers from multiple processes are not supported.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store backed by <userDataDir>/sushiamo-bridge-state.json.
func New(userDataDir string) *Store {
	return &Store{path: filepath.Join(userDataDir, stateFileName)}
}

// Load reads the persisted document. A missing or unparseable file yields
// defaults rather than an error.
func (s *Store) Load() (model.AgentConfig, model.SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return model.DefaultConfig(), model.SessionSnapshot{}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.DefaultConfig(), model.SessionSnapshot{}
	}
	cfg := doc.Config.Sanitize()
	if cfg.ConsumerID == "" {
		cfg = model.DefaultConfig()
	}
	return cfg, doc.Session
}

// SaveConfig rewrites the state file with a new config, keeping whatever
// session is currently on disk.
func (s *Store) SaveConfig(cfg model.AgentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, session := s.loadLocked()
	return s.writeLocked(document{Config: cfg, Session: session})
}

// SaveSession rewrites the state file with a new session, keeping whatever
// config is currently on disk.
func (s *Store) SaveSession(session model.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, _ := s.loadLocked()
	return s.writeLocked(document{Config: cfg, Session: session})
}

func (s *Store) loadLocked() (model.AgentConfig, model.SessionSnapshot) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return model.DefaultConfig(), model.SessionSnapshot{}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.DefaultConfig(), model.SessionSnapshot{}
	}
	return doc.Config, doc.Session
}

func (s *Store) writeLocked(doc document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}
