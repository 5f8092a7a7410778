package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Store holds the current policy document. Loads swap the document
// atomically, so a run that snapshots Current keeps its policy even when a
// reload lands mid-run.
type Store struct {
	path   string
	logger *slog.Logger

	doc atomic.Pointer[Document]

	mu      sync.Mutex
	modTime time.Time
}

// NewStore creates a store backed by path. An empty path serves the
// built-in document.
func NewStore(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger.With("system", "policy"),
	}
	s.doc.Store(DefaultDocument())
	return s
}

// Load reads and validates the policy file. On error the previous
// document stays active.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat policy file: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}

	s.modTime = info.ModTime()

	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	s.doc.Store(doc)

	s.logger.Info("policy loaded", "path", s.path, "active", doc.Active, "versions", len(doc.Policies))
	return nil
}

// Current returns the active policy.
func (s *Store) Current() Policy {
	return s.doc.Load().ActivePolicy()
}

// Document returns the loaded policy document.
func (s *Store) Document() *Document {
	return s.doc.Load()
}

// Lookup returns a policy by version.
func (s *Store) Lookup(version string) (Policy, error) {
	return s.doc.Load().Lookup(version)
}

// Watch polls the policy file every interval and reloads it when its
// modification time changes. It returns when ctx is done.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	if s.path == "" || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.changed() {
				continue
			}
			if err := s.Load(); err != nil {
				s.logger.Error("policy reload failed", "path", s.path, "error", err)
			}
		}
	}
}

func (s *Store) changed() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return !info.ModTime().Equal(s.modTime)
}
