package order

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/codefionn/spacecycle/internal/logger"
)

// document is the on-disk layout of the order file.
type document struct {
	Workspaces []string `json:"workspaces"`
}

// Store persists the workspace order as a small JSON file. Persistence is
// best-effort: load returns an empty order on any problem, saves run
// asynchronously and only log failures. The file is a shared, unsynchronized
// resource across process instances; last writer wins.
type Store struct {
	path string

	mu  sync.Mutex // guards gen and serializes file writes
	gen uint64     // latest submitted save
	wg  sync.WaitGroup
}

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted order. A missing or corrupt file yields an empty
// order, never an error.
func (s *Store) Load() []string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read order file %s: %v", s.path, err)
		}
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("order file %s is corrupt, ignoring: %v", s.path, err)
		return nil
	}
	return doc.Workspaces
}

// MergeWithCurrent merges the persisted order with the live workspace set.
func (s *Store) MergeWithCurrent(current []string) []string {
	return Merge(s.Load(), current)
}

// Save persists the given order without blocking the caller. The write is
// atomic (temp file + rename) so a crash never leaves a torn file behind.
// Each save is stamped with a generation so writer goroutines scheduled out
// of order cannot land an older order on disk after a newer one.
func (s *Store) Save(order []string) {
	snapshot := append([]string(nil), order...)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.write(snapshot, gen); err != nil {
			logger.Warn("failed to persist workspace order: %v", err)
		}
	}()
}

// Flush blocks until all pending saves have completed.
func (s *Store) Flush() {
	s.wg.Wait()
}

func (s *Store) write(order []string, gen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		logger.Debug("skipping superseded order save (gen %d, latest %d)", gen, s.gen)
		return nil
	}

	data, err := json.MarshalIndent(document{Workspaces: order}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".order-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
