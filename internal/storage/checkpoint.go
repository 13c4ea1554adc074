package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

// Checkpoint file names under the output cache directory.
const (
	ItemsFile     = "items.json"
	ProjectFile   = "project.json"
	RemainingFile = "remaining.json"
)

// Default checkpoint timing.
const (
	DefaultTickInterval = time.Second
	DefaultSaveInterval = 15 * time.Second
)

// Snapshot returns a consistent copy of the items and run state to persist.
type Snapshot func() ([]model.TextItem, model.RunState)

// Checkpoint is what Load recovered from disk.
type Checkpoint struct {
	Items []model.TextItem
	State model.RunState
}

// CheckpointStore debounces save requests and writes the two checkpoint files.
type CheckpointStore struct {
	lastSave     time.Time
	logger       *slog.Logger
	now          func() time.Time
	dir          string
	tickInterval time.Duration
	saveInterval time.Duration
	mu           sync.Mutex
	writeMu      sync.Mutex
	dirty        bool
}

// CheckpointOption configures a CheckpointStore.
type CheckpointOption func(*CheckpointStore)

// WithCheckpointLogger sets the logger.
func WithCheckpointLogger(l *slog.Logger) CheckpointOption {
	return func(s *CheckpointStore) { s.logger = l }
}

// WithSaveInterval sets the minimum time between debounced saves.
func WithSaveInterval(d time.Duration) CheckpointOption {
	return func(s *CheckpointStore) { s.saveInterval = d }
}

// WithTickInterval sets how often pending requests are checked.
func WithTickInterval(d time.Duration) CheckpointOption {
	return func(s *CheckpointStore) { s.tickInterval = d }
}

// WithCheckpointClock replaces time.Now.
func WithCheckpointClock(now func() time.Time) CheckpointOption {
	return func(s *CheckpointStore) { s.now = now }
}

// NewCheckpointStore creates a store; call Start to enable debounced saves.
func NewCheckpointStore(opts ...CheckpointOption) *CheckpointStore {
	s := &CheckpointStore{
		tickInterval: DefaultTickInterval,
		saveInterval: DefaultSaveInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.LoggerOrDefault(s.logger)
	return s
}

// RequestSave marks the checkpoint dirty for dir.
func (s *CheckpointStore) RequestSave(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	s.dir = dir
}

// Pending reports whether a save has been requested but not written.
func (s *CheckpointStore) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Start runs the ticker until ctx is done. Each tick writes a snapshot if a
// save was requested and the save interval has passed since the last write.
// The returned function stops the ticker and waits for it to exit.
func (s *CheckpointStore) Start(ctx context.Context, snapshot Snapshot) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(snapshot)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Tick performs one debounce check. It is exported so callers with their own
// scheduler can drive the store.
func (s *CheckpointStore) Tick(snapshot Snapshot) {
	s.mu.Lock()
	due := s.dirty && s.now().Sub(s.lastSave) >= s.saveInterval
	dir := s.dir
	if due {
		// Cleared before the snapshot so requests arriving mid-write are kept.
		s.dirty = false
	}
	s.mu.Unlock()
	if !due {
		return
	}

	items, state := snapshot()
	if err := s.write(items, state, dir); err != nil {
		s.logger.Error("Checkpoint save failed", "dir", dir, "error", err)
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
	}
}

// SaveNow writes both files immediately and clears any pending request.
func (s *CheckpointStore) SaveNow(items []model.TextItem, state model.RunState, dir string) error {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	if err := s.write(items, state, dir); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.dir = dir
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *CheckpointStore) write(items []model.TextItem, state model.RunState, dir string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cache := config.CacheDir(dir)
	if err := os.MkdirAll(cache, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if items == nil {
		items = []model.TextItem{}
	}
	if err := writeJSONAtomic(filepath.Join(cache, ItemsFile), items); err != nil {
		return fmt.Errorf("failed to write items: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(cache, ProjectFile), state); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}

	s.mu.Lock()
	s.lastSave = s.now()
	s.mu.Unlock()

	s.logger.Debug("Checkpoint saved", "dir", cache, "items", len(items), "processed", state.ProcessedLineCount)
	return nil
}

// SaveRemaining writes the items a run gave up on to the cache directory and
// returns the file path.
func SaveRemaining(dir string, items []model.TextItem) (string, error) {
	cache := config.CacheDir(dir)
	if err := os.MkdirAll(cache, 0750); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	if items == nil {
		items = []model.TextItem{}
	}
	path := filepath.Join(cache, RemainingFile)
	if err := writeJSONAtomic(path, items); err != nil {
		return "", fmt.Errorf("failed to write remaining items: %w", err)
	}
	return path, nil
}

// Load reads the checkpoint in dir. Missing or corrupt files are logged and
// yield an empty checkpoint and false.
func (s *CheckpointStore) Load(dir string) (Checkpoint, bool) {
	cache := config.CacheDir(dir)

	var items []model.TextItem
	if err := readJSON(filepath.Join(cache, ItemsFile), &items); err != nil {
		s.logLoadError(ItemsFile, err)
		return Checkpoint{}, false
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			s.logger.Warn("Discarding checkpoint with invalid item", "error", err)
			return Checkpoint{}, false
		}
	}

	var state model.RunState
	if err := readJSON(filepath.Join(cache, ProjectFile), &state); err != nil {
		s.logLoadError(ProjectFile, err)
		return Checkpoint{}, false
	}

	return Checkpoint{Items: items, State: state}, true
}

func (s *CheckpointStore) logLoadError(name string, err error) {
	if errors.Is(err, common.ErrCheckpointMissing) {
		s.logger.Info("No checkpoint found", "file", name)
		return
	}
	s.logger.Warn("Ignoring unreadable checkpoint", "file", name, "error", err)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is built from the configured output dir
	if errors.Is(err, os.ErrNotExist) {
		return common.ErrCheckpointMissing
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
