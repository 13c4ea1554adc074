package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems(n int) []model.TextItem {
	items := make([]model.TextItem, n)
	for i := range items {
		items[i] = model.TextItem{
			ID:         i,
			SourceText: "line",
			FilePath:   "a.txt",
			Status:     model.ItemUnprocessed,
		}
	}
	return items
}

// manualClock is advanced explicitly by tests.
type manualClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheckpointSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewCheckpointStore()

	items := sampleItems(10)
	for i := 0; i < 5; i++ {
		items[i].Status = model.ItemProcessed
	}
	state := model.RunState{
		RunID:              "run-1",
		TotalLineCount:     10,
		ProcessedLineCount: 5,
		TotalInputTokens:   120,
		Round:              1,
		Candidates: []model.GlossaryCandidate{
			{SourceTerm: "アリス", TranslatedTerm: "爱丽丝", Classification: "女性名字", ItemID: 2},
		},
	}

	require.NoError(t, store.SaveNow(items, state, dir))
	assert.FileExists(t, filepath.Join(dir, "cache", ItemsFile))
	assert.FileExists(t, filepath.Join(dir, "cache", ProjectFile))

	cp, ok := store.Load(dir)
	require.True(t, ok)
	assert.Equal(t, items, cp.Items)
	assert.Equal(t, state.RunID, cp.State.RunID)
	assert.Equal(t, state.Candidates, cp.State.Candidates)
	assert.Equal(t, 5, cp.State.ProcessedLineCount)

	entries, err := os.ReadDir(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestCheckpointLoadTolerant(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		cp, ok := NewCheckpointStore().Load(t.TempDir())
		assert.False(t, ok)
		assert.Empty(t, cp.Items)
	})

	t.Run("corrupt items", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "cache"), 0750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cache", ItemsFile), []byte("[{"), 0600))

		_, ok := NewCheckpointStore().Load(dir)
		assert.False(t, ok)
	})

	t.Run("invalid status", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "cache"), 0750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cache", ItemsFile), []byte(`[{"id":0,"src":"x","status":"BOGUS"}]`), 0600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cache", ProjectFile), []byte(`{}`), 0600))

		_, ok := NewCheckpointStore().Load(dir)
		assert.False(t, ok)
	})

	t.Run("missing project", func(t *testing.T) {
		dir := t.TempDir()
		store := NewCheckpointStore()
		require.NoError(t, store.SaveNow(sampleItems(1), model.RunState{}, dir))
		require.NoError(t, os.Remove(filepath.Join(dir, "cache", ProjectFile)))

		_, ok := store.Load(dir)
		assert.False(t, ok)
	})
}

func TestCheckpointDebounce(t *testing.T) {
	dir := t.TempDir()
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	store := NewCheckpointStore(WithSaveInterval(10*time.Second), WithCheckpointClock(clock.Now))

	var snapshots int
	snapshot := func() ([]model.TextItem, model.RunState) {
		snapshots++
		return sampleItems(3), model.RunState{ProcessedLineCount: snapshots}
	}

	// Nothing requested.
	store.Tick(snapshot)
	assert.Equal(t, 0, snapshots)

	// First request saves immediately: no previous save.
	store.RequestSave(dir)
	store.Tick(snapshot)
	assert.Equal(t, 1, snapshots)
	assert.False(t, store.Pending())

	// Inside the interval the request waits.
	store.RequestSave(dir)
	clock.Advance(5 * time.Second)
	store.Tick(snapshot)
	assert.Equal(t, 1, snapshots)
	assert.True(t, store.Pending())

	// Several requests collapse into one write.
	store.RequestSave(dir)
	store.RequestSave(dir)
	clock.Advance(5 * time.Second)
	store.Tick(snapshot)
	store.Tick(snapshot)
	assert.Equal(t, 2, snapshots)

	cp, ok := store.Load(dir)
	require.True(t, ok)
	assert.Equal(t, 2, cp.State.ProcessedLineCount)
}

func TestCheckpointSaveFailureRetries(t *testing.T) {
	base := t.TempDir()
	// A file where the output directory should be makes MkdirAll fail.
	blocked := filepath.Join(base, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0600))

	store := NewCheckpointStore(WithSaveInterval(0))
	snapshot := func() ([]model.TextItem, model.RunState) { return sampleItems(1), model.RunState{} }

	store.RequestSave(blocked)
	store.Tick(snapshot)
	assert.True(t, store.Pending(), "failed save stays pending")

	require.Error(t, store.SaveNow(sampleItems(1), model.RunState{}, blocked))
	assert.True(t, store.Pending())
}

func TestCheckpointStart(t *testing.T) {
	dir := t.TempDir()
	store := NewCheckpointStore(WithSaveInterval(0), WithTickInterval(5*time.Millisecond))

	store.RequestSave(dir)
	stop := store.Start(context.Background(), func() ([]model.TextItem, model.RunState) {
		return sampleItems(2), model.RunState{RunID: "ticker"}
	})

	require.Eventually(t, func() bool { return !store.Pending() }, 2*time.Second, 5*time.Millisecond)
	stop()

	cp, ok := store.Load(dir)
	require.True(t, ok)
	assert.Equal(t, "ticker", cp.State.RunID)
}

func TestSaveRemaining(t *testing.T) {
	dir := t.TempDir()
	items := sampleItems(3)

	path, err := SaveRemaining(dir, items)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cache", RemainingFile), path)

	var got []model.TextItem
	require.NoError(t, readJSON(path, &got))
	assert.Equal(t, items, got)

	// The checkpoint itself is untouched.
	_, ok := NewCheckpointStore().Load(dir)
	assert.False(t, ok)
}
