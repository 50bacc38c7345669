package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchProcessesOnlyNewFiles(t *testing.T) {
	def := setupBatch(t, batchWorkflow, map[string]string{"existing.txt": "old"})
	exec := &fakeExecutor{}
	engine := NewEngine(exec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processed := make(chan ItemResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- engine.Watch(ctx, def, WatchOptions{
			Interval: 20 * time.Millisecond,
			Settle:   40 * time.Millisecond,
			OnItem:   func(item ItemResult) { processed <- item },
		})
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(def.InputDir(), "new.txt"), []byte("fresh"), 0o644))

	select {
	case item := <-processed:
		assert.Equal(t, filepath.Join(def.InputDir(), "new.txt"), item.File)
		assert.NoError(t, item.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("new file was not processed")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	for _, c := range exec.Calls() {
		assert.NotEqual(t, "old", c.Input)
	}
	assert.Empty(t, processed, "each new file is processed once")
}

func TestWatchWaitsForFileToSettle(t *testing.T) {
	def := setupBatch(t, batchWorkflow, nil)
	exec := &fakeExecutor{}
	engine := NewEngine(exec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processed := make(chan ItemResult, 4)
	go func() {
		_ = engine.Watch(ctx, def, WatchOptions{
			Interval: time.Hour,
			Settle:   300 * time.Millisecond,
			OnItem:   func(item ItemResult) { processed <- item },
		})
	}()
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(def.InputDir(), "draft.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	_, err = f.WriteString("full draft content")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case item := <-processed:
		assert.Equal(t, path, item.File)
		require.NoError(t, item.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("file was not processed")
	}

	calls := exec.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "full draft content", calls[0].Input)
}

func TestWatchStateReady(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))
	state := &watchState{seen: map[string]bool{}, pending: map[string]observation{}, settle: time.Second}

	start := time.Now()
	assert.False(t, state.ready(path, start), "first sighting only records")
	assert.False(t, state.ready(path, start.Add(500*time.Millisecond)), "settle period not elapsed")
	assert.True(t, state.ready(path, start.Add(time.Second)))

	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	assert.False(t, state.ready(path, start.Add(2*time.Second)), "a change restarts the settle period")
	assert.True(t, state.ready(path, start.Add(3*time.Second)))

	assert.False(t, state.ready(filepath.Join(t.TempDir(), "gone.txt"), start))
}
