package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Run{Kind: KindSkill, Name: "editor", Status: StatusSucceeded, Provider: "anthropic", Model: "claude", DurationMS: 1200, StartedAt: base}))
	require.NoError(t, store.Record(ctx, Run{Kind: KindWorkflow, Name: "blog", Status: StatusFailed, Error: "step failed", StartedAt: base.Add(time.Minute)}))
	require.NoError(t, store.Record(ctx, Run{Kind: KindSkill, Name: "text-stats", Status: StatusSucceeded, StartedAt: base.Add(2 * time.Minute)}))

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "text-stats", runs[0].Name)
	assert.Equal(t, "blog", runs[1].Name)
	assert.Equal(t, "step failed", runs[1].Error)
	assert.NotEmpty(t, runs[0].ID)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1200*time.Millisecond, all[2].Duration())
	assert.True(t, all[2].StartedAt.Equal(base))
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	empty, err := store.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Nil(t, empty.LastRun)

	require.NoError(t, store.Record(ctx, Run{Kind: KindSkill, Name: "a", Status: StatusSucceeded}))
	require.NoError(t, store.Record(ctx, Run{Kind: KindSkill, Name: "b", Status: StatusFailed}))
	require.NoError(t, store.Record(ctx, Run{Kind: KindSkill, Name: "c", Status: StatusCancelled}))

	summary, err := store.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.NotNil(t, summary.LastRun)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, Run{Kind: KindSkill, Name: "editor", Status: StatusSucceeded}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
