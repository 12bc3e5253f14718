package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emission-sim/emission-sim/sim/trace"
)

func openStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(path)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "runs.db"))

	// GIVEN a run without ID
	run := RunRecord{
		Name:             "disk",
		CreatedAt:        time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC),
		Family:           "bpass",
		Seed:             42,
		Entities:         1000,
		Packets:          1000000,
		Segments:         4,
		Bias:             0.3,
		Luminosity:       3.8e36,
		Emitted:          3.79e36,
		MaxRelativeError: 0.012,
		Elapsed:          1500 * time.Millisecond,
	}

	// WHEN saved
	id, err := store.SaveRun(ctx, run)
	require.NoError(t, err)

	// THEN it gets a UUID and loads back unchanged
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	loaded, ok, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	run.ID = id
	assert.Equal(t, run, loaded)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_EntityStatsReplaceAndPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	store := NewSQLiteStore(path)
	require.NoError(t, store.Init(ctx))

	id, err := store.SaveRun(ctx, RunRecord{Name: "a", Family: "spinflip"})
	require.NoError(t, err)
	require.NoError(t, store.SaveEntityStats(ctx, id, []trace.EntityStat{
		{Entity: 0, Packets: 5, Emitted: 1, Expected: 1},
		{Entity: 1, Packets: 7, Emitted: 2, Expected: 1},
	}))
	// saving again replaces the previous statistics
	stats := []trace.EntityStat{
		{Entity: 1, Packets: 10, Emitted: 2.2, Expected: 2, RelativeError: 0.1},
		{Entity: 0, Packets: 3, Emitted: 1, Expected: 1},
	}
	require.NoError(t, store.SaveEntityStats(ctx, id, stats))
	require.NoError(t, store.Close())

	// WHEN the database is reopened
	reopened := openStore(t, path)
	got, err := reopened.GetEntityStats(ctx, id)
	require.NoError(t, err)

	// THEN the latest statistics are returned in entity order
	assert.Equal(t, []trace.EntityStat{stats[1], stats[0]}, got)

	runs, err := reopened.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
}

func TestSQLiteStore_RequiresInit(t *testing.T) {
	store := NewSQLiteStore("")
	assert.Error(t, store.Init(context.Background()))
	_, err := store.SaveRun(context.Background(), RunRecord{})
	assert.Error(t, err)
}

func TestSQLiteStore_InitIsIdempotentAndReopens(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))

	// GIVEN an initialized store holding a run
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Init(ctx))
	id, err := store.SaveRun(ctx, RunRecord{Name: "a", Family: "spinflip"})
	require.NoError(t, err)

	// WHEN it is closed and initialized again
	require.NoError(t, store.Close())
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { _ = store.Close() })

	// THEN the run is still there
	_, ok, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}
