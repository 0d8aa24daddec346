package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStoreRecordAndList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	older := &TrainingRun{
		Dataset:   "tracks.csv",
		Rows:      90,
		Features:  30,
		Classes:   3,
		Trees:     200,
		MaxDepth:  6,
		Seed:      42,
		Accuracy:  0.9,
		TrainedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &TrainingRun{
		Dataset:   "tracks.csv",
		Rows:      120,
		Features:  30,
		Classes:   3,
		Trees:     200,
		MaxDepth:  6,
		Seed:      42,
		Accuracy:  0.95,
		ModelPath: "track_model.json",
		TrainedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Record(ctx, older))
	require.NoError(t, store.Record(ctx, newer))
	assert.NotEmpty(t, older.ID)
	assert.NotEqual(t, older.ID, newer.ID)

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, 120, runs[0].Rows)
	assert.Equal(t, "track_model.json", runs[0].ModelPath)
	assert.True(t, newer.TrainedAt.Equal(runs[0].TrainedAt))
	assert.Equal(t, older.ID, runs[1].ID)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordAssignsTimestamp(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	run := &TrainingRun{Dataset: "tracks.csv"}
	require.NoError(t, store.Record(context.Background(), run))
	assert.False(t, run.TrainedAt.IsZero())
	assert.Error(t, store.Record(context.Background(), nil))
}
