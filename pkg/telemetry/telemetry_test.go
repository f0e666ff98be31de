package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

func TestParquetRecorderFlush(t *testing.T) {
	dir := t.TempDir()
	r, err := NewParquetRecorder(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	r.RecordActivity(ctx, ActivityEvent{
		Project:   "proj",
		Owner:     "alice",
		Operation: "create",
		FactID:    "d1",
		FactType:  "decision",
		Action:    "created",
		EdgeCount: 2,
	})
	r.RecordRetrieval(ctx, RetrievalEvent{
		Project:     "proj",
		Operation:   "search",
		Query:       "storage",
		ResultCount: 3,
		FactIDs:     `["a","b","c"]`,
	})
	require.NoError(t, r.Close())

	activityFiles, err := filepath.Glob(filepath.Join(dir, "activity", "*.parquet"))
	require.NoError(t, err)
	require.Len(t, activityFiles, 1)

	rows, err := parquet.ReadFile[ActivityEvent](activityFiles[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "d1", rows[0].FactID)
	require.Equal(t, "created", rows[0].Action)
	require.NotZero(t, rows[0].Time)

	retrievalFiles, err := filepath.Glob(filepath.Join(dir, "retrieval", "*.parquet"))
	require.NoError(t, err)
	require.Len(t, retrievalFiles, 1)

	retrievals, err := parquet.ReadFile[RetrievalEvent](retrievalFiles[0])
	require.NoError(t, err)
	require.Len(t, retrievals, 1)
	require.Equal(t, int32(3), retrievals[0].ResultCount)
}

func TestParquetRecorderEmptyFlushWritesNothing(t *testing.T) {
	dir := t.TempDir()
	r, err := NewParquetRecorder(dir, nil)
	require.NoError(t, err)
	require.NoError(t, r.Flush())

	entries, err := os.ReadDir(filepath.Join(dir, "activity"))
	require.NoError(t, err)
	require.Empty(t, entries)
}
