package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

const defaultFlushThreshold = 256

// ParquetRecorder buffers events in memory and writes one Parquet file per
// flush under <baseDir>/activity and <baseDir>/retrieval.
type ParquetRecorder struct {
	baseDir   string
	threshold int
	log       *slog.Logger

	mu         sync.Mutex
	activity   []ActivityEvent
	retrievals []RetrievalEvent
}

var _ Recorder = (*ParquetRecorder)(nil)

// NewParquetRecorder creates the sink directories and returns a recorder.
func NewParquetRecorder(baseDir string, log *slog.Logger) (*ParquetRecorder, error) {
	for _, d := range []string{"activity", "retrieval"} {
		if err := os.MkdirAll(filepath.Join(baseDir, d), 0755); err != nil {
			return nil, fmt.Errorf("create telemetry directory %s: %w", d, err)
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ParquetRecorder{
		baseDir:   baseDir,
		threshold: defaultFlushThreshold,
		log:       log,
	}, nil
}

func (r *ParquetRecorder) RecordActivity(ctx context.Context, ev ActivityEvent) {
	if ev.Time == 0 {
		ev.Time = time.Now().UnixMilli()
	}

	r.mu.Lock()
	r.activity = append(r.activity, ev)
	full := len(r.activity) >= r.threshold
	r.mu.Unlock()

	if full {
		if err := r.Flush(); err != nil {
			r.log.Warn("telemetry flush failed", "error", err)
		}
	}
}

func (r *ParquetRecorder) RecordRetrieval(ctx context.Context, ev RetrievalEvent) {
	if ev.Time == 0 {
		ev.Time = time.Now().UnixMilli()
	}

	r.mu.Lock()
	r.retrievals = append(r.retrievals, ev)
	full := len(r.retrievals) >= r.threshold
	r.mu.Unlock()

	if full {
		if err := r.Flush(); err != nil {
			r.log.Warn("telemetry flush failed", "error", err)
		}
	}
}

// Flush writes buffered events to disk and clears the buffers.
func (r *ParquetRecorder) Flush() error {
	r.mu.Lock()
	activity := r.activity
	retrievals := r.retrievals
	r.activity = nil
	r.retrievals = nil
	r.mu.Unlock()

	now := time.Now().UnixNano()
	if len(activity) > 0 {
		path := filepath.Join(r.baseDir, "activity", fmt.Sprintf("activity_%d.parquet", now))
		if err := parquet.WriteFile(path, activity); err != nil {
			return fmt.Errorf("write activity parquet: %w", err)
		}
	}
	if len(retrievals) > 0 {
		path := filepath.Join(r.baseDir, "retrieval", fmt.Sprintf("retrieval_%d.parquet", now))
		if err := parquet.WriteFile(path, retrievals); err != nil {
			return fmt.Errorf("write retrieval parquet: %w", err)
		}
	}
	return nil
}

func (r *ParquetRecorder) Close() error {
	return r.Flush()
}
