// Package telemetry records ingestion and retrieval activity to Parquet
// files for offline analysis. Recording is fire-and-forget: telemetry
// failures never fail the operation being recorded.
package telemetry

import (
	"context"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// ActivityEvent records one write-side operation.
type ActivityEvent struct {
	Time       int64   `parquet:"time"` // unix millis
	Project    string  `parquet:"project"`
	Owner      string  `parquet:"owner"`
	Operation  string  `parquet:"operation"` // create, promote, relink, assert, purge
	FactID     string  `parquet:"fact_id"`
	FactType   string  `parquet:"fact_type"`
	Action     string  `parquet:"action"` // created, skipped, superseded
	Similarity float64 `parquet:"similarity"`
	EdgeCount  int32   `parquet:"edge_count"`
	Degraded   bool    `parquet:"degraded"`
}

// RetrievalEvent records one read-side operation and which facts it
// surfaced, so retrieval quality can be audited later.
type RetrievalEvent struct {
	Time        int64  `parquet:"time"` // unix millis
	Project     string `parquet:"project"`
	Owner       string `parquet:"owner"`
	Operation   string `parquet:"operation"` // search, recent, session_context, stale, ...
	Query       string `parquet:"query"`
	ResultCount int32  `parquet:"result_count"`
	FactIDs     string `parquet:"fact_ids"` // JSON array
}

// Recorder sinks telemetry events.
type Recorder interface {
	RecordActivity(ctx context.Context, ev ActivityEvent)
	RecordRetrieval(ctx context.Context, ev RetrievalEvent)
	Flush() error
	Close() error
}

// NopRecorder discards everything. The default when telemetry is disabled.
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

func (NopRecorder) RecordActivity(context.Context, ActivityEvent)   {}
func (NopRecorder) RecordRetrieval(context.Context, RetrievalEvent) {}
func (NopRecorder) Flush() error                                    { return nil }
func (NopRecorder) Close() error                                    { return nil }

// ActivityFromResult builds an activity event from a create outcome.
func ActivityFromResult(project, owner string, ft types.FactType, res *types.CreateResult) ActivityEvent {
	return ActivityEvent{
		Project:    project,
		Owner:      owner,
		Operation:  "create",
		FactID:     res.FactID,
		FactType:   string(ft),
		Action:     string(res.Action),
		Similarity: res.Similarity,
		EdgeCount:  int32(len(res.Edges)),
		Degraded:   res.Degraded,
	}
}
