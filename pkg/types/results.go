package types

import "time"

// CreateAction says what happened to a submitted fact.
type CreateAction string

const (
	// ActionCreated means a new node was written.
	ActionCreated CreateAction = "created"
	// ActionSkipped means a near-duplicate already existed and no node was
	// written.
	ActionSkipped CreateAction = "skipped"
	// ActionSuperseded means a new node was written and it supersedes at
	// least one older decision.
	ActionSuperseded CreateAction = "superseded"
)

// CreateResult reports the outcome of a fact submission. Duplicate rejection
// is an outcome, not an error.
type CreateResult struct {
	Action CreateAction `json:"action"`

	// FactID is set when a node was written.
	FactID string `json:"fact_id,omitempty"`

	// ExistingID and Similarity describe the duplicate that caused a skip.
	ExistingID string  `json:"existing_id,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`

	// SupersededIDs lists older decisions this fact replaced.
	SupersededIDs []string `json:"superseded_ids,omitempty"`

	// Edges are the auto-inferred edges written alongside the node.
	Edges []Edge `json:"edges,omitempty"`

	// Degraded is set when the fact was stored without an embedding because
	// the embedding provider was unavailable.
	Degraded bool `json:"degraded,omitempty"`
}

// ScoredFact pairs a fact with a retrieval score.
type ScoredFact struct {
	Fact  *Fact   `json:"fact"`
	Score float64 `json:"score"`
}

// Metrics summarizes the health of one project's graph.
type Metrics struct {
	Project        string           `json:"project"`
	TotalFacts     int              `json:"total_facts"`
	TotalEdges     int              `json:"total_edges"`
	FactsByType    map[FactType]int `json:"facts_by_type"`
	CuratedCount   int              `json:"curated_count"`
	ReuseRate      float64          `json:"decision_reuse_rate"`
	GraphDensity   float64          `json:"graph_density"`
	CognitiveCoeff float64          `json:"cognitive_coefficient"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// RelinkStats reports what a bulk relink pass did.
type RelinkStats struct {
	Project       string        `json:"project"`
	EdgesDeleted  int           `json:"edges_deleted"`
	EdgesCreated  int           `json:"edges_created"`
	Supersedes    int           `json:"supersedes"`
	Cites         int           `json:"cites"`
	Continues     int           `json:"continues"`
	DecisionCount int           `json:"decision_count"`
	Elapsed       time.Duration `json:"elapsed"`
}

// PromoteResult reports a promotion pass. AlreadyCurated counts decisions
// that matched the filter but were curated before the call.
type PromoteResult struct {
	Project        string   `json:"project"`
	Promoted       []string `json:"promoted"`
	AlreadyCurated int      `json:"already_curated"`
	NotOwned       int      `json:"not_owned"`
}
