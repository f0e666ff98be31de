// Package linker decides which provenance edges similarity scores justify.
// It is pure policy: the engine feeds it scored neighbors and it answers
// with verdicts and edge plans, never touching storage.
package linker

import (
	"time"

	"github.com/google/uuid"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// Thresholds holds the similarity cutoffs for deduplication and linking.
// Values are exclusive lower bounds: a score must strictly exceed the
// threshold to trigger the behavior.
type Thresholds struct {
	// DedupDecision rejects a new decision as a duplicate.
	DedupDecision float64 `mapstructure:"dedup_decision"`
	// DedupDefault rejects any non-decision fact as a duplicate.
	DedupDefault float64 `mapstructure:"dedup_default"`
	// Supersede turns a decision neighbor into a SUPERSEDES edge.
	Supersede float64 `mapstructure:"supersede"`
	// Cite turns a decision neighbor into a CITES edge when the score does
	// not reach Supersede.
	Cite float64 `mapstructure:"cite"`
	// Continues links same-topic decisions during a relink pass.
	Continues float64 `mapstructure:"continues"`
	// Assert is the minimum match score for resolving an explicit
	// relationship assertion against the graph.
	Assert float64 `mapstructure:"assert"`

	// NeighborK is how many prior decisions are considered for linking.
	NeighborK int `mapstructure:"neighbor_k"`
	// ContinuesWindow bounds the timestamp gap for CONTINUES candidates.
	ContinuesWindow time.Duration `mapstructure:"continues_window"`
}

// DefaultThresholds returns the production cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DedupDecision:   0.95,
		DedupDefault:    0.90,
		Supersede:       0.85,
		Cite:            0.80,
		Continues:       0.85,
		Assert:          0.70,
		NeighborK:       5,
		ContinuesWindow: 24 * time.Hour,
	}
}

// DedupThreshold returns the duplicate cutoff for a fact type. Decisions
// get a looser cutoff so near-identical restatements of evolving choices
// still land as new nodes.
func (t Thresholds) DedupThreshold(ft types.FactType) float64 {
	if ft == types.FactDecision {
		return t.DedupDecision
	}
	return t.DedupDefault
}

// IsDuplicate reports whether a best-match score means the submitted fact
// already exists.
func (t Thresholds) IsDuplicate(ft types.FactType, bestScore float64) bool {
	return bestScore > t.DedupThreshold(ft)
}

// AutoLinks reports whether a fact type participates in similarity-driven
// edge inference. Only decisions build provenance automatically.
func AutoLinks(ft types.FactType) bool {
	return ft == types.FactDecision
}

// Classify maps a neighbor score to an edge type. Each neighbor is judged
// independently; a fact can supersede one decision and cite another.
func (t Thresholds) Classify(score float64) (types.EdgeType, bool) {
	switch {
	case score > t.Supersede:
		return types.EdgeSupersedes, true
	case score > t.Cite:
		return types.EdgeCites, true
	}
	return "", false
}

// AssertionMatches reports whether a resolved target is similar enough to
// anchor an explicit relationship assertion.
func (t Thresholds) AssertionMatches(score float64) bool {
	return score > t.Assert
}

// PlanEdges converts scored older-decision neighbors into auto edges from
// sourceID. Neighbors below the cite cutoff produce nothing.
func (t Thresholds) PlanEdges(project, sourceID string, neighbors []types.ScoredFact, now time.Time) []types.Edge {
	var edges []types.Edge
	for _, n := range neighbors {
		edgeType, ok := t.Classify(n.Score)
		if !ok {
			continue
		}
		edges = append(edges, types.Edge{
			ID:         uuid.NewString(),
			Project:    project,
			SourceID:   sourceID,
			TargetID:   n.Fact.ID,
			Type:       edgeType,
			Similarity: n.Score,
			Reason:     "similarity",
			Auto:       true,
			CreatedAt:  now,
		})
	}
	return edges
}

// ContinuesEligible reports whether two decisions qualify for a CONTINUES
// edge during a relink pass: shared topic, timestamps within the window,
// and similarity above the cutoff. The caller is responsible for skipping
// pairs already joined by SUPERSEDES or CONTINUES.
func (t Thresholds) ContinuesEligible(newer, older *types.Fact, sim float64) bool {
	if sim <= t.Continues {
		return false
	}
	if !newer.SharesTopic(older) {
		return false
	}
	gap := newer.Timestamp.Sub(older.Timestamp)
	return gap >= 0 && gap <= t.ContinuesWindow
}
