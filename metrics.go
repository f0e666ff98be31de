package ccmemory

import (
	"context"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

// Metrics summarizes one project's graph health.
//
// The decision reuse rate is the share of decisions with at least one
// outgoing CITES or SUPERSEDES edge: decisions that were made in dialogue
// with prior decisions rather than in a vacuum. The cognitive coefficient
// folds curation volume and reuse into one bounded score:
//
//	min(cap, 1.0 + curated*curatedWeight + reuseRate*reuseWeight)
func (c *Client) Metrics(ctx context.Context, scope types.Scope) (*types.Metrics, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	facts, err := c.store.ListFacts(ctx, store.Query{Project: scope.Project})
	if err != nil {
		return nil, err
	}
	edges, err := c.store.ListEdges(ctx, scope.Project)
	if err != nil {
		return nil, err
	}

	m := &types.Metrics{
		Project:     scope.Project,
		TotalFacts:  len(facts),
		TotalEdges:  len(edges),
		FactsByType: make(map[types.FactType]int),
		GeneratedAt: time.Now().UTC(),
	}

	decisionCount := 0
	decisionIDs := make(map[string]bool)
	for _, f := range facts {
		m.FactsByType[f.Type]++
		if f.Type == types.FactDecision {
			decisionCount++
			decisionIDs[f.ID] = true
			if f.Status == types.StatusCurated {
				m.CuratedCount++
			}
		}
	}

	reusing := make(map[string]bool)
	for _, e := range edges {
		if (e.Type == types.EdgeCites || e.Type == types.EdgeSupersedes) && decisionIDs[e.SourceID] {
			reusing[e.SourceID] = true
		}
	}
	if decisionCount > 0 {
		m.ReuseRate = float64(len(reusing)) / float64(decisionCount)
	}
	if len(facts) > 0 {
		m.GraphDensity = float64(len(edges)) / float64(len(facts))
	}

	coeff := 1.0 +
		float64(m.CuratedCount)*c.metricsCfg.CuratedWeight +
		m.ReuseRate*c.metricsCfg.ReuseWeight
	if coeff > c.metricsCfg.CoefficientCap {
		coeff = c.metricsCfg.CoefficientCap
	}
	m.CognitiveCoeff = coeff

	return m, nil
}
