package ccmemory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/patrickkidd/ccmemory/pkg/embedder"
	"github.com/patrickkidd/ccmemory/pkg/extractor"
	"github.com/patrickkidd/ccmemory/pkg/linker"
	"github.com/patrickkidd/ccmemory/pkg/telemetry"
	"github.com/patrickkidd/ccmemory/pkg/types"
	"github.com/patrickkidd/ccmemory/pkg/vector"
)

// CreateFact runs the full ingestion pipeline: validate, embed, dedup,
// infer edges, and commit node plus edges atomically.
//
// Deduplication is best-effort under concurrency: two equivalent facts
// submitted at the same instant can both pass the check and both land.
// Relink cleans the edges up afterwards; the duplicate nodes are accepted.
func (c *Client) CreateFact(ctx context.Context, scope types.Scope, fact *types.Fact) (*types.CreateResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fact.Project = scope.Project
	if fact.Owner == "" {
		fact.Owner = scope.Owner
	}
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	if fact.Timestamp.IsZero() {
		fact.Timestamp = time.Now().UTC()
	}
	if fact.Type == types.FactDecision && fact.Status == "" {
		fact.Status = types.StatusDevelopmental
	}
	if err := fact.ValidateForCreate(); err != nil {
		return nil, err
	}
	if err := c.ensureHydrated(ctx, scope.Project); err != nil {
		return nil, fmt.Errorf("hydrate index: %w", err)
	}

	result := &types.CreateResult{Action: types.ActionCreated, FactID: fact.ID}

	if !fact.HasEmbedding() {
		vec, err := c.embedWithTimeout(ctx, fact.Text())
		switch {
		case err == nil:
			fact.Embedding = vec
		case errors.Is(err, embedder.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded):
			// Store it unlinked rather than lose it.
			c.log.Warn("embedding unavailable, storing fact without similarity links",
				"project", scope.Project, "fact", fact.ID, "error", err)
			result.Degraded = true
		default:
			return nil, fmt.Errorf("embed fact: %w", err)
		}
	}

	var edges []types.Edge
	if fact.HasEmbedding() {
		if best, ok := c.index.Best(scope.Project, fact.Type, fact.Embedding, vector.QueryOptions{ExcludeID: fact.ID}); ok {
			if c.thresholds.IsDuplicate(fact.Type, best.Score) {
				result.Action = types.ActionSkipped
				result.FactID = ""
				result.ExistingID = best.Item
				result.Similarity = best.Score
				c.recordCreate(ctx, scope, fact.Type, result)
				return result, nil
			}
		}
		if linker.AutoLinks(fact.Type) {
			edges = c.planDecisionEdges(ctx, scope, fact)
		}
	}

	if err := c.store.CreateFact(ctx, fact, edges); err != nil {
		return nil, fmt.Errorf("store fact: %w", err)
	}
	c.index.Upsert(fact)

	result.Edges = edges
	for _, e := range edges {
		if e.Type == types.EdgeSupersedes {
			result.SupersededIDs = append(result.SupersededIDs, e.TargetID)
		}
	}
	if len(result.SupersededIDs) > 0 {
		result.Action = types.ActionSuperseded
	}

	c.recordCreate(ctx, scope, fact.Type, result)
	c.log.Info("fact created",
		"project", scope.Project, "fact", fact.ID, "type", fact.Type,
		"action", result.Action, "edges", len(edges), "degraded", result.Degraded)
	return result, nil
}

// planDecisionEdges classifies the k nearest strictly older decisions.
// Only older neighbors are eligible, which keeps the provenance graph
// acyclic by construction.
func (c *Client) planDecisionEdges(ctx context.Context, scope types.Scope, fact *types.Fact) []types.Edge {
	nearest := c.index.Nearest(scope.Project, types.FactDecision, fact.Embedding,
		c.thresholds.NeighborK, vector.QueryOptions{
			Before:    fact.Timestamp,
			ExcludeID: fact.ID,
		})

	neighbors := make([]types.ScoredFact, 0, len(nearest))
	for _, n := range nearest {
		target, err := c.store.GetFact(ctx, scope.Project, n.Item)
		if err != nil {
			c.log.Warn("indexed fact missing from store", "fact", n.Item, "error", err)
			continue
		}
		neighbors = append(neighbors, types.ScoredFact{Fact: target, Score: n.Score})
	}
	return c.thresholds.PlanEdges(scope.Project, fact.ID, neighbors, time.Now().UTC())
}

func (c *Client) embedWithTimeout(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()
	return c.embedder.EmbedSingle(embedCtx, text)
}

func (c *Client) recordCreate(ctx context.Context, scope types.Scope, ft types.FactType, res *types.CreateResult) {
	ev := telemetry.ActivityFromResult(scope.Project, scope.Owner, ft, res)
	c.recorder.RecordActivity(ctx, ev)
}

// ExtractAndStore runs fact detection over conversation text and stores
// every candidate. Candidates that fail validation are skipped with a
// warning; one bad candidate never aborts the batch.
func (c *Client) ExtractAndStore(ctx context.Context, scope types.Scope, text string) ([]*types.CreateResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if c.extractor == nil {
		return nil, fmt.Errorf("no extractor configured")
	}

	candidates, err := c.extractor.Extract(ctx, scope.Project, scope.Owner, text)
	if err != nil {
		return nil, fmt.Errorf("extract facts: %w", err)
	}

	return c.storeCandidates(ctx, scope, candidates), nil
}

// BackfillDecisionLog imports a hand-kept markdown decision log, one
// decision per `## YYYY-MM-DD: title` heading. Entries keep their logged
// date, so they land as older facts and later decisions can link to them.
func (c *Client) BackfillDecisionLog(ctx context.Context, scope types.Scope, markdown string) ([]*types.CreateResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	candidates := extractor.ParseDecisionLog(scope.Project, scope.Owner, markdown)
	return c.storeCandidates(ctx, scope, candidates), nil
}

func (c *Client) storeCandidates(ctx context.Context, scope types.Scope, candidates []extractor.Candidate) []*types.CreateResult {
	results := make([]*types.CreateResult, 0, len(candidates))
	for i := range candidates {
		fact := candidates[i].Fact
		res, err := c.CreateFact(ctx, scope, &fact)
		if err != nil {
			c.log.Warn("skipping invalid candidate", "type", fact.Type, "error", err)
			continue
		}
		results = append(results, res)
	}
	return results
}
