package ccmemory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/telemetry"
	"github.com/patrickkidd/ccmemory/pkg/types"
	"github.com/patrickkidd/ccmemory/pkg/vector"
)

// RelinkOptions tunes a relink pass.
type RelinkOptions struct {
	// Continues additionally links same-topic decisions close in time.
	Continues bool
}

// PromoteOptions selects which decisions to promote. IDs wins when set;
// otherwise every developmental decision the caller owns is considered,
// optionally restricted to a topic.
type PromoteOptions struct {
	IDs   []string
	Topic string
}

// AssertRelationship resolves two free-text descriptions to their best
// matching facts and creates an explicit edge between them. An ID that
// matches a fact exactly short-circuits the similarity lookup. Unknown
// relationship names are coerced to IMPACTS with a warning rather than
// rejected; the caller's intent to link is preserved either way.
func (c *Client) AssertRelationship(ctx context.Context, scope types.Scope, sourceQuery, targetQuery, relType string) (*types.Edge, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	edgeType, known := types.ParseEdgeType(relType)
	if !known {
		c.log.Warn("unknown relationship type, coercing to IMPACTS", "requested", relType)
	}

	source, err := c.resolveFact(ctx, scope, sourceQuery)
	if err != nil {
		return nil, fmt.Errorf("resolve source %q: %w", sourceQuery, err)
	}
	target, err := c.resolveFact(ctx, scope, targetQuery)
	if err != nil {
		return nil, fmt.Errorf("resolve target %q: %w", targetQuery, err)
	}
	if source.ID == target.ID {
		return nil, fmt.Errorf("source and target resolve to the same fact %s", source.ID)
	}

	edge := &types.Edge{
		ID:        uuid.NewString(),
		Project:   scope.Project,
		SourceID:  source.ID,
		TargetID:  target.ID,
		Type:      edgeType,
		Reason:    "asserted",
		Auto:      false,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.CreateEdge(ctx, edge); err != nil {
		return nil, fmt.Errorf("create edge: %w", err)
	}

	c.recorder.RecordActivity(ctx, telemetry.ActivityEvent{
		Project:   scope.Project,
		Owner:     scope.Owner,
		Operation: "assert",
		FactID:    source.ID,
		Action:    string(edgeType),
		EdgeCount: 1,
	})
	c.log.Info("relationship asserted",
		"project", scope.Project, "source", source.ID, "target", target.ID, "type", edgeType)
	return edge, nil
}

// resolveFact finds the fact best matching a description. An exact ID
// match wins; otherwise the description is embedded and the best match
// must clear the assertion threshold.
func (c *Client) resolveFact(ctx context.Context, scope types.Scope, query string) (*types.Fact, error) {
	if fact, err := c.store.GetFact(ctx, scope.Project, query); err == nil {
		return fact, nil
	}

	queryVec, err := c.embedWithTimeout(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed description: %w", err)
	}

	facts, err := c.store.ListFacts(ctx, store.Query{Project: scope.Project})
	if err != nil {
		return nil, err
	}

	var best *types.Fact
	bestScore := 0.0
	for _, f := range facts {
		if !f.HasEmbedding() {
			continue
		}
		if score := vector.Cosine(queryVec, f.Embedding); score > bestScore {
			best = f
			bestScore = score
		}
	}
	if best == nil || !c.thresholds.AssertionMatches(bestScore) {
		return nil, ErrNoMatch
	}
	return best, nil
}

// Relink drops every auto-inferred edge and rebuilds the decision
// provenance over all decisions in ascending timestamp order, exactly as
// if each had just been ingested. Asserted edges are untouched.
func (c *Client) Relink(ctx context.Context, scope types.Scope, opts RelinkOptions) (*types.RelinkStats, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	deleted, err := c.store.DeleteAutoEdges(ctx, scope.Project)
	if err != nil {
		return nil, fmt.Errorf("delete auto edges: %w", err)
	}

	decisions, err := c.store.ListFacts(ctx, store.Query{
		Project: scope.Project,
		Types:   []types.FactType{types.FactDecision},
	})
	if err != nil {
		return nil, err
	}
	// Oldest first, so each decision only sees its strict past.
	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].Timestamp.Before(decisions[j].Timestamp)
	})

	stats := &types.RelinkStats{
		Project:       scope.Project,
		EdgesDeleted:  deleted,
		DecisionCount: len(decisions),
	}

	for i, d := range decisions {
		if !d.HasEmbedding() {
			continue
		}

		candidates := make([]vector.Scored[*types.Fact], 0, i)
		for _, older := range decisions[:i] {
			if !older.HasEmbedding() || !older.Timestamp.Before(d.Timestamp) {
				continue
			}
			candidates = append(candidates, vector.Scored[*types.Fact]{
				Item:  older,
				Score: vector.Cosine(d.Embedding, older.Embedding),
			})
		}
		top := vector.TopK(candidates, c.thresholds.NeighborK)

		neighbors := make([]types.ScoredFact, len(top))
		for j, s := range top {
			neighbors[j] = types.ScoredFact{Fact: s.Item, Score: s.Score}
		}
		edges := c.thresholds.PlanEdges(scope.Project, d.ID, neighbors, time.Now().UTC())

		linkedTargets := make(map[string]bool)
		for j := range edges {
			if err := c.store.CreateEdge(ctx, &edges[j]); err != nil {
				return nil, fmt.Errorf("create edge: %w", err)
			}
			linkedTargets[edges[j].TargetID] = true
			stats.EdgesCreated++
			switch edges[j].Type {
			case types.EdgeSupersedes:
				stats.Supersedes++
			case types.EdgeCites:
				stats.Cites++
			}
		}

		if opts.Continues {
			n, err := c.linkContinues(ctx, scope.Project, d, decisions[:i], linkedTargets)
			if err != nil {
				return nil, err
			}
			stats.Continues += n
			stats.EdgesCreated += n
		}
	}

	stats.Elapsed = time.Since(start)
	c.recorder.RecordActivity(ctx, telemetry.ActivityEvent{
		Project:   scope.Project,
		Owner:     scope.Owner,
		Operation: "relink",
		EdgeCount: int32(stats.EdgesCreated),
	})
	c.log.Info("relink complete",
		"project", scope.Project, "deleted", stats.EdgesDeleted,
		"created", stats.EdgesCreated, "decisions", stats.DecisionCount,
		"elapsed", stats.Elapsed)
	return stats, nil
}

// linkContinues adds a CONTINUES edge from d to the most similar eligible
// older decision, skipping pairs already joined this pass.
func (c *Client) linkContinues(ctx context.Context, project string, d *types.Fact, older []*types.Fact, linked map[string]bool) (int, error) {
	var best *types.Fact
	bestScore := 0.0
	for _, o := range older {
		if linked[o.ID] || !o.HasEmbedding() {
			continue
		}
		sim := vector.Cosine(d.Embedding, o.Embedding)
		if c.thresholds.ContinuesEligible(d, o, sim) && sim > bestScore {
			best = o
			bestScore = sim
		}
	}
	if best == nil {
		return 0, nil
	}

	edge := types.Edge{
		ID:         uuid.NewString(),
		Project:    project,
		SourceID:   d.ID,
		TargetID:   best.ID,
		Type:       types.EdgeContinues,
		Similarity: bestScore,
		Reason:     "shared topic",
		Auto:       true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.store.CreateEdge(ctx, &edge); err != nil {
		return 0, fmt.Errorf("create continues edge: %w", err)
	}
	linked[best.ID] = true
	return 1, nil
}

// Promote marks decisions as curated. Promotion is one-way: curated
// decisions stay curated, and repeating the call is a no-op counted in
// AlreadyCurated. Only the owner may promote; with an empty caller owner
// the ownership check is disabled.
func (c *Client) Promote(ctx context.Context, scope types.Scope, opts PromoteOptions) (*types.PromoteResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var candidates []*types.Fact
	if len(opts.IDs) > 0 {
		for _, id := range opts.IDs {
			fact, err := c.store.GetFact(ctx, scope.Project, id)
			if err != nil {
				return nil, fmt.Errorf("fact %s: %w", id, err)
			}
			if fact.Type != types.FactDecision {
				return nil, fmt.Errorf("fact %s: %w", id, ErrNotDecision)
			}
			candidates = append(candidates, fact)
		}
	} else {
		decisions, err := c.store.ListFacts(ctx, store.Query{
			Project: scope.Project,
			Types:   []types.FactType{types.FactDecision},
		})
		if err != nil {
			return nil, err
		}
		for _, d := range decisions {
			if opts.Topic != "" && !d.HasTopic(opts.Topic) {
				continue
			}
			candidates = append(candidates, d)
		}
	}

	result := &types.PromoteResult{Project: scope.Project}
	now := time.Now().UTC()
	for _, d := range candidates {
		if scope.Owner != "" && d.Owner != scope.Owner {
			if len(opts.IDs) > 0 {
				return nil, fmt.Errorf("fact %s: %w", d.ID, ErrNotOwner)
			}
			result.NotOwned++
			continue
		}
		if d.Status == types.StatusCurated {
			result.AlreadyCurated++
			continue
		}
		if err := c.store.UpdateFactStatus(ctx, scope.Project, d.ID, types.StatusCurated, now); err != nil {
			return nil, fmt.Errorf("promote %s: %w", d.ID, err)
		}
		result.Promoted = append(result.Promoted, d.ID)
	}

	c.recorder.RecordActivity(ctx, telemetry.ActivityEvent{
		Project:   scope.Project,
		Owner:     scope.Owner,
		Operation: "promote",
		Action:    fmt.Sprintf("promoted=%d", len(result.Promoted)),
	})
	c.log.Info("promotion complete",
		"project", scope.Project, "promoted", len(result.Promoted),
		"already_curated", result.AlreadyCurated, "not_owned", result.NotOwned)
	return result, nil
}

// PurgeProject removes every fact and edge in the project, including the
// similarity index entries.
func (c *Client) PurgeProject(ctx context.Context, scope types.Scope) (int, int, error) {
	if err := scope.Validate(); err != nil {
		return 0, 0, err
	}
	facts, edges, err := c.store.PurgeProject(ctx, scope.Project)
	if err != nil {
		return 0, 0, err
	}
	c.index.PurgeProject(scope.Project)

	c.recorder.RecordActivity(ctx, telemetry.ActivityEvent{
		Project:   scope.Project,
		Owner:     scope.Owner,
		Operation: "purge",
		Action:    fmt.Sprintf("facts=%d edges=%d", facts, edges),
	})
	c.log.Info("project purged", "project", scope.Project, "facts", facts, "edges", edges)
	return facts, edges, nil
}
