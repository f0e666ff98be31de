package ccmemory

import (
	"context"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// This file defines focused interfaces composed into the full Memory
// interface. Consumers should depend on the smallest one that fits.

// FactIngestor writes facts into the graph.
type FactIngestor interface {
	// CreateFact validates, embeds, deduplicates, and stores one fact,
	// inferring provenance edges for decisions. Duplicate rejection is a
	// structured outcome in the result, not an error.
	CreateFact(ctx context.Context, scope types.Scope, fact *types.Fact) (*types.CreateResult, error)

	// ExtractAndStore detects fact candidates in conversation text and
	// stores each one through CreateFact.
	ExtractAndStore(ctx context.Context, scope types.Scope, text string) ([]*types.CreateResult, error)

	// BackfillDecisionLog imports a markdown decision log, one decision per
	// dated heading, preserving the logged dates.
	BackfillDecisionLog(ctx context.Context, scope types.Scope, markdown string) ([]*types.CreateResult, error)
}

// Retriever reads the graph back out.
type Retriever interface {
	// GetFact returns one fact if it exists and the caller may see it.
	GetFact(ctx context.Context, scope types.Scope, id string, includeTeam bool) (*types.Fact, error)

	// Recent returns the newest visible facts, optionally restricted by
	// type.
	Recent(ctx context.Context, scope types.Scope, opts RecentOptions) ([]*types.Fact, error)

	// Search ranks visible facts against a free-text query, blending
	// embedding similarity with lexical matching.
	Search(ctx context.Context, scope types.Scope, query string, opts SearchOptions) ([]types.ScoredFact, error)

	// OpenQuestions returns questions without answers, oldest first.
	OpenQuestions(ctx context.Context, scope types.Scope) ([]*types.Fact, error)

	// FailedApproaches returns failed approaches relevant to a query, or
	// all of them when the query is empty.
	FailedApproaches(ctx context.Context, scope types.Scope, query string) ([]*types.Fact, error)

	// StaleDecisions returns developmental decisions older than the cutoff
	// that nothing supersedes.
	StaleDecisions(ctx context.Context, scope types.Scope, olderThan time.Duration) ([]*types.Fact, error)

	// SessionContext assembles the context block injected at session
	// start: curated decisions, recent activity, open questions, and
	// project facts.
	SessionContext(ctx context.Context, scope types.Scope, opts SessionContextOptions) (*SessionContext, error)

	// TopicFacts returns visible facts tagged with a topic.
	TopicFacts(ctx context.Context, scope types.Scope, topic string) ([]*types.Fact, error)
}

// GraphOperator maintains the edge structure and fact lifecycle.
type GraphOperator interface {
	// AssertRelationship creates an explicit edge between the facts best
	// matching two descriptions. Unknown relationship names are coerced to
	// IMPACTS with a warning.
	AssertRelationship(ctx context.Context, scope types.Scope, sourceQuery, targetQuery, relType string) (*types.Edge, error)

	// Relink deletes every auto-inferred edge in the project and rebuilds
	// them over all decisions in timestamp order.
	Relink(ctx context.Context, scope types.Scope, opts RelinkOptions) (*types.RelinkStats, error)

	// Promote marks decisions as curated. One-way and idempotent; only the
	// owner may promote, and the first promotion stamps PromotedAt.
	Promote(ctx context.Context, scope types.Scope, opts PromoteOptions) (*types.PromoteResult, error)

	// PurgeProject removes every fact and edge in the project.
	PurgeProject(ctx context.Context, scope types.Scope) (facts, edges int, err error)
}

// MetricsReporter summarizes graph health.
type MetricsReporter interface {
	Metrics(ctx context.Context, scope types.Scope) (*types.Metrics, error)
}

// PatternReporter surfaces recurring trouble spots for dashboards.
type PatternReporter interface {
	// ExceptionClusters returns rules broken at least twice.
	ExceptionClusters(ctx context.Context, scope types.Scope) ([]ExceptionCluster, error)

	// SupersessionChains returns the longest runs of decisions replacing
	// decisions.
	SupersessionChains(ctx context.Context, scope types.Scope, limit int) ([]SupersessionChain, error)

	// CorrectionHotspots returns topics corrected at least twice.
	CorrectionHotspots(ctx context.Context, scope types.Scope) ([]CorrectionHotspot, error)
}

// Compile-time check that Client satisfies every focused interface.
var _ interface {
	FactIngestor
	Retriever
	GraphOperator
	MetricsReporter
	PatternReporter
} = (*Client)(nil)
