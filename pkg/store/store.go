// Package store persists facts and edges. Three backends share one
// interface: an in-memory map store for tests and ephemeral sessions, an
// embedded Badger store for single-machine deployments, and a Neo4j store
// for shared graph installs.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// ErrNotFound is returned when a fact does not exist in the requested
// project.
var ErrNotFound = errors.New("fact not found")

// ErrCuratedImmutable is returned when a status update would demote a
// curated decision. Curated is terminal; every backend enforces this, not
// just the promotion path.
var ErrCuratedImmutable = errors.New("curated status cannot be demoted")

// Query narrows a fact listing. Zero values mean unrestricted.
type Query struct {
	Project string
	// Types keeps only the listed fact types. Empty means all types.
	Types []types.FactType
	// Since keeps facts with timestamps at or after the cutoff.
	Since time.Time
	// Limit caps the result count after sorting newest-first. Zero means
	// unlimited.
	Limit int
}

func (q Query) wantsType(ft types.FactType) bool {
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if t == ft {
			return true
		}
	}
	return false
}

func (q Query) matches(f *types.Fact) bool {
	if f.Project != q.Project {
		return false
	}
	if !q.wantsType(f.Type) {
		return false
	}
	if !q.Since.IsZero() && f.Timestamp.Before(q.Since) {
		return false
	}
	return true
}

// FactStore is the persistence contract for the memory graph. CreateFact
// commits the node and its inferred edges in one transaction so a crash
// never leaves a half-linked decision.
type FactStore interface {
	CreateFact(ctx context.Context, fact *types.Fact, edges []types.Edge) error
	GetFact(ctx context.Context, project, id string) (*types.Fact, error)
	ListFacts(ctx context.Context, q Query) ([]*types.Fact, error)
	// UpdateFactStatus promotes a decision. It is a no-op on facts already
	// carrying the status and returns ErrCuratedImmutable on any attempt
	// to demote a curated one.
	UpdateFactStatus(ctx context.Context, project, id string, status types.DecisionStatus, promotedAt time.Time) error

	CreateEdge(ctx context.Context, edge *types.Edge) error
	ListEdges(ctx context.Context, project string) ([]*types.Edge, error)
	OutgoingEdges(ctx context.Context, project, sourceID string) ([]*types.Edge, error)
	// DeleteAutoEdges removes every similarity-inferred edge in the
	// project, returning how many were deleted. Asserted edges survive.
	DeleteAutoEdges(ctx context.Context, project string) (int, error)

	// PurgeProject removes every fact and edge in the project.
	PurgeProject(ctx context.Context, project string) (facts, edges int, err error)

	Close() error
}

// sortFactsNewestFirst orders facts descending by timestamp, breaking ties
// by ID for stable output.
func sortFactsNewestFirst(facts []*types.Fact) {
	sort.Slice(facts, func(i, j int) bool {
		if !facts[i].Timestamp.Equal(facts[j].Timestamp) {
			return facts[i].Timestamp.After(facts[j].Timestamp)
		}
		return facts[i].ID > facts[j].ID
	})
}

// applyLimit trims a sorted result set to the query limit.
func applyLimit(facts []*types.Fact, limit int) []*types.Fact {
	if limit > 0 && len(facts) > limit {
		return facts[:limit]
	}
	return facts
}
