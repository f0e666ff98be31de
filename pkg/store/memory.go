package store

import (
	"context"
	"sync"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// MemoryStore keeps the graph in process memory. It backs tests and
// throwaway sessions where persistence is not wanted.
type MemoryStore struct {
	mu    sync.RWMutex
	facts map[string]map[string]*types.Fact // project -> id -> fact
	edges map[string][]*types.Edge          // project -> edges
}

var _ FactStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		facts: make(map[string]map[string]*types.Fact),
		edges: make(map[string][]*types.Edge),
	}
}

func (s *MemoryStore) CreateFact(ctx context.Context, fact *types.Fact, edges []types.Edge) error {
	if err := fact.ValidateForCreate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.facts[fact.Project]
	if byID == nil {
		byID = make(map[string]*types.Fact)
		s.facts[fact.Project] = byID
	}
	copied := *fact
	byID[fact.ID] = &copied

	for i := range edges {
		e := edges[i]
		s.edges[fact.Project] = append(s.edges[fact.Project], &e)
	}
	return nil
}

func (s *MemoryStore) GetFact(ctx context.Context, project, id string) (*types.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.facts[project][id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (s *MemoryStore) ListFacts(ctx context.Context, q Query) ([]*types.Fact, error) {
	s.mu.RLock()
	out := make([]*types.Fact, 0, len(s.facts[q.Project]))
	for _, f := range s.facts[q.Project] {
		if q.matches(f) {
			copied := *f
			out = append(out, &copied)
		}
	}
	s.mu.RUnlock()

	sortFactsNewestFirst(out)
	return applyLimit(out, q.Limit), nil
}

func (s *MemoryStore) UpdateFactStatus(ctx context.Context, project, id string, status types.DecisionStatus, promotedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.facts[project][id]
	if !ok {
		return ErrNotFound
	}
	if f.Status == status {
		return nil
	}
	if f.Status == types.StatusCurated {
		return ErrCuratedImmutable
	}
	f.Status = status
	if status == types.StatusCurated {
		ts := promotedAt
		f.PromotedAt = &ts
	}
	return nil
}

func (s *MemoryStore) CreateEdge(ctx context.Context, edge *types.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *edge
	s.edges[edge.Project] = append(s.edges[edge.Project], &copied)
	return nil
}

func (s *MemoryStore) ListEdges(ctx context.Context, project string) ([]*types.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Edge, 0, len(s.edges[project]))
	for _, e := range s.edges[project] {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) OutgoingEdges(ctx context.Context, project, sourceID string) ([]*types.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Edge
	for _, e := range s.edges[project] {
		if e.SourceID == sourceID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteAutoEdges(ctx context.Context, project string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.edges[project][:0]
	deleted := 0
	for _, e := range s.edges[project] {
		if e.Auto {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.edges[project] = kept
	return deleted, nil
}

func (s *MemoryStore) PurgeProject(ctx context.Context, project string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := len(s.facts[project])
	edges := len(s.edges[project])
	delete(s.facts, project)
	delete(s.edges, project)
	return facts, edges, nil
}

func (s *MemoryStore) Close() error { return nil }
