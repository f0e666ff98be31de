package vector

import (
	"sync"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

type entry struct {
	id        string
	embedding []float32
	timestamp time.Time
}

type bucketKey struct {
	project  string
	factType types.FactType
}

// Index is a brute-force nearest-neighbor index partitioned by project and
// fact type. Buckets stay small enough (hundreds of facts per project) that
// a linear scan under RLock outperforms anything fancier.
type Index struct {
	mu      sync.RWMutex
	buckets map[bucketKey][]entry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{buckets: make(map[bucketKey][]entry)}
}

// Upsert adds or replaces the embedding for a fact. Facts without an
// embedding are ignored.
func (ix *Index) Upsert(f *types.Fact) {
	if !f.HasEmbedding() {
		return
	}
	key := bucketKey{project: f.Project, factType: f.Type}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	bucket := ix.buckets[key]
	for i := range bucket {
		if bucket[i].id == f.ID {
			bucket[i].embedding = f.Embedding
			bucket[i].timestamp = f.Timestamp
			return
		}
	}
	ix.buckets[key] = append(bucket, entry{
		id:        f.ID,
		embedding: f.Embedding,
		timestamp: f.Timestamp,
	})
}

// Remove drops a fact from the index. No-op if absent.
func (ix *Index) Remove(project string, factType types.FactType, id string) {
	key := bucketKey{project: project, factType: factType}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	bucket := ix.buckets[key]
	for i := range bucket {
		if bucket[i].id == id {
			ix.buckets[key] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// PurgeProject drops every bucket belonging to the project.
func (ix *Index) PurgeProject(project string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for key := range ix.buckets {
		if key.project == project {
			delete(ix.buckets, key)
		}
	}
}

// Len returns the number of indexed facts for a project across all types.
func (ix *Index) Len(project string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := 0
	for key, bucket := range ix.buckets {
		if key.project == project {
			n += len(bucket)
		}
	}
	return n
}

// QueryOptions narrows a nearest-neighbor scan.
type QueryOptions struct {
	// Before keeps only facts with a strictly older timestamp. Zero means
	// no time restriction.
	Before time.Time
	// ExcludeID drops one fact from the candidate set, typically the query
	// fact itself.
	ExcludeID string
}

// Nearest returns up to k fact IDs most similar to the query embedding
// within one (project, type) bucket, descending by cosine similarity.
func (ix *Index) Nearest(project string, factType types.FactType, query []float32, k int, opts QueryOptions) []Scored[string] {
	if len(query) == 0 || k <= 0 {
		return nil
	}
	key := bucketKey{project: project, factType: factType}

	ix.mu.RLock()
	bucket := ix.buckets[key]
	candidates := make([]Scored[string], 0, len(bucket))
	for _, e := range bucket {
		if e.id == opts.ExcludeID {
			continue
		}
		if !opts.Before.IsZero() && !e.timestamp.Before(opts.Before) {
			continue
		}
		candidates = append(candidates, Scored[string]{
			Item:  e.id,
			Score: Cosine(query, e.embedding),
		})
	}
	ix.mu.RUnlock()

	return TopK(candidates, k)
}

// Best returns the single most similar fact in the bucket, or ok=false when
// the bucket has no eligible candidates.
func (ix *Index) Best(project string, factType types.FactType, query []float32, opts QueryOptions) (Scored[string], bool) {
	top := ix.Nearest(project, factType, query, 1, opts)
	if len(top) == 0 {
		return Scored[string]{}, false
	}
	return top[0], true
}
