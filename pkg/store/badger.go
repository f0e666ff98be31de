package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// Key layout:
//   f:<project>:<id> -> JSON fact
//   e:<project>:<id> -> JSON edge
// Prefix scans over "f:<project>:" and "e:<project>:" cover every listing
// the engine needs. Project and id are percent-escaped so a ":" inside
// either cannot shift the key boundary into another project.

// BadgerStore persists the graph in an embedded Badger database. This is
// the default backend: no server, one directory on disk per install.
type BadgerStore struct {
	db *badger.DB
}

var _ FactStore = (*BadgerStore)(nil)

// NewBadgerStore opens (creating if needed) a Badger database at path. An
// empty path opens an in-memory database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func keyEscape(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ":", "%3A")
}

func factKey(project, id string) []byte {
	return []byte("f:" + keyEscape(project) + ":" + keyEscape(id))
}

func edgeKey(project, id string) []byte {
	return []byte("e:" + keyEscape(project) + ":" + keyEscape(id))
}

func factPrefix(project string) []byte { return []byte("f:" + keyEscape(project) + ":") }
func edgePrefix(project string) []byte { return []byte("e:" + keyEscape(project) + ":") }

func (s *BadgerStore) CreateFact(ctx context.Context, fact *types.Fact, edges []types.Edge) error {
	if err := fact.ValidateForCreate(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		factBytes, err := json.Marshal(fact)
		if err != nil {
			return fmt.Errorf("marshal fact %s: %w", fact.ID, err)
		}
		if err := txn.Set(factKey(fact.Project, fact.ID), factBytes); err != nil {
			return err
		}
		for i := range edges {
			edgeBytes, err := json.Marshal(&edges[i])
			if err != nil {
				return fmt.Errorf("marshal edge %s: %w", edges[i].ID, err)
			}
			if err := txn.Set(edgeKey(fact.Project, edges[i].ID), edgeBytes); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) GetFact(ctx context.Context, project, id string) (*types.Fact, error) {
	var fact types.Fact
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(factKey(project, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &fact)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fact, nil
}

func (s *BadgerStore) ListFacts(ctx context.Context, q Query) ([]*types.Fact, error) {
	var out []*types.Fact
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := factPrefix(q.Project)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var fact types.Fact
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &fact)
			})
			if err != nil {
				return err
			}
			if q.matches(&fact) {
				copied := fact
				out = append(out, &copied)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortFactsNewestFirst(out)
	return applyLimit(out, q.Limit), nil
}

func (s *BadgerStore) UpdateFactStatus(ctx context.Context, project, id string, status types.DecisionStatus, promotedAt time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(factKey(project, id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var fact types.Fact
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &fact)
		}); err != nil {
			return err
		}
		if fact.Status == status {
			return nil
		}
		if fact.Status == types.StatusCurated {
			return ErrCuratedImmutable
		}
		fact.Status = status
		if status == types.StatusCurated {
			ts := promotedAt
			fact.PromotedAt = &ts
		}

		updated, err := json.Marshal(&fact)
		if err != nil {
			return err
		}
		return txn.Set(factKey(project, id), updated)
	})
}

func (s *BadgerStore) CreateEdge(ctx context.Context, edge *types.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		edgeBytes, err := json.Marshal(edge)
		if err != nil {
			return err
		}
		return txn.Set(edgeKey(edge.Project, edge.ID), edgeBytes)
	})
}

func (s *BadgerStore) ListEdges(ctx context.Context, project string) ([]*types.Edge, error) {
	var out []*types.Edge
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := edgePrefix(project)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var edge types.Edge
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &edge)
			})
			if err != nil {
				return err
			}
			copied := edge
			out = append(out, &copied)
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) OutgoingEdges(ctx context.Context, project, sourceID string) ([]*types.Edge, error) {
	all, err := s.ListEdges(ctx, project)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.SourceID == sourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *BadgerStore) DeleteAutoEdges(ctx context.Context, project string) (int, error) {
	deleted := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		prefix := edgePrefix(project)

		var doomed [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var edge types.Edge
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &edge)
			})
			if err != nil {
				it.Close()
				return err
			}
			if edge.Auto {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *BadgerStore) PurgeProject(ctx context.Context, project string) (int, int, error) {
	facts, edges := 0, 0
	err := s.db.Update(func(txn *badger.Txn) error {
		var doomed [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for _, prefix := range [][]byte{factPrefix(project), edgePrefix(project)} {
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
			if bytes.HasPrefix(key, []byte("f:")) {
				facts++
			} else {
				edges++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return facts, edges, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
