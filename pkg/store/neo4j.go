package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// Neo4jStore keeps the graph in a Neo4j database for installs where several
// machines share one memory. Facts are (:Fact) nodes keyed by id+project;
// edges are typed relationships carrying similarity metadata.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

var _ FactStore = (*Neo4jStore)(nil)

// NewNeo4jStore connects to Neo4j with basic auth. An empty database name
// defaults to "neo4j".
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{client: client, database: database}, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func factParams(f *types.Fact) (map[string]any, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal fact %s: %w", f.ID, err)
	}
	embedding := make([]float64, len(f.Embedding))
	for i, x := range f.Embedding {
		embedding[i] = float64(x)
	}
	return map[string]any{
		"id":        f.ID,
		"project":   f.Project,
		"owner":     f.Owner,
		"type":      string(f.Type),
		"status":    string(f.Status),
		"timestamp": f.Timestamp.UTC(),
		"embedding": embedding,
		"payload":   string(payload),
	}, nil
}

func factFromPayload(raw any) (*types.Fact, error) {
	payload, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", raw)
	}
	var fact types.Fact
	if err := json.Unmarshal([]byte(payload), &fact); err != nil {
		return nil, err
	}
	return &fact, nil
}

func edgeParams(e *types.Edge) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"project":    e.Project,
		"source_id":  e.SourceID,
		"target_id":  e.TargetID,
		"similarity": e.Similarity,
		"reason":     e.Reason,
		"auto":       e.Auto,
		"created_at": e.CreatedAt.UTC(),
	}
}

// Relationship types cannot be parameterized in Cypher. EdgeType is a
// closed enum validated before use, so string interpolation is safe here.
func mergeEdgeQuery(t types.EdgeType) string {
	return fmt.Sprintf(`
		MATCH (src:Fact {id: $source_id, project: $project})
		MATCH (dst:Fact {id: $target_id, project: $project})
		MERGE (src)-[r:%s {id: $id}]->(dst)
		SET r.similarity = $similarity,
		    r.reason = $reason,
		    r.auto = $auto,
		    r.created_at = $created_at
	`, t)
}

func (s *Neo4jStore) CreateFact(ctx context.Context, fact *types.Fact, edges []types.Edge) error {
	if err := fact.ValidateForCreate(); err != nil {
		return err
	}
	params, err := factParams(fact)
	if err != nil {
		return err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (f:Fact {id: $id, project: $project})
			SET f.owner = $owner,
			    f.type = $type,
			    f.status = $status,
			    f.timestamp = $timestamp,
			    f.embedding = $embedding,
			    f.payload = $payload
		`
		if _, err := tx.Run(ctx, query, params); err != nil {
			return nil, err
		}
		for i := range edges {
			if _, err := tx.Run(ctx, mergeEdgeQuery(edges[i].Type), edgeParams(&edges[i])); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *Neo4jStore) GetFact(ctx context.Context, project, id string) (*types.Fact, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (f:Fact {id: $id, project: $project})
			RETURN f.payload AS payload
		`, map[string]any{"id": id, "project": project})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, ErrNotFound
		}
		payload, _ := records[0].Get("payload")
		return factFromPayload(payload)
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.Fact), nil
}

func (s *Neo4jStore) ListFacts(ctx context.Context, q Query) ([]*types.Fact, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (f:Fact {project: $project})
			RETURN f.payload AS payload
		`, map[string]any{"project": q.Project})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		facts := make([]*types.Fact, 0, len(records))
		for _, rec := range records {
			payload, _ := rec.Get("payload")
			fact, err := factFromPayload(payload)
			if err != nil {
				return nil, err
			}
			if q.matches(fact) {
				facts = append(facts, fact)
			}
		}
		return facts, nil
	})
	if err != nil {
		return nil, err
	}

	facts := result.([]*types.Fact)
	sortFactsNewestFirst(facts)
	return applyLimit(facts, q.Limit), nil
}

func (s *Neo4jStore) UpdateFactStatus(ctx context.Context, project, id string, status types.DecisionStatus, promotedAt time.Time) error {
	fact, err := s.GetFact(ctx, project, id)
	if err != nil {
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
	params, err := factParams(fact)
	if err != nil {
		return err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (f:Fact {id: $id, project: $project})
			SET f.status = $status, f.payload = $payload
		`, params)
	})
	return err
}

func (s *Neo4jStore) CreateEdge(ctx context.Context, edge *types.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, mergeEdgeQuery(edge.Type), edgeParams(edge))
	})
	return err
}

func (s *Neo4jStore) ListEdges(ctx context.Context, project string) ([]*types.Edge, error) {
	return s.queryEdges(ctx, `
		MATCH (src:Fact {project: $project})-[r]->(dst:Fact)
		RETURN r.id AS id, src.id AS source_id, dst.id AS target_id,
		       type(r) AS type, r.similarity AS similarity,
		       r.reason AS reason, r.auto AS auto, r.created_at AS created_at
	`, map[string]any{"project": project}, project)
}

func (s *Neo4jStore) OutgoingEdges(ctx context.Context, project, sourceID string) ([]*types.Edge, error) {
	return s.queryEdges(ctx, `
		MATCH (src:Fact {project: $project, id: $source_id})-[r]->(dst:Fact)
		RETURN r.id AS id, src.id AS source_id, dst.id AS target_id,
		       type(r) AS type, r.similarity AS similarity,
		       r.reason AS reason, r.auto AS auto, r.created_at AS created_at
	`, map[string]any{"project": project, "source_id": sourceID}, project)
}

func (s *Neo4jStore) queryEdges(ctx context.Context, query string, params map[string]any, project string) ([]*types.Edge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		edges := make([]*types.Edge, 0, len(records))
		for _, rec := range records {
			edge := &types.Edge{Project: project}
			if v, ok := rec.Get("id"); ok && v != nil {
				edge.ID, _ = v.(string)
			}
			if v, ok := rec.Get("source_id"); ok {
				edge.SourceID, _ = v.(string)
			}
			if v, ok := rec.Get("target_id"); ok {
				edge.TargetID, _ = v.(string)
			}
			if v, ok := rec.Get("type"); ok {
				if name, ok := v.(string); ok {
					edge.Type, _ = types.ParseEdgeType(name)
				}
			}
			if v, ok := rec.Get("similarity"); ok && v != nil {
				edge.Similarity, _ = v.(float64)
			}
			if v, ok := rec.Get("reason"); ok && v != nil {
				edge.Reason, _ = v.(string)
			}
			if v, ok := rec.Get("auto"); ok && v != nil {
				edge.Auto, _ = v.(bool)
			}
			if v, ok := rec.Get("created_at"); ok && v != nil {
				if ts, ok := v.(time.Time); ok {
					edge.CreatedAt = ts
				}
			}
			edges = append(edges, edge)
		}
		return edges, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*types.Edge), nil
}

func (s *Neo4jStore) DeleteAutoEdges(ctx context.Context, project string) (int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (src:Fact {project: $project})-[r {auto: true}]->(:Fact)
			DELETE r
			RETURN count(r) AS deleted
		`, map[string]any{"project": project})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		v, _ := record.Get("deleted")
		count, _ := v.(int64)
		return int(count), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (s *Neo4jStore) PurgeProject(ctx context.Context, project string) (int, int, error) {
	edges, err := s.ListEdges(ctx, project)
	if err != nil {
		return 0, 0, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (f:Fact {project: $project})
			DETACH DELETE f
			RETURN count(f) AS deleted
		`, map[string]any{"project": project})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		v, _ := record.Get("deleted")
		count, _ := v.(int64)
		return int(count), nil
	})
	if err != nil {
		return 0, 0, err
	}
	return result.(int), len(edges), nil
}

func (s *Neo4jStore) Close() error {
	return s.client.Close(context.Background())
}
