package ccmemory

import (
	"context"
	"sort"
	"strings"

	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

// ExceptionCluster groups exceptions that broke the same rule. A rule
// broken repeatedly is a signal the rule no longer fits the project.
type ExceptionCluster struct {
	Rule       string        `json:"rule"`
	Count      int           `json:"count"`
	Exceptions []*types.Fact `json:"exceptions"`
}

// SupersessionChain is one path of decisions joined by supersession,
// newest first. Long chains show where thinking keeps churning.
type SupersessionChain struct {
	Length int           `json:"length"`
	Facts  []*types.Fact `json:"facts"`
}

// CorrectionHotspot counts corrections sharing a topic tag.
type CorrectionHotspot struct {
	Topic       string        `json:"topic"`
	Count       int           `json:"count"`
	Corrections []*types.Fact `json:"corrections"`
}

// ExceptionClusters returns rules broken at least twice, most-broken
// first.
func (c *Client) ExceptionClusters(ctx context.Context, scope types.Scope) ([]ExceptionCluster, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	facts, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{types.FactException},
	}, false)
	if err != nil {
		return nil, err
	}

	byRule := make(map[string]*ExceptionCluster)
	for _, f := range facts {
		key := strings.ToLower(strings.TrimSpace(f.Exception.RuleBroken))
		if key == "" {
			continue
		}
		cluster, ok := byRule[key]
		if !ok {
			cluster = &ExceptionCluster{Rule: f.Exception.RuleBroken}
			byRule[key] = cluster
		}
		cluster.Count++
		cluster.Exceptions = append(cluster.Exceptions, f)
	}

	var out []ExceptionCluster
	for _, cluster := range byRule {
		if cluster.Count >= 2 {
			out = append(out, *cluster)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Rule < out[j].Rule
	})
	return out, nil
}

// SupersessionChains walks supersession edges from every chain head and
// returns the paths of two or more decisions, longest first. Auto links
// only ever point at strictly older facts, so the walk terminates.
func (c *Client) SupersessionChains(ctx context.Context, scope types.Scope, limit int) ([]SupersessionChain, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	decisions, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{types.FactDecision},
	}, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*types.Fact, len(decisions))
	for _, d := range decisions {
		byID[d.ID] = d
	}

	edges, err := c.store.ListEdges(ctx, scope.Project)
	if err != nil {
		return nil, err
	}
	next := make(map[string]string)
	superseded := make(map[string]bool)
	for _, e := range edges {
		if e.Type != types.EdgeSupersedes {
			continue
		}
		next[e.SourceID] = e.TargetID
		superseded[e.TargetID] = true
	}

	var out []SupersessionChain
	for _, d := range decisions {
		if superseded[d.ID] {
			continue
		}
		chain := []*types.Fact{d}
		seen := map[string]bool{d.ID: true}
		for id := next[d.ID]; id != "" && !seen[id]; id = next[id] {
			seen[id] = true
			target, ok := byID[id]
			if !ok {
				break
			}
			chain = append(chain, target)
		}
		if len(chain) >= 2 {
			out = append(out, SupersessionChain{Length: len(chain), Facts: chain})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Length != out[j].Length {
			return out[i].Length > out[j].Length
		}
		return out[i].Facts[0].Timestamp.After(out[j].Facts[0].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CorrectionHotspots returns topics corrected at least twice, most
// corrected first. A hot topic is one the agent keeps getting wrong.
func (c *Client) CorrectionHotspots(ctx context.Context, scope types.Scope) ([]CorrectionHotspot, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	facts, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{types.FactCorrection},
	}, false)
	if err != nil {
		return nil, err
	}

	byTopic := make(map[string]*CorrectionHotspot)
	for _, f := range facts {
		for _, topic := range f.Topics {
			key := strings.ToLower(topic)
			spot, ok := byTopic[key]
			if !ok {
				spot = &CorrectionHotspot{Topic: topic}
				byTopic[key] = spot
			}
			spot.Count++
			spot.Corrections = append(spot.Corrections, f)
		}
	}

	var out []CorrectionHotspot
	for _, spot := range byTopic {
		if spot.Count >= 2 {
			out = append(out, *spot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	return out, nil
}
