package ccmemory_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	ccmemory "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/embedder"
	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

// plannedEmbedder returns scripted vectors per text so tests control
// similarity exactly. Unknown texts map to an orthogonal filler vector.
type plannedEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (p *plannedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.fail {
		return nil, embedder.ErrUnavailable
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := p.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 0, 1}
		}
	}
	return out, nil
}

func (p *plannedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *plannedEmbedder) Dimensions() int { return 4 }
func (p *plannedEmbedder) Close() error    { return nil }

func newClient(t *testing.T, emb embedder.Client) *ccmemory.Client {
	t.Helper()
	if emb == nil {
		emb = embedder.NewStaticClient(64)
	}
	c, err := ccmemory.New(context.Background(), ccmemory.Options{
		Store:    store.NewMemoryStore(),
		Embedder: emb,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func decision(desc string, ts time.Time) *types.Fact {
	return &types.Fact{
		Type:      types.FactDecision,
		Timestamp: ts,
		Decision:  &types.Decision{Description: desc},
	}
}

var scope = types.Scope{Project: "proj", Owner: "alice"}

func TestCreateFactAssignsDefaults(t *testing.T) {
	c := newClient(t, nil)

	res, err := c.CreateFact(context.Background(), scope, &types.Fact{
		Type:     types.FactDecision,
		Decision: &types.Decision{Description: "use badger for storage"},
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionCreated, res.Action)
	require.NotEmpty(t, res.FactID)
	require.False(t, res.Degraded)

	got, err := c.GetFact(context.Background(), scope, res.FactID, false)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Owner)
	require.Equal(t, types.StatusDevelopmental, got.Status)
	require.False(t, got.Timestamp.IsZero())
	require.True(t, got.HasEmbedding())
}

func TestCreateFactRejectsDuplicates(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	first, err := c.CreateFact(ctx, scope, decision("use badger for storage", time.Now()))
	require.NoError(t, err)

	// Identical text embeds identically: similarity 1.0 > 0.95.
	dup, err := c.CreateFact(ctx, scope, decision("use badger for storage", time.Now()))
	require.NoError(t, err)
	require.Equal(t, types.ActionSkipped, dup.Action)
	require.Empty(t, dup.FactID, "no node written for a duplicate")
	require.Equal(t, first.FactID, dup.ExistingID)
	require.Greater(t, dup.Similarity, 0.95)
}

func TestCreateFactDuplicateThresholdPerType(t *testing.T) {
	// 0.92 similarity: duplicate for an insight (0.90) but not for a
	// decision (0.95).
	vectors := map[string][]float32{
		"the cache is the bottleneck": {1, 0, 0, 0},
		"cache remains the slow part": {0.92, 0.392, 0, 0},
	}
	ctx := context.Background()

	insightOf := func(summary string) *types.Fact {
		return &types.Fact{Type: types.FactInsight, Insight: &types.Insight{Summary: summary}}
	}

	c := newClient(t, &plannedEmbedder{vectors: vectors})
	_, err := c.CreateFact(ctx, scope, insightOf("the cache is the bottleneck"))
	require.NoError(t, err)
	res, err := c.CreateFact(ctx, scope, insightOf("cache remains the slow part"))
	require.NoError(t, err)
	require.Equal(t, types.ActionSkipped, res.Action)

	c2 := newClient(t, &plannedEmbedder{vectors: vectors})
	_, err = c2.CreateFact(ctx, scope, decision("the cache is the bottleneck", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	res2, err := c2.CreateFact(ctx, scope, decision("cache remains the slow part", time.Now()))
	require.NoError(t, err)
	require.NotEqual(t, types.ActionSkipped, res2.Action)
}

func TestDecisionAutoLinking(t *testing.T) {
	// Against the new decision's vector, old1 scores ~0.90 (supersede
	// band), old2 scores ~0.82 (cite band), old3 is orthogonal.
	vectors := map[string][]float32{
		"serve the api with gin":        {1, 0, 0, 0},
		"serve the api with gin v2":     {0.90, 0.436, 0, 0},
		"expose rest endpoints via gin": {0.738, 0.357, 0.572, 0},
		"logs go to stderr":             {0, 0, 1, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()
	base := time.Now().Add(-24 * time.Hour)

	old1, err := c.CreateFact(ctx, scope, decision("serve the api with gin", base))
	require.NoError(t, err)
	old2, err := c.CreateFact(ctx, scope, decision("expose rest endpoints via gin", base.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, decision("logs go to stderr", base.Add(time.Hour)))
	require.NoError(t, err)

	res, err := c.CreateFact(ctx, scope, decision("serve the api with gin v2", time.Now()))
	require.NoError(t, err)
	require.Equal(t, types.ActionSuperseded, res.Action)
	require.Equal(t, []string{old1.FactID}, res.SupersededIDs)
	require.Len(t, res.Edges, 2)

	byTarget := map[string]types.EdgeType{}
	for _, e := range res.Edges {
		byTarget[e.TargetID] = e.Type
		require.True(t, e.Auto)
	}
	require.Equal(t, types.EdgeSupersedes, byTarget[old1.FactID])
	require.Equal(t, types.EdgeCites, byTarget[old2.FactID])
}

func TestAutoLinkingOnlyConsidersOlderDecisions(t *testing.T) {
	vectors := map[string][]float32{
		"pin go to 1.25":        {1, 0, 0, 0},
		"pin go version harder": {0.93, 0.368, 0, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	// The similar decision is NEWER than the one being created, so no
	// edge may be inferred toward it.
	_, err := c.CreateFact(ctx, scope, decision("pin go to 1.25", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	res, err := c.CreateFact(ctx, scope, decision("pin go version harder", time.Now()))
	require.NoError(t, err)
	require.Empty(t, res.Edges)
	require.Equal(t, types.ActionCreated, res.Action)
}

func TestProjectFactsNeverAutoLink(t *testing.T) {
	vectors := map[string][]float32{
		"main branch is protected":  {1, 0, 0, 0},
		"protect the main branch!!": {0.86, 0.510, 0, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	pf := func(s string) *types.Fact {
		return &types.Fact{Type: types.FactProject, ProjectFact: &types.ProjectFact{Statement: s}}
	}
	_, err := c.CreateFact(ctx, scope, pf("main branch is protected"))
	require.NoError(t, err)
	res, err := c.CreateFact(ctx, scope, pf("protect the main branch!!"))
	require.NoError(t, err)
	require.Equal(t, types.ActionCreated, res.Action, "0.86 is below the 0.90 dedup cutoff")
	require.Empty(t, res.Edges)
}

func TestDegradedIngestionWithoutEmbedder(t *testing.T) {
	c := newClient(t, &plannedEmbedder{fail: true})
	ctx := context.Background()

	res, err := c.CreateFact(ctx, scope, decision("keep working offline", time.Now()))
	require.NoError(t, err, "embedding outage must not fail ingestion")
	require.Equal(t, types.ActionCreated, res.Action)
	require.True(t, res.Degraded)
	require.Empty(t, res.Edges)

	got, err := c.GetFact(ctx, scope, res.FactID, false)
	require.NoError(t, err)
	require.False(t, got.HasEmbedding())
}

func TestPromoteLifecycle(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	mine, err := c.CreateFact(ctx, scope, decision("adopt table driven tests", time.Now()))
	require.NoError(t, err)

	theirs := decision("switch to monorepo", time.Now())
	theirs.Owner = "bob"
	other, err := c.CreateFact(ctx, scope, theirs)
	require.NoError(t, err)

	res, err := c.Promote(ctx, scope, ccmemory.PromoteOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{mine.FactID}, res.Promoted)
	require.Equal(t, 1, res.NotOwned)

	promoted, err := c.GetFact(ctx, scope, mine.FactID, false)
	require.NoError(t, err)
	require.Equal(t, types.StatusCurated, promoted.Status)
	require.NotNil(t, promoted.PromotedAt)

	// Idempotent.
	again, err := c.Promote(ctx, scope, ccmemory.PromoteOptions{})
	require.NoError(t, err)
	require.Empty(t, again.Promoted)
	require.Equal(t, 1, again.AlreadyCurated)

	// Explicit promotion of someone else's decision is an error.
	_, err = c.Promote(ctx, scope, ccmemory.PromoteOptions{IDs: []string{other.FactID}})
	require.ErrorIs(t, err, ccmemory.ErrNotOwner)
}

func TestVisibilityFiltering(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	mine, err := c.CreateFact(ctx, scope, decision("my developmental call", time.Now()))
	require.NoError(t, err)
	_, err = c.Promote(ctx, scope, ccmemory.PromoteOptions{IDs: []string{mine.FactID}})
	require.NoError(t, err)

	dev, err := c.CreateFact(ctx, scope, decision("still cooking", time.Now()))
	require.NoError(t, err)

	bob := types.Scope{Project: "proj", Owner: "bob"}

	// Without team inclusion bob sees nothing of alice's.
	got, err := c.Recent(ctx, bob, ccmemory.RecentOptions{})
	require.NoError(t, err)
	require.Empty(t, got)

	// With team inclusion bob sees only the curated decision.
	got, err = c.Recent(ctx, bob, ccmemory.RecentOptions{IncludeTeam: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, mine.FactID, got[0].ID)

	_, err = c.GetFact(ctx, bob, dev.FactID, true)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Empty caller owner disables filtering.
	anon := types.Scope{Project: "proj"}
	got, err = c.Recent(ctx, anon, ccmemory.RecentOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSearchLexicalAndSemantic(t *testing.T) {
	vectors := map[string][]float32{
		"migrate storage to badger": {1, 0, 0, 0},
		"ship the release notes":    {0, 1, 0, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	_, err := c.CreateFact(ctx, scope, decision("migrate storage to badger", time.Now()))
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, decision("ship the release notes", time.Now()))
	require.NoError(t, err)

	// The query vector is orthogonal to both facts, so only the lexical
	// match surfaces.
	hits, err := c.Search(ctx, scope, "badger", ccmemory.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "migrate storage to badger", hits[0].Fact.Decision.Description)
	require.InDelta(t, 0.75, hits[0].Score, 1e-9)
}

func TestOpenQuestions(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	q := func(question, answer string, ts time.Time) *types.Fact {
		return &types.Fact{
			Type:      types.FactQuestion,
			Timestamp: ts,
			Question:  &types.Question{Question: question, Answer: answer},
		}
	}
	_, err := c.CreateFact(ctx, scope, q("should we shard?", "", time.Now().Add(-2*time.Hour)))
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, q("which port?", "8385", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, q("retention policy?", "", time.Now()))
	require.NoError(t, err)

	open, err := c.OpenQuestions(ctx, scope)
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, "should we shard?", open[0].Question.Question, "oldest first")
}

func TestStaleDecisions(t *testing.T) {
	vectors := map[string][]float32{
		"old forgotten decision": {1, 0, 0, 0},
		"replacement decision":   {0.90, 0.436, 0, 0},
		"fresh decision":         {0, 1, 0, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	stale, err := c.CreateFact(ctx, scope, decision("old forgotten decision", time.Now().Add(-60*24*time.Hour)))
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, decision("fresh decision", time.Now()))
	require.NoError(t, err)

	got, err := c.StaleDecisions(ctx, scope, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, stale.FactID, got[0].ID)

	// Superseding the old decision removes it from the stale list.
	res, err := c.CreateFact(ctx, scope, decision("replacement decision", time.Now()))
	require.NoError(t, err)
	require.Contains(t, res.SupersededIDs, stale.FactID)

	got, err = c.StaleDecisions(ctx, scope, 30*24*time.Hour)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestAssertRelationship(t *testing.T) {
	vectors := map[string][]float32{
		"store data in badger":            {1, 0, 0, 0},
		"backup runs nightly":             {0, 1, 0, 0},
		"something nobody ever said once": {0, 0, 1, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	a, err := c.CreateFact(ctx, scope, decision("store data in badger", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	b, err := c.CreateFact(ctx, scope, decision("backup runs nightly", time.Now()))
	require.NoError(t, err)

	edge, err := c.AssertRelationship(ctx, scope, b.FactID, a.FactID, "DEPENDS_ON")
	require.NoError(t, err)
	require.Equal(t, types.EdgeDependsOn, edge.Type)
	require.False(t, edge.Auto)
	require.Equal(t, b.FactID, edge.SourceID)
	require.Equal(t, a.FactID, edge.TargetID)

	// Unknown relationship names coerce to IMPACTS.
	edge, err = c.AssertRelationship(ctx, scope, a.FactID, b.FactID, "TOTALLY_MADE_UP")
	require.NoError(t, err)
	require.Equal(t, types.EdgeImpacts, edge.Type)

	// Descriptions resolve by similarity; identical text is a sure match.
	edge, err = c.AssertRelationship(ctx, scope, "store data in badger", b.FactID, "CONSTRAINS")
	require.NoError(t, err)
	require.Equal(t, a.FactID, edge.SourceID)

	_, err = c.AssertRelationship(ctx, scope, "something nobody ever said once", a.FactID, "CITES")
	require.ErrorIs(t, err, ccmemory.ErrNoMatch)
}

func TestRelinkRebuildsAutoEdges(t *testing.T) {
	vectors := map[string][]float32{
		"serve the api with gin":    {1, 0, 0, 0},
		"serve the api with gin v2": {0.90, 0.436, 0, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	old, err := c.CreateFact(ctx, scope, decision("serve the api with gin", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	newer, err := c.CreateFact(ctx, scope, decision("serve the api with gin v2", time.Now()))
	require.NoError(t, err)
	require.Len(t, newer.Edges, 1)

	// The asserted edge must survive the relink.
	_, err = c.AssertRelationship(ctx, scope, old.FactID, newer.FactID, "CONFLICTS_WITH")
	require.NoError(t, err)

	stats, err := c.Relink(ctx, scope, ccmemory.RelinkOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, stats.EdgesDeleted)
	require.Equal(t, 1, stats.EdgesCreated)
	require.Equal(t, 1, stats.Supersedes)
	require.Equal(t, 2, stats.DecisionCount)
}

func TestRelinkContinues(t *testing.T) {
	// 0.88 similarity with shared topics: eligible for CONTINUES, but the
	// pair is already joined by SUPERSEDES, so no second edge appears.
	vectors := map[string][]float32{
		"design the cache layer":    {1, 0, 0, 0},
		"iterate on the cache plan": {0.88, 0.475, 0, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	first := decision("design the cache layer", time.Now().Add(-6*time.Hour))
	first.Topics = []string{"cache"}
	_, err := c.CreateFact(ctx, scope, first)
	require.NoError(t, err)

	second := decision("iterate on the cache plan", time.Now())
	second.Topics = []string{"cache"}
	_, err = c.CreateFact(ctx, scope, second)
	require.NoError(t, err)

	stats, err := c.Relink(ctx, scope, ccmemory.RelinkOptions{Continues: true})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Supersedes)
	require.Zero(t, stats.Continues, "pair already linked by SUPERSEDES")
}

func TestMetrics(t *testing.T) {
	vectors := map[string][]float32{
		"serve the api with gin":    {1, 0, 0, 0},
		"serve the api with gin v2": {0.90, 0.436, 0, 0},
		"logs go to stderr":         {0, 0, 1, 0},
	}
	c := newClient(t, &plannedEmbedder{vectors: vectors})
	ctx := context.Background()

	_, err := c.CreateFact(ctx, scope, decision("serve the api with gin", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, decision("logs go to stderr", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	v2, err := c.CreateFact(ctx, scope, decision("serve the api with gin v2", time.Now()))
	require.NoError(t, err)
	_, err = c.Promote(ctx, scope, ccmemory.PromoteOptions{IDs: []string{v2.FactID}})
	require.NoError(t, err)

	m, err := c.Metrics(ctx, scope)
	require.NoError(t, err)
	require.Equal(t, 3, m.TotalFacts)
	require.Equal(t, 1, m.TotalEdges)
	require.Equal(t, 1, m.CuratedCount)
	require.InDelta(t, 1.0/3.0, m.ReuseRate, 1e-9)
	require.InDelta(t, 1.0/3.0, m.GraphDensity, 1e-9)
	require.InDelta(t, 1.0+1*0.02+(1.0/3.0)*1.0, m.CognitiveCoeff, 1e-9)
}

func TestSessionContextAssembly(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	_, err := c.CreateFact(ctx, scope, &types.Fact{
		Type:        types.FactProject,
		ProjectFact: &types.ProjectFact{Statement: "tests use testify require"},
	})
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, decision("adopt cobra for the cli", time.Now()))
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, scope, &types.Fact{
		Type: types.FactFailedApproach,
		FailedApproach: &types.FailedApproach{
			Approach: "hand rolled flag parsing",
			Lesson:   "use a cli library",
		},
	})
	require.NoError(t, err)

	sc, err := c.SessionContext(ctx, scope, ccmemory.SessionContextOptions{})
	require.NoError(t, err)
	require.Len(t, sc.ProjectFacts, 1)
	require.Len(t, sc.Recent, 1)
	require.Len(t, sc.Failed, 1)

	md := sc.Markdown()
	require.Contains(t, md, "## Project Rules")
	require.Contains(t, md, "## Recent Decisions")
	require.Contains(t, md, "Don't Repeat")
	require.Contains(t, md, "hand rolled flag parsing")
}

func TestSessionContextMarkdownClipsOnRuneBoundaries(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	statement := "x" + strings.Repeat("日", 50)
	_, err := c.CreateFact(ctx, scope, &types.Fact{
		Type:        types.FactProject,
		ProjectFact: &types.ProjectFact{Category: "convention", Statement: statement},
	})
	require.NoError(t, err)

	sc, err := c.SessionContext(ctx, scope, ccmemory.SessionContextOptions{})
	require.NoError(t, err)

	md := sc.Markdown()
	require.True(t, utf8.ValidString(md), "clipping split a rune")
	require.Contains(t, md, "## Project Rules")
	require.NotContains(t, md, statement, "a long statement should be shortened")
}

func TestSessionContextEmptyState(t *testing.T) {
	c := newClient(t, nil)
	sc, err := c.SessionContext(context.Background(), scope, ccmemory.SessionContextOptions{})
	require.NoError(t, err)
	require.Contains(t, sc.Markdown(), "No prior context")
}

func TestPurgeProject(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	_, err := c.CreateFact(ctx, scope, decision("soon to be gone", time.Now()))
	require.NoError(t, err)

	facts, _, err := c.PurgeProject(ctx, scope)
	require.NoError(t, err)
	require.Equal(t, 1, facts)

	got, err := c.Recent(ctx, scope, ccmemory.RecentOptions{})
	require.NoError(t, err)
	require.Empty(t, got)

	// The index is purged too: re-creating the same text is not a dup.
	res, err := c.CreateFact(ctx, scope, decision("soon to be gone", time.Now()))
	require.NoError(t, err)
	require.Equal(t, types.ActionCreated, res.Action)
}

func TestDedupAndLinkingSurviveRestart(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryStore()
	vectors := map[string][]float32{
		"ship releases from main":          {1, 0, 0, 0},
		"ship releases from a release tag": {0.90, 0.436, 0, 0},
	}

	first, err := ccmemory.New(ctx, ccmemory.Options{
		Store:    shared,
		Embedder: &plannedEmbedder{vectors: vectors},
	}, nil)
	require.NoError(t, err)

	res, err := first.CreateFact(ctx, scope, decision("ship releases from main", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	require.Equal(t, types.ActionCreated, res.Action)

	// A fresh client over the same store, with no warm-start list, still
	// dedups and links against the persisted facts.
	second, err := ccmemory.New(ctx, ccmemory.Options{
		Store:    shared,
		Embedder: &plannedEmbedder{vectors: vectors},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	dup, err := second.CreateFact(ctx, scope, decision("ship releases from main", time.Now()))
	require.NoError(t, err)
	require.Equal(t, types.ActionSkipped, dup.Action)
	require.Equal(t, res.FactID, dup.ExistingID)

	replaced, err := second.CreateFact(ctx, scope, decision("ship releases from a release tag", time.Now()))
	require.NoError(t, err)
	require.Equal(t, types.ActionSuperseded, replaced.Action)
	require.Equal(t, []string{res.FactID}, replaced.SupersededIDs)
}

func TestExceptionClusters(t *testing.T) {
	emb := &plannedEmbedder{vectors: map[string][]float32{
		"No direct DB writes deploy migration needed raw sql": {1, 0, 0, 0},
		"no direct db writes hotfix under incident pressure":  {0, 1, 0, 0},
		"tests before merge emergency rollback":               {0, 0, 1, 0},
	}}
	c := newClient(t, emb)
	ctx := context.Background()

	exceptions := []*types.Exception{
		{RuleBroken: "No direct DB writes", Justification: "deploy migration needed raw sql"},
		{RuleBroken: "no direct db writes", Justification: "hotfix under incident pressure"},
		{RuleBroken: "tests before merge", Justification: "emergency rollback"},
	}
	for _, e := range exceptions {
		_, err := c.CreateFact(ctx, scope, &types.Fact{Type: types.FactException, Exception: e})
		require.NoError(t, err)
	}

	clusters, err := c.ExceptionClusters(ctx, scope)
	require.NoError(t, err)
	require.Len(t, clusters, 1, "single-occurrence rules are not clusters")
	require.Equal(t, 2, clusters[0].Count)
	require.Len(t, clusters[0].Exceptions, 2)
	// Rule casing normalizes for grouping only.
	require.Equal(t, "no direct db writes", strings.ToLower(clusters[0].Rule))
}

func TestSupersessionChains(t *testing.T) {
	t0 := time.Now().Add(-3 * time.Hour)
	emb := &plannedEmbedder{vectors: map[string][]float32{
		"cache sessions in redis":          {1, 0, 0, 0},
		"cache sessions in memcached":      {0.90, 0.436, 0, 0},
		"cache sessions in process memory": {0.792, 0.3837, 0.475, 0},
		"log to stderr":                    {0, 0, 0, 1},
	}}
	c := newClient(t, emb)
	ctx := context.Background()

	var ids []string
	for i, desc := range []string{
		"cache sessions in redis",
		"cache sessions in memcached",
		"cache sessions in process memory",
		"log to stderr",
	} {
		res, err := c.CreateFact(ctx, scope, decision(desc, t0.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		require.NotEmpty(t, res.FactID)
		ids = append(ids, res.FactID)
	}

	chains, err := c.SupersessionChains(ctx, scope, 0)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.Equal(t, 3, chains[0].Length)
	require.Equal(t, ids[2], chains[0].Facts[0].ID, "chain starts at the newest head")
	require.Equal(t, ids[1], chains[0].Facts[1].ID)
	require.Equal(t, ids[0], chains[0].Facts[2].ID)
}

func TestCorrectionHotspots(t *testing.T) {
	emb := &plannedEmbedder{vectors: map[string][]float32{
		"tokens expire hourly tokens expire daily":       {1, 0, 0, 0},
		"refresh is optional refresh is required":        {0, 1, 0, 0},
		"badger needs a server badger embeds in-process": {0, 0, 1, 0},
	}}
	c := newClient(t, emb)
	ctx := context.Background()

	corrections := []struct {
		wrong, right string
		topics       []string
	}{
		{"tokens expire hourly", "tokens expire daily", []string{"auth"}},
		{"refresh is optional", "refresh is required", []string{"auth", "api"}},
		{"badger needs a server", "badger embeds in-process", []string{"storage"}},
	}
	for _, corr := range corrections {
		_, err := c.CreateFact(ctx, scope, &types.Fact{
			Type:       types.FactCorrection,
			Topics:     corr.topics,
			Correction: &types.Correction{WrongBelief: corr.wrong, RightBelief: corr.right},
		})
		require.NoError(t, err)
	}

	hotspots, err := c.CorrectionHotspots(ctx, scope)
	require.NoError(t, err)
	require.Len(t, hotspots, 1)
	require.Equal(t, "auth", hotspots[0].Topic)
	require.Equal(t, 2, hotspots[0].Count)
}

func TestBackfillDecisionLog(t *testing.T) {
	c := newClient(t, nil)
	ctx := context.Background()

	log := `# Decisions

## 2026-01-05: Adopt badger for local persistence

Embedded store keeps the deploy a single binary.

## 2026-02-10: Serve the dashboard from gin
`

	results, err := c.BackfillDecisionLog(ctx, scope, log)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NotEqual(t, types.ActionSkipped, r.Action)
	}

	facts, err := c.Recent(ctx, scope, ccmemory.RecentOptions{
		Types: []types.FactType{types.FactDecision},
	})
	require.NoError(t, err)
	require.Len(t, facts, 2)
	// Recent is newest-first, so the January entry comes last.
	oldest := facts[len(facts)-1]
	require.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), oldest.Timestamp)
	require.Equal(t, "backfill_import", oldest.DetectionMethod)
	require.Contains(t, oldest.Decision.Rationale, "single binary")

	// Re-importing the same log only produces duplicates.
	again, err := c.BackfillDecisionLog(ctx, scope, log)
	require.NoError(t, err)
	require.Len(t, again, 2)
	for _, r := range again {
		require.Equal(t, types.ActionSkipped, r.Action)
	}
}
