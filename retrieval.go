package ccmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/telemetry"
	"github.com/patrickkidd/ccmemory/pkg/types"
	"github.com/patrickkidd/ccmemory/pkg/vector"
)

// RecentOptions narrows a Recent call.
type RecentOptions struct {
	Types       []types.FactType
	Since       time.Time
	Limit       int
	IncludeTeam bool
}

// SearchOptions tunes a Search call.
type SearchOptions struct {
	Types       []types.FactType
	Limit       int
	IncludeTeam bool
	// Rerank asks the configured reranker to reorder the hits.
	Rerank bool
}

// SessionContextOptions tunes session context assembly.
type SessionContextOptions struct {
	ProjectFactLimit int
	RecentLimit      int
	FailedLimit      int
	StaleAfter       time.Duration
	IncludeTeam      bool
}

func (o *SessionContextOptions) applyDefaults() {
	if o.ProjectFactLimit <= 0 {
		o.ProjectFactLimit = 15
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 15
	}
	if o.FailedLimit <= 0 {
		o.FailedLimit = 5
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 30 * 24 * time.Hour
	}
}

// SessionContext is the block of memory injected at session start.
type SessionContext struct {
	Project      string        `json:"project"`
	ProjectFacts []*types.Fact `json:"project_facts"`
	Recent       []*types.Fact `json:"recent"`
	Failed       []*types.Fact `json:"failed_approaches"`
	Stale        []*types.Fact `json:"stale_decisions"`
}

// GetFact returns one fact after a visibility check.
func (c *Client) GetFact(ctx context.Context, scope types.Scope, id string, includeTeam bool) (*types.Fact, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fact, err := c.store.GetFact(ctx, scope.Project, id)
	if err != nil {
		return nil, err
	}
	if !fact.VisibleTo(scope.Owner, includeTeam) {
		return nil, store.ErrNotFound
	}
	return fact, nil
}

// visibleFacts lists facts the caller may see.
func (c *Client) visibleFacts(ctx context.Context, scope types.Scope, q store.Query, includeTeam bool) ([]*types.Fact, error) {
	q.Project = scope.Project
	facts, err := c.store.ListFacts(ctx, q)
	if err != nil {
		return nil, err
	}
	visible := facts[:0]
	for _, f := range facts {
		if f.VisibleTo(scope.Owner, includeTeam) {
			visible = append(visible, f)
		}
	}
	return visible, nil
}

// Recent returns the newest visible facts.
func (c *Client) Recent(ctx context.Context, scope types.Scope, opts RecentOptions) ([]*types.Fact, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	facts, err := c.visibleFacts(ctx, scope, store.Query{
		Types: opts.Types,
		Since: opts.Since,
	}, opts.IncludeTeam)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(facts) > opts.Limit {
		facts = facts[:opts.Limit]
	}
	c.recordRetrieval(ctx, scope, "recent", "", facts)
	return facts, nil
}

// Search blends embedding similarity with lexical matching. Facts stored
// without embeddings still surface through the lexical path.
func (c *Client) Search(ctx context.Context, scope types.Scope, query string, opts SearchOptions) ([]types.ScoredFact, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	facts, err := c.visibleFacts(ctx, scope, store.Query{Types: opts.Types}, opts.IncludeTeam)
	if err != nil {
		return nil, err
	}

	queryVec, err := c.embedWithTimeout(ctx, query)
	if err != nil {
		c.log.Warn("query embedding unavailable, lexical search only", "error", err)
		queryVec = nil
	}

	queryLower := strings.ToLower(query)
	candidates := make([]vector.Scored[*types.Fact], 0, len(facts))
	for _, f := range facts {
		score := 0.0
		if queryVec != nil && f.HasEmbedding() {
			score = vector.Cosine(queryVec, f.Embedding)
		}
		if lexicalMatch(f, queryLower) {
			// Lexical hits rank at least as high as a strong semantic hit.
			if score < 0.75 {
				score = 0.75
			}
		}
		if score > 0 {
			candidates = append(candidates, vector.Scored[*types.Fact]{Item: f, Score: score})
		}
	}

	// Over-fetch when reranking so the model has something to reorder.
	fetch := limit
	if opts.Rerank && c.reranker != nil {
		fetch = limit * 3
	}
	top := vector.TopK(candidates, fetch)

	hits := make([]types.ScoredFact, len(top))
	for i, s := range top {
		hits[i] = types.ScoredFact{Fact: s.Item, Score: s.Score}
	}
	if opts.Rerank && c.reranker != nil {
		hits = c.reranker.Rerank(ctx, query, hits, limit)
	} else if len(hits) > limit {
		hits = hits[:limit]
	}

	surfaced := make([]*types.Fact, len(hits))
	for i, h := range hits {
		surfaced[i] = h.Fact
	}
	c.recordRetrieval(ctx, scope, "search", query, surfaced)
	return hits, nil
}

func lexicalMatch(f *types.Fact, queryLower string) bool {
	if queryLower == "" {
		return false
	}
	if strings.Contains(strings.ToLower(f.Text()), queryLower) {
		return true
	}
	for _, topic := range f.Topics {
		if strings.Contains(strings.ToLower(topic), queryLower) {
			return true
		}
	}
	return false
}

// OpenQuestions returns unanswered questions, oldest first.
func (c *Client) OpenQuestions(ctx context.Context, scope types.Scope) ([]*types.Fact, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	facts, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{types.FactQuestion},
	}, false)
	if err != nil {
		return nil, err
	}
	var open []*types.Fact
	for _, f := range facts {
		if f.Question.Answer == "" {
			open = append(open, f)
		}
	}
	// ListFacts is newest-first; open questions read best oldest-first.
	for i, j := 0, len(open)-1; i < j; i, j = i+1, j-1 {
		open[i], open[j] = open[j], open[i]
	}
	c.recordRetrieval(ctx, scope, "open_questions", "", open)
	return open, nil
}

// FailedApproaches returns failures relevant to a query, or the most
// recent ones when the query is empty.
func (c *Client) FailedApproaches(ctx context.Context, scope types.Scope, query string) ([]*types.Fact, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if query == "" {
		facts, err := c.visibleFacts(ctx, scope, store.Query{
			Types: []types.FactType{types.FactFailedApproach},
		}, false)
		if err != nil {
			return nil, err
		}
		c.recordRetrieval(ctx, scope, "failed_approaches", "", facts)
		return facts, nil
	}

	hits, err := c.Search(ctx, scope, query, SearchOptions{
		Types: []types.FactType{types.FactFailedApproach},
	})
	if err != nil {
		return nil, err
	}
	out := make([]*types.Fact, len(hits))
	for i, h := range hits {
		out[i] = h.Fact
	}
	return out, nil
}

// StaleDecisions returns developmental decisions older than the cutoff
// that no other decision supersedes. These are candidates for review,
// promotion, or replacement.
func (c *Client) StaleDecisions(ctx context.Context, scope types.Scope, olderThan time.Duration) ([]*types.Fact, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	decisions, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{types.FactDecision},
	}, false)
	if err != nil {
		return nil, err
	}

	superseded, err := c.supersededIDs(ctx, scope.Project)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	var stale []*types.Fact
	for _, d := range decisions {
		if d.Status != types.StatusDevelopmental {
			continue
		}
		if !d.Timestamp.Before(cutoff) {
			continue
		}
		if superseded[d.ID] {
			continue
		}
		stale = append(stale, d)
	}
	c.recordRetrieval(ctx, scope, "stale_decisions", "", stale)
	return stale, nil
}

func (c *Client) supersededIDs(ctx context.Context, project string) (map[string]bool, error) {
	edges, err := c.store.ListEdges(ctx, project)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, e := range edges {
		if e.Type == types.EdgeSupersedes {
			out[e.TargetID] = true
		}
	}
	return out, nil
}

// SessionContext assembles the memory block injected at session start.
func (c *Client) SessionContext(ctx context.Context, scope types.Scope, opts SessionContextOptions) (*SessionContext, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	projectFacts, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{types.FactProject},
	}, opts.IncludeTeam)
	if err != nil {
		return nil, err
	}
	projectFacts = trim(projectFacts, opts.ProjectFactLimit)

	recent, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{
			types.FactDecision, types.FactCorrection,
			types.FactInsight, types.FactException,
		},
	}, opts.IncludeTeam)
	if err != nil {
		return nil, err
	}
	recent = trim(recent, opts.RecentLimit)

	failed, err := c.visibleFacts(ctx, scope, store.Query{
		Types: []types.FactType{types.FactFailedApproach},
	}, false)
	if err != nil {
		return nil, err
	}
	failed = trim(failed, opts.FailedLimit)

	stale, err := c.StaleDecisions(ctx, scope, opts.StaleAfter)
	if err != nil {
		return nil, err
	}
	if len(stale) > 3 {
		stale = stale[:3]
	}

	sc := &SessionContext{
		Project:      scope.Project,
		ProjectFacts: projectFacts,
		Recent:       recent,
		Failed:       failed,
		Stale:        stale,
	}

	var surfaced []*types.Fact
	surfaced = append(surfaced, projectFacts...)
	surfaced = append(surfaced, recent...)
	surfaced = append(surfaced, failed...)
	surfaced = append(surfaced, stale...)
	c.recordRetrieval(ctx, scope, "session_context", "", surfaced)
	return sc, nil
}

// TopicFacts returns visible facts carrying a topic tag.
func (c *Client) TopicFacts(ctx context.Context, scope types.Scope, topic string) ([]*types.Fact, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	facts, err := c.visibleFacts(ctx, scope, store.Query{}, false)
	if err != nil {
		return nil, err
	}
	var tagged []*types.Fact
	for _, f := range facts {
		if f.HasTopic(topic) {
			tagged = append(tagged, f)
		}
	}
	c.recordRetrieval(ctx, scope, "topic", topic, tagged)
	return tagged, nil
}

// Markdown renders the session context in the shape agents expect.
func (sc *SessionContext) Markdown() string {
	var b strings.Builder

	if len(sc.ProjectFacts) > 0 {
		b.WriteString("## Project Rules (from context graph)\n\n")
		for _, f := range sc.ProjectFacts {
			fmt.Fprintf(&b, "- %s\n", clip(f.ProjectFact.Statement, 120))
		}
		b.WriteString("\n")
	}

	if len(sc.Recent) > 0 {
		b.WriteString("## Recent Decisions\n")
		for _, f := range sc.Recent {
			prefix := ""
			switch f.Type {
			case types.FactCorrection:
				prefix = "CORRECTION: "
			case types.FactInsight:
				prefix = "Insight: "
			case types.FactException:
				prefix = "Exception: "
			}
			fmt.Fprintf(&b, "- %s%s%s\n", prefix, topicTag(f), clip(f.Text(), 100))
		}
		b.WriteString("\n")
	}

	if len(sc.Failed) > 0 {
		b.WriteString("## Things That Didn't Work (Don't Repeat)\n")
		for _, f := range sc.Failed {
			fmt.Fprintf(&b, "- **%s**: %s\n",
				clip(f.FailedApproach.Approach, 50), clip(f.FailedApproach.Lesson, 60))
		}
		b.WriteString("\n")
	}

	if len(sc.Stale) > 0 {
		b.WriteString("## Decisions Needing Review\n")
		for _, f := range sc.Stale {
			fmt.Fprintf(&b, "- %s *(developmental, may need revisit)*\n",
				clip(f.Decision.Description, 80))
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		fmt.Fprintf(&b, "# Context Graph\nProject: %s\n\nNo prior context. Project facts, decisions, and corrections will be captured automatically.\n", sc.Project)
	}
	return b.String()
}

func topicTag(f *types.Fact) string {
	if len(f.Topics) == 0 {
		return ""
	}
	topics := f.Topics
	if len(topics) > 2 {
		topics = topics[:2]
	}
	return "[" + strings.Join(topics, ", ") + "] "
}

func trim(facts []*types.Fact, limit int) []*types.Fact {
	if limit > 0 && len(facts) > limit {
		return facts[:limit]
	}
	return facts
}

// clip shortens s to at most n bytes, backing up so a multi-byte rune is
// never split.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (c *Client) recordRetrieval(ctx context.Context, scope types.Scope, operation, query string, facts []*types.Fact) {
	ids := make([]string, len(facts))
	for i, f := range facts {
		ids[i] = f.ID
	}
	idsJSON, _ := json.Marshal(ids)
	c.recorder.RecordRetrieval(ctx, telemetry.RetrievalEvent{
		Project:     scope.Project,
		Owner:       scope.Owner,
		Operation:   operation,
		Query:       query,
		ResultCount: int32(len(facts)),
		FactIDs:     string(idsJSON),
	})
}
