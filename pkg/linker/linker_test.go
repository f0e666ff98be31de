package linker

import (
	"testing"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

func TestIsDuplicate(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name  string
		ft    types.FactType
		score float64
		want  bool
	}{
		{"decision above cutoff", types.FactDecision, 0.96, true},
		{"decision at cutoff is not duplicate", types.FactDecision, 0.95, false},
		{"decision in non-decision band", types.FactDecision, 0.92, false},
		{"insight above cutoff", types.FactInsight, 0.91, true},
		{"insight at cutoff is not duplicate", types.FactInsight, 0.90, false},
		{"project fact above cutoff", types.FactProject, 0.92, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.IsDuplicate(tt.ft, tt.score); got != tt.want {
				t.Errorf("IsDuplicate(%v, %v) = %v, want %v", tt.ft, tt.score, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score    float64
		wantType types.EdgeType
		wantOK   bool
	}{
		{0.86, types.EdgeSupersedes, true},
		{0.851, types.EdgeSupersedes, true},
		{0.85, types.EdgeCites, true}, // exactly at supersede cutoff cites
		{0.82, types.EdgeCites, true},
		{0.801, types.EdgeCites, true},
		{0.80, "", false}, // exactly at cite cutoff links nothing
		{0.79, "", false},
	}

	for _, tt := range tests {
		got, ok := th.Classify(tt.score)
		if got != tt.wantType || ok != tt.wantOK {
			t.Errorf("Classify(%v) = (%v, %v), want (%v, %v)",
				tt.score, got, ok, tt.wantType, tt.wantOK)
		}
	}
}

func TestAutoLinks(t *testing.T) {
	if !AutoLinks(types.FactDecision) {
		t.Error("decisions should auto-link")
	}
	for _, ft := range types.AllFactTypes() {
		if ft == types.FactDecision {
			continue
		}
		if AutoLinks(ft) {
			t.Errorf("%v should not auto-link", ft)
		}
	}
}

func TestPlanEdges(t *testing.T) {
	th := DefaultThresholds()
	now := time.Now()
	old1 := &types.Fact{ID: "d-old-1", Project: "proj", Type: types.FactDecision}
	old2 := &types.Fact{ID: "d-old-2", Project: "proj", Type: types.FactDecision}
	old3 := &types.Fact{ID: "d-old-3", Project: "proj", Type: types.FactDecision}

	edges := th.PlanEdges("proj", "d-new", []types.ScoredFact{
		{Fact: old1, Score: 0.91},
		{Fact: old2, Score: 0.83},
		{Fact: old3, Score: 0.60},
	}, now)

	if len(edges) != 2 {
		t.Fatalf("PlanEdges returned %d edges, want 2", len(edges))
	}
	if edges[0].Type != types.EdgeSupersedes || edges[0].TargetID != "d-old-1" {
		t.Errorf("first edge = %v -> %v, want SUPERSEDES -> d-old-1", edges[0].Type, edges[0].TargetID)
	}
	if edges[1].Type != types.EdgeCites || edges[1].TargetID != "d-old-2" {
		t.Errorf("second edge = %v -> %v, want CITES -> d-old-2", edges[1].Type, edges[1].TargetID)
	}
	for _, e := range edges {
		if !e.Auto {
			t.Error("planned edge not marked auto")
		}
		if e.SourceID != "d-new" {
			t.Errorf("edge source = %q, want d-new", e.SourceID)
		}
		if e.ID == "" {
			t.Error("planned edge missing id")
		}
	}
}

func TestContinuesEligible(t *testing.T) {
	th := DefaultThresholds()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	older := &types.Fact{ID: "a", Timestamp: base, Topics: []string{"storage"}}
	newer := &types.Fact{ID: "b", Timestamp: base.Add(6 * time.Hour), Topics: []string{"storage"}}

	if !th.ContinuesEligible(newer, older, 0.90) {
		t.Error("eligible pair rejected")
	}
	if th.ContinuesEligible(newer, older, 0.85) {
		t.Error("score at cutoff should not qualify")
	}

	farApart := &types.Fact{ID: "c", Timestamp: base.Add(48 * time.Hour), Topics: []string{"storage"}}
	if th.ContinuesEligible(farApart, older, 0.90) {
		t.Error("pair outside window should not qualify")
	}

	offTopic := &types.Fact{ID: "d", Timestamp: base.Add(time.Hour), Topics: []string{"auth"}}
	if th.ContinuesEligible(offTopic, older, 0.90) {
		t.Error("pair without shared topic should not qualify")
	}
}
