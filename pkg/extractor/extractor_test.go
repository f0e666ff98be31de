package extractor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// scriptedChat answers each detection prompt from a per-type script and
// fails for types listed in failFor.
type scriptedChat struct {
	responses map[types.FactType]string
	failFor   map[types.FactType]bool
}

func (s *scriptedChat) Chat(ctx context.Context, system, user string) (string, error) {
	for ft, prompt := range detectionPrompts {
		if strings.HasPrefix(user, prompt) {
			if s.failFor[ft] {
				return "", fmt.Errorf("simulated failure")
			}
			if resp, ok := s.responses[ft]; ok {
				return resp, nil
			}
			return "[]", nil
		}
	}
	return "[]", nil
}

func TestExtractFiltersLowConfidence(t *testing.T) {
	chat := &scriptedChat{
		responses: map[types.FactType]string{
			types.FactDecision: `[
				{"description": "use badger", "rationale": "embedded", "confidence": 0.9, "topics": ["storage"]},
				{"description": "maybe switch ci", "confidence": 0.4}
			]`,
		},
	}
	e := NewLLMExtractorWithChat(chat, 2, nil)

	got, err := e.Extract(context.Background(), "proj", "alice", "we talked about storage")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, types.FactDecision, got[0].Fact.Type)
	require.Equal(t, "use badger", got[0].Fact.Decision.Description)
	require.Equal(t, []string{"storage"}, got[0].Fact.Topics)
	require.Equal(t, types.StatusDevelopmental, got[0].Fact.Status)
	require.Equal(t, "llm", got[0].Fact.DetectionMethod)
	require.NoError(t, got[0].Fact.ValidateForCreate())
}

func TestExtractIsolatesFailures(t *testing.T) {
	chat := &scriptedChat{
		responses: map[types.FactType]string{
			types.FactInsight: `[{"summary": "the cache is the bottleneck", "confidence": 0.8}]`,
		},
		failFor: map[types.FactType]bool{
			types.FactDecision: true,
		},
	}
	e := NewLLMExtractorWithChat(chat, 2, nil)

	got, err := e.Extract(context.Background(), "proj", "", "discussion")
	require.NoError(t, err, "one failing type must not fail the extraction")
	require.Len(t, got, 1)
	require.Equal(t, types.FactInsight, got[0].Fact.Type)
}

func TestExtractRepairsBrokenJSON(t *testing.T) {
	chat := &scriptedChat{
		responses: map[types.FactType]string{
			types.FactProject: "```json\n[{\"statement\": \"tests use testify\", \"confidence\": 0.95},]\n```",
		},
	}
	e := NewLLMExtractorWithChat(chat, 2, nil)

	got, err := e.Extract(context.Background(), "proj", "", "conventions")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "tests use testify", got[0].Fact.ProjectFact.Statement)
}

func TestDetectReferences(t *testing.T) {
	text := "See https://pkg.go.dev/log/slog and the handler in pkg/server/handlers.go, " +
		"also https://pkg.go.dev/log/slog again."

	got := DetectReferences("proj", "alice", text)
	require.Len(t, got, 2, "duplicates collapse")

	var kinds []string
	var uris []string
	for _, c := range got {
		kinds = append(kinds, c.Fact.Reference.Kind)
		uris = append(uris, c.Fact.Reference.URI)
		require.Equal(t, "regex", c.Method)
		require.Equal(t, 0.9, c.Confidence)
		require.NoError(t, c.Fact.ValidateForCreate())
	}
	require.Contains(t, kinds, "url")
	require.Contains(t, kinds, "file_path")
	require.Contains(t, uris, "https://pkg.go.dev/log/slog")
	require.Contains(t, uris, "pkg/server/handlers.go")
}

func TestDetectReferencesSkipsURLPaths(t *testing.T) {
	got := DetectReferences("proj", "", "read https://example.com/docs/guide.md today")
	require.Len(t, got, 1)
	require.Equal(t, "url", got[0].Fact.Reference.Kind)
}

func TestParseDecisionLog(t *testing.T) {
	log := `# Decision Log

## 2026-03-10: Use badger for the embedded store

Single binary deploys matter more than SQL queries here.
Revisit if we ever need cross-host reads.

## not-a-date: ignored entry

## 2026-05-01: Expose the API through gin
`

	got := ParseDecisionLog("proj", "alice", log)
	require.Len(t, got, 2)

	first := got[0].Fact
	require.Equal(t, types.FactDecision, first.Type)
	require.Equal(t, "Use badger for the embedded store", first.Decision.Description)
	require.Contains(t, first.Decision.Rationale, "Single binary deploys")
	require.Contains(t, first.Decision.Rationale, "Revisit if we ever")
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), first.Timestamp)
	require.Equal(t, "backfill_import", got[0].Method)
	require.NoError(t, first.ValidateForCreate())

	second := got[1].Fact
	require.Equal(t, "Expose the API through gin", second.Decision.Description)
	require.Empty(t, second.Decision.Rationale)
}
