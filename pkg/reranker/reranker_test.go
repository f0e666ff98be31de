package reranker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

type stubChat struct {
	response string
	err      error
	called   bool
}

func (s *stubChat) Chat(ctx context.Context, system, user string) (string, error) {
	s.called = true
	return s.response, s.err
}

func scored(ids ...string) []types.ScoredFact {
	out := make([]types.ScoredFact, len(ids))
	for i, id := range ids {
		out[i] = types.ScoredFact{
			Fact: &types.Fact{
				ID:       id,
				Type:     types.FactDecision,
				Decision: &types.Decision{Description: "decision " + id},
			},
			Score: 1.0 - float64(i)*0.1,
		}
	}
	return out
}

func TestRerankReorders(t *testing.T) {
	chat := &stubChat{response: `{"indices": [2, 0]}`}
	r := NewWithChat(chat, nil)

	got := r.Rerank(context.Background(), "storage", scored("a", "b", "c"), 2)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0].Fact.ID)
	require.Equal(t, "a", got[1].Fact.ID)
}

func TestRerankSkipsSmallSets(t *testing.T) {
	chat := &stubChat{response: `{"indices": [1, 0]}`}
	r := NewWithChat(chat, nil)

	got := r.Rerank(context.Background(), "q", scored("a", "b"), 5)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Fact.ID)
	require.False(t, chat.called, "no LLM call when candidates fit the limit")
}

func TestRerankFallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		chat *stubChat
	}{
		{"call error", &stubChat{err: fmt.Errorf("timeout")}},
		{"garbage response", &stubChat{response: "sorry, I cannot rank these"}},
		{"out of range indices", &stubChat{response: `{"indices": [9, -1]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewWithChat(tt.chat, nil)
			got := r.Rerank(context.Background(), "q", scored("a", "b", "c"), 2)
			require.Len(t, got, 2)
			require.Equal(t, "a", got[0].Fact.ID, "fallback keeps similarity order")
			require.Equal(t, "b", got[1].Fact.ID)
		})
	}
}

func TestRerankIgnoresDuplicateIndices(t *testing.T) {
	chat := &stubChat{response: `{"indices": [1, 1, 2]}`}
	r := NewWithChat(chat, nil)

	got := r.Rerank(context.Background(), "q", scored("a", "b", "c"), 2)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Fact.ID)
	require.Equal(t, "c", got[1].Fact.ID)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := "x" + strings.Repeat("日", 50)

	got := truncate(s, 120)
	require.LessOrEqual(t, len(got), 120)
	require.True(t, utf8.ValidString(got), "truncation split a rune: %q", got)
	require.Equal(t, s, truncate(s, len(s)))
}
