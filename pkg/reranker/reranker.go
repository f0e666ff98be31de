// Package reranker reorders semantic search hits with an LLM relevance
// pass. Reranking is best-effort: any failure falls back to the original
// similarity order.
package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

const rerankPromptTemplate = `Rank these items by relevance to the query. Return the indices of the %d most relevant items, ordered by relevance (most relevant first).

Query: %s

Items:
%s

Return only JSON: {"indices": [0, 3, 1]}`

// ChatClient is the single LLM call reranking needs.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Reranker reorders scored facts by LLM-judged relevance.
type Reranker struct {
	chat ChatClient
	log  *slog.Logger
}

// Config holds rerank settings.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type openAIChat struct {
	client *openai.Client
	model  string
}

func (c *openAIChat) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// New creates an OpenAI-backed reranker.
func New(cfg Config, log *slog.Logger) (*Reranker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reranker: api key required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return NewWithChat(&openAIChat{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, log), nil
}

// NewWithChat creates a reranker over any ChatClient.
func NewWithChat(chat ChatClient, log *slog.Logger) *Reranker {
	if log == nil {
		log = slog.Default()
	}
	return &Reranker{chat: chat, log: log}
}

type indicesResponse struct {
	Indices []int `json:"indices"`
}

// Rerank returns up to limit candidates in LLM-judged relevance order.
// When the candidate set already fits the limit, or the model call fails,
// the input order stands.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []types.ScoredFact, limit int) []types.ScoredFact {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= limit {
		return candidates
	}

	var items strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&items, "[%d] %s\n", i, truncate(c.Fact.Text(), 300))
	}
	prompt := fmt.Sprintf(rerankPromptTemplate, limit, query, items.String())

	content, err := r.chat.Chat(ctx, "", prompt)
	if err != nil {
		r.log.Warn("rerank call failed, keeping similarity order", "error", err)
		return candidates[:limit]
	}

	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		repaired = content
	}
	var resp indicesResponse
	if err := json.Unmarshal([]byte(repaired), &resp); err != nil {
		r.log.Warn("rerank response unparseable, keeping similarity order", "error", err)
		return candidates[:limit]
	}

	out := make([]types.ScoredFact, 0, limit)
	seen := make(map[int]bool)
	for _, idx := range resp.Indices {
		if len(out) == limit {
			break
		}
		if idx < 0 || idx >= len(candidates) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, candidates[idx])
	}
	if len(out) == 0 {
		return candidates[:limit]
	}
	return out
}

// truncate caps s at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
