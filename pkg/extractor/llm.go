package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	jsonrepair "github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// ChatClient is the one LLM call detection needs. Satisfied by the OpenAI
// adapter in production and by stubs in tests.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

type openAIChat struct {
	client *openai.Client
	model  string
}

func (c *openAIChat) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// LLMExtractor runs one detection prompt per fact type in parallel.
type LLMExtractor struct {
	chat        ChatClient
	maxParallel int
	log         *slog.Logger
}

var _ Extractor = (*LLMExtractor)(nil)

// NewLLMExtractor creates an extractor backed by the OpenAI chat API.
func NewLLMExtractor(cfg Config, log *slog.Logger) (*LLMExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extractor: api key required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return NewLLMExtractorWithChat(&openAIChat{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, cfg.MaxParallel, log), nil
}

// NewLLMExtractorWithChat creates an extractor over any ChatClient.
func NewLLMExtractorWithChat(chat ChatClient, maxParallel int, log *slog.Logger) *LLMExtractor {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &LLMExtractor{chat: chat, maxParallel: maxParallel, log: log}
}

// rawCandidate is the wire shape shared by all detection prompts. Fields
// irrelevant to a given fact type stay empty.
type rawCandidate struct {
	Confidence float64  `json:"confidence"`
	Topics     []string `json:"topics"`

	Description    string `json:"description"`
	Rationale      string `json:"rationale"`
	RevisitTrigger string `json:"revisit_trigger"`
	WrongBelief    string `json:"wrong_belief"`
	RightBelief    string `json:"right_belief"`
	Severity       string `json:"severity"`
	RuleBroken     string `json:"rule_broken"`
	Justification  string `json:"justification"`
	Scope          string `json:"scope"`
	Category       string `json:"category"`
	Summary        string `json:"summary"`
	Implications   string `json:"implications"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	QContext       string `json:"context"`
	Approach       string `json:"approach"`
	Outcome        string `json:"outcome"`
	Lesson         string `json:"lesson"`
	Statement      string `json:"statement"`
}

// Extract fans out one prompt per detectable type. Failures are logged and
// skipped so a malformed response for one type never hides the rest. The
// regex reference pass runs unconditionally.
func (e *LLMExtractor) Extract(ctx context.Context, project, owner, text string) ([]Candidate, error) {
	factTypes := detectableTypes()

	var mu sync.Mutex
	var candidates []Candidate

	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup
	for _, ft := range factTypes {
		wg.Add(1)
		go func(ft types.FactType) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			found, err := e.detectType(ctx, project, owner, ft, text)
			if err != nil {
				e.log.Warn("detection failed for fact type", "type", ft, "error", err)
				return
			}
			mu.Lock()
			candidates = append(candidates, found...)
			mu.Unlock()
		}(ft)
	}
	wg.Wait()

	candidates = append(candidates, DetectReferences(project, owner, text)...)
	return candidates, nil
}

func (e *LLMExtractor) detectType(ctx context.Context, project, owner string, ft types.FactType, text string) ([]Candidate, error) {
	content, err := e.chat.Chat(ctx, detectionSystemPrompt, userPrompt(ft, text))
	if err != nil {
		return nil, err
	}

	raws, err := parseCandidates(content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var out []Candidate
	for _, raw := range raws {
		if raw.Confidence < MinConfidence {
			continue
		}
		fact, ok := factFromRaw(ft, raw)
		if !ok {
			continue
		}
		fact.ID = uuid.NewString()
		fact.Project = project
		fact.Owner = owner
		fact.Timestamp = now
		fact.Topics = raw.Topics
		fact.DetectionConfidence = raw.Confidence
		fact.DetectionMethod = "llm"
		if ft == types.FactDecision {
			fact.Status = types.StatusDevelopmental
		}
		out = append(out, Candidate{Fact: fact, Confidence: raw.Confidence, Method: "llm"})
	}
	return out, nil
}

// parseCandidates tolerates the usual LLM JSON damage: trailing commas,
// markdown fences, truncated arrays.
func parseCandidates(content string) ([]rawCandidate, error) {
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		repaired = content
	}
	var raws []rawCandidate
	if err := json.Unmarshal([]byte(repaired), &raws); err != nil {
		return nil, fmt.Errorf("parse detection response: %w", err)
	}
	return raws, nil
}

func factFromRaw(ft types.FactType, raw rawCandidate) (types.Fact, bool) {
	fact := types.Fact{Type: ft}
	switch ft {
	case types.FactDecision:
		if raw.Description == "" {
			return fact, false
		}
		fact.Decision = &types.Decision{
			Description:    raw.Description,
			Rationale:      raw.Rationale,
			RevisitTrigger: raw.RevisitTrigger,
		}
	case types.FactCorrection:
		if raw.RightBelief == "" {
			return fact, false
		}
		fact.Correction = &types.Correction{
			WrongBelief: raw.WrongBelief,
			RightBelief: raw.RightBelief,
			Severity:    raw.Severity,
		}
	case types.FactException:
		if raw.RuleBroken == "" {
			return fact, false
		}
		fact.Exception = &types.Exception{
			RuleBroken:    raw.RuleBroken,
			Justification: raw.Justification,
			Scope:         raw.Scope,
		}
	case types.FactInsight:
		if raw.Summary == "" {
			return fact, false
		}
		fact.Insight = &types.Insight{
			Category:     raw.Category,
			Summary:      raw.Summary,
			Implications: raw.Implications,
		}
	case types.FactQuestion:
		if raw.Question == "" {
			return fact, false
		}
		fact.Question = &types.Question{
			Question: raw.Question,
			Answer:   raw.Answer,
			Context:  raw.QContext,
		}
	case types.FactFailedApproach:
		if raw.Approach == "" {
			return fact, false
		}
		fact.FailedApproach = &types.FailedApproach{
			Approach: raw.Approach,
			Outcome:  raw.Outcome,
			Lesson:   raw.Lesson,
		}
	case types.FactProject:
		if raw.Statement == "" {
			return fact, false
		}
		fact.ProjectFact = &types.ProjectFact{
			Category:  raw.Category,
			Statement: raw.Statement,
		}
	default:
		return fact, false
	}
	return fact, true
}
