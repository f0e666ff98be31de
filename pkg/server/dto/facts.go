package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// CreateFactRequest represents a request to store one fact
type CreateFactRequest struct {
	ScopeRequest
	Fact *types.Fact `json:"fact" binding:"required"`
}

// Validate performs validation on CreateFactRequest
func (r *CreateFactRequest) Validate() error {
	if err := r.ScopeRequest.Validate(); err != nil {
		return err
	}
	if r.Fact == nil {
		return fmt.Errorf("fact is required")
	}
	return nil
}

// ExtractRequest represents a request to mine facts from conversation text
type ExtractRequest struct {
	ScopeRequest
	Text string `json:"text" binding:"required"`
}

// Validate performs validation on ExtractRequest
func (r *ExtractRequest) Validate() error {
	if err := r.ScopeRequest.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// BackfillRequest imports a markdown decision log
type BackfillRequest struct {
	ScopeRequest
	Markdown string `json:"markdown" binding:"required"`
}

// Validate performs validation on BackfillRequest
func (r *BackfillRequest) Validate() error {
	if err := r.ScopeRequest.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Markdown) == "" {
		return ErrEmptyText
	}
	if len(r.Markdown) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// SearchRequest represents a similarity search over the fact graph
type SearchRequest struct {
	ScopeRequest
	Query       string   `json:"query" binding:"required"`
	Types       []string `json:"types,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	IncludeTeam bool     `json:"include_team,omitempty"`
	Rerank      bool     `json:"rerank,omitempty"`
}

// Validate performs validation on SearchRequest
func (r *SearchRequest) Validate() error {
	if err := r.ScopeRequest.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// FactTypes parses the string type filters, dropping unknown names.
func (r *SearchRequest) FactTypes() []types.FactType {
	return ParseFactTypes(r.Types)
}

// ParseFactTypes converts string filters to fact types, dropping
// unknown names.
func ParseFactTypes(names []string) []types.FactType {
	var out []types.FactType
	for _, n := range names {
		ft := types.FactType(strings.ToLower(strings.TrimSpace(n)))
		if ft.Valid() {
			out = append(out, ft)
		}
	}
	return out
}

// SessionContextRequest tunes session context assembly
type SessionContextRequest struct {
	ScopeRequest
	ProjectFactLimit int    `json:"project_fact_limit,omitempty"`
	RecentLimit      int    `json:"recent_limit,omitempty"`
	FailedLimit      int    `json:"failed_limit,omitempty"`
	StaleAfterDays   int    `json:"stale_after_days,omitempty"`
	IncludeTeam      bool   `json:"include_team,omitempty"`
	Format           string `json:"format,omitempty"` // "json" (default) or "markdown"
}

// StaleAfter converts the day count to a duration, zero when unset.
func (r *SessionContextRequest) StaleAfter() time.Duration {
	return time.Duration(r.StaleAfterDays) * 24 * time.Hour
}

// FactsResponse wraps a list of facts
type FactsResponse struct {
	Facts []*types.Fact `json:"facts"`
	Total int           `json:"total"`
}

// SearchResponse wraps scored search hits
type SearchResponse struct {
	Hits  []types.ScoredFact `json:"hits"`
	Total int                `json:"total"`
}

// ExtractResponse reports what extraction stored
type ExtractResponse struct {
	Results []*types.CreateResult `json:"results"`
	Stored  int                   `json:"stored"`
	Skipped int                   `json:"skipped"`
}

// SessionContextResponse carries the assembled context block. Markdown is
// filled only when the request asked for it.
type SessionContextResponse struct {
	Project      string        `json:"project"`
	ProjectFacts []*types.Fact `json:"project_facts"`
	Recent       []*types.Fact `json:"recent"`
	Failed       []*types.Fact `json:"failed_approaches"`
	Stale        []*types.Fact `json:"stale_decisions"`
	Markdown     string        `json:"markdown,omitempty"`
}
