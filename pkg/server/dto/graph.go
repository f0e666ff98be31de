package dto

import (
	"strings"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// AssertRequest represents an explicit relationship assertion. Source and
// target may be fact IDs or free-text descriptions resolved by similarity.
type AssertRequest struct {
	ScopeRequest
	Source string `json:"source" binding:"required"`
	Target string `json:"target" binding:"required"`
	Type   string `json:"type" binding:"required"`
}

// Validate performs validation on AssertRequest
func (r *AssertRequest) Validate() error {
	if err := r.ScopeRequest.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Target) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// RelinkRequest represents a full graph relink pass
type RelinkRequest struct {
	ScopeRequest
	Continues bool `json:"continues,omitempty"`
}

// PromoteRequest represents a promotion pass. IDs wins when set; otherwise
// every owned developmental decision is considered, optionally narrowed to
// a topic.
type PromoteRequest struct {
	ScopeRequest
	IDs   []string `json:"ids,omitempty"`
	Topic string   `json:"topic,omitempty"`
}

// Validate performs validation on PromoteRequest
func (r *PromoteRequest) Validate() error {
	if err := r.ScopeRequest.Validate(); err != nil {
		return err
	}
	if len(r.IDs) > MaxBatchIDs {
		return ErrTextTooLong
	}
	return nil
}

// PurgeRequest represents a request to delete every fact and edge in a
// project. Confirm must be set; purging is not reversible.
type PurgeRequest struct {
	ScopeRequest
	Confirm bool `json:"confirm"`
}

// Validate performs validation on PurgeRequest
func (r *PurgeRequest) Validate() error {
	if err := r.ScopeRequest.Validate(); err != nil {
		return err
	}
	if !r.Confirm {
		return ErrConfirmRequired
	}
	return nil
}

// AssertResponse wraps the created edge
type AssertResponse struct {
	Edge *types.Edge `json:"edge"`
}

// PurgeResponse reports what a purge removed
type PurgeResponse struct {
	Project string `json:"project"`
	Facts   int    `json:"facts"`
	Edges   int    `json:"edges"`
}
