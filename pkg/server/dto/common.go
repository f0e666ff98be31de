package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyProject    = errors.New("project cannot be empty")
	ErrProjectTooLong  = errors.New("project exceeds maximum length (256)")
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrTextTooLong     = errors.New("text exceeds maximum length (1MB)")
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrConfirmRequired = errors.New("confirm must be true to purge a project")
)

// Field limits to prevent abuse
const (
	MaxProjectLength = 256
	MaxTextLength    = 1024 * 1024 // 1MB
	MaxBatchIDs      = 1000
)

// ScopeRequest carries the project/owner pair every operation is scoped
// to. Owner is optional; an empty owner disables visibility filtering.
type ScopeRequest struct {
	Project string `json:"project" binding:"required"`
	Owner   string `json:"owner,omitempty"`
}

// Validate performs validation on ScopeRequest
func (s *ScopeRequest) Validate() error {
	if strings.TrimSpace(s.Project) == "" {
		return ErrEmptyProject
	}
	if len(s.Project) > MaxProjectLength {
		return ErrProjectTooLong
	}
	return nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
