package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ccmemory "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/server/dto"
	"github.com/patrickkidd/ccmemory/pkg/store"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

// respondError writes a structured error response
func respondError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

// respondDomainError maps engine errors to HTTP statuses
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ccmemory.ErrNoMatch):
		respondError(c, http.StatusNotFound, "no_match", err.Error())
	case errors.Is(err, ccmemory.ErrNotOwner):
		respondError(c, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, ccmemory.ErrNotDecision),
		errors.Is(err, types.ErrProjectRequired),
		errors.Is(err, types.ErrMissingField),
		errors.Is(err, types.ErrUnknownFactType):
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// scopeFrom converts request scope fields to the engine scope
func scopeFrom(s dto.ScopeRequest) types.Scope {
	return types.Scope{Project: s.Project, Owner: s.Owner}
}

// queryScope reads scope from query parameters for GET endpoints
func queryScope(c *gin.Context) (types.Scope, bool) {
	scope := types.Scope{
		Project: c.Query("project"),
		Owner:   c.Query("owner"),
	}
	if scope.Project == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "project query parameter is required")
		return types.Scope{}, false
	}
	return scope, true
}
