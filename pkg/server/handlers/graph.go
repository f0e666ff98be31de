package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ccmemory "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/server/dto"
)

// GraphHandler handles edge maintenance and lifecycle requests
type GraphHandler struct {
	memory ccmemory.Memory
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(m ccmemory.Memory) *GraphHandler {
	return &GraphHandler{memory: m}
}

// Assert handles POST /edges
func (h *GraphHandler) Assert(c *gin.Context) {
	var req dto.AssertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	edge, err := h.memory.AssertRelationship(c.Request.Context(), scopeFrom(req.ScopeRequest),
		req.Source, req.Target, req.Type)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.AssertResponse{Edge: edge})
}

// Relink handles POST /relink
func (h *GraphHandler) Relink(c *gin.Context) {
	var req dto.RelinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.ScopeRequest.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	stats, err := h.memory.Relink(c.Request.Context(), scopeFrom(req.ScopeRequest),
		ccmemory.RelinkOptions{Continues: req.Continues})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Promote handles POST /promote
func (h *GraphHandler) Promote(c *gin.Context) {
	var req dto.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.memory.Promote(c.Request.Context(), scopeFrom(req.ScopeRequest),
		ccmemory.PromoteOptions{IDs: req.IDs, Topic: req.Topic})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Purge handles DELETE /project
func (h *GraphHandler) Purge(c *gin.Context) {
	var req dto.PurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	facts, edges, err := h.memory.PurgeProject(c.Request.Context(), scopeFrom(req.ScopeRequest))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PurgeResponse{Project: req.Project, Facts: facts, Edges: edges})
}

// Metrics handles GET /metrics
func (h *GraphHandler) Metrics(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	m, err := h.memory.Metrics(c.Request.Context(), scope)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ExceptionClusters handles GET /patterns/exceptions
func (h *GraphHandler) ExceptionClusters(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	clusters, err := h.memory.ExceptionClusters(c.Request.Context(), scope)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters, "total": len(clusters)})
}

// SupersessionChains handles GET /patterns/chains
func (h *GraphHandler) SupersessionChains(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	limit := 0
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	chains, err := h.memory.SupersessionChains(c.Request.Context(), scope, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains, "total": len(chains)})
}

// CorrectionHotspots handles GET /patterns/corrections
func (h *GraphHandler) CorrectionHotspots(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	hotspots, err := h.memory.CorrectionHotspots(c.Request.Context(), scope)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotspots": hotspots, "total": len(hotspots)})
}
