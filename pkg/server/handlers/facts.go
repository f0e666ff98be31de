package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	ccmemory "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/server/dto"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

// FactsHandler handles fact ingestion and retrieval requests
type FactsHandler struct {
	memory ccmemory.Memory
}

// NewFactsHandler creates a new facts handler
func NewFactsHandler(m ccmemory.Memory) *FactsHandler {
	return &FactsHandler{memory: m}
}

// CreateFact handles POST /facts
func (h *FactsHandler) CreateFact(c *gin.Context) {
	var req dto.CreateFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.memory.CreateFact(c.Request.Context(), scopeFrom(req.ScopeRequest), req.Fact)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Action == types.ActionSkipped {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// Extract handles POST /extract
func (h *FactsHandler) Extract(c *gin.Context) {
	var req dto.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	results, err := h.memory.ExtractAndStore(c.Request.Context(), scopeFrom(req.ScopeRequest), req.Text)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	resp := dto.ExtractResponse{Results: results}
	for _, r := range results {
		if r.Action == types.ActionSkipped {
			resp.Skipped++
		} else {
			resp.Stored++
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Backfill handles POST /backfill
func (h *FactsHandler) Backfill(c *gin.Context) {
	var req dto.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	results, err := h.memory.BackfillDecisionLog(c.Request.Context(), scopeFrom(req.ScopeRequest), req.Markdown)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	resp := dto.ExtractResponse{Results: results}
	for _, r := range results {
		if r.Action == types.ActionSkipped {
			resp.Skipped++
		} else {
			resp.Stored++
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetFact handles GET /facts/:id
func (h *FactsHandler) GetFact(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	includeTeam := c.Query("include_team") == "true"

	fact, err := h.memory.GetFact(c.Request.Context(), scope, c.Param("id"), includeTeam)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, fact)
}

// Recent handles GET /facts
func (h *FactsHandler) Recent(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}

	opts := ccmemory.RecentOptions{
		Types:       dto.ParseFactTypes(c.QueryArray("type")),
		IncludeTeam: c.Query("include_team") == "true",
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		opts.Limit = n
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", "since must be RFC3339")
			return
		}
		opts.Since = t
	}

	facts, err := h.memory.Recent(c.Request.Context(), scope, opts)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FactsResponse{Facts: facts, Total: len(facts)})
}

// Search handles POST /search
func (h *FactsHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	hits, err := h.memory.Search(c.Request.Context(), scopeFrom(req.ScopeRequest), req.Query, ccmemory.SearchOptions{
		Types:       req.FactTypes(),
		Limit:       req.Limit,
		IncludeTeam: req.IncludeTeam,
		Rerank:      req.Rerank,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SearchResponse{Hits: hits, Total: len(hits)})
}

// OpenQuestions handles GET /questions/open
func (h *FactsHandler) OpenQuestions(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	facts, err := h.memory.OpenQuestions(c.Request.Context(), scope)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FactsResponse{Facts: facts, Total: len(facts)})
}

// FailedApproaches handles GET /failed-approaches
func (h *FactsHandler) FailedApproaches(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	facts, err := h.memory.FailedApproaches(c.Request.Context(), scope, c.Query("q"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FactsResponse{Facts: facts, Total: len(facts)})
}

// StaleDecisions handles GET /decisions/stale
func (h *FactsHandler) StaleDecisions(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	days := 30
	if d := c.Query("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_request", "days must be a positive integer")
			return
		}
		days = n
	}

	facts, err := h.memory.StaleDecisions(c.Request.Context(), scope, time.Duration(days)*24*time.Hour)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FactsResponse{Facts: facts, Total: len(facts)})
}

// TopicFacts handles GET /topics/:topic
func (h *FactsHandler) TopicFacts(c *gin.Context) {
	scope, ok := queryScope(c)
	if !ok {
		return
	}
	facts, err := h.memory.TopicFacts(c.Request.Context(), scope, c.Param("topic"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FactsResponse{Facts: facts, Total: len(facts)})
}

// SessionContext handles POST /session-context
func (h *FactsHandler) SessionContext(c *gin.Context) {
	var req dto.SessionContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.ScopeRequest.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sc, err := h.memory.SessionContext(c.Request.Context(), scopeFrom(req.ScopeRequest), ccmemory.SessionContextOptions{
		ProjectFactLimit: req.ProjectFactLimit,
		RecentLimit:      req.RecentLimit,
		FailedLimit:      req.FailedLimit,
		StaleAfter:       req.StaleAfter(),
		IncludeTeam:      req.IncludeTeam,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	resp := dto.SessionContextResponse{
		Project:      sc.Project,
		ProjectFacts: sc.ProjectFacts,
		Recent:       sc.Recent,
		Failed:       sc.Failed,
		Stale:        sc.Stale,
	}
	if req.Format == "markdown" {
		resp.Markdown = sc.Markdown()
	}
	c.JSON(http.StatusOK, resp)
}
