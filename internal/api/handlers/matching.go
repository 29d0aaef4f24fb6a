package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"conciliador/internal/api/dto"
	"conciliador/internal/application/matching"
	"conciliador/internal/infrastructure/storage"
)

// MatchingHandler handles the matching engine endpoints.
type MatchingHandler struct {
	repo    storage.Repository
	service *matching.Service
}

// NewMatchingHandler creates a new matching handler.
func NewMatchingHandler(repo storage.Repository, service *matching.Service) *MatchingHandler {
	return &MatchingHandler{repo: repo, service: service}
}

// Run handles POST /api/matching/run. The stored settings drive the run;
// the request may override the confidence threshold for this run only.
func (h *MatchingHandler) Run(c *gin.Context) {
	var req dto.RunMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
			return
		}
	}

	settings, err := h.repo.GetMatchSettings()
	if err != nil {
		respondError(c, err)
		return
	}
	if req.ConfidenceThreshold != nil {
		t := *req.ConfidenceThreshold
		if t < 0 || t > 1 {
			c.JSON(http.StatusBadRequest, dto.ValidationError("confidence_threshold must be in [0,1]"))
			return
		}
		settings.ConfidenceThreshold = t
	}

	summary, err := h.service.RunAutoMatch(c.Request.Context(), settings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListResults handles GET /api/matching/results.
func (h *MatchingHandler) ListResults(c *gin.Context) {
	filters := storage.MatchResultFilters{
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}

	results, err := h.repo.ListMatchResults(filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse[*storage.MatchResult]{
		Items:  results,
		Count:  len(results),
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// CreateManual handles POST /api/matching/manual.
func (h *MatchingHandler) CreateManual(c *gin.Context) {
	var req dto.ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	result, err := h.service.CreateManualMatch(req.InvoiceID, req.MovementID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Confirm handles POST /api/matching/results/:id/confirm.
func (h *MatchingHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
			return
		}
	}

	result, err := h.service.Confirm(c.Param("id"), req.By)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reject handles POST /api/matching/results/:id/reject.
func (h *MatchingHandler) Reject(c *gin.Context) {
	var req dto.RejectMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
			return
		}
	}

	result, err := h.service.Reject(c.Param("id"), req.By, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Unmatch handles DELETE /api/matching/results/:id.
func (h *MatchingHandler) Unmatch(c *gin.Context) {
	if err := h.service.Unmatch(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Suggestions handles GET /api/matching/suggestions?invoice_id=…&limit=…
// It ranks candidates for one invoice without creating anything.
func (h *MatchingHandler) Suggestions(c *gin.Context) {
	invoiceID := c.Query("invoice_id")
	if invoiceID == "" {
		c.JSON(http.StatusBadRequest, dto.ValidationError("invoice_id is required"))
		return
	}
	limit := parseIntQuery(c, "limit", 5)

	candidates, err := h.service.Suggestions(invoiceID, limit, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]dto.SuggestionResponse, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, dto.ToSuggestionResponse(cand))
	}
	c.JSON(http.StatusOK, out)
}

// Summary handles GET /api/matching/summary.
func (h *MatchingHandler) Summary(c *gin.Context) {
	summary, err := h.repo.GetMatchSummary()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
