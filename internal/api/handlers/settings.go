package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"conciliador/internal/api/dto"
	"conciliador/internal/infrastructure/storage"
)

// SettingsHandler handles match settings endpoints.
type SettingsHandler struct {
	repo storage.Repository
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(repo storage.Repository) *SettingsHandler {
	return &SettingsHandler{repo: repo}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.repo.GetMatchSettings()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Update handles PUT /api/settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	if req.ConfidenceThreshold < 0 || req.ConfidenceThreshold > 1 {
		c.JSON(http.StatusBadRequest, dto.ValidationError("confidence_threshold must be in [0,1]"))
		return
	}
	if req.MinTextSimilarity < 0 || req.MinTextSimilarity > 1 {
		c.JSON(http.StatusBadRequest, dto.ValidationError("min_text_similarity must be in [0,1]"))
		return
	}

	settings := &storage.MatchSettings{
		ConfidenceThreshold: req.ConfidenceThreshold,
		MaxDateDiffDays:     req.MaxDateDiffDays,
		AmountTolerance:     req.AmountTolerance.Round(2),
		MinTextSimilarity:   req.MinTextSimilarity,
		TieMargin:           req.TieMargin,
	}
	if err := h.repo.SaveMatchSettings(settings); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
