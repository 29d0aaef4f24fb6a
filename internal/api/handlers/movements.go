package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"conciliador/internal/api/dto"
	"conciliador/internal/infrastructure/storage"
)

// MovementsHandler handles bank movement endpoints.
type MovementsHandler struct {
	repo storage.Repository
}

// NewMovementsHandler creates a new movements handler.
func NewMovementsHandler(repo storage.Repository) *MovementsHandler {
	return &MovementsHandler{repo: repo}
}

// Create handles POST /api/movements.
func (h *MovementsHandler) Create(c *gin.Context) {
	var req dto.CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	movementDate, err := parseDate(req.MovementDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError("movement_date must be YYYY-MM-DD"))
		return
	}

	mov := &storage.BankMovement{
		ID:             uuid.NewString(),
		MovementDate:   movementDate,
		Description:    req.Description,
		Amount:         req.Amount.Round(2),
		Reference:      req.Reference,
		MatchingStatus: storage.RecordUnmatched,
	}
	if req.ValueDate != "" {
		valueDate, err := parseDate(req.ValueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ValidationError("value_date must be YYYY-MM-DD"))
			return
		}
		mov.ValueDate = &valueDate
	}

	if err := h.repo.SaveMovement(mov); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mov)
}

// List handles GET /api/movements.
func (h *MovementsHandler) List(c *gin.Context) {
	filters := storage.MovementFilters{
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}

	movements, err := h.repo.ListMovements(filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse[*storage.BankMovement]{
		Items:  movements,
		Count:  len(movements),
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// Get handles GET /api/movements/:id.
func (h *MovementsHandler) Get(c *gin.Context) {
	mov, err := h.repo.GetMovement(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mov)
}
