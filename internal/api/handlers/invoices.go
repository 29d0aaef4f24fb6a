package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"conciliador/internal/api/dto"
	"conciliador/internal/infrastructure/storage"
)

// InvoicesHandler handles invoice record endpoints.
type InvoicesHandler struct {
	repo storage.Repository
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(repo storage.Repository) *InvoicesHandler {
	return &InvoicesHandler{repo: repo}
}

// Create handles POST /api/invoices.
func (h *InvoicesHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError("issue_date must be YYYY-MM-DD"))
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	inv := &storage.InvoiceRecord{
		ID:             uuid.NewString(),
		DocumentNumber: req.DocumentNumber,
		IssueDate:      issueDate,
		SupplierNIF:    req.SupplierNIF,
		SupplierName:   req.SupplierName,
		TotalAmount:    req.TotalAmount.Round(2),
		Currency:       currency,
		MatchingStatus: storage.RecordUnmatched,
	}
	if err := h.repo.SaveInvoice(inv); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// List handles GET /api/invoices.
func (h *InvoicesHandler) List(c *gin.Context) {
	filters := storage.InvoiceFilters{
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}

	invoices, err := h.repo.ListInvoices(filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse[*storage.InvoiceRecord]{
		Items:  invoices,
		Count:  len(invoices),
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// Get handles GET /api/invoices/:id.
func (h *InvoicesHandler) Get(c *gin.Context) {
	inv, err := h.repo.GetInvoice(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
