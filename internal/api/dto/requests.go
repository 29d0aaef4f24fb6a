package dto

import "github.com/shopspring/decimal"

// CreateInvoiceRequest is the payload for POST /api/invoices.
// Dates use the YYYY-MM-DD layout; file upload parsing lives outside this
// service.
type CreateInvoiceRequest struct {
	DocumentNumber string          `json:"document_number" binding:"required"`
	IssueDate      string          `json:"issue_date" binding:"required"`
	SupplierNIF    string          `json:"supplier_nif"`
	SupplierName   string          `json:"supplier_name" binding:"required"`
	TotalAmount    decimal.Decimal `json:"total_amount" binding:"required"`
	Currency       string          `json:"currency"`
}

// CreateMovementRequest is the payload for POST /api/movements.
// Amount is signed: debits negative, credits positive.
type CreateMovementRequest struct {
	MovementDate string          `json:"movement_date" binding:"required"`
	ValueDate    string          `json:"value_date"`
	Description  string          `json:"description" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Reference    string          `json:"reference"`
}

// ManualMatchRequest is the payload for POST /api/matching/manual.
type ManualMatchRequest struct {
	InvoiceID  string `json:"invoice_id" binding:"required"`
	MovementID string `json:"movement_id" binding:"required"`
}

// ConfirmMatchRequest carries the audit identity for a confirmation.
type ConfirmMatchRequest struct {
	By string `json:"by"`
}

// RejectMatchRequest carries the audit identity and reason for a rejection.
type RejectMatchRequest struct {
	By     string `json:"by"`
	Reason string `json:"reason"`
}

// RunMatchRequest optionally overrides the stored confidence threshold for
// one run. The engine operates on the [0,1] scale; percentage conversion is
// the presentation layer's job.
type RunMatchRequest struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
}

// UpdateSettingsRequest is the payload for PUT /api/settings.
type UpdateSettingsRequest struct {
	ConfidenceThreshold float64         `json:"confidence_threshold" binding:"required"`
	MaxDateDiffDays     int             `json:"max_date_diff_days" binding:"required"`
	AmountTolerance     decimal.Decimal `json:"amount_tolerance" binding:"required"`
	MinTextSimilarity   float64         `json:"min_text_similarity" binding:"required"`
	TieMargin           float64         `json:"tie_margin" binding:"required"`
}
