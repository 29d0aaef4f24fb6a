package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStatus tracks where an invoice or movement stands in the
// reconciliation flow.
type RecordStatus string

const (
	RecordUnmatched RecordStatus = "unmatched"
	RecordMatched   RecordStatus = "matched"
	RecordConfirmed RecordStatus = "confirmed"
	RecordRejected  RecordStatus = "rejected"
)

// MatchStatus is the lifecycle state of a MatchResult.
type MatchStatus string

const (
	MatchProposed  MatchStatus = "proposed"
	MatchConfirmed MatchStatus = "confirmed"
	MatchRejected  MatchStatus = "rejected"
)

// MatchMethod records how a match was produced.
type MatchMethod string

const (
	MethodExact  MatchMethod = "exact"
	MethodFuzzy  MatchMethod = "fuzzy"
	MethodManual MatchMethod = "manual"
)

// InvoiceRecord is a normalized electronic invoice entry.
type InvoiceRecord struct {
	ID             string          `json:"id"`
	DocumentNumber string          `json:"document_number"`
	IssueDate      time.Time       `json:"issue_date"`
	SupplierNIF    string          `json:"supplier_nif,omitempty"`
	SupplierName   string          `json:"supplier_name"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	MatchingStatus RecordStatus    `json:"matching_status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BankMovement is a single bank statement line. Amount is signed:
// debits negative, credits positive.
type BankMovement struct {
	ID             string          `json:"id"`
	MovementDate   time.Time       `json:"movement_date"`
	ValueDate      *time.Time      `json:"value_date,omitempty"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"reference,omitempty"`
	MatchingStatus RecordStatus    `json:"matching_status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EffectiveDate returns the value date when present, else the movement date.
func (m *BankMovement) EffectiveDate() time.Time {
	if m.ValueDate != nil {
		return *m.ValueDate
	}
	return m.MovementDate
}

// MatchResult links exactly one invoice to exactly one movement.
// At most one non-rejected result may exist per invoice and per movement.
type MatchResult struct {
	ID               string          `json:"id"`
	InvoiceID        string          `json:"invoice_id"`
	MovementID       string          `json:"movement_id"`
	Confidence       float64         `json:"confidence"`
	Method           MatchMethod     `json:"matching_method"`
	DateDifference   int             `json:"date_difference"`
	AmountDifference decimal.Decimal `json:"amount_difference"`
	Status           MatchStatus     `json:"status"`
	ConfirmedBy      string          `json:"confirmed_by,omitempty"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	RejectedBy       string          `json:"rejected_by,omitempty"`
	RejectedAt       *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Active reports whether this result currently claims its records.
func (r *MatchResult) Active() bool {
	return r.Status != MatchRejected
}

// MatchSettings holds the tolerances and thresholds the engine runs with.
// Callers load these once per invocation and pass them through explicitly;
// there is no ambient global configuration.
type MatchSettings struct {
	ConfidenceThreshold float64         `json:"confidence_threshold"`
	MaxDateDiffDays     int             `json:"max_date_diff_days"`
	AmountTolerance     decimal.Decimal `json:"amount_tolerance"`
	MinTextSimilarity   float64         `json:"min_text_similarity"`
	TieMargin           float64         `json:"tie_margin"`
}

// DefaultMatchSettings returns the defaults used when the settings table
// has not been customized.
func DefaultMatchSettings() *MatchSettings {
	return &MatchSettings{
		ConfidenceThreshold: 0.70,
		MaxDateDiffDays:     30,
		AmountTolerance:     decimal.New(1, -2), // one currency minor unit
		MinTextSimilarity:   0.80,
		TieMargin:           0.01,
	}
}

// MatchSummary aggregates reconciliation progress for dashboards.
type MatchSummary struct {
	TotalInvoices    int `json:"total_invoices"`
	MatchedInvoices  int `json:"matched_invoices"`
	TotalMovements   int `json:"total_movements"`
	MatchedMovements int `json:"matched_movements"`
	TotalResults     int `json:"total_results"`
	ProposedResults  int `json:"proposed_results"`
	ConfirmedResults int `json:"confirmed_results"`
	RejectedResults  int `json:"rejected_results"`
}

// InvoiceFilters narrows ListInvoices results.
type InvoiceFilters struct {
	Status string // empty = all
	Limit  int    // 0 = default 50
	Offset int
}

// MovementFilters narrows ListMovements results.
type MovementFilters struct {
	Status string
	Limit  int
	Offset int
}

// MatchResultFilters narrows ListMatchResults results.
type MatchResultFilters struct {
	Status string
	Limit  int
	Offset int
}
