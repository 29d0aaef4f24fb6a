package storage

import "github.com/shopspring/decimal"

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	InvoiceRepository
	MovementRepository
	MatchRepository
	SettingsRepository
	Close() error
}

// InvoiceRepository handles invoice record operations.
type InvoiceRepository interface {
	// SaveInvoice inserts a new invoice record.
	SaveInvoice(inv *InvoiceRecord) error

	// GetInvoice retrieves an invoice by ID.
	GetInvoice(id string) (*InvoiceRecord, error)

	// ListInvoices returns invoices matching the given filters.
	ListInvoices(filters InvoiceFilters) ([]*InvoiceRecord, error)

	// ListUnmatchedInvoices returns all unmatched invoices ordered by
	// issue date ascending, then ID. The stable order makes auto-match
	// runs deterministic.
	ListUnmatchedInvoices() ([]*InvoiceRecord, error)

	// UpdateInvoiceStatus sets the matching status of an invoice.
	UpdateInvoiceStatus(id string, status RecordStatus) error
}

// MovementRepository handles bank movement operations.
type MovementRepository interface {
	// SaveMovement inserts a new bank movement.
	SaveMovement(mov *BankMovement) error

	// GetMovement retrieves a movement by ID.
	GetMovement(id string) (*BankMovement, error)

	// ListMovements returns movements matching the given filters.
	ListMovements(filters MovementFilters) ([]*BankMovement, error)

	// ListCandidateMovements returns unmatched movements whose date falls
	// within maxDays of the invoice issue date and whose absolute amount is
	// within amountTol of the invoice total. This is a pre-filter for the
	// scorer, not a relaxation of its checks.
	ListCandidateMovements(inv *InvoiceRecord, maxDays int, amountTol decimal.Decimal) ([]*BankMovement, error)

	// UpdateMovementStatus sets the matching status of a movement.
	UpdateMovementStatus(id string, status RecordStatus) error
}

// MatchRepository handles match result operations.
type MatchRepository interface {
	// CreateMatchResult atomically claims both records: within one
	// transaction it verifies that neither side has an active match,
	// inserts the result, and flips both records to matched. Returns
	// *ConflictError when either side is already claimed.
	CreateMatchResult(result *MatchResult) error

	// GetMatchResult retrieves a match result by ID.
	GetMatchResult(id string) (*MatchResult, error)

	// ListMatchResults returns match results matching the given filters.
	ListMatchResults(filters MatchResultFilters) ([]*MatchResult, error)

	// GetActiveMatchForInvoice returns the non-rejected result claiming the
	// invoice, or nil when there is none.
	GetActiveMatchForInvoice(invoiceID string) (*MatchResult, error)

	// GetActiveMatchForMovement returns the non-rejected result claiming the
	// movement, or nil when there is none.
	GetActiveMatchForMovement(movementID string) (*MatchResult, error)

	// UpdateMatchResult persists status and audit field changes.
	UpdateMatchResult(result *MatchResult) error

	// DeleteMatchResult removes a match result (administrative unmatch).
	DeleteMatchResult(id string) error

	// GetMatchSummary returns aggregate reconciliation counts.
	GetMatchSummary() (*MatchSummary, error)
}

// SettingsRepository handles persisted match settings.
type SettingsRepository interface {
	// GetMatchSettings loads the stored settings, falling back to defaults
	// for keys that were never written.
	GetMatchSettings() (*MatchSettings, error)

	// SaveMatchSettings persists the given settings.
	SaveMatchSettings(settings *MatchSettings) error
}
