package storage

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	invoices  map[string]*InvoiceRecord
	movements map[string]*BankMovement
	matches   map[string]*MatchResult
	settings  *MatchSettings

	// Hooks for test assertions
	CreateMatchCalled  bool
	LastCreatedMatch   *MatchResult
	CreatedMatchCount  int
	UpdateMatchCalled  bool
	DeleteMatchCalled  bool
	SaveSettingsCalled bool

	// Error injection for testing error paths
	SaveInvoiceErr       error
	SaveMovementErr      error
	CreateMatchErr       error
	ListUnmatchedErr     error
	ListCandidatesErr    error
	GetMatchSettingsErr  error
	UpdateMatchResultErr error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		invoices:  make(map[string]*InvoiceRecord),
		movements: make(map[string]*BankMovement),
		matches:   make(map[string]*MatchResult),
		settings:  DefaultMatchSettings(),
	}
}

// Close is a no-op for the mock
func (m *MockRepository) Close() error { return nil }

// --- invoices ---

func (m *MockRepository) SaveInvoice(inv *InvoiceRecord) error {
	if m.SaveInvoiceErr != nil {
		return m.SaveInvoiceErr
	}
	if inv.MatchingStatus == "" {
		inv.MatchingStatus = RecordUnmatched
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *MockRepository) GetInvoice(id string) (*InvoiceRecord, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, &NotFoundError{Kind: "invoice", ID: id}
	}
	return inv, nil
}

func (m *MockRepository) ListInvoices(filters InvoiceFilters) ([]*InvoiceRecord, error) {
	var out []*InvoiceRecord
	for _, inv := range m.invoices {
		if filters.Status != "" && string(inv.MatchingStatus) != filters.Status {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.After(out[j].IssueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) ListUnmatchedInvoices() ([]*InvoiceRecord, error) {
	if m.ListUnmatchedErr != nil {
		return nil, m.ListUnmatchedErr
	}
	var out []*InvoiceRecord
	for _, inv := range m.invoices {
		if inv.MatchingStatus == RecordUnmatched {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) UpdateInvoiceStatus(id string, status RecordStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return &NotFoundError{Kind: "invoice", ID: id}
	}
	inv.MatchingStatus = status
	return nil
}

// --- movements ---

func (m *MockRepository) SaveMovement(mov *BankMovement) error {
	if m.SaveMovementErr != nil {
		return m.SaveMovementErr
	}
	if mov.MatchingStatus == "" {
		mov.MatchingStatus = RecordUnmatched
	}
	if mov.CreatedAt.IsZero() {
		mov.CreatedAt = time.Now().UTC()
	}
	m.movements[mov.ID] = mov
	return nil
}

func (m *MockRepository) GetMovement(id string) (*BankMovement, error) {
	mov, ok := m.movements[id]
	if !ok {
		return nil, &NotFoundError{Kind: "movement", ID: id}
	}
	return mov, nil
}

func (m *MockRepository) ListMovements(filters MovementFilters) ([]*BankMovement, error) {
	var out []*BankMovement
	for _, mov := range m.movements {
		if filters.Status != "" && string(mov.MatchingStatus) != filters.Status {
			continue
		}
		out = append(out, mov)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MovementDate.Equal(out[j].MovementDate) {
			return out[i].MovementDate.After(out[j].MovementDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) ListCandidateMovements(inv *InvoiceRecord, maxDays int, amountTol decimal.Decimal) ([]*BankMovement, error) {
	if m.ListCandidatesErr != nil {
		return nil, m.ListCandidatesErr
	}
	minDate := inv.IssueDate.AddDate(0, 0, -maxDays)
	maxDate := inv.IssueDate.AddDate(0, 0, maxDays)
	invAmount := inv.TotalAmount.Abs()

	var out []*BankMovement
	for _, mov := range m.movements {
		if mov.MatchingStatus != RecordUnmatched {
			continue
		}
		d := mov.EffectiveDate()
		if d.Before(minDate) || d.After(maxDate) {
			continue
		}
		if mov.Amount.Abs().Sub(invAmount).Abs().GreaterThan(amountTol) {
			continue
		}
		out = append(out, mov)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MovementDate.Equal(out[j].MovementDate) {
			return out[i].MovementDate.Before(out[j].MovementDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) UpdateMovementStatus(id string, status RecordStatus) error {
	mov, ok := m.movements[id]
	if !ok {
		return &NotFoundError{Kind: "movement", ID: id}
	}
	mov.MatchingStatus = status
	return nil
}

// --- match results ---

func (m *MockRepository) CreateMatchResult(result *MatchResult) error {
	m.CreateMatchCalled = true
	if m.CreateMatchErr != nil {
		return m.CreateMatchErr
	}

	inv, ok := m.invoices[result.InvoiceID]
	if !ok {
		return &NotFoundError{Kind: "invoice", ID: result.InvoiceID}
	}
	mov, ok := m.movements[result.MovementID]
	if !ok {
		return &NotFoundError{Kind: "movement", ID: result.MovementID}
	}

	if inv.MatchingStatus != RecordUnmatched {
		return m.mockConflict(result, "invoice")
	}
	if mov.MatchingStatus != RecordUnmatched {
		return m.mockConflict(result, "movement")
	}

	if result.Status == "" {
		result.Status = MatchProposed
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	m.matches[result.ID] = result
	inv.MatchingStatus = RecordMatched
	mov.MatchingStatus = RecordMatched

	m.LastCreatedMatch = result
	m.CreatedMatchCount++
	return nil
}

func (m *MockRepository) mockConflict(result *MatchResult, side string) error {
	conflict := &ConflictError{
		InvoiceID:  result.InvoiceID,
		MovementID: result.MovementID,
		Side:       side,
	}
	for _, match := range m.matches {
		if !match.Active() {
			continue
		}
		if (side == "invoice" && match.InvoiceID == result.InvoiceID) ||
			(side == "movement" && match.MovementID == result.MovementID) {
			conflict.BlockingMatchID = match.ID
			conflict.BlockingStatus = match.Status
			break
		}
	}
	return conflict
}

func (m *MockRepository) GetMatchResult(id string) (*MatchResult, error) {
	match, ok := m.matches[id]
	if !ok {
		return nil, &NotFoundError{Kind: "match", ID: id}
	}
	return match, nil
}

func (m *MockRepository) ListMatchResults(filters MatchResultFilters) ([]*MatchResult, error) {
	var out []*MatchResult
	for _, match := range m.matches {
		if filters.Status != "" && string(match.Status) != filters.Status {
			continue
		}
		out = append(out, match)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepository) GetActiveMatchForInvoice(invoiceID string) (*MatchResult, error) {
	for _, match := range m.matches {
		if match.InvoiceID == invoiceID && match.Active() {
			return match, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) GetActiveMatchForMovement(movementID string) (*MatchResult, error) {
	for _, match := range m.matches {
		if match.MovementID == movementID && match.Active() {
			return match, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) UpdateMatchResult(result *MatchResult) error {
	m.UpdateMatchCalled = true
	if m.UpdateMatchResultErr != nil {
		return m.UpdateMatchResultErr
	}
	if _, ok := m.matches[result.ID]; !ok {
		return &NotFoundError{Kind: "match", ID: result.ID}
	}
	m.matches[result.ID] = result
	return nil
}

func (m *MockRepository) DeleteMatchResult(id string) error {
	m.DeleteMatchCalled = true
	if _, ok := m.matches[id]; !ok {
		return &NotFoundError{Kind: "match", ID: id}
	}
	delete(m.matches, id)
	return nil
}

func (m *MockRepository) GetMatchSummary() (*MatchSummary, error) {
	summary := &MatchSummary{
		TotalInvoices:  len(m.invoices),
		TotalMovements: len(m.movements),
		TotalResults:   len(m.matches),
	}
	for _, inv := range m.invoices {
		if inv.MatchingStatus != RecordUnmatched {
			summary.MatchedInvoices++
		}
	}
	for _, mov := range m.movements {
		if mov.MatchingStatus != RecordUnmatched {
			summary.MatchedMovements++
		}
	}
	for _, match := range m.matches {
		switch match.Status {
		case MatchProposed:
			summary.ProposedResults++
		case MatchConfirmed:
			summary.ConfirmedResults++
		case MatchRejected:
			summary.RejectedResults++
		}
	}
	return summary, nil
}

// --- settings ---

func (m *MockRepository) GetMatchSettings() (*MatchSettings, error) {
	if m.GetMatchSettingsErr != nil {
		return nil, m.GetMatchSettingsErr
	}
	return m.settings, nil
}

func (m *MockRepository) SaveMatchSettings(settings *MatchSettings) error {
	m.SaveSettingsCalled = true
	m.settings = settings
	return nil
}
