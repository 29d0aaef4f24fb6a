package selector

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conciliador/internal/domain/scorer"
	"conciliador/internal/infrastructure/storage"
)

type fakeSource struct {
	movements []*storage.BankMovement
	err       error
}

func (f *fakeSource) ListCandidateMovements(inv *storage.InvoiceRecord, maxDays int, amountTol decimal.Decimal) ([]*storage.BankMovement, error) {
	return f.movements, f.err
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mov(id, amount string, date time.Time, description string) *storage.BankMovement {
	return &storage.BankMovement{
		ID:           id,
		MovementDate: date,
		Description:  description,
		Amount:       decimal.RequireFromString(amount),
	}
}

func TestCandidates_OrderedByConfidence(t *testing.T) {
	inv := &storage.InvoiceRecord{
		ID:           "inv-1",
		IssueDate:    day(2024, 1, 15),
		SupplierName: "Fornecedor ABC Lda",
		TotalAmount:  decimal.RequireFromString("1230.00"),
	}

	source := &fakeSource{movements: []*storage.BankMovement{
		mov("mov-far", "-1230.00", day(2024, 1, 25), "TRF FORNECEDOR ABC LDA"),
		mov("mov-near", "-1230.00", day(2024, 1, 16), "TRF FORNECEDOR ABC LDA"),
	}}

	sel := NewSelector(source, scorer.DefaultConfig())
	candidates, err := sel.Candidates(inv)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "mov-near", candidates[0].Movement.ID)
	assert.Equal(t, "mov-far", candidates[1].Movement.ID)
	assert.Greater(t, candidates[0].Confidence, candidates[1].Confidence)
}

func TestCandidates_TieBreakOnMovementID(t *testing.T) {
	inv := &storage.InvoiceRecord{
		ID:           "inv-1",
		IssueDate:    day(2024, 1, 15),
		SupplierName: "Fornecedor ABC Lda",
		TotalAmount:  decimal.RequireFromString("500.00"),
	}

	// identical amount, date and description: identical confidence
	source := &fakeSource{movements: []*storage.BankMovement{
		mov("mov-b", "-500.00", day(2024, 1, 15), "TRF FORNECEDOR ABC LDA"),
		mov("mov-a", "-500.00", day(2024, 1, 15), "TRF FORNECEDOR ABC LDA"),
	}}

	sel := NewSelector(source, scorer.DefaultConfig())
	candidates, err := sel.Candidates(inv)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, candidates[0].Confidence, candidates[1].Confidence)
	assert.Equal(t, "mov-a", candidates[0].Movement.ID)
	assert.Equal(t, "mov-b", candidates[1].Movement.ID)
}

func TestCandidates_IneligibleFiltered(t *testing.T) {
	inv := &storage.InvoiceRecord{
		ID:           "inv-1",
		IssueDate:    day(2024, 1, 15),
		SupplierName: "Fornecedor ABC Lda",
		TotalAmount:  decimal.RequireFromString("100.00"),
	}

	// a sloppy pre-filter may return pairs the scorer must still reject
	source := &fakeSource{movements: []*storage.BankMovement{
		mov("mov-amount", "-105.00", day(2024, 1, 15), "TRF FORNECEDOR ABC LDA"),
		mov("mov-date", "-100.00", day(2024, 3, 20), "TRF FORNECEDOR ABC LDA"),
		mov("mov-ok", "-100.00", day(2024, 1, 15), "TRF FORNECEDOR ABC LDA"),
	}}

	sel := NewSelector(source, scorer.DefaultConfig())
	candidates, err := sel.Candidates(inv)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "mov-ok", candidates[0].Movement.ID)
}

func TestCandidates_NoMovements(t *testing.T) {
	inv := &storage.InvoiceRecord{
		ID:          "inv-1",
		IssueDate:   day(2024, 1, 15),
		TotalAmount: decimal.RequireFromString("100.00"),
	}

	sel := NewSelector(&fakeSource{}, scorer.DefaultConfig())
	candidates, err := sel.Candidates(inv)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidates_SourceError(t *testing.T) {
	inv := &storage.InvoiceRecord{ID: "inv-1", TotalAmount: decimal.RequireFromString("100.00")}

	sel := NewSelector(&fakeSource{err: errors.New("db closed")}, scorer.DefaultConfig())
	_, err := sel.Candidates(inv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inv-1")
}
