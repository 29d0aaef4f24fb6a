package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testInvoice(id string, amount string, date time.Time) *InvoiceRecord {
	return &InvoiceRecord{
		ID:             id,
		DocumentNumber: "FT 2024/" + id,
		IssueDate:      date,
		SupplierNIF:    "501234567",
		SupplierName:   "Fornecedor ABC Lda",
		TotalAmount:    decimal.RequireFromString(amount),
		Currency:       "EUR",
	}
}

func testMovement(id string, amount string, date time.Time) *BankMovement {
	return &BankMovement{
		ID:           id,
		MovementDate: date,
		Description:  "TRF FORNECEDOR ABC LDA",
		Amount:       decimal.RequireFromString(amount),
	}
}

func TestInvoiceRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	inv := testInvoice("inv-1", "1230.45", day(2024, 1, 15))
	require.NoError(t, s.SaveInvoice(inv))

	got, err := s.GetInvoice("inv-1")
	require.NoError(t, err)

	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, inv.DocumentNumber, got.DocumentNumber)
	assert.Equal(t, inv.SupplierNIF, got.SupplierNIF)
	assert.Equal(t, inv.SupplierName, got.SupplierName)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("1230.45")))
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, RecordUnmatched, got.MatchingStatus)
	assert.True(t, got.IssueDate.Equal(day(2024, 1, 15)))
}

func TestGetInvoice_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetInvoice("missing")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "invoice", notFound.Kind)
	assert.Equal(t, "missing", notFound.ID)
}

func TestMovementRoundTrip_ValueDate(t *testing.T) {
	s := newTestStorage(t)

	mov := testMovement("mov-1", "-1230.45", day(2024, 1, 18))
	valueDate := day(2024, 1, 16)
	mov.ValueDate = &valueDate
	mov.Reference = "REF001"
	require.NoError(t, s.SaveMovement(mov))

	got, err := s.GetMovement("mov-1")
	require.NoError(t, err)

	assert.True(t, got.Amount.Equal(decimal.RequireFromString("-1230.45")))
	assert.Equal(t, "REF001", got.Reference)
	require.NotNil(t, got.ValueDate)
	assert.True(t, got.ValueDate.Equal(valueDate))
	assert.True(t, got.EffectiveDate().Equal(valueDate))

	// nil value date survives the round trip as nil
	require.NoError(t, s.SaveMovement(testMovement("mov-2", "-10.00", day(2024, 1, 18))))
	got2, err := s.GetMovement("mov-2")
	require.NoError(t, err)
	assert.Nil(t, got2.ValueDate)
}

func TestListUnmatchedInvoices_StableOrder(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-b", "10.00", day(2024, 1, 20))))
	require.NoError(t, s.SaveInvoice(testInvoice("inv-a", "10.00", day(2024, 1, 20))))
	require.NoError(t, s.SaveInvoice(testInvoice("inv-c", "10.00", day(2024, 1, 10))))

	invoices, err := s.ListUnmatchedInvoices()
	require.NoError(t, err)
	require.Len(t, invoices, 3)

	// issue date ascending, then ID
	assert.Equal(t, "inv-c", invoices[0].ID)
	assert.Equal(t, "inv-a", invoices[1].ID)
	assert.Equal(t, "inv-b", invoices[2].ID)
}

func TestListInvoices_StatusFilter(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "10.00", day(2024, 1, 10))))
	require.NoError(t, s.SaveInvoice(testInvoice("inv-2", "20.00", day(2024, 1, 11))))
	require.NoError(t, s.UpdateInvoiceStatus("inv-2", RecordMatched))

	unmatched, err := s.ListInvoices(InvoiceFilters{Status: "unmatched"})
	require.NoError(t, err)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "inv-1", unmatched[0].ID)

	all, err := s.ListInvoices(InvoiceFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListCandidateMovements_Window(t *testing.T) {
	s := newTestStorage(t)

	inv := testInvoice("inv-1", "100.00", day(2024, 1, 15))
	require.NoError(t, s.SaveInvoice(inv))

	require.NoError(t, s.SaveMovement(testMovement("mov-in", "-100.00", day(2024, 1, 20))))
	require.NoError(t, s.SaveMovement(testMovement("mov-cent", "-100.01", day(2024, 1, 20))))
	require.NoError(t, s.SaveMovement(testMovement("mov-late", "-100.00", day(2024, 3, 1))))
	require.NoError(t, s.SaveMovement(testMovement("mov-amount", "-250.00", day(2024, 1, 20))))
	require.NoError(t, s.SaveMovement(testMovement("mov-taken", "-100.00", day(2024, 1, 21))))
	require.NoError(t, s.UpdateMovementStatus("mov-taken", RecordMatched))

	movements, err := s.ListCandidateMovements(inv, 30, decimal.New(1, -2))
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, "mov-in", movements[0].ID)
	assert.Equal(t, "mov-cent", movements[1].ID)
}

func TestListCandidateMovements_ValueDateWindowing(t *testing.T) {
	s := newTestStorage(t)

	inv := testInvoice("inv-1", "100.00", day(2024, 1, 15))
	require.NoError(t, s.SaveInvoice(inv))

	// booked outside the window but value-dated inside it
	mov := testMovement("mov-1", "-100.00", day(2024, 3, 1))
	valueDate := day(2024, 1, 16)
	mov.ValueDate = &valueDate
	require.NoError(t, s.SaveMovement(mov))

	movements, err := s.ListCandidateMovements(inv, 30, decimal.New(1, -2))
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "mov-1", movements[0].ID)
}

func TestCreateMatchResult_ClaimsBothRecords(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "100.00", day(2024, 1, 15))))
	require.NoError(t, s.SaveMovement(testMovement("mov-1", "-100.00", day(2024, 1, 16))))

	result := &MatchResult{
		ID:               "match-1",
		InvoiceID:        "inv-1",
		MovementID:       "mov-1",
		Confidence:       0.99,
		Method:           MethodFuzzy,
		DateDifference:   1,
		AmountDifference: decimal.Zero,
	}
	require.NoError(t, s.CreateMatchResult(result))

	got, err := s.GetMatchResult("match-1")
	require.NoError(t, err)
	assert.Equal(t, MatchProposed, got.Status)
	assert.Equal(t, MethodFuzzy, got.Method)
	assert.InDelta(t, 0.99, got.Confidence, 1e-9)
	assert.Equal(t, 1, got.DateDifference)
	assert.True(t, got.AmountDifference.IsZero())

	inv, err := s.GetInvoice("inv-1")
	require.NoError(t, err)
	assert.Equal(t, RecordMatched, inv.MatchingStatus)
	mov, err := s.GetMovement("mov-1")
	require.NoError(t, err)
	assert.Equal(t, RecordMatched, mov.MatchingStatus)
}

func TestCreateMatchResult_Conflict(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "100.00", day(2024, 1, 15))))
	require.NoError(t, s.SaveMovement(testMovement("mov-1", "-100.00", day(2024, 1, 16))))
	require.NoError(t, s.SaveMovement(testMovement("mov-2", "-100.00", day(2024, 1, 17))))

	first := &MatchResult{ID: "match-1", InvoiceID: "inv-1", MovementID: "mov-1",
		Confidence: 0.9, Method: MethodFuzzy, AmountDifference: decimal.Zero}
	require.NoError(t, s.CreateMatchResult(first))

	second := &MatchResult{ID: "match-2", InvoiceID: "inv-1", MovementID: "mov-2",
		Confidence: 0.8, Method: MethodFuzzy, AmountDifference: decimal.Zero}
	err := s.CreateMatchResult(second)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "invoice", conflict.Side)
	assert.Equal(t, "match-1", conflict.BlockingMatchID)
	assert.Equal(t, MatchProposed, conflict.BlockingStatus)

	// the failed attempt must not leave partial state
	_, err = s.GetMatchResult("match-2")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
	mov2, err := s.GetMovement("mov-2")
	require.NoError(t, err)
	assert.Equal(t, RecordUnmatched, mov2.MatchingStatus)
}

func TestCreateMatchResult_RejectedDoesNotBlock(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "100.00", day(2024, 1, 15))))
	require.NoError(t, s.SaveMovement(testMovement("mov-1", "-100.00", day(2024, 1, 16))))

	first := &MatchResult{ID: "match-1", InvoiceID: "inv-1", MovementID: "mov-1",
		Confidence: 0.9, Method: MethodFuzzy, AmountDifference: decimal.Zero}
	require.NoError(t, s.CreateMatchResult(first))

	// reject and revert both records, as the lifecycle manager does
	now := time.Now().UTC()
	first.Status = MatchRejected
	first.RejectedBy = "reviewer"
	first.RejectedAt = &now
	first.RejectionReason = "not this one"
	require.NoError(t, s.UpdateMatchResult(first))
	require.NoError(t, s.UpdateInvoiceStatus("inv-1", RecordUnmatched))
	require.NoError(t, s.UpdateMovementStatus("mov-1", RecordUnmatched))

	// the rejected row stays for audit but does not block a new pairing
	second := &MatchResult{ID: "match-2", InvoiceID: "inv-1", MovementID: "mov-1",
		Confidence: 1.0, Method: MethodManual, AmountDifference: decimal.Zero}
	require.NoError(t, s.CreateMatchResult(second))

	rejected, err := s.GetMatchResult("match-1")
	require.NoError(t, err)
	assert.Equal(t, MatchRejected, rejected.Status)
	assert.Equal(t, "reviewer", rejected.RejectedBy)
	assert.Equal(t, "not this one", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)
}

func TestGetActiveMatch(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "100.00", day(2024, 1, 15))))
	require.NoError(t, s.SaveMovement(testMovement("mov-1", "-100.00", day(2024, 1, 16))))

	match, err := s.GetActiveMatchForInvoice("inv-1")
	require.NoError(t, err)
	assert.Nil(t, match)

	require.NoError(t, s.CreateMatchResult(&MatchResult{ID: "match-1", InvoiceID: "inv-1",
		MovementID: "mov-1", Confidence: 0.9, Method: MethodFuzzy, AmountDifference: decimal.Zero}))

	match, err = s.GetActiveMatchForInvoice("inv-1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "match-1", match.ID)

	match, err = s.GetActiveMatchForMovement("mov-1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "match-1", match.ID)
}

func TestUpdateMatchResult_ConfirmAudit(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "100.00", day(2024, 1, 15))))
	require.NoError(t, s.SaveMovement(testMovement("mov-1", "-100.00", day(2024, 1, 16))))

	match := &MatchResult{ID: "match-1", InvoiceID: "inv-1", MovementID: "mov-1",
		Confidence: 0.9, Method: MethodFuzzy, AmountDifference: decimal.Zero}
	require.NoError(t, s.CreateMatchResult(match))

	now := time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)
	match.Status = MatchConfirmed
	match.ConfirmedBy = "reviewer"
	match.ConfirmedAt = &now
	require.NoError(t, s.UpdateMatchResult(match))

	got, err := s.GetMatchResult("match-1")
	require.NoError(t, err)
	assert.Equal(t, MatchConfirmed, got.Status)
	assert.Equal(t, "reviewer", got.ConfirmedBy)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, got.ConfirmedAt.Equal(now))
	assert.Empty(t, got.RejectedBy)
	assert.Nil(t, got.RejectedAt)
}

func TestDeleteMatchResult(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "100.00", day(2024, 1, 15))))
	require.NoError(t, s.SaveMovement(testMovement("mov-1", "-100.00", day(2024, 1, 16))))
	require.NoError(t, s.CreateMatchResult(&MatchResult{ID: "match-1", InvoiceID: "inv-1",
		MovementID: "mov-1", Confidence: 0.9, Method: MethodFuzzy, AmountDifference: decimal.Zero}))

	require.NoError(t, s.DeleteMatchResult("match-1"))

	_, err := s.GetMatchResult("match-1")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	err = s.DeleteMatchResult("match-1")
	assert.ErrorAs(t, err, &notFound)
}

func TestGetMatchSummary(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveInvoice(testInvoice("inv-1", "100.00", day(2024, 1, 15))))
	require.NoError(t, s.SaveInvoice(testInvoice("inv-2", "200.00", day(2024, 1, 16))))
	require.NoError(t, s.SaveMovement(testMovement("mov-1", "-100.00", day(2024, 1, 16))))
	require.NoError(t, s.CreateMatchResult(&MatchResult{ID: "match-1", InvoiceID: "inv-1",
		MovementID: "mov-1", Confidence: 0.9, Method: MethodFuzzy, AmountDifference: decimal.Zero}))

	summary, err := s.GetMatchSummary()
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalInvoices)
	assert.Equal(t, 1, summary.MatchedInvoices)
	assert.Equal(t, 1, summary.TotalMovements)
	assert.Equal(t, 1, summary.MatchedMovements)
	assert.Equal(t, 1, summary.TotalResults)
	assert.Equal(t, 1, summary.ProposedResults)
	assert.Equal(t, 0, summary.ConfirmedResults)
	assert.Equal(t, 0, summary.RejectedResults)
}

func TestMatchSettingsRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	// defaults before anything is written
	settings, err := s.GetMatchSettings()
	require.NoError(t, err)
	assert.Equal(t, 0.70, settings.ConfidenceThreshold)
	assert.Equal(t, 30, settings.MaxDateDiffDays)

	settings.ConfidenceThreshold = 0.85
	settings.MaxDateDiffDays = 15
	settings.AmountTolerance = decimal.RequireFromString("0.05")
	settings.MinTextSimilarity = 0.9
	settings.TieMargin = 0.02
	require.NoError(t, s.SaveMatchSettings(settings))

	got, err := s.GetMatchSettings()
	require.NoError(t, err)
	assert.Equal(t, 0.85, got.ConfidenceThreshold)
	assert.Equal(t, 15, got.MaxDateDiffDays)
	assert.True(t, got.AmountTolerance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 0.9, got.MinTextSimilarity)
	assert.Equal(t, 0.02, got.TieMargin)

	// saving twice overwrites rather than duplicating keys
	got.TieMargin = 0.03
	require.NoError(t, s.SaveMatchSettings(got))
	again, err := s.GetMatchSettings()
	require.NoError(t, err)
	assert.Equal(t, 0.03, again.TieMargin)
}
