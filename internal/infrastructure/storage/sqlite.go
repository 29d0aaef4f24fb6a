package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
	defaultLimit    = 50
)

// Storage provides SQLite database access for the reconciliation data.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// --- invoices ---

// SaveInvoice inserts a new invoice record
func (s *Storage) SaveInvoice(inv *InvoiceRecord) error {
	if inv.MatchingStatus == "" {
		inv.MatchingStatus = RecordUnmatched
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
	INSERT INTO invoice_records
	(id, document_number, issue_date, supplier_nif, supplier_name,
	 total_amount, currency, matching_status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.DocumentNumber,
		inv.IssueDate.Format(dateLayout),
		inv.SupplierNIF,
		inv.SupplierName,
		inv.TotalAmount.String(),
		inv.Currency,
		string(inv.MatchingStatus),
		inv.CreatedAt.Format(timestampLayout),
	)
	return err
}

const invoiceColumns = `id, document_number, issue_date, supplier_nif, supplier_name,
	total_amount, currency, matching_status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*InvoiceRecord, error) {
	inv := &InvoiceRecord{}
	var issueDate, totalAmount, status, createdAt string
	if err := row.Scan(
		&inv.ID,
		&inv.DocumentNumber,
		&issueDate,
		&inv.SupplierNIF,
		&inv.SupplierName,
		&totalAmount,
		&inv.Currency,
		&status,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if inv.IssueDate, err = time.Parse(dateLayout, issueDate); err != nil {
		return nil, fmt.Errorf("invalid issue_date for invoice %s: %w", inv.ID, err)
	}
	if inv.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("invalid total_amount for invoice %s: %w", inv.ID, err)
	}
	inv.MatchingStatus = RecordStatus(status)
	inv.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	return inv, nil
}

// GetInvoice retrieves an invoice by ID
func (s *Storage) GetInvoice(id string) (*InvoiceRecord, error) {
	row := s.db.QueryRow("SELECT "+invoiceColumns+" FROM invoice_records WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "invoice", ID: id}
	}
	return inv, err
}

// ListInvoices returns invoices matching the given filters
func (s *Storage) ListInvoices(filters InvoiceFilters) ([]*InvoiceRecord, error) {
	query := "SELECT " + invoiceColumns + " FROM invoice_records"
	args := []any{}
	if filters.Status != "" {
		query += " WHERE matching_status = ?"
		args = append(args, filters.Status)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += " ORDER BY issue_date DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*InvoiceRecord
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListUnmatchedInvoices returns unmatched invoices in stable batch order
func (s *Storage) ListUnmatchedInvoices() ([]*InvoiceRecord, error) {
	rows, err := s.db.Query("SELECT " + invoiceColumns +
		" FROM invoice_records WHERE matching_status = 'unmatched' ORDER BY issue_date, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*InvoiceRecord
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// UpdateInvoiceStatus sets the matching status of an invoice
func (s *Storage) UpdateInvoiceStatus(id string, status RecordStatus) error {
	res, err := s.db.Exec("UPDATE invoice_records SET matching_status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "invoice", ID: id}
	}
	return nil
}

// --- movements ---

// SaveMovement inserts a new bank movement
func (s *Storage) SaveMovement(mov *BankMovement) error {
	if mov.MatchingStatus == "" {
		mov.MatchingStatus = RecordUnmatched
	}
	if mov.CreatedAt.IsZero() {
		mov.CreatedAt = time.Now().UTC()
	}

	var valueDate any
	if mov.ValueDate != nil {
		valueDate = mov.ValueDate.Format(dateLayout)
	}

	_, err := s.db.Exec(`
	INSERT INTO bank_movements
	(id, movement_date, value_date, description, amount, reference, matching_status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		mov.ID,
		mov.MovementDate.Format(dateLayout),
		valueDate,
		mov.Description,
		mov.Amount.String(),
		mov.Reference,
		string(mov.MatchingStatus),
		mov.CreatedAt.Format(timestampLayout),
	)
	return err
}

const movementColumns = `id, movement_date, value_date, description, amount, reference,
	matching_status, created_at`

func scanMovement(row rowScanner) (*BankMovement, error) {
	mov := &BankMovement{}
	var movementDate, amount, status, createdAt string
	var valueDate sql.NullString
	if err := row.Scan(
		&mov.ID,
		&movementDate,
		&valueDate,
		&mov.Description,
		&amount,
		&mov.Reference,
		&status,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if mov.MovementDate, err = time.Parse(dateLayout, movementDate); err != nil {
		return nil, fmt.Errorf("invalid movement_date for movement %s: %w", mov.ID, err)
	}
	if valueDate.Valid {
		vd, err := time.Parse(dateLayout, valueDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid value_date for movement %s: %w", mov.ID, err)
		}
		mov.ValueDate = &vd
	}
	if mov.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount for movement %s: %w", mov.ID, err)
	}
	mov.MatchingStatus = RecordStatus(status)
	mov.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	return mov, nil
}

// GetMovement retrieves a movement by ID
func (s *Storage) GetMovement(id string) (*BankMovement, error) {
	row := s.db.QueryRow("SELECT "+movementColumns+" FROM bank_movements WHERE id = ?", id)
	mov, err := scanMovement(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "movement", ID: id}
	}
	return mov, err
}

// ListMovements returns movements matching the given filters
func (s *Storage) ListMovements(filters MovementFilters) ([]*BankMovement, error) {
	query := "SELECT " + movementColumns + " FROM bank_movements"
	args := []any{}
	if filters.Status != "" {
		query += " WHERE matching_status = ?"
		args = append(args, filters.Status)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += " ORDER BY movement_date DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*BankMovement
	for rows.Next() {
		mov, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mov)
	}
	return out, rows.Err()
}

// ListCandidateMovements returns unmatched movements inside the date and
// amount windows. The amount filter casts the stored decimal string to REAL
// with a small slack; this is only a pre-filter, the scorer re-checks the
// tolerance on exact decimals.
func (s *Storage) ListCandidateMovements(inv *InvoiceRecord, maxDays int, amountTol decimal.Decimal) ([]*BankMovement, error) {
	minDate := inv.IssueDate.AddDate(0, 0, -maxDays).Format(dateLayout)
	maxDate := inv.IssueDate.AddDate(0, 0, maxDays).Format(dateLayout)
	invAmount, _ := inv.TotalAmount.Abs().Float64()
	tolerance, _ := amountTol.Float64()

	rows, err := s.db.Query(`
	SELECT `+movementColumns+`
	FROM bank_movements
	WHERE matching_status = 'unmatched'
	  AND COALESCE(value_date, movement_date) BETWEEN ? AND ?
	  AND ABS(ABS(CAST(amount AS REAL)) - ?) <= ?
	ORDER BY movement_date, id`,
		minDate, maxDate, invAmount, tolerance+1e-9)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*BankMovement
	for rows.Next() {
		mov, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mov)
	}
	return out, rows.Err()
}

// UpdateMovementStatus sets the matching status of a movement
func (s *Storage) UpdateMovementStatus(id string, status RecordStatus) error {
	res, err := s.db.Exec("UPDATE bank_movements SET matching_status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "movement", ID: id}
	}
	return nil
}

// --- match results ---

const matchColumns = `id, invoice_id, movement_id, confidence, matching_method,
	date_difference, amount_difference, status, confirmed_by, confirmed_at,
	rejected_by, rejected_at, rejection_reason, created_at`

func scanMatchResult(row rowScanner) (*MatchResult, error) {
	r := &MatchResult{}
	var amountDiff, status, method, createdAt string
	var confirmedBy, confirmedAt, rejectedBy, rejectedAt, rejectionReason sql.NullString
	if err := row.Scan(
		&r.ID,
		&r.InvoiceID,
		&r.MovementID,
		&r.Confidence,
		&method,
		&r.DateDifference,
		&amountDiff,
		&status,
		&confirmedBy,
		&confirmedAt,
		&rejectedBy,
		&rejectedAt,
		&rejectionReason,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if r.AmountDifference, err = decimal.NewFromString(amountDiff); err != nil {
		return nil, fmt.Errorf("invalid amount_difference for match %s: %w", r.ID, err)
	}
	r.Method = MatchMethod(method)
	r.Status = MatchStatus(status)
	r.ConfirmedBy = confirmedBy.String
	r.RejectedBy = rejectedBy.String
	r.RejectionReason = rejectionReason.String
	if confirmedAt.Valid {
		if t, err := time.Parse(timestampLayout, confirmedAt.String); err == nil {
			r.ConfirmedAt = &t
		}
	}
	if rejectedAt.Valid {
		if t, err := time.Parse(timestampLayout, rejectedAt.String); err == nil {
			r.RejectedAt = &t
		}
	}
	r.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	return r, nil
}

// CreateMatchResult claims both records atomically: the status checks, the
// insert and the status updates run in one transaction, so two concurrent
// runs cannot claim the same movement. The partial unique indexes are the
// last line of defense.
func (s *Storage) CreateMatchResult(result *MatchResult) error {
	if result.Status == "" {
		result.Status = MatchProposed
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var invStatus string
	err = tx.QueryRow("SELECT matching_status FROM invoice_records WHERE id = ?", result.InvoiceID).Scan(&invStatus)
	if err == sql.ErrNoRows {
		return &NotFoundError{Kind: "invoice", ID: result.InvoiceID}
	}
	if err != nil {
		return err
	}

	var movStatus string
	err = tx.QueryRow("SELECT matching_status FROM bank_movements WHERE id = ?", result.MovementID).Scan(&movStatus)
	if err == sql.ErrNoRows {
		return &NotFoundError{Kind: "movement", ID: result.MovementID}
	}
	if err != nil {
		return err
	}

	if RecordStatus(invStatus) != RecordUnmatched {
		return s.conflictError(tx, result, "invoice")
	}
	if RecordStatus(movStatus) != RecordUnmatched {
		return s.conflictError(tx, result, "movement")
	}

	_, err = tx.Exec(`
	INSERT INTO match_results
	(id, invoice_id, movement_id, confidence, matching_method, date_difference,
	 amount_difference, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.InvoiceID,
		result.MovementID,
		result.Confidence,
		string(result.Method),
		result.DateDifference,
		result.AmountDifference.String(),
		string(result.Status),
		result.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
			return s.conflictError(tx, result, "invoice")
		}
		return err
	}

	if _, err := tx.Exec("UPDATE invoice_records SET matching_status = 'matched' WHERE id = ?", result.InvoiceID); err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE bank_movements SET matching_status = 'matched' WHERE id = ?", result.MovementID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Storage) conflictError(tx *sql.Tx, result *MatchResult, side string) error {
	conflict := &ConflictError{
		InvoiceID:  result.InvoiceID,
		MovementID: result.MovementID,
		Side:       side,
	}
	column := "invoice_id"
	recordID := result.InvoiceID
	if side == "movement" {
		column = "movement_id"
		recordID = result.MovementID
	}
	var id, status string
	err := tx.QueryRow("SELECT id, status FROM match_results WHERE "+column+" = ? AND status != 'rejected'", recordID).
		Scan(&id, &status)
	if err == nil {
		conflict.BlockingMatchID = id
		conflict.BlockingStatus = MatchStatus(status)
	}
	return conflict
}

// GetMatchResult retrieves a match result by ID
func (s *Storage) GetMatchResult(id string) (*MatchResult, error) {
	row := s.db.QueryRow("SELECT "+matchColumns+" FROM match_results WHERE id = ?", id)
	r, err := scanMatchResult(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "match", ID: id}
	}
	return r, err
}

// ListMatchResults returns match results matching the given filters
func (s *Storage) ListMatchResults(filters MatchResultFilters) ([]*MatchResult, error) {
	query := "SELECT " + matchColumns + " FROM match_results"
	args := []any{}
	if filters.Status != "" {
		query += " WHERE status = ?"
		args = append(args, filters.Status)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*MatchResult
	for rows.Next() {
		r, err := scanMatchResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Storage) activeMatchBy(column, id string) (*MatchResult, error) {
	row := s.db.QueryRow("SELECT "+matchColumns+" FROM match_results WHERE "+column+" = ? AND status != 'rejected'", id)
	r, err := scanMatchResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetActiveMatchForInvoice returns the non-rejected result for the invoice, if any
func (s *Storage) GetActiveMatchForInvoice(invoiceID string) (*MatchResult, error) {
	return s.activeMatchBy("invoice_id", invoiceID)
}

// GetActiveMatchForMovement returns the non-rejected result for the movement, if any
func (s *Storage) GetActiveMatchForMovement(movementID string) (*MatchResult, error) {
	return s.activeMatchBy("movement_id", movementID)
}

// UpdateMatchResult persists status and audit field changes
func (s *Storage) UpdateMatchResult(result *MatchResult) error {
	var confirmedAt, rejectedAt any
	if result.ConfirmedAt != nil {
		confirmedAt = result.ConfirmedAt.Format(timestampLayout)
	}
	if result.RejectedAt != nil {
		rejectedAt = result.RejectedAt.Format(timestampLayout)
	}

	res, err := s.db.Exec(`
	UPDATE match_results SET
		status = ?, confirmed_by = ?, confirmed_at = ?,
		rejected_by = ?, rejected_at = ?, rejection_reason = ?
	WHERE id = ?`,
		string(result.Status),
		nullable(result.ConfirmedBy),
		confirmedAt,
		nullable(result.RejectedBy),
		rejectedAt,
		nullable(result.RejectionReason),
		result.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "match", ID: result.ID}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// DeleteMatchResult removes a match result (administrative unmatch)
func (s *Storage) DeleteMatchResult(id string) error {
	res, err := s.db.Exec("DELETE FROM match_results WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "match", ID: id}
	}
	return nil
}

// GetMatchSummary returns aggregate reconciliation counts
func (s *Storage) GetMatchSummary() (*MatchSummary, error) {
	summary := &MatchSummary{}
	err := s.db.QueryRow(`
	SELECT
		(SELECT COUNT(*) FROM invoice_records),
		(SELECT COUNT(*) FROM invoice_records WHERE matching_status != 'unmatched'),
		(SELECT COUNT(*) FROM bank_movements),
		(SELECT COUNT(*) FROM bank_movements WHERE matching_status != 'unmatched'),
		(SELECT COUNT(*) FROM match_results),
		(SELECT COUNT(*) FROM match_results WHERE status = 'proposed'),
		(SELECT COUNT(*) FROM match_results WHERE status = 'confirmed'),
		(SELECT COUNT(*) FROM match_results WHERE status = 'rejected')`,
	).Scan(
		&summary.TotalInvoices,
		&summary.MatchedInvoices,
		&summary.TotalMovements,
		&summary.MatchedMovements,
		&summary.TotalResults,
		&summary.ProposedResults,
		&summary.ConfirmedResults,
		&summary.RejectedResults,
	)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// --- settings ---

const (
	settingConfidenceThreshold = "confidence_threshold"
	settingMaxDateDiffDays     = "max_date_diff_days"
	settingAmountTolerance     = "amount_tolerance"
	settingMinTextSimilarity   = "min_text_similarity"
	settingTieMargin           = "tie_margin"
)

// GetMatchSettings loads stored settings, defaulting keys never written
func (s *Storage) GetMatchSettings() (*MatchSettings, error) {
	settings := DefaultMatchSettings()

	rows, err := s.db.Query("SELECT key, value FROM match_settings")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		switch key {
		case settingConfidenceThreshold:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				settings.ConfidenceThreshold = f
			}
		case settingMaxDateDiffDays:
			if n, err := strconv.Atoi(value); err == nil {
				settings.MaxDateDiffDays = n
			}
		case settingAmountTolerance:
			if d, err := decimal.NewFromString(value); err == nil {
				settings.AmountTolerance = d
			}
		case settingMinTextSimilarity:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				settings.MinTextSimilarity = f
			}
		case settingTieMargin:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				settings.TieMargin = f
			}
		}
	}
	return settings, rows.Err()
}

// SaveMatchSettings persists the given settings
func (s *Storage) SaveMatchSettings(settings *MatchSettings) error {
	pairs := map[string]string{
		settingConfidenceThreshold: strconv.FormatFloat(settings.ConfidenceThreshold, 'f', -1, 64),
		settingMaxDateDiffDays:     strconv.Itoa(settings.MaxDateDiffDays),
		settingAmountTolerance:     settings.AmountTolerance.String(),
		settingMinTextSimilarity:   strconv.FormatFloat(settings.MinTextSimilarity, 'f', -1, 64),
		settingTieMargin:           strconv.FormatFloat(settings.TieMargin, 'f', -1, 64),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range pairs {
		if _, err := tx.Exec(
			"INSERT INTO match_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}
