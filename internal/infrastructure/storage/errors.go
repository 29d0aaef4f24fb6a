package storage

import "fmt"

// NotFoundError reports that a referenced record does not exist.
type NotFoundError struct {
	Kind string // "invoice", "movement", "match"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError reports an attempt to claim a record that already has an
// active (non-rejected) match. It carries enough context for the caller to
// resolve the conflict manually.
type ConflictError struct {
	InvoiceID       string
	MovementID      string
	BlockingMatchID string
	BlockingStatus  MatchStatus
	Side            string // "invoice" or "movement"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already has an active match %s (status %s) for pair invoice=%s movement=%s",
		e.Side, e.BlockingMatchID, e.BlockingStatus, e.InvoiceID, e.MovementID)
}
