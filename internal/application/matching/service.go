// Package matching owns the match lifecycle: the auto-match batch run, manual
// match creation, and the proposed/confirmed/rejected state machine.
//
// The engine is stateless between invocations; settings are loaded once per
// run and passed through. Re-running auto-match is always safe: it only
// considers records still unmatched and never touches confirmed or rejected
// pairs.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conciliador/internal/domain/resolver"
	"conciliador/internal/domain/scorer"
	"conciliador/internal/domain/selector"
	"conciliador/internal/infrastructure/storage"
)

// Summary reports the outcome of one auto-match run.
type Summary struct {
	Matched          int `json:"matched"`
	AmbiguousSkipped int `json:"ambiguous_skipped"`
	Unmatched        int `json:"unmatched"`
}

// Service is the match lifecycle manager.
type Service struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewService creates a new matching service.
func NewService(repo storage.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// RunAutoMatch processes every currently-unmatched invoice in stable order
// (issue date ascending, then ID), proposing at most one match per invoice.
// A nil settings loads the persisted settings. Each invoice's decision is
// atomic and independent: cancelling mid-run leaves already-persisted
// results valid.
func (s *Service) RunAutoMatch(ctx context.Context, settings *storage.MatchSettings) (*Summary, error) {
	if settings == nil {
		loaded, err := s.repo.GetMatchSettings()
		if err != nil {
			return nil, fmt.Errorf("loading match settings: %w", err)
		}
		settings = loaded
	}

	sel := selector.NewSelector(s.repo, scorer.ConfigFromSettings(settings))
	res := resolver.NewResolver(settings.ConfidenceThreshold, settings.TieMargin)

	invoices, err := s.repo.ListUnmatchedInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing unmatched invoices: %w", err)
	}

	summary := &Summary{}
	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		candidates, err := sel.Candidates(inv)
		if err != nil {
			return summary, err
		}

		decision := res.Resolve(candidates)
		switch decision.Outcome {
		case resolver.OutcomeAccept:
			winner := decision.Winner
			result := &storage.MatchResult{
				ID:               uuid.NewString(),
				InvoiceID:        inv.ID,
				MovementID:       winner.Movement.ID,
				Confidence:       winner.Confidence,
				Method:           winner.Method(settings.MinTextSimilarity),
				DateDifference:   winner.DateDiff,
				AmountDifference: winner.AmountDiff,
				Status:           storage.MatchProposed,
			}
			if err := s.repo.CreateMatchResult(result); err != nil {
				// Another run may have claimed the movement between scoring
				// and persisting. Count the invoice as unmatched and move on.
				if _, ok := err.(*storage.ConflictError); ok {
					s.logger.Warn("movement claimed concurrently, skipping",
						"invoice_id", inv.ID, "movement_id", winner.Movement.ID)
					summary.Unmatched++
					continue
				}
				return summary, fmt.Errorf("persisting match for invoice %s: %w", inv.ID, err)
			}
			s.logger.Debug("proposed match",
				"invoice_id", inv.ID,
				"movement_id", winner.Movement.ID,
				"confidence", winner.Confidence,
				"method", result.Method)
			summary.Matched++
		case resolver.OutcomeAmbiguous:
			s.logger.Debug("ambiguous candidates, skipping", "invoice_id", inv.ID)
			summary.AmbiguousSkipped++
		default:
			summary.Unmatched++
		}
	}

	s.logger.Info("auto-match run complete",
		"matched", summary.Matched,
		"ambiguous_skipped", summary.AmbiguousSkipped,
		"unmatched", summary.Unmatched)
	return summary, nil
}

// Suggestions scores and ranks candidates for one invoice without creating
// anything. Used by the review UI to show why the engine would (or would
// not) propose a match.
func (s *Service) Suggestions(invoiceID string, limit int, settings *storage.MatchSettings) ([]scorer.MatchCandidate, error) {
	if settings == nil {
		loaded, err := s.repo.GetMatchSettings()
		if err != nil {
			return nil, fmt.Errorf("loading match settings: %w", err)
		}
		settings = loaded
	}

	inv, err := s.repo.GetInvoice(invoiceID)
	if err != nil {
		return nil, err
	}

	sel := selector.NewSelector(s.repo, scorer.ConfigFromSettings(settings))
	candidates, err := sel.Candidates(inv)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// CreateManualMatch pairs an invoice and a movement directly, bypassing the
// scorer. It fails with *storage.ConflictError when either record already
// has an active match; the caller must unmatch first.
func (s *Service) CreateManualMatch(invoiceID, movementID string) (*storage.MatchResult, error) {
	inv, err := s.repo.GetInvoice(invoiceID)
	if err != nil {
		return nil, err
	}
	mov, err := s.repo.GetMovement(movementID)
	if err != nil {
		return nil, err
	}

	result := &storage.MatchResult{
		ID:               uuid.NewString(),
		InvoiceID:        inv.ID,
		MovementID:       mov.ID,
		Confidence:       1.0,
		Method:           storage.MethodManual,
		DateDifference:   dayDiff(inv.IssueDate, mov.EffectiveDate()),
		AmountDifference: inv.TotalAmount.Abs().Sub(mov.Amount.Abs()).Abs(),
		Status:           storage.MatchProposed,
	}
	if err := s.repo.CreateMatchResult(result); err != nil {
		return nil, err
	}

	s.logger.Info("manual match created", "invoice_id", invoiceID, "movement_id", movementID)
	return result, nil
}

func dayDiff(a, b time.Time) int {
	diff := int(a.Sub(b).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// Confirm transitions a proposed match to confirmed and marks both records
// confirmed. Confirmed is terminal except for an explicit Unmatch.
func (s *Service) Confirm(matchID, by string) (*storage.MatchResult, error) {
	match, err := s.repo.GetMatchResult(matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != storage.MatchProposed {
		return nil, &InvalidTransitionError{MatchID: matchID, From: string(match.Status), To: string(storage.MatchConfirmed)}
	}

	now := time.Now().UTC()
	match.Status = storage.MatchConfirmed
	match.ConfirmedBy = by
	match.ConfirmedAt = &now
	if err := s.repo.UpdateMatchResult(match); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInvoiceStatus(match.InvoiceID, storage.RecordConfirmed); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMovementStatus(match.MovementID, storage.RecordConfirmed); err != nil {
		return nil, err
	}

	s.logger.Info("match confirmed", "match_id", matchID, "by", by)
	return match, nil
}

// Reject transitions a proposed match to rejected and reverts both records
// to unmatched, making them eligible for future runs. A rejected result is
// terminal: it is never resurrected, but it does not block a new proposal
// between the same records.
func (s *Service) Reject(matchID, by, reason string) (*storage.MatchResult, error) {
	match, err := s.repo.GetMatchResult(matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != storage.MatchProposed {
		return nil, &InvalidTransitionError{MatchID: matchID, From: string(match.Status), To: string(storage.MatchRejected)}
	}

	now := time.Now().UTC()
	match.Status = storage.MatchRejected
	match.RejectedBy = by
	match.RejectedAt = &now
	match.RejectionReason = reason
	if err := s.repo.UpdateMatchResult(match); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInvoiceStatus(match.InvoiceID, storage.RecordUnmatched); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMovementStatus(match.MovementID, storage.RecordUnmatched); err != nil {
		return nil, err
	}

	s.logger.Info("match rejected", "match_id", matchID, "by", by)
	return match, nil
}

// Unmatch is the administrative override: it deletes a proposed or
// confirmed match and reverts both records to unmatched.
func (s *Service) Unmatch(matchID string) error {
	match, err := s.repo.GetMatchResult(matchID)
	if err != nil {
		return err
	}
	if match.Status == storage.MatchRejected {
		return &InvalidTransitionError{MatchID: matchID, From: string(match.Status), To: "unmatched"}
	}

	if err := s.repo.DeleteMatchResult(matchID); err != nil {
		return err
	}
	if err := s.repo.UpdateInvoiceStatus(match.InvoiceID, storage.RecordUnmatched); err != nil {
		return err
	}
	if err := s.repo.UpdateMovementStatus(match.MovementID, storage.RecordUnmatched); err != nil {
		return err
	}

	s.logger.Info("match removed", "match_id", matchID)
	return nil
}
