// Package selector enumerates and ranks candidate movements for one
// unmatched invoice record.
package selector

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"conciliador/internal/domain/scorer"
	"conciliador/internal/infrastructure/storage"
)

// MovementSource is the slice of storage the selector needs: a windowed
// pre-filter over unmatched movements.
type MovementSource interface {
	ListCandidateMovements(inv *storage.InvoiceRecord, maxDays int, amountTol decimal.Decimal) ([]*storage.BankMovement, error)
}

// Selector retrieves eligible movements and scores them.
type Selector struct {
	source MovementSource
	scorer *scorer.Scorer
	config scorer.Config
}

// NewSelector creates a selector backed by the given movement source.
func NewSelector(source MovementSource, config scorer.Config) *Selector {
	return &Selector{
		source: source,
		scorer: scorer.NewScorer(config),
		config: config,
	}
}

// Candidates returns all eligible candidates for the invoice, ordered by
// confidence descending with movement ID as the tie-break. The storage
// pre-filter trims the search space; the scorer re-checks every tolerance,
// so a loose pre-filter can never admit an ineligible pair.
func (s *Selector) Candidates(inv *storage.InvoiceRecord) ([]scorer.MatchCandidate, error) {
	movements, err := s.source.ListCandidateMovements(inv, s.config.MaxDateDiffDays, s.config.AmountTolerance)
	if err != nil {
		return nil, fmt.Errorf("listing candidate movements for invoice %s: %w", inv.ID, err)
	}

	candidates := make([]scorer.MatchCandidate, 0, len(movements))
	for _, mov := range movements {
		if c, ok := s.scorer.Score(inv, mov); ok {
			candidates = append(candidates, *c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Movement.ID < candidates[j].Movement.ID
	})

	return candidates, nil
}
