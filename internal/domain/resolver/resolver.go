// Package resolver decides, per invoice record, whether the top candidate
// is accepted. Two candidates above the threshold whose confidences sit
// within the tie margin are indistinguishable; the resolver skips rather
// than guesses.
package resolver

import "conciliador/internal/domain/scorer"

// Outcome is the resolver's decision for one invoice.
type Outcome int

const (
	// OutcomeNoMatch means no candidate met the confidence threshold.
	OutcomeNoMatch Outcome = iota
	// OutcomeAccept means exactly one winner was selected.
	OutcomeAccept
	// OutcomeAmbiguous means two or more candidates were effectively tied.
	OutcomeAmbiguous
)

// Decision carries the outcome and, for OutcomeAccept, the winner.
type Decision struct {
	Outcome Outcome
	Winner  *scorer.MatchCandidate
}

// Resolver applies the threshold and tie-margin policy.
type Resolver struct {
	threshold float64
	tieMargin float64
}

// NewResolver creates a resolver. threshold is the minimum confidence in
// [0,1]; tieMargin is the maximum confidence gap at which two qualifying
// candidates are treated as tied.
func NewResolver(threshold, tieMargin float64) *Resolver {
	return &Resolver{threshold: threshold, tieMargin: tieMargin}
}

// Resolve expects candidates already ordered by confidence descending with
// a stable tie-break (the selector's contract). It is deterministic: the
// same input always yields the same decision.
func (r *Resolver) Resolve(candidates []scorer.MatchCandidate) Decision {
	qualifying := 0
	for _, c := range candidates {
		if c.Confidence >= r.threshold {
			qualifying++
		} else {
			break
		}
	}

	if qualifying == 0 {
		return Decision{Outcome: OutcomeNoMatch}
	}

	if qualifying >= 2 {
		gap := candidates[0].Confidence - candidates[1].Confidence
		if gap <= r.tieMargin {
			return Decision{Outcome: OutcomeAmbiguous}
		}
	}

	return Decision{Outcome: OutcomeAccept, Winner: &candidates[0]}
}
