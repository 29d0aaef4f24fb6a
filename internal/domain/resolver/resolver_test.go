package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conciliador/internal/domain/scorer"
	"conciliador/internal/infrastructure/storage"
)

func candidates(confidences ...float64) []scorer.MatchCandidate {
	out := make([]scorer.MatchCandidate, len(confidences))
	for i, conf := range confidences {
		out[i] = scorer.MatchCandidate{
			Movement:   &storage.BankMovement{ID: string(rune('a' + i))},
			Confidence: conf,
		}
	}
	return out
}

func TestResolve_Empty(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	d := r.Resolve(nil)
	assert.Equal(t, OutcomeNoMatch, d.Outcome)
	assert.Nil(t, d.Winner)
}

func TestResolve_BelowThreshold(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	d := r.Resolve(candidates(0.65, 0.60))
	assert.Equal(t, OutcomeNoMatch, d.Outcome)
}

func TestResolve_SingleWinner(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	d := r.Resolve(candidates(0.85))
	require.Equal(t, OutcomeAccept, d.Outcome)
	assert.Equal(t, 0.85, d.Winner.Confidence)
}

func TestResolve_ClearGapAcceptsTop(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	d := r.Resolve(candidates(0.95, 0.75, 0.72))
	require.Equal(t, OutcomeAccept, d.Outcome)
	assert.Equal(t, "a", d.Winner.Movement.ID)
}

func TestResolve_TieWithinMargin(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	d := r.Resolve(candidates(0.91, 0.90))
	assert.Equal(t, OutcomeAmbiguous, d.Outcome)
	assert.Nil(t, d.Winner)
}

func TestResolve_ExactTie(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	d := r.Resolve(candidates(0.88, 0.88))
	assert.Equal(t, OutcomeAmbiguous, d.Outcome)
}

func TestResolve_RunnerUpBelowThresholdIsNotATie(t *testing.T) {
	// only qualifying candidates can tie; a close runner-up under the
	// threshold does not block the winner
	r := NewResolver(0.70, 0.05)
	d := r.Resolve(candidates(0.71, 0.69))
	require.Equal(t, OutcomeAccept, d.Outcome)
	assert.Equal(t, "a", d.Winner.Movement.ID)
}

func TestResolve_ThresholdInclusive(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	d := r.Resolve(candidates(0.70))
	assert.Equal(t, OutcomeAccept, d.Outcome)
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewResolver(0.70, 0.01)
	in := candidates(0.95, 0.80)
	first := r.Resolve(in)
	for range 10 {
		assert.Equal(t, first, r.Resolve(in))
	}
}
