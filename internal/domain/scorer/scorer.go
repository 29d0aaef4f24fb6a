// Package scorer computes a composite confidence score for one
// (invoice, movement) pair.
//
// Amount is a hard gate: a pair whose absolute amounts differ by more than
// the tolerance is ineligible no matter how well date and text agree. Date
// and text contribute weighted sub-scores on top of the amount base:
//
//	confidence = 0.5 + 0.3*dateScore + 0.2*textScore
//
// Text only counts when its similarity reaches the configured floor; a pair
// failing the floor therefore tops out at 0.8. The weights follow the
// original 40/30/30 amount/date/text ordering, renormalized so an
// exact-amount, same-day, exact-text pair scores exactly 1.0.
package scorer

import (
	"github.com/shopspring/decimal"

	"conciliador/internal/domain/normalize"
	"conciliador/internal/infrastructure/storage"
)

// Weights of the three signals. Amount gates eligibility and contributes a
// fixed base; date outweighs text because amount+date is the primary
// discriminator and text is corroborating.
const (
	amountWeight = 0.5
	dateWeight   = 0.3
	textWeight   = 0.2
)

// Config holds scorer tolerances.
type Config struct {
	MaxDateDiffDays   int             // eligibility window, default 30
	AmountTolerance   decimal.Decimal // absolute, default 0.01
	MinTextSimilarity float64         // floor below which text does not count, default 0.8
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxDateDiffDays:   30,
		AmountTolerance:   decimal.New(1, -2),
		MinTextSimilarity: 0.80,
	}
}

// ConfigFromSettings builds a scorer config from persisted match settings.
func ConfigFromSettings(s *storage.MatchSettings) Config {
	return Config{
		MaxDateDiffDays:   s.MaxDateDiffDays,
		AmountTolerance:   s.AmountTolerance,
		MinTextSimilarity: s.MinTextSimilarity,
	}
}

// MatchCandidate is an ephemeral scored pairing. It is never persisted;
// accepted candidates become MatchResults.
type MatchCandidate struct {
	Invoice    *storage.InvoiceRecord
	Movement   *storage.BankMovement
	DateScore  float64
	TextScore  float64
	Confidence float64
	DateDiff   int
	AmountDiff decimal.Decimal
}

// Method classifies the candidate: exact when amount and date agree
// perfectly and text clears the floor, fuzzy otherwise.
func (c *MatchCandidate) Method(minTextSimilarity float64) storage.MatchMethod {
	if c.AmountDiff.IsZero() && c.DateDiff == 0 && c.TextScore >= minTextSimilarity {
		return storage.MethodExact
	}
	return storage.MethodFuzzy
}

// Scorer scores invoice/movement pairs.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given config.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Score evaluates one pair. The second return value is false when the pair
// is ineligible (amount beyond tolerance or date outside the window) —
// a normal outcome, not an error.
func (s *Scorer) Score(inv *storage.InvoiceRecord, mov *storage.BankMovement) (*MatchCandidate, bool) {
	invAmount := normalize.Amount(inv.TotalAmount).Abs()
	movAmount := normalize.Amount(mov.Amount).Abs()
	amountDiff := invAmount.Sub(movAmount).Abs()
	if amountDiff.GreaterThan(s.config.AmountTolerance) {
		return nil, false
	}

	dayDiff := normalize.DayDiff(inv.IssueDate, mov.EffectiveDate())
	if dayDiff > s.config.MaxDateDiffDays {
		return nil, false
	}
	dateScore := 1 - float64(dayDiff)/float64(s.config.MaxDateDiffDays)
	if dateScore < 0 {
		dateScore = 0
	}

	textScore := TokenSetRatio(inv.SupplierName, mov.Description)

	confidence := amountWeight + dateWeight*dateScore
	if textScore >= s.config.MinTextSimilarity {
		confidence += textWeight * textScore
	}

	return &MatchCandidate{
		Invoice:    inv,
		Movement:   mov,
		DateScore:  dateScore,
		TextScore:  textScore,
		Confidence: confidence,
		DateDiff:   dayDiff,
		AmountDiff: amountDiff,
	}, true
}
