package dto

import (
	"github.com/shopspring/decimal"

	"conciliador/internal/domain/scorer"
)

// SuggestionResponse is one ranked candidate for the suggestions endpoint.
type SuggestionResponse struct {
	MovementID   string          `json:"movement_id"`
	MovementDate string          `json:"movement_date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Confidence   float64         `json:"confidence"`
	DateScore    float64         `json:"date_score"`
	TextScore    float64         `json:"text_score"`
	DateDiff     int             `json:"date_difference"`
	AmountDiff   decimal.Decimal `json:"amount_difference"`
}

// ToSuggestionResponse converts a scored candidate for API output.
func ToSuggestionResponse(c scorer.MatchCandidate) SuggestionResponse {
	return SuggestionResponse{
		MovementID:   c.Movement.ID,
		MovementDate: c.Movement.MovementDate.Format("2006-01-02"),
		Description:  c.Movement.Description,
		Amount:       c.Movement.Amount,
		Confidence:   c.Confidence,
		DateScore:    c.DateScore,
		TextScore:    c.TextScore,
		DateDiff:     c.DateDiff,
		AmountDiff:   c.AmountDiff,
	}
}

// ListResponse wraps paginated collections.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
