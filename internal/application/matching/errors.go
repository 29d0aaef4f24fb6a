package matching

import "fmt"

// InvalidTransitionError reports a disallowed match lifecycle transition,
// e.g. rejecting an already-confirmed match.
type InvalidTransitionError struct {
	MatchID string
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("match %s: cannot transition from %s to %s", e.MatchID, e.From, e.To)
}
