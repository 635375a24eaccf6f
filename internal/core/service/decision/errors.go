package decision

import "fmt"

// ErrDecisionNotFound is returned by Resolve when decisionID names no
// pending decision (spec.md §4.9).
type ErrDecisionNotFound struct {
	DecisionID string
}

func (e *ErrDecisionNotFound) Error() string {
	return fmt.Sprintf("decision: no pending decision %q", e.DecisionID)
}
