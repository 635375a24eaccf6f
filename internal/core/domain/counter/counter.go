// Package counter holds the named monotonic integer used for identifier
// allocation (spec.md §3, §4.6).
package counter

// MaxUID bounds the allocatable identifier space.
const MaxUID = 60000

// StudentSequenceName is the single authoritative counter for local-side
// allocation.
const StudentSequenceName = "student_sequence"

// DefaultStartValue is used the first time the counter row is created.
const DefaultStartValue = 10018

// Counter is a named monotonic integer.
type Counter struct {
	ID    any    `bson:"_id,omitempty" json:"id,omitempty"`
	Name  string `bson:"name" json:"name"`
	Value int    `bson:"value" json:"value"`
}

// Exhausted reports whether the counter has reached the domain ceiling.
func (c *Counter) Exhausted() bool {
	return c.Value >= MaxUID
}
