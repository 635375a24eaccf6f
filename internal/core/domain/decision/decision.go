// Package decision holds the in-memory PendingDecision record that bridges
// a remote policy rejection and an operator's verdict (spec.md §3, §4.9).
package decision

import (
	"fmt"
	"time"
)

// Verdict is the operator's response to a pending decision.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
)

// PendingDecision exists only between a policy rejection and the
// operator's verdict; it is never recovered after a process restart (I6).
type PendingDecision struct {
	ID             string    `json:"id"`
	StudentUID     int       `json:"student_uid"`
	StudentName    string    `json:"student_name"`
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason"`
	DeviceID       string    `json:"device_id"`
	DeviceName     string    `json:"device_name"`
	DeviceLocation string    `json:"device_location"`
}

// NewID builds the "{uid}_{unix_seconds}" decision id spec.md §3 mandates.
func NewID(uid int, now time.Time) string {
	return fmt.Sprintf("%d_%d", uid, now.Unix())
}
