// Package capturelog holds the append-only audit record of every raw
// capture event, written regardless of downstream outcome (spec.md §3).
package capturelog

import "time"

// CaptureLog is immutable once written. It is persisted in the
// fingerprint_sessions collection (see SPEC_FULL.md §10).
type CaptureLog struct {
	ID          any       `bson:"_id,omitempty" json:"id,omitempty"`
	StudentUID  int       `bson:"student_uid" json:"student_uid"`
	DeviceID    string    `bson:"device_id" json:"device_id"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// New builds a CaptureLog row for a swipe observed at ts.
func New(studentUID int, deviceID string, ts time.Time) *CaptureLog {
	return &CaptureLog{StudentUID: studentUID, DeviceID: deviceID, Timestamp: ts}
}
