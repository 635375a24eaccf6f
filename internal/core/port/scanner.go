package port

import (
	"context"
	"errors"
	"time"
)

// ErrEnrollTimeout is returned by Handle.Enroll when no finger was placed
// within the device's capture window.
var ErrEnrollTimeout = errors.New("scanner: enroll timed out waiting for a finger")

// UserRecord mirrors a user record stored on a scanner.
type UserRecord struct {
	UID       int
	Name      string
	Privilege int
	Password  string
	GroupID   string
	UserID    string
}

// TemplateRecord is a fingerprint template retrieved from a scanner.
type TemplateRecord struct {
	FingerIndex int
	Raw         []byte
}

// CaptureEvent is a single fingerprint swipe, per the GLOSSARY.
type CaptureEvent struct {
	UID             int
	DeviceTimestamp time.Time
}

// Handle is a live connection to one scanner, produced by Scanner.Connect.
// Every operation in this package is called on a Handle; the driver itself
// (the Scanner implementation) must not retain process-wide state, per
// spec.md §4.1.
type Handle interface {
	// Disable/Enable bracket privileged work (enrollment, user-table edits).
	Disable(ctx context.Context) error
	Enable(ctx context.Context) error

	ListUsers(ctx context.Context) ([]UserRecord, error)
	DeleteUser(ctx context.Context, uid int) error
	SetUser(ctx context.Context, rec UserRecord) error

	// Enroll attempts the richer 3-arg form first (uid, fingerIndex, flag)
	// and falls back to the 2-arg form (uid, fingerIndex) on failure, per
	// spec.md §4.1. A timeout (no finger placed) is surfaced as
	// ErrEnrollTimeout.
	Enroll(ctx context.Context, uid, fingerIndex int) (TemplateRecord, error)

	GetUserTemplate(ctx context.Context, uid, fingerIndex int) (*TemplateRecord, error)

	// LiveCapture returns an infinite stream of capture events. The stream
	// suspends until the next swipe; closing ctx must stop it within one
	// event cycle (spec.md §4.1, §5).
	LiveCapture(ctx context.Context) (<-chan CaptureEvent, <-chan error)

	IdentifyUser(ctx context.Context) (*UserRecord, error)

	Close() error
}

// Scanner connects to a concrete device and returns a live Handle. A
// Scanner implementation is a variant over concrete scanner protocols
// (spec.md §4.1); initially there is one, ZK-over-TCP/IP.
type Scanner interface {
	Connect(ctx context.Context, ip string, port int, timeout time.Duration) (Handle, error)
}
