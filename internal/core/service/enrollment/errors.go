package enrollment

import "fmt"

// ErrEnrollFailed is returned when every enabled device failed to enroll a
// fingerprint for a freshly-allocated uid. The counter is left untouched:
// nothing was ever persisted under that id (spec.md §4.6, I2).
type ErrEnrollFailed struct {
	UID    int
	Causes map[string]error
}

func (e *ErrEnrollFailed) Error() string {
	return fmt.Sprintf("enrollment: could not enroll fingerprint for uid %d on any device (%d attempted)", e.UID, len(e.Causes))
}

// ErrPersistFailed wraps a hard (non-network) remote or local-store failure
// encountered after a fingerprint was already captured on a device. The
// orchestrator does not attempt to tidy up devices in this case, mirroring
// the original system raising a 500 without a cleanup pass.
type ErrPersistFailed struct {
	UID int
	Err error
}

func (e *ErrPersistFailed) Error() string {
	return fmt.Sprintf("enrollment: failed to persist student %d: %v", e.UID, e.Err)
}

func (e *ErrPersistFailed) Unwrap() error { return e.Err }
