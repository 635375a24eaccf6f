package port

import "fmt"

// RemoteNetworkError and RemoteTimeoutError are never fatal to the capture
// or registration paths: callers convert them to offline routing
// (spec.md §4.4, §7).
type RemoteNetworkError struct {
	Op  string
	Err error
}

func (e *RemoteNetworkError) Error() string {
	return fmt.Sprintf("remote network error in %s: %v", e.Op, e.Err)
}

func (e *RemoteNetworkError) Unwrap() error { return e.Err }

// RemoteTimeoutError marks a call that exceeded its deadline.
type RemoteTimeoutError struct {
	Op string
}

func (e *RemoteTimeoutError) Error() string {
	return fmt.Sprintf("remote call timed out in %s", e.Op)
}

// RemoteServerError is any non-2xx response that isn't a recognized policy
// rejection. It is operator-visible; attendance events are not auto-retried
// (spec.md §7).
type RemoteServerError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteServerError) Error() string {
	return fmt.Sprintf("remote server error in %s: status=%d body=%s", e.Op, e.Status, e.Body)
}

// RemoteBadResponseError marks a 2xx response this client could not parse.
type RemoteBadResponseError struct {
	Op  string
	Err error
}

func (e *RemoteBadResponseError) Error() string {
	return fmt.Sprintf("bad response in %s: %v", e.Op, e.Err)
}

func (e *RemoteBadResponseError) Unwrap() error { return e.Err }

// RemotePolicyRejectKind distinguishes the two policy-rejection shapes the
// remote can return (spec.md §6, §7).
type RemotePolicyRejectKind string

const (
	PolicyBlacklist RemotePolicyRejectKind = "blacklist"
	PolicySchedule  RemotePolicyRejectKind = "schedule"
)

// RemotePolicyRejectError wraps a 4xx whose body names a recognized
// policy constraint: "blacklist" on student creation, or a schedule/group
// constraint ("not allowed on" / "Group schedule") on attendance.
type RemotePolicyRejectError struct {
	Kind RemotePolicyRejectKind
	Body string
}

func (e *RemotePolicyRejectError) Error() string {
	return fmt.Sprintf("remote policy rejection (%s): %s", e.Kind, e.Body)
}

// IsOfflineRoutable reports whether err should route the caller to the
// offline path rather than surface as a hard failure (spec.md §4.4: network
// unavailability and timeouts are never treated as remote failures).
func IsOfflineRoutable(err error) bool {
	switch err.(type) {
	case *RemoteNetworkError, *RemoteTimeoutError:
		return true
	}
	return false
}
