package port

import (
	"context"
	"time"
)

// DefaultRemoteTimeout is applied when a caller does not specify one,
// per spec.md §4.4.
const DefaultRemoteTimeout = 30 * time.Second

// NextIDs is the remote allocator's response shape.
type NextIDs struct {
	UID       int
	StudentID string
}

// RemoteClient is a typed façade over the remote backend's HTTP surface
// (spec.md §4.4, §6). It is stateless; callers provide authorization
// tokens when available.
type RemoteClient interface {
	// NextIDs requests (uid, student_id) from the remote allocator.
	// Authorized.
	NextIDs(ctx context.Context, authToken string) (NextIDs, error)

	// CreateStudent posts a full student payload. Authorized. A blacklist
	// rejection surfaces as *RemotePolicyRejectError with Kind
	// PolicyBlacklist.
	CreateStudent(ctx context.Context, authToken string, payload map[string]any) error

	// StudentExists reports whether GET /students/{uid} returns 200.
	StudentExists(ctx context.Context, uid int) (bool, error)

	// PostAttendance posts {uid, timestamp[, assistant_approved]}. A
	// schedule rejection surfaces as *RemotePolicyRejectError with Kind
	// PolicySchedule.
	PostAttendance(ctx context.Context, uid int, timestamp time.Time, assistantApproved bool) error

	// StudentByStudentID fetches a student record (including its remote
	// _id) by the human-facing student_id rather than the local uid.
	// Consumed by the exam-correction collaborator (spec.md §6).
	StudentByStudentID(ctx context.Context, authToken, studentID string) (map[string]any, error)

	// Exam, PostExamResults and PutExamStudentResults are thin passthrough
	// methods for the exam-correction collaborator named in spec.md §6; the
	// collaborator itself (bubble-sheet image analysis) is out of scope
	// (spec.md §1 Non-goals), but the edge still exposes the remote's
	// /internal/exams surface so that external component can be built
	// against this client.
	Exam(ctx context.Context, authToken, examID string) (map[string]any, error)
	PostExamResults(ctx context.Context, authToken, examID string, results map[string]any) error
	PutExamStudentResults(ctx context.Context, authToken, examID, studentID string, results map[string]any) error
}

// Probe is the connectivity check of spec.md §4.5: a single function,
// result never cached.
type Probe interface {
	IsOnline(ctx context.Context, timeout time.Duration) bool
}
