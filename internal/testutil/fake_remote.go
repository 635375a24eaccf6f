package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// FakeRemoteClient is an in-memory port.RemoteClient driven by function
// fields; tests set only the hooks a scenario needs.
type FakeRemoteClient struct {
	mu sync.Mutex

	NextIDsFn               func(ctx context.Context, authToken string) (port.NextIDs, error)
	CreateStudentFn         func(ctx context.Context, authToken string, payload map[string]any) error
	StudentExistsFn         func(ctx context.Context, uid int) (bool, error)
	PostAttendanceFn        func(ctx context.Context, uid int, timestamp time.Time, assistantApproved bool) error
	StudentByStudentIDFn    func(ctx context.Context, authToken, studentID string) (map[string]any, error)
	ExamFn                  func(ctx context.Context, authToken, examID string) (map[string]any, error)
	PostExamResultsFn       func(ctx context.Context, authToken, examID string, results map[string]any) error
	PutExamStudentResultsFn func(ctx context.Context, authToken, examID, studentID string, results map[string]any) error

	CreatedPayloads []map[string]any
}

func NewFakeRemoteClient() *FakeRemoteClient {
	return &FakeRemoteClient{}
}

func (f *FakeRemoteClient) NextIDs(ctx context.Context, authToken string) (port.NextIDs, error) {
	if f.NextIDsFn != nil {
		return f.NextIDsFn(ctx, authToken)
	}
	return port.NextIDs{}, nil
}

func (f *FakeRemoteClient) CreateStudent(ctx context.Context, authToken string, payload map[string]any) error {
	f.mu.Lock()
	f.CreatedPayloads = append(f.CreatedPayloads, payload)
	f.mu.Unlock()
	if f.CreateStudentFn != nil {
		return f.CreateStudentFn(ctx, authToken, payload)
	}
	return nil
}

func (f *FakeRemoteClient) StudentExists(ctx context.Context, uid int) (bool, error) {
	if f.StudentExistsFn != nil {
		return f.StudentExistsFn(ctx, uid)
	}
	return false, nil
}

func (f *FakeRemoteClient) PostAttendance(ctx context.Context, uid int, timestamp time.Time, assistantApproved bool) error {
	if f.PostAttendanceFn != nil {
		return f.PostAttendanceFn(ctx, uid, timestamp, assistantApproved)
	}
	return nil
}

func (f *FakeRemoteClient) StudentByStudentID(ctx context.Context, authToken, studentID string) (map[string]any, error) {
	if f.StudentByStudentIDFn != nil {
		return f.StudentByStudentIDFn(ctx, authToken, studentID)
	}
	return nil, nil
}

func (f *FakeRemoteClient) Exam(ctx context.Context, authToken, examID string) (map[string]any, error) {
	if f.ExamFn != nil {
		return f.ExamFn(ctx, authToken, examID)
	}
	return nil, nil
}

func (f *FakeRemoteClient) PostExamResults(ctx context.Context, authToken, examID string, results map[string]any) error {
	if f.PostExamResultsFn != nil {
		return f.PostExamResultsFn(ctx, authToken, examID, results)
	}
	return nil
}

func (f *FakeRemoteClient) PutExamStudentResults(ctx context.Context, authToken, examID, studentID string, results map[string]any) error {
	if f.PutExamStudentResultsFn != nil {
		return f.PutExamStudentResultsFn(ctx, authToken, examID, studentID, results)
	}
	return nil
}

// FakeProbe is a port.Probe with a fixed answer.
type FakeProbe struct {
	Online bool
}

func (f *FakeProbe) IsOnline(_ context.Context, _ time.Duration) bool {
	return f.Online
}
