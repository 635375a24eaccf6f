package port

import (
	"context"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/capturelog"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/counter"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
)

// LocalStore is the narrow ownership boundary over the local document
// database (spec.md §4.3). Every operation is single-document atomic; the
// core never relies on multi-document transactions.
type LocalStore interface {
	// Students
	InsertStudent(ctx context.Context, s *student.Student) error
	FindStudentByUID(ctx context.Context, uid int) (*student.Student, error)
	SaveStudent(ctx context.Context, s *student.Student) error
	DeleteStudent(ctx context.Context, uid int) error
	ListStudents(ctx context.Context, skip, limit int) ([]*student.Student, error)
	// IterateStudentsWithOfflineAttendance yields every student carrying at
	// least one unsynced day{N}_offline entry (used by the sync worker).
	IterateStudentsWithOfflineAttendance(ctx context.Context) ([]*student.Student, error)

	// Missing students (deferred registration queue)
	InsertMissingStudent(ctx context.Context, m *student.MissingStudent) error
	FindMissingStudentByUID(ctx context.Context, uid int) (*student.MissingStudent, error)
	SaveMissingStudent(ctx context.Context, m *student.MissingStudent) error
	DeleteMissingStudent(ctx context.Context, uid int) error
	ListMissingStudents(ctx context.Context) ([]*student.MissingStudent, error)

	// Counter
	FindCounter(ctx context.Context, name string) (*counter.Counter, error)
	SaveCounter(ctx context.Context, c *counter.Counter) error

	// Capture log (audit)
	InsertCaptureLog(ctx context.Context, c *capturelog.CaptureLog) error
}
