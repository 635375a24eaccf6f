// Package syncworker implements the Sync Worker (C10): a single
// long-lived cooperative task that drains the MissingStudent queue and
// the per-student offline attendance backlog whenever the remote is
// reachable (spec.md §4.10).
package syncworker

import (
	"context"
	"log/slog"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// Interval is the sleep between passes, whether the pass ran or was
// skipped for being offline (spec.md §4.10 steps 1, 7).
const Interval = 60 * time.Second

// Worker owns the single sync loop.
type Worker struct {
	store       port.LocalStore
	remote      port.RemoteClient
	probe       port.Probe
	broadcaster port.Broadcaster
	logger      *slog.Logger

	interval time.Duration
}

// New builds a Worker.
func New(store port.LocalStore, remote port.RemoteClient, probe port.Probe, broadcaster port.Broadcaster, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:       store,
		remote:      remote,
		probe:       probe,
		broadcaster: broadcaster,
		logger:      logger,
		interval:    Interval,
	}
}

// Run blocks, executing one pass per interval, until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}

// RunOnce executes a single pass: skips entirely if offline, otherwise
// syncs the MissingStudent queue, tidies up stragglers, and drains offline
// attendance (spec.md §4.10 steps 1-6). Exported so callers and tests can
// drive a single deterministic pass instead of the free-running loop.
func (w *Worker) RunOnce(ctx context.Context) {
	if !w.probe.IsOnline(ctx, 0) {
		return
	}

	w.syncMissingStudents(ctx)
	w.cleanupSyncedStragglers(ctx)
	w.drainOfflineAttendance(ctx)
}

func (w *Worker) syncMissingStudents(ctx context.Context) {
	rows, err := w.store.ListMissingStudents(ctx)
	if err != nil {
		w.logger.Error("failed to list missing students", slog.Any("error", err))
		return
	}

	for _, m := range rows {
		if !m.Eligible() {
			continue
		}
		w.syncOne(ctx, m)
	}
}

func (w *Worker) syncOne(ctx context.Context, m *student.MissingStudent) {
	now := time.Now()
	m.SyncStatus = student.SyncSyncing
	m.LastSyncAttempt = &now
	if err := w.store.SaveMissingStudent(ctx, m); err != nil {
		w.logger.Error("failed to mark missing student syncing", slog.Int("uid", m.UID), slog.Any("error", err))
		return
	}

	exists, err := w.remote.StudentExists(ctx, m.UID)
	if err == nil && exists {
		w.markSynced(ctx, m)
		return
	}
	if err != nil && !port.IsOfflineRoutable(err) {
		w.markFailed(ctx, m, err)
		return
	}

	createErr := w.remote.CreateStudent(ctx, "", m.RemotePayload())
	if createErr == nil {
		w.markSynced(ctx, m)
		return
	}
	w.markFailed(ctx, m, createErr)
}

func (w *Worker) markSynced(ctx context.Context, m *student.MissingStudent) {
	now := time.Now()
	m.SyncStatus = student.SyncSynced
	m.SyncedAt = &now
	m.SyncAttempts++
	if err := w.store.DeleteMissingStudent(ctx, m.UID); err != nil {
		w.logger.Warn("failed to delete synced missing student", slog.Int("uid", m.UID), slog.Any("error", err))
		_ = w.store.SaveMissingStudent(ctx, m)
		return
	}
	w.broadcaster.Broadcast(port.NewEvent(port.EventApproved, "student synced to remote"))
}

func (w *Worker) markFailed(ctx context.Context, m *student.MissingStudent, err error) {
	m.SyncStatus = student.SyncFailed
	m.SyncError = err.Error()
	m.SyncAttempts++
	if saveErr := w.store.SaveMissingStudent(ctx, m); saveErr != nil {
		w.logger.Error("failed to record missing student sync failure", slog.Int("uid", m.UID), slog.Any("error", saveErr))
	}
}

// cleanupSyncedStragglers removes any MissingStudent row left in the
// synced state by a crash between the status save and the row delete
// (spec.md §4.10 step 5).
func (w *Worker) cleanupSyncedStragglers(ctx context.Context) {
	rows, err := w.store.ListMissingStudents(ctx)
	if err != nil {
		return
	}
	for _, m := range rows {
		if m.SyncStatus == student.SyncSynced {
			if err := w.store.DeleteMissingStudent(ctx, m.UID); err != nil {
				w.logger.Warn("failed to clean up stuck synced row", slog.Int("uid", m.UID), slog.Any("error", err))
			}
		}
	}
}

// drainOfflineAttendance pushes every unsynced day{N}_offline entry to the
// remote, promoting it to day{N}=true on success, dropping it on a
// policy rejection, and leaving it for a later pass on transport failure
// (spec.md §4.10 step 6).
func (w *Worker) drainOfflineAttendance(ctx context.Context) {
	students, err := w.store.IterateStudentsWithOfflineAttendance(ctx)
	if err != nil {
		w.logger.Error("failed to list offline attendance backlog", slog.Any("error", err))
		return
	}

	for _, s := range students {
		dirty := false
		for _, key := range s.OfflineKeys() {
			entry := s.Attendance[key]
			err := w.remote.PostAttendance(ctx, s.UID, entry.Offline.Timestamp, false)
			switch {
			case err == nil:
				s.PromoteOffline(key)
				dirty = true
			case port.IsOfflineRoutable(err):
				// leave for the next pass
			default:
				s.DropOffline(key)
				dirty = true
			}
		}
		if dirty {
			if err := w.store.SaveStudent(ctx, s); err != nil {
				w.logger.Error("failed to save drained offline attendance", slog.Int("uid", s.UID), slog.Any("error", err))
			}
		}
	}
}
