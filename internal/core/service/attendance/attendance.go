// Package attendance implements the Attendance Orchestrator (C8): the
// per-device capture loop that turns a raw fingerprint swipe into either a
// validated attendance record, an offline record queued for the sync
// worker, or an operator escalation (spec.md §4.8).
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/capturelog"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/decision"
)

// Orchestrator drives one capture loop per enabled device. A single
// Orchestrator instance is shared by every device's goroutine; all state
// it touches (store, remote, arbiter) is already safe for concurrent use.
type Orchestrator struct {
	store       port.LocalStore
	remote      port.RemoteClient
	probe       port.Probe
	broadcaster port.Broadcaster
	arbiter     *decision.Arbiter
	logger      *slog.Logger
}

// New builds an Orchestrator.
func New(store port.LocalStore, remote port.RemoteClient, probe port.Probe, broadcaster port.Broadcaster, arbiter *decision.Arbiter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:       store,
		remote:      remote,
		probe:       probe,
		broadcaster: broadcaster,
		arbiter:     arbiter,
		logger:      logger,
	}
}

// CaptureLoop is a devicepool.CaptureFunc: it consumes dev's infinite
// live_capture() stream until ctx is cancelled (clean stop) or the driver
// raises (propagated so the registry marks the device errored).
func (o *Orchestrator) CaptureLoop(ctx context.Context, dev *device.Device, handle port.Handle) error {
	events, errs := handle.LiveCapture(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err != nil {
				return err
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			o.handleCapture(ctx, dev, ev)
		}
	}
}

// handleCapture runs the per-event state machine of spec.md §4.8. Errors
// from the local store are logged but never abort the loop: one bad
// capture must not take the whole device offline.
func (o *Orchestrator) handleCapture(ctx context.Context, dev *device.Device, ev port.CaptureEvent) {
	now := time.Now()

	if err := o.store.InsertCaptureLog(ctx, capturelog.New(ev.UID, dev.DeviceID, now)); err != nil {
		o.logger.Warn("failed to append capture log", slog.Int("uid", ev.UID), slog.Any("error", err))
	}

	if !o.probe.IsOnline(ctx, 0) {
		o.recordOffline(ctx, dev, ev.UID, now)
		return
	}

	err := o.remote.PostAttendance(ctx, ev.UID, now, false)
	if err == nil {
		o.recordValidated(ctx, dev, ev.UID, now)
		return
	}

	var policyErr *port.RemotePolicyRejectError
	if errors.As(err, &policyErr) && policyErr.Kind == port.PolicySchedule {
		o.escalate(ctx, dev, ev.UID, now, policyErr.Body)
		return
	}
	if port.IsOfflineRoutable(err) {
		// A transport failure is not a rejection: the remote never saw the
		// event, so treat it exactly like the offline path and let the
		// sync worker retry (spec.md §4.8).
		o.recordOffline(ctx, dev, ev.UID, now)
		return
	}

	o.broadcaster.Broadcast(port.Event{
		Type:       port.EventRejected,
		StudentUID: ev.UID,
		DeviceID:   dev.DeviceID,
		Message:    fmt.Sprintf("attendance for student %d rejected: %v", ev.UID, err),
		Timestamp:  now,
	})
}

func (o *Orchestrator) recordValidated(ctx context.Context, dev *device.Device, uid int, now time.Time) {
	st, err := o.store.FindStudentByUID(ctx, uid)
	if err != nil || st == nil {
		o.logger.Warn("validated capture for unknown student", slog.Int("uid", uid), slog.Any("error", err))
		return
	}
	key := st.RecordValidated()
	if err := o.store.SaveStudent(ctx, st); err != nil {
		o.logger.Warn("failed to save validated attendance", slog.Int("uid", uid), slog.Any("error", err))
	}
	o.broadcaster.Broadcast(port.Event{
		Type:       port.EventApproved,
		StudentUID: uid,
		DeviceID:   dev.DeviceID,
		Message:    fmt.Sprintf("student %d approved (%s)", uid, key),
		Timestamp:  now,
	})
}

func (o *Orchestrator) recordOffline(ctx context.Context, dev *device.Device, uid int, now time.Time) {
	st, err := o.store.FindStudentByUID(ctx, uid)
	if err != nil || st == nil {
		o.logger.Warn("offline capture for unknown student", slog.Int("uid", uid), slog.Any("error", err))
		return
	}
	st.RecordOffline(student.OfflineAttendance{
		Status:         true,
		Timestamp:      now,
		Synced:         false,
		DeviceID:       dev.DeviceID,
		DeviceName:     dev.Name,
		DeviceLocation: dev.Location,
	})
	if err := o.store.SaveStudent(ctx, st); err != nil {
		o.logger.Warn("failed to save offline attendance", slog.Int("uid", uid), slog.Any("error", err))
	}
	o.broadcaster.Broadcast(port.Event{
		Type:       port.EventOfflineCapture,
		StudentUID: uid,
		DeviceID:   dev.DeviceID,
		Message:    fmt.Sprintf("student %d recorded offline, queued for sync", uid),
		Timestamp:  now,
	})
}

func (o *Orchestrator) escalate(ctx context.Context, dev *device.Device, uid int, now time.Time, reason string) {
	name := ""
	if st, err := o.store.FindStudentByUID(ctx, uid); err == nil && st != nil {
		name = st.FirstName + " " + st.LastName
	}
	o.arbiter.Create(uid, name, reason, dev.DeviceID, dev.Name, dev.Location, now)
}
