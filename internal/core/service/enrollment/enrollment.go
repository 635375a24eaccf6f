// Package enrollment implements the Enrollment Orchestrator (C7): the
// single entry point that allocates an id, captures a fingerprint across
// the device pool, and persists the result online or offline depending on
// remote reachability (spec.md §4.7).
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/allocator"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/devicepool"
)

// DefaultConnectTimeout bounds each per-device connect attempt during
// enrollment, matching the capture timeout family of spec.md §4.2.
const DefaultConnectTimeout = 10 * time.Second

// Request carries operator-supplied student fields. AuthToken is the
// bearer credential forwarded to the remote backend when online.
type Request struct {
	FirstName string
	LastName  string
	Phone     string
	Level     string
	AuthToken string
}

// Result is the outcome of a successful Register call.
type Result struct {
	Student *student.Student
	Offline bool
}

// Orchestrator wires the allocator, device pool, remote client, and local
// store into the registration algorithm of spec.md §4.7.
type Orchestrator struct {
	store       port.LocalStore
	allocator   *allocator.Allocator
	devices     *devicepool.Registry
	remote      port.RemoteClient
	probe       port.Probe
	broadcaster port.Broadcaster
	logger      *slog.Logger

	connectTimeout time.Duration
}

// New builds an Orchestrator. logger defaults to slog.Default() if nil.
func New(store port.LocalStore, alloc *allocator.Allocator, devices *devicepool.Registry, remote port.RemoteClient, probe port.Probe, broadcaster port.Broadcaster, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:          store,
		allocator:      alloc,
		devices:        devices,
		remote:         remote,
		probe:          probe,
		broadcaster:    broadcaster,
		logger:         logger,
		connectTimeout: DefaultConnectTimeout,
	}
}

// Register runs the full id-acquisition / fingerprint-capture / persistence
// algorithm, per spec.md §4.7:
//
//  1. probe connectivity;
//  2. online: ask the remote allocator for (uid, student_id) and sync the
//     local counter to match; on a transport failure, degrade to offline
//     id acquisition instead. offline: peek the local counter (no
//     increment yet — the anti-hole discipline of I1/I2);
//  3. enroll a fingerprint across the device pool; abort without
//     incrementing the counter if every device fails;
//  4. online: POST the full student to the remote backend; a blacklist
//     rejection triggers a best-effort device cleanup and is surfaced as
//     an error; a transport failure degrades to the offline persistence
//     path below; on success, increment the counter and persist the
//     Student row only;
//  5. offline (either originally offline, or degraded from step 4):
//     increment the counter and persist both the Student row and its
//     MissingStudent sync mirror.
func (o *Orchestrator) Register(ctx context.Context, req Request) (*Result, error) {
	online := o.probe.IsOnline(ctx, 0)

	var uid int
	var studentID string

	if online {
		ids, err := o.remote.NextIDs(ctx, req.AuthToken)
		switch {
		case err == nil:
			uid = ids.UID
			studentID = ids.StudentID
			if err := o.allocator.Sync(ctx, uid-1); err != nil {
				return nil, err
			}
		case port.IsOfflineRoutable(err):
			online = false
		default:
			return nil, err
		}
	}

	if !online {
		peeked, err := o.allocator.Peek(ctx)
		if err != nil {
			return nil, err
		}
		uid = peeked
		studentID = student.StudentIDFromUID(uid)
	}

	template, err := o.enrollFingerprint(ctx, uid)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	st := &student.Student{
		UID:                 uid,
		StudentID:           studentID,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Phone:               req.Phone,
		Level:               req.Level,
		FingerprintTemplate: student.NewTemplateBase64(template.Raw),
		CreatedAt:           now,
	}

	if online {
		result, degrade, err := o.persistOnline(ctx, req, st)
		if !degrade {
			return result, err
		}
	}

	return o.persistOffline(ctx, st, now)
}

// persistOnline posts st to the remote backend. degrade is true when a
// transport failure means the caller should fall through to
// persistOffline instead of treating this as a terminal error.
func (o *Orchestrator) persistOnline(ctx context.Context, req Request, st *student.Student) (result *Result, degrade bool, err error) {
	payload := map[string]any{
		"uid":                  st.UID,
		"student_id":           st.StudentID,
		"first_name":           st.FirstName,
		"last_name":            st.LastName,
		"phone":                st.Phone,
		"level":                st.Level,
		"fingerprint_template": st.FingerprintTemplate,
		"is_subscription":      true,
	}

	createErr := o.remote.CreateStudent(ctx, req.AuthToken, payload)
	if createErr == nil {
		if _, err := o.allocator.Increment(ctx); err != nil {
			return nil, false, &ErrPersistFailed{UID: st.UID, Err: err}
		}
		if err := o.store.InsertStudent(ctx, st); err != nil {
			o.logger.Warn("failed to save student locally after remote create",
				slog.Int("uid", st.UID), slog.Any("error", err))
		}
		o.broadcaster.Broadcast(port.NewEvent(port.EventCapture, fmt.Sprintf("student %d enrolled online", st.UID)))
		return &Result{Student: st, Offline: false}, false, nil
	}

	var policyErr *port.RemotePolicyRejectError
	if errors.As(createErr, &policyErr) && policyErr.Kind == port.PolicyBlacklist {
		o.cleanupDevices(ctx, st.UID)
		return nil, false, createErr
	}
	if !port.IsOfflineRoutable(createErr) {
		return nil, false, &ErrPersistFailed{UID: st.UID, Err: createErr}
	}
	return nil, true, nil
}

func (o *Orchestrator) persistOffline(ctx context.Context, st *student.Student, now time.Time) (*Result, error) {
	if _, err := o.allocator.Increment(ctx); err != nil {
		return nil, &ErrPersistFailed{UID: st.UID, Err: err}
	}
	if err := o.store.InsertStudent(ctx, st); err != nil {
		return nil, &ErrPersistFailed{UID: st.UID, Err: err}
	}
	missing := student.FromStudent(st, now)
	if err := o.store.InsertMissingStudent(ctx, missing); err != nil {
		return nil, &ErrPersistFailed{UID: st.UID, Err: err}
	}
	o.broadcaster.Broadcast(port.NewEvent(port.EventOfflineCapture, fmt.Sprintf("student %d enrolled offline, queued for sync", st.UID)))
	return &Result{Student: st, Offline: true}, nil
}

// enrollFingerprint tries every enabled device in registry order. A
// duplicate-uid failure triggers a delete-then-retry once before moving on
// to the next device; this single loop also serves as the legacy
// single-device fallback when the device table holds exactly one entry
// (spec.md §4.1, §4.7).
func (o *Orchestrator) enrollFingerprint(ctx context.Context, uid int) (port.TemplateRecord, error) {
	causes := map[string]error{}

	for _, d := range o.devices.Enabled() {
		handle, err := o.devices.ConnectForOp(ctx, d.DeviceID, "enrollment", o.connectTimeout)
		if err != nil {
			causes[d.DeviceID] = err
			continue
		}

		rec, enrollErr := handle.Enroll(ctx, uid, 0)
		if enrollErr != nil && isDuplicateUserError(enrollErr) {
			_ = handle.DeleteUser(ctx, uid)
			rec, enrollErr = handle.Enroll(ctx, uid, 0)
		}
		o.devices.ReleaseOp(d.DeviceID, handle)

		if enrollErr == nil {
			return rec, nil
		}
		causes[d.DeviceID] = enrollErr
	}

	return port.TemplateRecord{}, &ErrEnrollFailed{UID: uid, Causes: causes}
}

// cleanupDevices best-effort deletes uid from every enabled device, used
// after a blacklist rejection (spec.md §4.7). Failures are logged, never
// surfaced: the caller already has the policy-reject error to return.
func (o *Orchestrator) cleanupDevices(ctx context.Context, uid int) {
	for _, d := range o.devices.Enabled() {
		handle, err := o.devices.ConnectForOp(ctx, d.DeviceID, "enrollment", o.connectTimeout)
		if err != nil {
			continue
		}
		if err := handle.DeleteUser(ctx, uid); err != nil {
			o.logger.Warn("failed to delete user from device during blacklist cleanup",
				slog.String("device_id", d.DeviceID), slog.Int("uid", uid), slog.Any("error", err))
		}
		o.devices.ReleaseOp(d.DeviceID, handle)
	}
}

func isDuplicateUserError(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "user with uid")
}
