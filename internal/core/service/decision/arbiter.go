// Package decision implements the Decision Arbiter (C9): the in-memory
// bridge between a remote policy rejection surfaced by the Attendance
// Orchestrator and an operator's approve/reject verdict (spec.md §4.9).
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	decisiondomain "github.com/moto-nrw/fingerprint-edge/internal/core/domain/decision"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// Arbiter owns the decision_id -> PendingDecision map. It never survives a
// restart (I6): the map is purely in-memory.
type Arbiter struct {
	mu      sync.Mutex
	pending map[string]*decisiondomain.PendingDecision

	store       port.LocalStore
	remote      port.RemoteClient
	broadcaster port.Broadcaster
	logger      *slog.Logger
}

// New builds an empty Arbiter.
func New(store port.LocalStore, remote port.RemoteClient, broadcaster port.Broadcaster, logger *slog.Logger) *Arbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{
		pending:     map[string]*decisiondomain.PendingDecision{},
		store:       store,
		remote:      remote,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Create records a new pending decision after a policy rejection and
// broadcasts the decision_request envelope (spec.md §4.8, §4.9).
func (a *Arbiter) Create(studentUID int, studentName, reason, deviceID, deviceName, deviceLocation string, now time.Time) *decisiondomain.PendingDecision {
	pd := &decisiondomain.PendingDecision{
		ID:             decisiondomain.NewID(studentUID, now),
		StudentUID:     studentUID,
		StudentName:    studentName,
		Timestamp:      now,
		Reason:         reason,
		DeviceID:       deviceID,
		DeviceName:     deviceName,
		DeviceLocation: deviceLocation,
	}

	a.mu.Lock()
	a.pending[pd.ID] = pd
	a.mu.Unlock()

	a.broadcaster.Broadcast(port.Event{
		Type:       port.EventDecisionRequest,
		StudentUID: studentUID,
		DecisionID: pd.ID,
		DeviceID:   deviceID,
		Message:    fmt.Sprintf("attendance for student %d needs operator approval: %s", studentUID, reason),
		Timestamp:  now,
	})

	return pd
}

// List returns every pending decision, for the operator-facing handler.
func (a *Arbiter) List() []*decisiondomain.PendingDecision {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*decisiondomain.PendingDecision, 0, len(a.pending))
	for _, pd := range a.pending {
		out = append(out, pd)
	}
	return out
}

// Resolve applies an operator verdict to decisionID, per spec.md §4.9.
// Approve appends a validated attendance entry locally and re-submits the
// event to the remote with assistant_approved=true, bypassing its
// schedule validation. Reject discards the pending decision without
// persisting anything. The entry is removed from the map either way.
func (a *Arbiter) Resolve(ctx context.Context, decisionID string, verdict decisiondomain.Verdict) error {
	a.mu.Lock()
	pd, ok := a.pending[decisionID]
	if ok {
		delete(a.pending, decisionID)
	}
	a.mu.Unlock()

	if !ok {
		return &ErrDecisionNotFound{DecisionID: decisionID}
	}

	if verdict == decisiondomain.VerdictReject {
		a.broadcaster.Broadcast(port.Event{
			Type:       port.EventAssistantRejected,
			StudentUID: pd.StudentUID,
			DecisionID: pd.ID,
			DeviceID:   pd.DeviceID,
			Message:    fmt.Sprintf("operator rejected attendance for student %d", pd.StudentUID),
			Timestamp:  time.Now(),
		})
		return nil
	}

	st, err := a.store.FindStudentByUID(ctx, pd.StudentUID)
	if err != nil {
		return err
	}
	if st != nil {
		st.RecordValidated()
		if err := a.store.SaveStudent(ctx, st); err != nil {
			return err
		}
	}

	if err := a.remote.PostAttendance(ctx, pd.StudentUID, pd.Timestamp, true); err != nil {
		a.logger.Warn("assistant-approved attendance rejected by remote after local commit",
			slog.Int("student_uid", pd.StudentUID), slog.Any("error", err))
	}

	a.broadcaster.Broadcast(port.Event{
		Type:       port.EventAssistantApproved,
		StudentUID: pd.StudentUID,
		DecisionID: pd.ID,
		DeviceID:   pd.DeviceID,
		Message:    fmt.Sprintf("operator approved attendance for student %d", pd.StudentUID),
		Timestamp:  time.Now(),
	})
	return nil
}
