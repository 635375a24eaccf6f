package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/attendance"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/decision"
	"github.com/moto-nrw/fingerprint-edge/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newHarness(online bool) (*attendance.Orchestrator, *testutil.FakeStore, *testutil.FakeRemoteClient, *testutil.FakeBroadcaster, *decision.Arbiter) {
	store := testutil.NewFakeStore()
	remote := testutil.NewFakeRemoteClient()
	broadcaster := testutil.NewFakeBroadcaster()
	probe := &testutil.FakeProbe{Online: online}
	arbiter := decision.New(store, remote, broadcaster, nil)
	orch := attendance.New(store, remote, probe, broadcaster, arbiter, nil)
	return orch, store, remote, broadcaster, arbiter
}

func testDevice() *device.Device {
	return device.NewDevice(device.Config{DeviceID: "dev-1", Name: "Front Gate", Location: "Lobby", Enabled: true})
}

func runLoop(t *testing.T, orch *attendance.Orchestrator, dev *device.Device, handle *testutil.FakeHandle) (context.CancelFunc, chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- orch.CaptureLoop(ctx, dev, handle)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func TestCaptureLoop_OnlineApproved(t *testing.T) {
	orch, store, _, broadcaster, _ := newHarness(true)
	require.NoError(t, store.InsertStudent(context.Background(), &student.Student{UID: 1}))

	dev := testDevice()
	handle := testutil.NewFakeHandle()
	cancel, _ := runLoop(t, orch, dev, handle)
	defer cancel()

	handle.PushCapture(port.CaptureEvent{UID: 1, DeviceTimestamp: time.Now()})

	require.Eventually(t, func() bool {
		return len(broadcaster.Events()) == 1
	}, time.Second, 5*time.Millisecond)

	events := broadcaster.Events()
	require.Equal(t, port.EventApproved, events[0].Type)

	saved, err := store.FindStudentByUID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, saved.Attendance, 1)
	require.Len(t, store.CaptureLogs(), 1)
}

func TestCaptureLoop_ScheduleRejectionCreatesPendingDecision(t *testing.T) {
	orch, store, remote, broadcaster, arbiter := newHarness(true)
	require.NoError(t, store.InsertStudent(context.Background(), &student.Student{UID: 2, FirstName: "Ada"}))
	remote.PostAttendanceFn = func(ctx context.Context, uid int, ts time.Time, assistantApproved bool) error {
		return &port.RemotePolicyRejectError{Kind: port.PolicySchedule, Body: "Attendance not allowed on Monday"}
	}

	dev := testDevice()
	handle := testutil.NewFakeHandle()
	cancel, _ := runLoop(t, orch, dev, handle)
	defer cancel()

	handle.PushCapture(port.CaptureEvent{UID: 2, DeviceTimestamp: time.Now()})

	require.Eventually(t, func() bool {
		return len(arbiter.List()) == 1
	}, time.Second, 5*time.Millisecond)

	events := broadcaster.Events()
	require.Len(t, events, 1)
	require.Equal(t, port.EventDecisionRequest, events[0].Type)

	saved, err := store.FindStudentByUID(context.Background(), 2)
	require.NoError(t, err)
	require.Empty(t, saved.Attendance)
}

func TestCaptureLoop_OfflineRecordsOfflineAttendance(t *testing.T) {
	orch, store, _, broadcaster, _ := newHarness(false)
	require.NoError(t, store.InsertStudent(context.Background(), &student.Student{UID: 3}))

	dev := testDevice()
	handle := testutil.NewFakeHandle()
	cancel, _ := runLoop(t, orch, dev, handle)
	defer cancel()

	handle.PushCapture(port.CaptureEvent{UID: 3, DeviceTimestamp: time.Now()})

	require.Eventually(t, func() bool {
		return len(broadcaster.Events()) == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, port.EventOfflineCapture, broadcaster.Events()[0].Type)

	saved, err := store.FindStudentByUID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, saved.OfflineKeys(), 1)
}

func TestCaptureLoop_TransportFailureDegradesToOffline(t *testing.T) {
	orch, store, remote, broadcaster, _ := newHarness(true)
	require.NoError(t, store.InsertStudent(context.Background(), &student.Student{UID: 4}))
	remote.PostAttendanceFn = func(ctx context.Context, uid int, ts time.Time, assistantApproved bool) error {
		return &port.RemoteNetworkError{Op: "post_attendance", Err: errors.New("connection reset")}
	}

	dev := testDevice()
	handle := testutil.NewFakeHandle()
	cancel, _ := runLoop(t, orch, dev, handle)
	defer cancel()

	handle.PushCapture(port.CaptureEvent{UID: 4, DeviceTimestamp: time.Now()})

	require.Eventually(t, func() bool {
		return len(broadcaster.Events()) == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, port.EventOfflineCapture, broadcaster.Events()[0].Type)
}

func TestCaptureLoop_GenericRejectionBroadcastsRejected(t *testing.T) {
	orch, store, remote, broadcaster, _ := newHarness(true)
	require.NoError(t, store.InsertStudent(context.Background(), &student.Student{UID: 5}))
	remote.PostAttendanceFn = func(ctx context.Context, uid int, ts time.Time, assistantApproved bool) error {
		return &port.RemoteServerError{Op: "post_attendance", Status: 500, Body: "boom"}
	}

	dev := testDevice()
	handle := testutil.NewFakeHandle()
	cancel, _ := runLoop(t, orch, dev, handle)
	defer cancel()

	handle.PushCapture(port.CaptureEvent{UID: 5, DeviceTimestamp: time.Now()})

	require.Eventually(t, func() bool {
		return len(broadcaster.Events()) == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, port.EventRejected, broadcaster.Events()[0].Type)

	saved, err := store.FindStudentByUID(context.Background(), 5)
	require.NoError(t, err)
	require.Empty(t, saved.Attendance)
}

func TestCaptureLoop_DriverErrorPropagates(t *testing.T) {
	orch, _, _, _, _ := newHarness(true)
	dev := testDevice()
	handle := testutil.NewFakeHandle()
	_, done := runLoop(t, orch, dev, handle)

	wantErr := errors.New("device disconnected")
	handle.PushError(wantErr)

	select {
	case err := <-done:
		require.ErrorIs(t, err, wantErr)
	case <-time.After(time.Second):
		t.Fatal("CaptureLoop did not return after driver error")
	}
}

func TestCaptureLoop_StopsCleanlyOnCancel(t *testing.T) {
	orch, _, _, _, _ := newHarness(true)
	dev := testDevice()
	handle := testutil.NewFakeHandle()
	cancel, done := runLoop(t, orch, dev, handle)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("CaptureLoop did not return after cancellation")
	}
}
