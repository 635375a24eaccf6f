package enrollment_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/counter"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/allocator"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/devicepool"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/enrollment"
	"github.com/moto-nrw/fingerprint-edge/internal/testutil"
	"github.com/stretchr/testify/require"
)

func oneDeviceConfig() []device.Config {
	return []device.Config{
		{DeviceID: "a", IP: "10.0.0.1", Port: 4370, Enabled: true},
	}
}

func newHarness(configs []device.Config, online bool) (*enrollment.Orchestrator, *testutil.FakeStore, *testutil.FakeScanner, *testutil.FakeRemoteClient, *testutil.FakeBroadcaster) {
	store := testutil.NewFakeStore()
	alloc := allocator.New(store)
	scanner := testutil.NewFakeScanner()
	registry := devicepool.NewRegistry(scanner, configs, slog.Default())
	remote := testutil.NewFakeRemoteClient()
	broadcaster := testutil.NewFakeBroadcaster()
	probe := &testutil.FakeProbe{Online: online}

	orch := enrollment.New(store, alloc, registry, remote, probe, broadcaster, nil)
	return orch, store, scanner, remote, broadcaster
}

func TestOrchestrator_Register_OnlineHappyPath(t *testing.T) {
	orch, store, _, remote, broadcaster := newHarness(oneDeviceConfig(), true)
	remote.NextIDsFn = func(ctx context.Context, authToken string) (port.NextIDs, error) {
		return port.NextIDs{UID: 501, StudentID: "501"}, nil
	}

	res, err := orch.Register(context.Background(), enrollment.Request{FirstName: "Ada", LastName: "L", AuthToken: "tok"})
	require.NoError(t, err)
	require.False(t, res.Offline)
	require.Equal(t, 501, res.Student.UID)

	saved, err := store.FindStudentByUID(context.Background(), 501)
	require.NoError(t, err)
	require.NotNil(t, saved)

	missing, err := store.FindMissingStudentByUID(context.Background(), 501)
	require.NoError(t, err)
	require.Nil(t, missing)

	require.Len(t, remote.CreatedPayloads, 1)
	require.Equal(t, 501, remote.CreatedPayloads[0]["uid"])

	events := broadcaster.Events()
	require.Len(t, events, 1)
	require.Equal(t, port.EventCapture, events[0].Type)
}

func TestOrchestrator_Register_OfflineHappyPath(t *testing.T) {
	orch, store, _, _, broadcaster := newHarness(oneDeviceConfig(), false)

	res, err := orch.Register(context.Background(), enrollment.Request{FirstName: "Ada", LastName: "L"})
	require.NoError(t, err)
	require.True(t, res.Offline)

	saved, err := store.FindStudentByUID(context.Background(), res.Student.UID)
	require.NoError(t, err)
	require.NotNil(t, saved)

	missing, err := store.FindMissingStudentByUID(context.Background(), res.Student.UID)
	require.NoError(t, err)
	require.NotNil(t, missing)
	require.Equal(t, 1, store.MissingCount())

	events := broadcaster.Events()
	require.Len(t, events, 1)
	require.Equal(t, port.EventOfflineCapture, events[0].Type)

	// A second registration must not reuse the id: the counter was
	// incremented even though the path was offline (I1/I2).
	res2, err := orch.Register(context.Background(), enrollment.Request{FirstName: "Bob", LastName: "M"})
	require.NoError(t, err)
	require.Equal(t, res.Student.UID+1, res2.Student.UID)
}

func TestOrchestrator_Register_OnlinePostFailureDegradesToOffline(t *testing.T) {
	orch, store, _, remote, broadcaster := newHarness(oneDeviceConfig(), true)
	remote.NextIDsFn = func(ctx context.Context, authToken string) (port.NextIDs, error) {
		return port.NextIDs{UID: 900, StudentID: "900"}, nil
	}
	remote.CreateStudentFn = func(ctx context.Context, authToken string, payload map[string]any) error {
		return &port.RemoteNetworkError{Op: "create_student", Err: errors.New("connection reset")}
	}

	res, err := orch.Register(context.Background(), enrollment.Request{FirstName: "Ada", LastName: "L", AuthToken: "tok"})
	require.NoError(t, err)
	require.True(t, res.Offline)
	require.Equal(t, 900, res.Student.UID)

	missing, err := store.FindMissingStudentByUID(context.Background(), 900)
	require.NoError(t, err)
	require.NotNil(t, missing)

	events := broadcaster.Events()
	require.Len(t, events, 1)
	require.Equal(t, port.EventOfflineCapture, events[0].Type)
}

func TestOrchestrator_Register_BlacklistTriggersDeviceCleanup(t *testing.T) {
	orch, store, scanner, remote, _ := newHarness(oneDeviceConfig(), true)
	remote.NextIDsFn = func(ctx context.Context, authToken string) (port.NextIDs, error) {
		return port.NextIDs{UID: 77, StudentID: "77"}, nil
	}
	remote.CreateStudentFn = func(ctx context.Context, authToken string, payload map[string]any) error {
		return &port.RemotePolicyRejectError{Kind: port.PolicyBlacklist, Body: "student is blacklisted"}
	}

	_, err := orch.Register(context.Background(), enrollment.Request{FirstName: "Eve", LastName: "X", AuthToken: "tok"})
	require.Error(t, err)

	var policyErr *port.RemotePolicyRejectError
	require.ErrorAs(t, err, &policyErr)
	require.Equal(t, port.PolicyBlacklist, policyErr.Kind)

	// Nothing should have been persisted locally, and the device should
	// have seen a DeleteUser call during cleanup (FakeHandle.DeleteUser is
	// a no-op success, so we only assert no student was saved).
	saved, err := store.FindStudentByUID(context.Background(), 77)
	require.NoError(t, err)
	require.Nil(t, saved)

	require.NotNil(t, scanner.HandleFor("10.0.0.1"))
}

func TestOrchestrator_Register_EnrollFailureAbortsWithoutIncrementingCounter(t *testing.T) {
	orch, store, scanner, _, _ := newHarness(oneDeviceConfig(), false)
	scanner.ConnectErr["10.0.0.1"] = errors.New("connect refused")

	_, err := orch.Register(context.Background(), enrollment.Request{FirstName: "Ada", LastName: "L"})
	require.Error(t, err)
	var enrollErr *enrollment.ErrEnrollFailed
	require.ErrorAs(t, err, &enrollErr)

	// The counter must not have advanced: a subsequent successful
	// registration gets the very same id that just failed (I2).
	c, err := store.FindCounter(context.Background(), counter.StudentSequenceName)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, counter.DefaultStartValue, c.Value)
}
