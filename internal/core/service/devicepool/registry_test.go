package devicepool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/devicepool"
	"github.com/moto-nrw/fingerprint-edge/internal/testutil"
	"github.com/stretchr/testify/require"
)

func twoDeviceConfig() []device.Config {
	return []device.Config{
		{DeviceID: "a", IP: "10.0.0.1", Port: 4370, Name: "A", Enabled: true},
		{DeviceID: "b", IP: "10.0.0.2", Port: 4370, Name: "B", Enabled: true},
		{DeviceID: "c", IP: "10.0.0.3", Port: 4370, Name: "C", Enabled: false},
	}
}

func blockingCapture(ctx context.Context, _ *device.Device, _ port.Handle) error {
	<-ctx.Done()
	return nil
}

func TestRegistry_StartAll_ConnectsEnabledOnly(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	started, failed, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.NoError(t, err)
	require.Empty(t, failed)
	require.ElementsMatch(t, []string{"a", "b"}, started)
	require.True(t, r.IsRunning())
	require.Equal(t, 2, r.ActiveDeviceCount())

	r.StopAll()
	require.False(t, r.IsRunning())
}

func TestRegistry_StartAll_NoEnabledDevices(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, []device.Config{{DeviceID: "x", Enabled: false}}, nil)

	_, _, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.Error(t, err)
	var target *devicepool.ErrNoEnabledDevices
	require.ErrorAs(t, err, &target)
}

func TestRegistry_StartAll_PartialConnectFailureStillStarts(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	scanner.ConnectErr["10.0.0.2"] = errors.New("refused")
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	started, failed, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, started)
	require.Len(t, failed, 1)
	require.Contains(t, failed, "b")

	d, ok := r.Get("b")
	require.True(t, ok)
	require.Equal(t, device.StatusError, d.Status)

	r.StopAll()
}

func TestRegistry_StartAll_AllConnectionsFail(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	scanner.ConnectErr["10.0.0.1"] = errors.New("refused")
	scanner.ConnectErr["10.0.0.2"] = errors.New("refused")
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	_, failed, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.Error(t, err)
	var target *devicepool.ErrNoDeviceConnected
	require.ErrorAs(t, err, &target)
	require.Len(t, failed, 2)
}

func TestRegistry_StartAll_AlreadyRunning(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	_, _, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.NoError(t, err)

	_, _, err = r.StartAll(context.Background(), time.Second, blockingCapture)
	require.Error(t, err)
	var target *devicepool.ErrAlreadyRunning
	require.ErrorAs(t, err, &target)

	r.StopAll()
}

func TestRegistry_StopAll_IsIdempotent(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	_, _, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.NoError(t, err)

	r.StopAll()
	r.StopAll()
	require.False(t, r.IsRunning())
	require.Equal(t, 0, r.ActiveDeviceCount())
}

func TestRegistry_StopAll_ClosesHandles(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	_, _, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.NoError(t, err)
	r.StopAll()

	require.Eventually(t, func() bool {
		return scanner.HandleFor("10.0.0.1").Closed() && scanner.HandleFor("10.0.0.2").Closed()
	}, time.Second, 10*time.Millisecond)
}

func TestRegistry_CaptureTaskError_MarksDeviceError(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	failingCapture := func(ctx context.Context, d *device.Device, h port.Handle) error {
		if d.DeviceID == "a" {
			return errors.New("driver died")
		}
		<-ctx.Done()
		return nil
	}

	_, _, err := r.StartAll(context.Background(), time.Second, failingCapture)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		d, _ := r.Get("a")
		return d.Status == device.StatusError
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return r.ActiveDeviceCount() == 1
	}, time.Second, 10*time.Millisecond)

	r.StopAll()
}

func TestRegistry_ConnectForOp_RespectsCaptureOwnership(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	_, _, err := r.StartAll(context.Background(), time.Second, blockingCapture)
	require.NoError(t, err)

	_, err = r.ConnectForOp(context.Background(), "a", "enrollment", time.Second)
	require.Error(t, err)
	var busy *devicepool.ErrDeviceBusy
	require.ErrorAs(t, err, &busy)

	r.StopAll()
}

func TestRegistry_ConnectForOp_UnknownDevice(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	_, err := r.ConnectForOp(context.Background(), "nope", "enrollment", time.Second)
	require.Error(t, err)
	var target *devicepool.ErrUnknownDevice
	require.ErrorAs(t, err, &target)
}

func TestRegistry_ConnectForOp_Success(t *testing.T) {
	scanner := testutil.NewFakeScanner()
	r := devicepool.NewRegistry(scanner, twoDeviceConfig(), nil)

	h, err := r.ConnectForOp(context.Background(), "a", "enrollment", time.Second)
	require.NoError(t, err)
	require.NotNil(t, h)

	d, _ := r.Get("a")
	require.Equal(t, device.StatusOnline, d.Status)
	require.Equal(t, "enrollment", d.Owner())

	r.ReleaseOp("a", h)
	d, _ = r.Get("a")
	require.Equal(t, device.StatusOffline, d.Status)
	require.True(t, scanner.HandleFor("10.0.0.1").Closed())
}
