// Package devicepool implements the Device Registry & Pool (C2): it loads
// the device table once at startup, tracks per-device runtime connection
// state behind a mutex, and supervises the family of independent capture
// tasks (spec.md §4.2).
package devicepool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// CaptureFunc is the attendance orchestrator's per-device capture loop
// (C8). It blocks until ctx is cancelled (clean stop) or the driver raises
// (returned error), per spec.md §4.2 capture supervision contract.
type CaptureFunc func(ctx context.Context, dev *device.Device, handle port.Handle) error

// Registry owns the device map and the family of capture tasks. It is a
// single process-wide owner behind a narrow façade (spec.md §9).
type Registry struct {
	mu      sync.Mutex
	order   []string
	devices map[string]*device.Device
	scanner port.Scanner
	logger  *slog.Logger

	running bool
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRegistry builds a Registry from the loaded device configs.
func NewRegistry(scanner port.Scanner, configs []device.Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		devices: map[string]*device.Device{},
		scanner: scanner,
		logger:  logger,
		cancels: map[string]context.CancelFunc{},
	}
	for _, cfg := range configs {
		r.order = append(r.order, cfg.DeviceID)
		r.devices[cfg.DeviceID] = device.NewDevice(cfg)
	}
	return r
}

// Get returns a device by id.
func (r *Registry) Get(deviceID string) (*device.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	return d, ok
}

// Enabled returns enabled devices in registry (config) order.
func (r *Registry) Enabled() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*device.Device
	for _, id := range r.order {
		d := r.devices[id]
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Snapshot returns every device in registry order, for status reporting.
func (r *Registry) Snapshot() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id])
	}
	return out
}

// ConnectForOp opens a per-operation connection to a device not currently
// owned by a capture task (enrollment/deletion path, spec.md §4.2, §5).
// Transitions offline -> connecting -> online|error.
func (r *Registry) ConnectForOp(ctx context.Context, deviceID, owner string, timeout time.Duration) (port.Handle, error) {
	r.mu.Lock()
	d, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return nil, &ErrUnknownDevice{DeviceID: deviceID}
	}
	if !d.TryAcquire(owner) {
		r.mu.Unlock()
		return nil, &ErrDeviceBusy{DeviceID: deviceID}
	}
	d.MarkConnecting()
	r.mu.Unlock()

	handle, err := r.scanner.Connect(ctx, d.IP, d.Port, timeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		d.MarkError(err)
		d.Release()
		return nil, &DeviceConnectionError{DeviceID: deviceID, Err: err}
	}
	d.MarkOnline(time.Now())
	return handle, nil
}

// ReleaseOp releases a device claimed via ConnectForOp and returns it to
// offline, closing the handle.
func (r *Registry) ReleaseOp(deviceID string, handle port.Handle) {
	if handle != nil {
		_ = handle.Close()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[deviceID]; ok {
		d.MarkOffline()
	}
}

// StartAll opens connections to every enabled device, spawns one
// independent capture task per successfully-connected device, and reports
// per-device start/fail. Accepts any number of devices >= 1; no connected
// device is a failure the caller may use to fall back to a single-device
// path (spec.md §4.2).
func (r *Registry) StartAll(ctx context.Context, timeout time.Duration, fn CaptureFunc) (started []string, failed map[string]error, err error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, nil, &ErrAlreadyRunning{}
	}
	r.mu.Unlock()

	enabled := r.Enabled()
	if len(enabled) == 0 {
		return nil, nil, &ErrNoEnabledDevices{}
	}

	failed = map[string]error{}
	var connected []*device.Device
	var handles []port.Handle

	for _, d := range enabled {
		r.mu.Lock()
		acquired := d.TryAcquire("capture:" + d.DeviceID)
		if acquired {
			d.MarkConnecting()
		}
		r.mu.Unlock()
		if !acquired {
			failed[d.DeviceID] = &ErrDeviceBusy{DeviceID: d.DeviceID}
			continue
		}

		handle, cerr := r.scanner.Connect(ctx, d.IP, d.Port, timeout)
		r.mu.Lock()
		if cerr != nil {
			d.MarkError(cerr)
			d.Release()
			r.mu.Unlock()
			failed[d.DeviceID] = &DeviceConnectionError{DeviceID: d.DeviceID, Err: cerr}
			continue
		}
		d.MarkOnline(time.Now())
		r.mu.Unlock()

		connected = append(connected, d)
		handles = append(handles, handle)
	}

	if len(connected) == 0 {
		return nil, failed, &ErrNoDeviceConnected{}
	}

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	for i, d := range connected {
		d := d
		handle := handles[i]
		taskCtx, cancel := context.WithCancel(ctx)

		r.mu.Lock()
		r.cancels[d.DeviceID] = cancel
		r.mu.Unlock()

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer func() {
				_ = handle.Close()
				r.mu.Lock()
				d.Release()
				if d.Status != device.StatusError {
					d.MarkOffline()
				}
				delete(r.cancels, d.DeviceID)
				r.mu.Unlock()
			}()

			if err := fn(taskCtx, d, handle); err != nil {
				r.logger.Error("capture task ended with error",
					slog.String("device_id", d.DeviceID), slog.Any("error", err))
				r.mu.Lock()
				d.MarkError(err)
				r.mu.Unlock()
			}
		}()

		started = append(started, d.DeviceID)
	}

	return started, failed, nil
}

// StopAll signals cancellation to every capture task, joins them, then
// closes connections. Idempotent (spec.md §4.2).
func (r *Registry) StopAll() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// IsRunning is true iff >= 1 capture task is live (spec.md §4.2).
func (r *Registry) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && len(r.cancels) > 0
}

// ActiveDeviceCount reports the number of live capture tasks.
func (r *Registry) ActiveDeviceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}
