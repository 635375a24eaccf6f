package devicepool

import "fmt"

// ErrNoEnabledDevices is returned when the config carries zero enabled
// devices (spec.md §4.2: "Accepts any number of devices >= 1").
type ErrNoEnabledDevices struct{}

func (e *ErrNoEnabledDevices) Error() string { return "no enabled devices configured" }

// ErrNoDeviceConnected is returned when every enabled device failed to
// connect; the caller may fall back to a single-device path (spec.md §4.2).
type ErrNoDeviceConnected struct{}

func (e *ErrNoDeviceConnected) Error() string { return "no devices connected successfully" }

// ErrAlreadyRunning guards StartAll against a second concurrent call.
type ErrAlreadyRunning struct{}

func (e *ErrAlreadyRunning) Error() string { return "capture tasks already running" }

// DeviceConnectionError is a transient per-device connect failure; it
// marks the device as errored and is skipped by enrollment (spec.md §7).
type DeviceConnectionError struct {
	DeviceID string
	Err      error
}

func (e *DeviceConnectionError) Error() string {
	return fmt.Sprintf("device %s connection failed: %v", e.DeviceID, e.Err)
}

func (e *DeviceConnectionError) Unwrap() error { return e.Err }

// ErrDeviceBusy means a device is already claimed by another task (e.g.
// capture owns it during an enrollment attempt), per spec.md §5's
// exclusivity constraint.
type ErrDeviceBusy struct {
	DeviceID string
}

func (e *ErrDeviceBusy) Error() string {
	return fmt.Sprintf("device %s is busy", e.DeviceID)
}

// ErrUnknownDevice names a device_id not present in the registry.
type ErrUnknownDevice struct {
	DeviceID string
}

func (e *ErrUnknownDevice) Error() string {
	return fmt.Sprintf("unknown device %s", e.DeviceID)
}
