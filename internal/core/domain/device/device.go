// Package device holds scanner configuration and runtime connection state
// (spec.md §3, §4.2). Runtime state is process-wide and never persisted.
package device

import (
	"fmt"
	"time"
)

// Status is the runtime connection state of a device.
type Status string

const (
	StatusOffline    Status = "offline"
	StatusConnecting Status = "connecting"
	StatusOnline     Status = "online"
	StatusError      Status = "error"
)

// Config is the static, config-file-loaded shape of a device entry.
type Config struct {
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Enabled  bool   `json:"enabled"`
}

// Default is the single fallback entry used when the config file is
// missing, per spec.md §6.
func Default() Config {
	return Config{
		DeviceID: "default",
		IP:       "192.168.1.201",
		Port:     4370,
		Name:     "Default Device",
		Location: "Main Location",
		Enabled:  true,
	}
}

// Device is a config entry plus its runtime state.
type Device struct {
	Config

	Status        Status
	LastHeartbeat *time.Time
	ErrorMessage  string

	// owner is non-empty while a capture task holds this device, enforcing
	// the spec.md §5 constraint that a device is never accessed by two
	// tasks at once.
	owner string
}

// NewDevice wraps a config entry in its initial (offline) runtime state.
func NewDevice(cfg Config) *Device {
	return &Device{Config: cfg, Status: StatusOffline}
}

// MarkConnecting transitions offline -> connecting.
func (d *Device) MarkConnecting() {
	d.Status = StatusConnecting
	d.ErrorMessage = ""
}

// MarkOnline transitions connecting -> online and stamps the heartbeat.
func (d *Device) MarkOnline(now time.Time) {
	d.Status = StatusOnline
	d.LastHeartbeat = &now
	d.ErrorMessage = ""
}

// MarkError transitions to error and records why.
func (d *Device) MarkError(err error) {
	d.Status = StatusError
	if err != nil {
		d.ErrorMessage = err.Error()
	}
}

// MarkOffline transitions back to offline (e.g. after a clean disconnect).
func (d *Device) MarkOffline() {
	d.Status = StatusOffline
	d.owner = ""
}

// TryAcquire claims exclusive ownership of this device for task owner
// (a capture loop id, or "enrollment"). Returns false if another owner
// already holds it.
func (d *Device) TryAcquire(owner string) bool {
	if d.owner != "" && d.owner != owner {
		return false
	}
	d.owner = owner
	return true
}

// Release gives up ownership, regardless of current holder.
func (d *Device) Release() {
	d.owner = ""
}

// Owner reports the current claimant, or "" if unclaimed.
func (d *Device) Owner() string {
	return d.owner
}

// String renders a short identity for logging.
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s:%d)", d.DeviceID, d.IP, d.Port)
}
