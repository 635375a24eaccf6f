package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// FakeScanner is an in-memory port.Scanner. ConnectErr, when set for a
// given ip, makes Connect fail for that device.
type FakeScanner struct {
	mu         sync.Mutex
	ConnectErr map[string]error
	handles    map[string]*FakeHandle
}

// NewFakeScanner builds an empty FakeScanner.
func NewFakeScanner() *FakeScanner {
	return &FakeScanner{
		ConnectErr: map[string]error{},
		handles:    map[string]*FakeHandle{},
	}
}

func (f *FakeScanner) Connect(_ context.Context, ip string, p int, _ time.Duration) (port.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.ConnectErr[ip]; ok && err != nil {
		return nil, err
	}
	h := NewFakeHandle()
	f.handles[ip] = h
	return h, nil
}

// HandleFor returns the handle most recently produced for an ip, if any.
func (f *FakeScanner) HandleFor(ip string) *FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[ip]
}

// FakeHandle is an in-memory port.Handle for service-level tests.
type FakeHandle struct {
	mu        sync.Mutex
	users     map[int]port.UserRecord
	templates map[[2]int]port.TemplateRecord
	events    chan port.CaptureEvent
	errs      chan error
	closed    bool

	EnrollErr error
}

// NewFakeHandle builds a FakeHandle with buffered capture channels (16
// events, 1 error).
func NewFakeHandle() *FakeHandle {
	return &FakeHandle{
		users:     map[int]port.UserRecord{},
		templates: map[[2]int]port.TemplateRecord{},
		events:    make(chan port.CaptureEvent, 16),
		errs:      make(chan error, 1),
	}
}

func (h *FakeHandle) Disable(_ context.Context) error { return nil }
func (h *FakeHandle) Enable(_ context.Context) error  { return nil }

func (h *FakeHandle) ListUsers(_ context.Context) ([]port.UserRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]port.UserRecord, 0, len(h.users))
	for _, u := range h.users {
		out = append(out, u)
	}
	return out, nil
}

func (h *FakeHandle) DeleteUser(_ context.Context, uid int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.users, uid)
	return nil
}

func (h *FakeHandle) SetUser(_ context.Context, rec port.UserRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[rec.UID] = rec
	return nil
}

func (h *FakeHandle) Enroll(_ context.Context, uid, fingerIndex int) (port.TemplateRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.EnrollErr != nil {
		return port.TemplateRecord{}, h.EnrollErr
	}
	rec := port.TemplateRecord{FingerIndex: fingerIndex, Raw: []byte("template")}
	h.templates[[2]int{uid, fingerIndex}] = rec
	return rec, nil
}

func (h *FakeHandle) GetUserTemplate(_ context.Context, uid, fingerIndex int) (*port.TemplateRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.templates[[2]int{uid, fingerIndex}]
	if !ok {
		return nil, errors.New("template not found")
	}
	return &rec, nil
}

func (h *FakeHandle) LiveCapture(ctx context.Context) (<-chan port.CaptureEvent, <-chan error) {
	go func() {
		<-ctx.Done()
	}()
	return h.events, h.errs
}

func (h *FakeHandle) IdentifyUser(_ context.Context) (*port.UserRecord, error) {
	return nil, errors.New("not implemented")
}

func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Closed reports whether Close was called.
func (h *FakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// PushCapture feeds a capture event into LiveCapture's stream.
func (h *FakeHandle) PushCapture(ev port.CaptureEvent) {
	h.events <- ev
}

// PushError feeds a driver error into LiveCapture's error stream.
func (h *FakeHandle) PushError(err error) {
	h.errs <- err
}
