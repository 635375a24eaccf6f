package zk

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// Scanner dials the ZKTeco wire protocol over TCP/IP. It is the sole
// implementation of port.Scanner (spec.md §4.1).
type Scanner struct{}

// New builds a Scanner.
func New() *Scanner { return &Scanner{} }

func (s *Scanner) Connect(ctx context.Context, ip string, p int, timeout time.Duration) (port.Handle, error) {
	c, err := dialTCP(ip, p, timeout)
	if err != nil {
		return nil, fmt.Errorf("zk: dial %s:%d: %w", ip, p, err)
	}

	pkt, err := c.send(cmdConnect, nil, timeout)
	if err != nil {
		_ = c.close()
		return nil, fmt.Errorf("zk: connect handshake: %w", err)
	}
	c.sessID = pkt.sessID

	select {
	case <-ctx.Done():
		_ = c.close()
		return nil, ctx.Err()
	default:
	}

	return &Handle{conn: c, ip: ip, port: p, timeout: timeout}, nil
}

// Handle is a live connection to one terminal.
type Handle struct {
	mu      sync.Mutex
	conn    *conn
	ip      string
	port    int
	timeout time.Duration

	capturing bool
}

func (h *Handle) Disable(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.conn.send(cmdDisableDevice, nil, h.timeout)
	return err
}

func (h *Handle) Enable(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.conn.send(cmdEnableDevice, nil, h.timeout)
	return err
}

func (h *Handle) ListUsers(_ context.Context) ([]port.UserRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pkt, err := h.conn.send(cmdData, nil, h.timeout)
	if err != nil {
		return nil, fmt.Errorf("zk: list users: %w", err)
	}
	return decodeUserRecords(pkt.payload), nil
}

func (h *Handle) DeleteUser(_ context.Context, uid int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, uint16(uid))
	_, err := h.conn.send(cmdDeleteUser, payload, h.timeout)
	return err
}

func (h *Handle) SetUser(_ context.Context, rec port.UserRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.conn.send(cmdUserWRQ, encodeUserRecord(rec), h.timeout)
	return err
}

// Enroll attempts the richer 3-arg form (uid, fingerIndex, change-finger
// flag) first and falls back to the bare 2-arg form on rejection, mirroring
// the fallback original_source carries for terminals whose firmware
// doesn't accept the flag byte (app/utils/fingerprint.py).
func (h *Handle) Enroll(ctx context.Context, uid, fingerIndex int) (port.TemplateRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload3 := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload3, uint16(uid))
	payload3[2] = byte(fingerIndex)
	payload3[3] = efChangeFinger

	_, err := h.conn.send(cmdStartEnroll, payload3, h.timeout)
	if err != nil {
		payload2 := make([]byte, 3)
		binary.LittleEndian.PutUint16(payload2, uint16(uid))
		payload2[2] = byte(fingerIndex)
		if _, err2 := h.conn.send(cmdStartEnroll, payload2, h.timeout); err2 != nil {
			return port.TemplateRecord{}, fmt.Errorf("zk: enroll rejected (3-arg: %v, 2-arg: %v)", err, err2)
		}
	}

	pkt, err := h.awaitEnrollResult(ctx)
	if err != nil {
		return port.TemplateRecord{}, err
	}
	return port.TemplateRecord{FingerIndex: fingerIndex, Raw: pkt.payload}, nil
}

func (h *Handle) awaitEnrollResult(ctx context.Context) (*packet, error) {
	deadline := h.timeout
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	pkt, err := h.conn.send(cmdData, nil, deadline)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return nil, fmt.Errorf("%w: %v", port.ErrEnrollTimeout, err)
	}
	if len(pkt.payload) == 0 {
		return nil, port.ErrEnrollTimeout
	}
	return pkt, nil
}

func (h *Handle) GetUserTemplate(_ context.Context, uid, fingerIndex int) (*port.TemplateRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload := make([]byte, 3)
	binary.LittleEndian.PutUint16(payload, uint16(uid))
	payload[2] = byte(fingerIndex)

	pkt, err := h.conn.send(cmdGetUserTemplate, payload, h.timeout)
	if err != nil {
		return nil, fmt.Errorf("zk: get user template: %w", err)
	}
	return &port.TemplateRecord{FingerIndex: fingerIndex, Raw: pkt.payload}, nil
}

// LiveCapture subscribes to the terminal's realtime event stream and
// decodes finger-verify events until ctx is cancelled (spec.md §4.1, §5).
func (h *Handle) LiveCapture(ctx context.Context) (<-chan port.CaptureEvent, <-chan error) {
	events := make(chan port.CaptureEvent)
	errs := make(chan error, 1)

	h.mu.Lock()
	h.capturing = true
	h.mu.Unlock()

	go func() {
		defer close(events)

		regPayload := make([]byte, 4)
		binary.LittleEndian.PutUint32(regPayload, 0xffff) // subscribe to all event classes
		if _, err := h.sendLocked(cmdRegEvent, regPayload, h.timeout); err != nil {
			errs <- fmt.Errorf("zk: register event stream: %w", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			pkt, err := h.readEventLocked()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				errs <- err
				return
			}
			if pkt == nil {
				continue
			}

			ev, ok := decodeCaptureEvent(pkt.payload)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}

func (h *Handle) sendLocked(command uint16, payload []byte, timeout time.Duration) (*packet, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.send(command, payload, timeout)
}

// readEventLocked polls for the next asynchronous event frame, using a
// short read deadline so LiveCapture's loop can re-check ctx.Done() between
// polls instead of blocking indefinitely on one read.
func (h *Handle) readEventLocked() (*packet, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.send(cmdData, nil, 500*time.Millisecond)
}

func (h *Handle) IdentifyUser(ctx context.Context) (*port.UserRecord, error) {
	events, errs := h.LiveCapture(ctx)
	select {
	case ev, ok := <-events:
		if !ok {
			return nil, fmt.Errorf("zk: identify: stream closed")
		}
		return &port.UserRecord{UID: ev.UID}, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return nil
	}
	_, _ = h.conn.send(cmdExit, nil, h.timeout)
	return h.conn.close()
}
