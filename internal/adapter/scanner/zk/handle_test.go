package zk_test

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/scanner/zk"
	"github.com/stretchr/testify/require"
)

// fakeTerminal is a minimal ZK-protocol server: it ACKs every command,
// optionally echoing a canned payload, enough to exercise the Handle
// request/reply paths without a real device.
type fakeTerminal struct {
	ln net.Listener
}

func startFakeTerminal(t *testing.T, reply func(command uint16, payload []byte) []byte) *fakeTerminal {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ft := &fakeTerminal{ln: ln}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			hdr := make([]byte, 8)
			if _, err := readFullConn(conn, hdr); err != nil {
				return
			}
			size := binary.LittleEndian.Uint32(hdr[4:])
			body := make([]byte, size)
			if size > 0 {
				if _, err := readFullConn(conn, body); err != nil {
					return
				}
			}
			command := binary.LittleEndian.Uint16(body[0:])
			sessID := binary.LittleEndian.Uint16(body[4:])
			replyID := binary.LittleEndian.Uint16(body[6:])

			var payload []byte
			if reply != nil {
				payload = reply(command, body[8:])
			}

			respBody := make([]byte, 8+len(payload))
			binary.LittleEndian.PutUint16(respBody[0:], 2000) // ack
			binary.LittleEndian.PutUint16(respBody[4:], sessID)
			binary.LittleEndian.PutUint16(respBody[6:], replyID)
			copy(respBody[8:], payload)

			frame := make([]byte, 0, 8+len(respBody))
			frame = append(frame, 0x50, 0x50, 0x82, 0x7d)
			lenBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(lenBuf, uint32(len(respBody)))
			frame = append(frame, lenBuf...)
			frame = append(frame, respBody...)

			if _, err := conn.Write(frame); err != nil {
				return
			}
		}
	}()

	return ft
}

func readFullConn(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (ft *fakeTerminal) addr() string {
	return ft.ln.Addr().(*net.TCPAddr).IP.String()
}

func (ft *fakeTerminal) port() int {
	return ft.ln.Addr().(*net.TCPAddr).Port
}

func (ft *fakeTerminal) close() { ft.ln.Close() }

func TestScanner_Connect_DisableEnable_Close(t *testing.T) {
	ft := startFakeTerminal(t, nil)
	defer ft.close()

	s := zk.New()
	h, err := s.Connect(context.Background(), ft.addr(), ft.port(), time.Second)
	require.NoError(t, err)

	require.NoError(t, h.Disable(context.Background()))
	require.NoError(t, h.Enable(context.Background()))
	require.NoError(t, h.Close())
}

func TestScanner_Connect_Refused(t *testing.T) {
	s := zk.New()
	_, err := s.Connect(context.Background(), "127.0.0.1", 1, 200*time.Millisecond)
	require.Error(t, err)
}
