package zk

import (
	"encoding/binary"
	"testing"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePacket_RoundTrips(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	frame := encodePacket(cmdConnect, 7, 1, payload)

	// Header (4 magic bytes) + 4-byte length prefix precede the body.
	require.Equal(t, header, frame[:4])
	size := binary.LittleEndian.Uint32(frame[4:8])
	body := frame[8 : 8+size]

	pkt, err := decodePacket(body)
	require.NoError(t, err)
	require.Equal(t, uint16(cmdConnect), pkt.command)
	require.Equal(t, uint16(7), pkt.sessID)
	require.Equal(t, uint16(1), pkt.replyID)
	require.Equal(t, payload, pkt.payload)
}

func TestEncodeDecodeUserRecord_RoundTrips(t *testing.T) {
	rec := port.UserRecord{
		UID: 10042, Name: "Jane Doe", Privilege: 0,
		Password: "", GroupID: "g1", UserID: "10042",
	}
	buf := encodeUserRecord(rec)
	require.Len(t, buf, userRecordSize)

	got := decodeUserRecords(append(buf, buf...))
	require.Len(t, got, 2)
	require.Equal(t, rec.UID, got[0].UID)
	require.Equal(t, rec.Name, got[0].Name)
	require.Equal(t, rec.GroupID, got[0].GroupID)
	require.Equal(t, rec.UserID, got[0].UserID)
}

func TestDecodeCaptureEvent_IgnoresZeroUID(t *testing.T) {
	payload := make([]byte, 6)
	_, ok := decodeCaptureEvent(payload)
	require.False(t, ok)
}

func TestDecodeCaptureEvent_DecodesUIDAndTimestamp(t *testing.T) {
	payload := make([]byte, 6)
	binary.LittleEndian.PutUint16(payload[0:], 55)
	binary.LittleEndian.PutUint32(payload[2:], 1700000000)

	ev, ok := decodeCaptureEvent(payload)
	require.True(t, ok)
	require.Equal(t, 55, ev.UID)
	require.Equal(t, int64(1700000000), ev.DeviceTimestamp.Unix())
}
