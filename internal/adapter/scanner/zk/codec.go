package zk

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

const userRecordSize = 72

// encodeUserRecord packs a UserRecord into the fixed-width record the
// terminal's user table uses.
func encodeUserRecord(rec port.UserRecord) []byte {
	buf := make([]byte, userRecordSize)
	binary.LittleEndian.PutUint16(buf[0:], uint16(rec.UID))
	buf[2] = byte(rec.Privilege)
	copyString(buf[3:11], rec.Password)
	copyString(buf[11:35], rec.Name)
	copyString(buf[35:43], rec.GroupID)
	copyString(buf[43:52], rec.UserID)
	return buf
}

// decodeUserRecords splits a concatenated user-table payload into records.
func decodeUserRecords(payload []byte) []port.UserRecord {
	var out []port.UserRecord
	for i := 0; i+userRecordSize <= len(payload); i += userRecordSize {
		rec := payload[i : i+userRecordSize]
		out = append(out, port.UserRecord{
			UID:       int(binary.LittleEndian.Uint16(rec[0:])),
			Privilege: int(rec[2]),
			Password:  trimString(rec[3:11]),
			Name:      trimString(rec[11:35]),
			GroupID:   trimString(rec[35:43]),
			UserID:    trimString(rec[43:52]),
		})
	}
	return out
}

// decodeCaptureEvent decodes one realtime finger-verify event: uid (2
// bytes) + device timestamp as seconds-since-epoch (4 bytes). Frames that
// don't carry a verify event (heartbeats, ack echoes) are ignored.
func decodeCaptureEvent(payload []byte) (port.CaptureEvent, bool) {
	if len(payload) < 6 {
		return port.CaptureEvent{}, false
	}
	uid := int(binary.LittleEndian.Uint16(payload[0:]))
	if uid == 0 {
		return port.CaptureEvent{}, false
	}
	epoch := binary.LittleEndian.Uint32(payload[2:])
	return port.CaptureEvent{
		UID:             uid,
		DeviceTimestamp: time.Unix(int64(epoch), 0).UTC(),
	}, true
}

func copyString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

func trimString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
