// Package student holds the canonical student record and the offline-sync
// mirror that tracks it until the remote backend acknowledges it.
package student

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SyncStatus is the lifecycle state of a MissingStudent row.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
	SyncInvalid SyncStatus = "invalid"
)

// MaxSyncAttempts is the retry cap from spec.md §4.10: three failed
// attempts and the sync worker stops retrying a row.
const MaxSyncAttempts = 3

// AttendanceEntry is a tagged variant: either a validated bool (the remote
// confirmed the event) or an offline record awaiting sync. Never both.
type AttendanceEntry struct {
	Validated bool
	Offline   *OfflineAttendance
}

// OfflineAttendance is the shape recorded for a day{N}_offline key.
type OfflineAttendance struct {
	Status         bool      `bson:"status" json:"status"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	Synced         bool      `bson:"synced" json:"synced"`
	DeviceID       string    `bson:"device_id" json:"device_id"`
	DeviceName     string    `bson:"device_name" json:"device_name"`
	DeviceLocation string    `bson:"device_location" json:"device_location"`
}

// IsOffline reports whether a day-key carries an offline suffix, per the
// GLOSSARY's "Offline key" definition.
func IsOffline(dayKey string) bool {
	return strings.HasSuffix(dayKey, "_offline")
}

// BaseDayKey strips the _offline suffix, e.g. "day3_offline" -> "day3".
func BaseDayKey(dayKey string) string {
	return strings.TrimSuffix(dayKey, "_offline")
}

// Student is the canonical local record. uid uniquely identifies a person
// across the edge and the remote for life; it is never reused.
type Student struct {
	ID                  any                        `bson:"_id,omitempty" json:"id,omitempty"`
	UID                 int                        `bson:"uid" json:"uid"`
	StudentID           string                     `bson:"student_id" json:"student_id"`
	FirstName           string                     `bson:"first_name" json:"first_name"`
	LastName            string                     `bson:"last_name" json:"last_name"`
	Phone               string                     `bson:"phone" json:"phone"`
	Level               string                     `bson:"level,omitempty" json:"level,omitempty"`
	FingerprintTemplate string                     `bson:"fingerprint_template,omitempty" json:"fingerprint_template,omitempty"`
	Attendance          map[string]AttendanceEntry `bson:"attendance" json:"attendance"`
	CreatedAt           time.Time                  `bson:"created_at" json:"created_at"`
}

// NewTemplateBase64 encodes a raw fingerprint template for transport/storage,
// matching the original system's base64-encoded template convention.
func NewTemplateBase64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// NextDayKey returns the smallest unused day{N}[_offline] key for this
// student, per spec.md §4.8: N is the count of existing entries.
func (s *Student) NextDayKey(offline bool) string {
	n := len(s.Attendance) + 1
	key := fmt.Sprintf("day%d", n)
	if offline {
		key += "_offline"
	}
	// Guard against interleaving from concurrent captures on other devices
	// (spec.md §5: no global ordering across devices) by probing forward
	// until a genuinely free key is found.
	for {
		if _, exists := s.Attendance[key]; !exists {
			return key
		}
		n++
		key = fmt.Sprintf("day%d", n)
		if offline {
			key += "_offline"
		}
	}
}

// RecordValidated appends a validated attendance entry under the next key.
func (s *Student) RecordValidated() string {
	if s.Attendance == nil {
		s.Attendance = map[string]AttendanceEntry{}
	}
	key := s.NextDayKey(false)
	s.Attendance[key] = AttendanceEntry{Validated: true}
	return key
}

// RecordOffline appends an offline attendance entry under the next offline key.
func (s *Student) RecordOffline(entry OfflineAttendance) string {
	if s.Attendance == nil {
		s.Attendance = map[string]AttendanceEntry{}
	}
	key := s.NextDayKey(true)
	s.Attendance[key] = AttendanceEntry{Offline: &entry}
	return key
}

// PromoteOffline renames a day{N}_offline key to day{N} = true, preserving
// the total key count (I4).
func (s *Student) PromoteOffline(offlineKey string) (string, bool) {
	entry, ok := s.Attendance[offlineKey]
	if !ok || entry.Offline == nil {
		return "", false
	}
	newKey := BaseDayKey(offlineKey)
	delete(s.Attendance, offlineKey)
	s.Attendance[newKey] = AttendanceEntry{Validated: true}
	return newKey, true
}

// DropOffline removes an offline entry that the remote permanently rejected,
// per the documented policy of spec.md §4.10 step 6.
func (s *Student) DropOffline(offlineKey string) {
	delete(s.Attendance, offlineKey)
}

// OfflineKeys returns all unsynced offline attendance keys in a stable order.
func (s *Student) OfflineKeys() []string {
	var keys []string
	for k, v := range s.Attendance {
		if v.Offline != nil && !v.Offline.Synced {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// MissingStudent mirrors Student with sync metadata, per spec.md §3.
type MissingStudent struct {
	ID                any                        `bson:"_id,omitempty" json:"id,omitempty"`
	UID               int                        `bson:"uid" json:"uid"`
	StudentID         string                     `bson:"student_id" json:"student_id"`
	FirstName         string                     `bson:"first_name" json:"first_name"`
	LastName          string                     `bson:"last_name" json:"last_name"`
	Phone             string                     `bson:"phone" json:"phone"`
	Level             string                     `bson:"level,omitempty" json:"level,omitempty"`
	SyncStatus        SyncStatus                 `bson:"sync_status" json:"sync_status"`
	SyncAttempts      int                        `bson:"sync_attempts" json:"sync_attempts"`
	LastSyncAttempt   *time.Time                 `bson:"last_sync_attempt,omitempty" json:"last_sync_attempt,omitempty"`
	SyncError         string                     `bson:"sync_error,omitempty" json:"sync_error,omitempty"`
	SyncedAt          *time.Time                 `bson:"synced_at,omitempty" json:"synced_at,omitempty"`
	CreatedOfflineAt  time.Time                  `bson:"created_offline_at" json:"created_offline_at"`
}

// Eligible reports whether the sync worker should attempt this row, per
// spec.md §4.10 step 2: pending, or failed with fewer than MaxSyncAttempts.
func (m *MissingStudent) Eligible() bool {
	if m.SyncStatus == SyncPending {
		return true
	}
	return m.SyncStatus == SyncFailed && m.SyncAttempts < MaxSyncAttempts
}

// FromStudent builds the MissingStudent mirror created alongside an
// offline registration.
func FromStudent(s *Student, now time.Time) *MissingStudent {
	return &MissingStudent{
		UID:              s.UID,
		StudentID:        s.StudentID,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		Phone:            s.Phone,
		Level:            s.Level,
		SyncStatus:       SyncPending,
		CreatedOfflineAt: now,
	}
}

// RemotePayload returns the fields posted to the remote backend, excluding
// sync-bookkeeping fields (student_id is sent as a string per the remote
// contract).
func (m *MissingStudent) RemotePayload() map[string]any {
	return map[string]any{
		"uid":        m.UID,
		"student_id": m.StudentID,
		"first_name": m.FirstName,
		"last_name":  m.LastName,
		"phone":      m.Phone,
		"level":      m.Level,
	}
}

// StudentIDFromUID renders the string form of a uid, per spec.md §3.
func StudentIDFromUID(uid int) string {
	return strconv.Itoa(uid)
}
