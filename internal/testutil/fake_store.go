// Package testutil provides hand-rolled fakes implementing the core ports,
// used by service-level unit tests instead of a real Mongo/HTTP/scanner
// dependency (SPEC_FULL.md §2 A7).
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/capturelog"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/counter"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
)

// FakeStore is an in-memory port.LocalStore.
type FakeStore struct {
	mu       sync.Mutex
	students map[int]*student.Student
	missing  map[int]*student.MissingStudent
	counters map[string]*counter.Counter
	captures []*capturelog.CaptureLog
}

// NewFakeStore builds an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		students: map[int]*student.Student{},
		missing:  map[int]*student.MissingStudent{},
		counters: map[string]*counter.Counter{},
	}
}

func (f *FakeStore) InsertStudent(_ context.Context, s *student.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.students[s.UID] = &cp
	return nil
}

func (f *FakeStore) FindStudentByUID(_ context.Context, uid int) (*student.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[uid]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *FakeStore) SaveStudent(_ context.Context, s *student.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.students[s.UID] = &cp
	return nil
}

func (f *FakeStore) DeleteStudent(_ context.Context, uid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.students, uid)
	return nil
}

func (f *FakeStore) ListStudents(_ context.Context, skip, limit int) ([]*student.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*student.Student
	for _, s := range f.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip > len(out) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeStore) IterateStudentsWithOfflineAttendance(_ context.Context) ([]*student.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*student.Student
	for _, s := range f.students {
		if len(s.OfflineKeys()) > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FakeStore) InsertMissingStudent(_ context.Context, m *student.MissingStudent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.missing[m.UID] = &cp
	return nil
}

func (f *FakeStore) FindMissingStudentByUID(_ context.Context, uid int) (*student.MissingStudent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.missing[uid]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *FakeStore) SaveMissingStudent(_ context.Context, m *student.MissingStudent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.missing[m.UID] = &cp
	return nil
}

func (f *FakeStore) DeleteMissingStudent(_ context.Context, uid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.missing, uid)
	return nil
}

func (f *FakeStore) ListMissingStudents(_ context.Context) ([]*student.MissingStudent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*student.MissingStudent
	for _, m := range f.missing {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (f *FakeStore) FindCounter(_ context.Context, name string) (*counter.Counter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.counters[name]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *FakeStore) SaveCounter(_ context.Context, c *counter.Counter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.counters[c.Name] = &cp
	return nil
}

func (f *FakeStore) InsertCaptureLog(_ context.Context, c *capturelog.CaptureLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, c)
	return nil
}

// CaptureLogs exposes everything written, for assertions.
func (f *FakeStore) CaptureLogs() []*capturelog.CaptureLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*capturelog.CaptureLog, len(f.captures))
	copy(out, f.captures)
	return out
}

// MissingCount reports how many missing-student rows remain, for assertions.
func (f *FakeStore) MissingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.missing)
}
