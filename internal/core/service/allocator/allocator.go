// Package allocator implements the Identifier Allocator (C6): the
// peek-then-commit discipline over the student_sequence counter that
// guarantees no id holes on failed enrollment (spec.md §4.6, I1, I2).
package allocator

import (
	"context"
	"errors"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/counter"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// ErrCounterExhausted is fatal for enrollment: the counter has reached
// MAX_UID (spec.md §7).
var ErrCounterExhausted = errors.New("counter exhausted: value >= MAX_UID")

// Allocator manages the student_sequence counter. peek() is never
// "burned" until increment() is explicitly called after a successful
// downstream commit; this is the single anti-hole property (spec.md §4.6).
type Allocator struct {
	store port.LocalStore
}

// New builds an Allocator over store.
func New(store port.LocalStore) *Allocator {
	return &Allocator{store: store}
}

func (a *Allocator) getOrInit(ctx context.Context) (*counter.Counter, error) {
	c, err := a.store.FindCounter(ctx, counter.StudentSequenceName)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &counter.Counter{Name: counter.StudentSequenceName, Value: counter.DefaultStartValue}
		if err := a.store.SaveCounter(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Peek computes next id = current + 1 without advancing the counter.
func (a *Allocator) Peek(ctx context.Context) (int, error) {
	c, err := a.getOrInit(ctx)
	if err != nil {
		return 0, err
	}
	return c.Value + 1, nil
}

// Increment advances the counter by 1. Call only after a successful
// downstream commit (spec.md §4.6).
func (a *Allocator) Increment(ctx context.Context) (int, error) {
	c, err := a.getOrInit(ctx)
	if err != nil {
		return 0, err
	}
	if c.Exhausted() {
		return 0, ErrCounterExhausted
	}
	c.Value++
	if err := a.store.SaveCounter(ctx, c); err != nil {
		return 0, err
	}
	return c.Value, nil
}

// Sync sets the counter so that the next Peek() returns remoteUID+1,
// per spec.md §9's resolution of the ambiguous original contract.
func (a *Allocator) Sync(ctx context.Context, remoteUID int) error {
	c, err := a.store.FindCounter(ctx, counter.StudentSequenceName)
	if err != nil {
		return err
	}
	if c == nil {
		c = &counter.Counter{Name: counter.StudentSequenceName}
	}
	c.Value = remoteUID
	return a.store.SaveCounter(ctx, c)
}

// Initialize resets the counter to an explicit admin-supplied value.
func (a *Allocator) Initialize(ctx context.Context, value int) error {
	c, err := a.store.FindCounter(ctx, counter.StudentSequenceName)
	if err != nil {
		return err
	}
	if c == nil {
		c = &counter.Counter{Name: counter.StudentSequenceName}
	}
	c.Value = value
	return a.store.SaveCounter(ctx, c)
}
