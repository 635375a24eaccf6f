package testutil

import (
	"sync"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// FakeBroadcaster records every broadcast event for assertions.
type FakeBroadcaster struct {
	mu     sync.Mutex
	events []port.Event
}

func NewFakeBroadcaster() *FakeBroadcaster {
	return &FakeBroadcaster{}
}

func (f *FakeBroadcaster) Broadcast(event port.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

// Events returns every broadcast event seen so far, in order.
func (f *FakeBroadcaster) Events() []port.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]port.Event, len(f.events))
	copy(out, f.events)
	return out
}
