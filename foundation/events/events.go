// Package events fans node events out to registered receivers such as
// websocket clients.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// messageBuffer is the number of events a slow receiver can fall behind
// before events are dropped for it.
const messageBuffer = 100

// receiver is a registered channel and the event prefix it wants.
type receiver struct {
	ch     chan string
	prefix string
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	m  map[string]receiver
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]receiver),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, r := range evt.m {
		delete(evt.m, id)
		close(r.ch)
	}
}

// Acquire takes a unique id and returns a channel that receives every event
// starting with the prefix. An empty prefix receives everything.
func (evt *Events) Acquire(id string, prefix string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if r, exists := evt.m[id]; exists {
		return r.ch
	}

	r := receiver{
		ch:     make(chan string, messageBuffer),
		prefix: prefix,
	}
	evt.m[id] = r

	return r.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	r, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(r.ch)
	return nil
}

// Count returns the number of registered receivers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel whose prefix matches.
// Send will not block waiting for a receiver on any given channel and
// returns the number of receivers the message was delivered to.
func (evt *Events) Send(s string) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	var sent int
	for _, r := range evt.m {
		if !strings.HasPrefix(s, r.prefix) {
			continue
		}

		select {
		case r.ch <- s:
			sent++
		default:
		}
	}

	return sent
}
