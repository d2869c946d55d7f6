// Package events fans registry mutations out to connected live-update
// channels. Delivery is best-effort and never blocks the publisher.
package events

import "sync"

// Event pairs an event name with its payload for one live-update frame.
type Event struct {
	Name string
	Data any
}

// Broker owns the set of currently-connected live-update channels.
// Channels join on Subscribe and leave when their unsubscribe func runs;
// the set is empty after a process restart.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new listener and returns its event channel plus an
// unsubscribe function. The channel is buffered so slow consumers never
// block publishers.
func (b *Broker) Subscribe() (chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		// Drain anything published before removal so the channel can be
		// collected.
		for len(ch) > 0 {
			<-ch
		}
	}
	return ch, unsubscribe
}

// Publish sends the event to every connected channel. If a channel's buffer
// is full the event is dropped for that channel; the mutation that triggered
// the publish is never rolled back or retried.
func (b *Broker) Publish(name string, data any) {
	ev := Event{Name: name, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Full channel: drop rather than block.
		}
	}
}

// Subscribers reports the number of connected channels.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
