package session

import "sync"

// Bus broadcasts the fire-and-forget token-expired signal. Any HTTP call
// that sees a 401 publishes; the monitor converges the signal with its own
// poll-based detection onto a single sign-out.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan struct{})}
}

// Subscribe returns a channel that receives expiration signals and a
// function to unsubscribe. The channel is buffered; a subscriber that has an
// undelivered signal pending will not receive duplicates.
func (b *Bus) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish signals token expiration to all subscribers without blocking.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
