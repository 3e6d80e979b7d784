// Package event fans engine signals out to any number of presentation
// subscribers without letting a slow subscriber block the publisher.
package event

import "sync"

const defaultBuffer = 16

// Broadcaster delivers published values to every subscriber. Publish never
// blocks: when a subscriber's buffer is full the oldest queued value is
// dropped in favour of the newest one.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	buffer int
	last   *T
	replay bool
	closed bool
}

// New returns a Broadcaster whose subscriber channels hold buffer values.
// A non-positive buffer uses the default.
func New[T any](buffer int) *Broadcaster[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broadcaster[T]{subs: make(map[int]chan T), buffer: buffer}
}

// NewLatest returns a Broadcaster that replays the most recent value to new
// subscribers. It suits state streams where late joiners need the current
// value.
func NewLatest[T any](buffer int) *Broadcaster[T] {
	b := New[T](buffer)
	b.replay = true
	return b
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.replay && b.last != nil {
		ch <- *b.last
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish sends v to all current subscribers.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.replay {
		b.last = &v
	}
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Drop the oldest value to make room for v.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Latest returns the most recent value when the broadcaster replays.
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		var zero T
		return zero, false
	}
	return *b.last, true
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
