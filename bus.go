package btproxy

import (
	"context"
	"sync"
)

// BusCapacity is the fixed depth of the advertisement fan-out bus (§4.D).
const BusCapacity = 100

// Bus is a bounded broadcast of Advertisements: one producer, any number
// of independent subscribers. A slow subscriber that falls more than
// BusCapacity messages behind the producer does not block the producer or
// other subscribers; its next Recv instead reports how many messages it
// missed.
//
// Bus follows the teacher's l2cap.go idiom of a plain channel plus a
// single mutex guarding shared state, rather than reaching for an external
// pub/sub library — nothing in the example pack models a bounded,
// lag-reporting, in-process broadcast.
type Bus struct {
	mu     sync.Mutex
	buf    []Advertisement // ring buffer of the last BusCapacity publishes
	head   uint64          // total publishes so far
	closed bool
	notify chan struct{} // closed to wake subscribers on every publish and on Close; replaced after each publish
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		buf:    make([]Advertisement, 0, BusCapacity),
		notify: make(chan struct{}),
	}
}

// Publish appends adv to the bus and wakes any subscriber waiting for it.
// Publish never blocks and never fails: if there are no subscribers yet,
// the advertisement is dropped in effect, since a later Subscribe starts
// at the current head and never sees it.
func (b *Bus) Publish(adv Advertisement) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if len(b.buf) < BusCapacity {
		b.buf = append(b.buf, adv)
	} else {
		b.buf[int(b.head%BusCapacity)] = adv
	}
	b.head++
	close(b.notify)
	b.notify = make(chan struct{})
}

// Close terminates the bus; every subscriber's next Recv reports Closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// Subscriber is one independent cursor into a Bus.
type Subscriber struct {
	bus    *Bus
	cursor uint64 // index of the next message this subscriber hasn't seen
}

// Subscribe returns a fresh Subscriber positioned at the current head of
// the bus — it will only observe advertisements published after this
// call.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscriber{bus: b, cursor: b.head}
}

// RecvResult is the outcome of one Subscriber.Recv call.
type RecvResult struct {
	Advertisement Advertisement
	Lagged        uint64 // >0 if messages were skipped before Advertisement
	Closed        bool
}

// Recv blocks until the next Advertisement is available, the subscriber
// has lagged past the bus's capacity, or the bus is closed.
func (s *Subscriber) Recv(ctx context.Context) RecvResult {
	for {
		s.bus.mu.Lock()
		if s.bus.closed {
			s.bus.mu.Unlock()
			return RecvResult{Closed: true}
		}
		if s.cursor < s.bus.head {
			oldest := s.bus.head - uint64(len(s.bus.buf))
			if s.cursor < oldest {
				lagged := oldest - s.cursor
				s.cursor = oldest
				s.bus.mu.Unlock()
				return RecvResult{Lagged: lagged}
			}
			adv := s.bus.buf[int(s.cursor%BusCapacity)]
			s.cursor++
			s.bus.mu.Unlock()
			return RecvResult{Advertisement: adv}
		}
		wake := s.bus.notify
		s.bus.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return RecvResult{Closed: true}
		}
	}
}
