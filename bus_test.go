package btproxy

import (
	"context"
	"testing"
	"time"
)

// TestBusFanOut is P5: two subscribers to the same Bus both observe every
// published advertisement, independently.
func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	subA := bus.Subscribe()
	subB := bus.Subscribe()

	adv := Advertisement{Address: 0xAABBCCDDEEFF}
	go bus.Publish(adv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	gotA := subA.Recv(ctx)
	gotB := subB.Recv(ctx)
	if gotA.Closed || gotA.Lagged != 0 || gotA.Advertisement.Address != adv.Address {
		t.Fatalf("subA.Recv = %+v", gotA)
	}
	if gotB.Closed || gotB.Lagged != 0 || gotB.Advertisement.Address != adv.Address {
		t.Fatalf("subB.Recv = %+v", gotB)
	}
}

// TestBusOverflowReportsLag is P6: a subscriber that falls more than
// BusCapacity messages behind gets a Lagged result instead of blocking the
// publisher or silently skipping.
func TestBusOverflowReportsLag(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	for i := 0; i < BusCapacity+10; i++ {
		bus.Publish(Advertisement{Address: uint64(i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := sub.Recv(ctx)
	if got.Lagged == 0 {
		t.Fatalf("Recv after overflow = %+v, want Lagged > 0", got)
	}

	next := sub.Recv(ctx)
	if next.Closed || next.Lagged != 0 {
		t.Fatalf("Recv after lag report = %+v, want a fresh advertisement", next)
	}
}

func TestBusCloseWakesSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	done := make(chan RecvResult, 1)
	go func() {
		done <- sub.Recv(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	bus.Close()

	select {
	case got := <-done:
		if !got.Closed {
			t.Fatalf("Recv after Close = %+v, want Closed=true", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake up after Close")
	}
}

func TestBusSubscribeOnlySeesFutureMessages(t *testing.T) {
	bus := NewBus()
	bus.Publish(Advertisement{Address: 1})

	sub := bus.Subscribe()
	bus.Publish(Advertisement{Address: 2})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := sub.Recv(ctx)
	if got.Advertisement.Address != 2 {
		t.Fatalf("Recv = %+v, want Address=2", got)
	}
}
