package state

import (
	"context"
	"testing"
	"time"
)

func TestQueue_Flush(t *testing.T) {
	queue := NewQueue()
	calls := make([]int, 0, 2)

	queue.Schedule(func() {
		calls = append(calls, 1)
	})
	queue.Schedule(func() {
		calls = append(calls, 2)
	})

	if queue.Len() != 2 {
		t.Fatalf("expected 2 pending, got %d", queue.Len())
	}
	if flushed := queue.Flush(); flushed != 2 {
		t.Fatalf("expected 2 callbacks flushed, got %d", flushed)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("unexpected callback order: %v", calls)
	}
	if flushed := queue.Flush(); flushed != 0 {
		t.Fatalf("expected empty flush, got %d", flushed)
	}
}

func TestLoop_Run(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan int, 1)
	count := 0
	for i := 0; i < 3; i++ {
		go loop.Schedule(func() {
			count++
			if count == 3 {
				done <- count
			}
		})
	}

	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	select {
	case got := <-done:
		if got != 3 {
			t.Fatalf("expected 3 callbacks, got %d", got)
		}
	case <-ctx.Done():
		t.Fatalf("loop did not run callbacks")
	}
	cancel()
	if err := <-errc; err == nil {
		t.Fatalf("expected context error from Run")
	}
}

func TestSerial_Reentrant(t *testing.T) {
	var serial Serial
	var order []int

	serial.Schedule(func() {
		order = append(order, 1)
		serial.Schedule(func() {
			order = append(order, 3)
		})
		order = append(order, 2)
	})
	serial.Schedule(func() {
		order = append(order, 4)
	})

	if len(order) != 4 || order[0] != 1 || order[1] != 2 || order[2] != 3 || order[3] != 4 {
		t.Fatalf("unexpected order: %v", order)
	}
}
