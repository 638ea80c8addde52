package event

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/livedoc/livedoc/internal/logging"
)

func receive(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
	return ChangeEvent{}
}

func TestHub_SubscribeDistinctIDs(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	const n = 50
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		sub := hub.Subscribe()
		if seen[sub.ID] {
			t.Fatalf("duplicate subscriber id %s", sub.ID)
		}
		seen[sub.ID] = true
	}

	if hub.Len() != n {
		t.Errorf("Expected %d subscribers, got %d", n, hub.Len())
	}
}

func TestHub_PublishFIFO(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Subscribe()
	b := hub.Subscribe()

	paths := []string{"/tmp/one.pdf", "/tmp/two.pdf", "/tmp/three.pdf"}
	for _, p := range paths {
		if got := hub.Publish(NewChangeEvent(p)); got != 2 {
			t.Errorf("Expected delivery to 2 subscribers, got %d", got)
		}
	}

	for _, sub := range []*Subscriber{a, b} {
		for _, want := range paths {
			ev := receive(t, sub.C)
			if ev.Path != want {
				t.Errorf("subscriber %s: expected %s, got %s", sub.ID, want, ev.Path)
			}
			if ev.Kind != DataModified {
				t.Errorf("Expected kind %s, got %s", DataModified, ev.Kind)
			}
		}
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Unsubscribe(a.ID)
	// Removing twice is not an error
	hub.Unsubscribe(a.ID)
	hub.Unsubscribe("does-not-exist")

	if got := hub.Publish(NewChangeEvent("/tmp/doc.pdf")); got != 1 {
		t.Errorf("Expected delivery to 1 subscriber, got %d", got)
	}

	if _, ok := <-a.C; ok {
		t.Error("removed subscriber should not receive events")
	}
	receive(t, b.C)

	if hub.Len() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", hub.Len())
	}
}

func TestHub_FullChannelDoesNotBlock(t *testing.T) {
	hub := NewHub(WithBufferSize(2))
	defer hub.Close()

	slow := hub.Subscribe()
	fast := hub.Subscribe()

	hub.Publish(NewChangeEvent("/tmp/doc.pdf"))
	hub.Publish(NewChangeEvent("/tmp/doc.pdf"))
	receive(t, fast.C)
	receive(t, fast.C)

	done := make(chan int, 1)
	go func() {
		done <- hub.Publish(NewChangeEvent("/tmp/doc.pdf"))
	}()

	select {
	case delivered := <-done:
		if delivered != 1 {
			t.Errorf("Expected delivery to 1 subscriber, got %d", delivered)
		}
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	receive(t, fast.C)
	if hub.Dropped() != 1 {
		t.Errorf("Expected 1 dropped delivery, got %d", hub.Dropped())
	}
	if len(slow.C) != 2 {
		t.Errorf("Expected slow subscriber to keep 2 buffered events, got %d", len(slow.C))
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	// Drop warnings would flood the output
	logging.Init(logging.Config{Level: logging.ErrorLevel, Output: &syncBuffer{}})

	hub := NewHub()
	defer hub.Close()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Publish(NewChangeEvent("/tmp/doc.pdf"))
			}
		}
	}()

	var clients sync.WaitGroup
	for i := 0; i < 20; i++ {
		clients.Add(1)
		go func() {
			defer clients.Done()
			for j := 0; j < 50; j++ {
				sub := hub.Subscribe()
				select {
				case <-sub.C:
				default:
				}
				hub.Unsubscribe(sub.ID)
				for range sub.C {
					// drain what was buffered before removal
				}
			}
		}()
	}

	clients.Wait()
	close(stop)
	wg.Wait()

	if hub.Len() != 0 {
		t.Errorf("Expected no subscribers left, got %d", hub.Len())
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe()
	if err := hub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close is a no-op
	if err := hub.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, ok := <-sub.C; ok {
		t.Error("Expected subscriber channel to be closed")
	}

	late := hub.Subscribe()
	if _, ok := <-late.C; ok {
		t.Error("Expected subscription on closed hub to be closed")
	}

	if got := hub.Publish(NewChangeEvent("/tmp/doc.pdf")); got != 0 {
		t.Errorf("Expected no deliveries after close, got %d", got)
	}
	if hub.Len() != 0 {
		t.Errorf("Expected 0 subscribers after close, got %d", hub.Len())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestLogChanges(t *testing.T) {
	out := &syncBuffer{}
	logging.Init(logging.Config{Level: logging.InfoLevel, Output: out})

	hub := NewHub()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := LogChanges(ctx, hub); err != nil {
		t.Fatalf("LogChanges failed: %v", err)
	}

	hub.Publish(NewChangeEvent("/tmp/report.pdf"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), "/tmp/report.pdf") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected change to be logged, got: %s", out.String())
}
