package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/legacygit/internal/replay"
)

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func count(msgs []string, eventType string) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, "event: "+eventType+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "replay.started", Data: map[string]string{"trigger": "versions.csv"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: replay.started") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"trigger":"versions.csv"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishReplay_HistoryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishReplay(replay.Event{Kind: replay.EventCommitted, Reference: "R1", Commit: "c1"})
	b.PublishReplay(replay.Event{Kind: replay.EventCommitted, Reference: "R2", Commit: "c2"})
	b.PublishReplay(replay.Event{Kind: replay.EventBranch, Branch: "R3"})

	msgs := drain(ch)
	if n := count(msgs, replay.EventCommitted); n != 2 {
		t.Errorf("commit events = %d, want 2", n)
	}
	if n := count(msgs, replay.EventBranch); n != 1 {
		t.Errorf("branch events = %d, want 1", n)
	}
	if n := count(msgs, HistoryUpdated); n != 1 {
		t.Errorf("history events = %d, want 1 (throttled)", n)
	}
	if !strings.Contains(msgs[0], `"reference":"R1"`) {
		t.Errorf("payload = %q", msgs[0])
	}
}

func TestPublishReplay_FinishedAlwaysUpdatesHistory(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishReplay(replay.Event{Kind: replay.EventCommitted, Reference: "R1"})
	b.PublishReplay(replay.Event{Kind: replay.EventFinished, Chain: -1, Position: -1})

	if n := count(drain(ch), HistoryUpdated); n != 2 {
		t.Errorf("history events = %d, want 2", n)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishReplay(replay.Event{Kind: replay.EventSkipped, Reference: "R2"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: commit.skipped") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Client buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: "replay.started"})
	b.PublishReplay(replay.Event{Kind: replay.EventFinished})
}
