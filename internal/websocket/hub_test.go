package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		conn: nil,
		send: make(chan []byte, sendBufferSize),
	}
}

func groupClient(hub *Hub, groupID int64) *Client {
	c := mockClient(hub)
	c.groupID = groupID
	return c
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	msg := NewMessage("assignment", "created", 42, map[string]any{"chore_id": float64(1)})
	hub.Broadcast(msg)

	// Check both clients received the message
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "assignment_created" {
				t.Errorf("expected type assignment_created, got %s", got.Type)
			}
			if got.Entity != "assignment" {
				t.Errorf("expected entity assignment, got %s", got.Entity)
			}
			if got.ID != 42 {
				t.Errorf("expected id 42, got %d", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	msg := NewMessage("assignment", "done", 1, nil)
	hub.Broadcast(msg)
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("test", "dropped", 999, nil))

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("group", "member_added", 5, nil)
	if msg.Type != "group_member_added" {
		t.Errorf("expected type group_member_added, got %s", msg.Type)
	}
	if msg.Entity != "group" {
		t.Errorf("expected entity group, got %s", msg.Entity)
	}
	if msg.Action != "member_added" {
		t.Errorf("expected action member_added, got %s", msg.Action)
	}
	if msg.ID != 5 {
		t.Errorf("expected id 5, got %d", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", 0, nil))
			// Drain any messages
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestBroadcastGroupFilter(t *testing.T) {
	hub := NewHub(slog.Default())
	all := groupClient(hub, 0)
	g1 := groupClient(hub, 1)
	g2 := groupClient(hub, 2)
	for _, c := range []*Client{all, g1, g2} {
		hub.Register(c)
	}

	hub.Broadcast(NewMessage("assignment", "created", 7, nil).InGroup(1))

	if len(all.send) != 1 {
		t.Errorf("unfiltered client got %d messages, want 1", len(all.send))
	}
	if len(g1.send) != 1 {
		t.Errorf("group 1 client got %d messages, want 1", len(g1.send))
	}
	if len(g2.send) != 0 {
		t.Errorf("group 2 client got %d messages, want 0", len(g2.send))
	}

	hub.Broadcast(NewMessage("user", "created", 3, nil))
	if len(g2.send) != 1 {
		t.Errorf("unscoped message: group 2 client got %d messages, want 1", len(g2.send))
	}
}

func TestClientGauge(t *testing.T) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_clients"})
	hub := NewHub(slog.Default(), WithClientGauge(g))

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	if got := testutil.ToFloat64(g); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := testutil.ToFloat64(g); got != 1 {
		t.Errorf("gauge = %v, want 1", got)
	}
	hub.Unregister(c2)
}
