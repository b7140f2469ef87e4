package crosstab

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/huzilerz/session-core/infra/pubsub"
	"github.com/huzilerz/session-core/infra/pubsub/factory/gochannel"
	"github.com/huzilerz/session-core/internal/model"
)

func testBus(t *testing.T) pubsub.Provider {
	t.Helper()
	bus, err := pubsub.NewDefaultProvider(
		gochannel.NewFactory(watermill.NopLogger{}), "test",
	)
	if err != nil {
		t.Fatalf("NewDefaultProvider() error = %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return bus
}

// collect starts [s] applying into a channel ; subscription is
// in place before collect returns.
func collect(t *testing.T, ctx context.Context, s *Synchronizer) <-chan Event {
	t.Helper()
	events := make(chan Event, 16)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = s.Run(ctx, func(e Event) { events <- e })
	}()
	<-ready
	// gochannel subscription registration races Run's first
	// statement ; give it a beat
	time.Sleep(50 * time.Millisecond)
	return events
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestBroadcastDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := testBus(t)

	sender := New(bus, nil)
	receiver := New(bus, nil)
	events := collect(t, ctx, receiver)

	err := sender.Broadcast(ctx, Event{
		Type:      EventWorkspaceSwitch,
		Workspace: &model.WorkspaceContext{ID: "ws-2"},
	})
	if err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	got := waitEvent(t, events)
	if got.Type != EventWorkspaceSwitch {
		t.Errorf("type = %s, want workspace-switch", got.Type)
	}
	if got.SenderID != sender.SenderID() {
		t.Errorf("sender = %q, want %q", got.SenderID, sender.SenderID())
	}
	if got.Workspace == nil || got.Workspace.ID != "ws-2" {
		t.Errorf("workspace = %+v, want ws-2", got.Workspace)
	}
	if got.SentAt == 0 {
		t.Error("SentAt not stamped")
	}
}

func TestOwnEchoSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := testBus(t)

	surface := New(bus, nil)
	events := collect(t, ctx, surface)

	if err := surface.Broadcast(ctx, Event{Type: EventLogout}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	select {
	case e := <-events:
		t.Errorf("own echo applied: %+v", e)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestStaleEventDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := testBus(t)

	base := time.Now()
	sender := New(bus, nil, WithClock(model.ClockAt(base.Add(-10*time.Second))))
	receiver := New(bus, nil, WithClock(model.ClockAt(base)))
	events := collect(t, ctx, receiver)

	// stamped 10s in the past ; over the 5s TTL on receipt
	if err := sender.Broadcast(ctx, Event{Type: EventLogout}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	select {
	case e := <-events:
		t.Errorf("stale event applied: %+v", e)
	case <-time.After(300 * time.Millisecond):
	}

	// a fresh one still goes through
	fresh := New(bus, nil, WithClock(model.ClockAt(base)))
	if err := fresh.Broadcast(ctx, Event{Type: EventLogout}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if got := waitEvent(t, events); got.Type != EventLogout {
		t.Errorf("type = %s, want logout", got.Type)
	}
}

func TestEventExpire(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		event *Event
		want  bool
	}{
		{"fresh", &Event{SentAt: now.UnixMilli()}, false},
		{"just inside", &Event{SentAt: now.Add(-4 * time.Second).UnixMilli()}, false},
		{"over ttl", &Event{SentAt: now.Add(-6 * time.Second).UnixMilli()}, true},
		{"unstamped", &Event{}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Expire(now, DefaultTTL); got != tt.want {
				t.Errorf("Expire() = %v, want %v", got, tt.want)
			}
		})
	}
}
