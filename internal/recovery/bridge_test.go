package recovery

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type fakeTransport struct {
	published []string
	incoming  chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{incoming: make(chan string, 8)}
}

func (f *fakeTransport) Publish(ctx context.Context, channel, payload string) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeTransport) Listen(ctx context.Context, channel string) (<-chan string, error) {
	return f.incoming, nil
}

func TestBroadcastEmitsLocallyAndPublishes(t *testing.T) {
	bus := NewBus(testLogger())
	tr := newFakeTransport()
	bridge, err := NewBridge(bus, tr, testLogger(), "zentik-recovery", "sync-0")
	if err != nil {
		t.Fatalf("bridge: %v", err)
	}

	var got Event
	bus.On(EventStorageCorrupted, func(ctx context.Context, event Event) { got = event })

	bridge.Broadcast(context.Background(), EventStorageCorrupted)

	if got != EventStorageCorrupted {
		t.Fatal("expected local emit")
	}
	if len(tr.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(tr.published))
	}

	var env envelope
	if err := json.Unmarshal([]byte(tr.published[0]), &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Origin != "sync-0" || env.Event != EventStorageCorrupted || env.ID == "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestRunReplaysRemoteEvents(t *testing.T) {
	bus := NewBus(testLogger())
	tr := newFakeTransport()
	bridge, _ := NewBridge(bus, tr, testLogger(), "zentik-recovery", "sync-0")

	delivered := make(chan Event, 1)
	bus.On(EventDeviceInvalidated, func(ctx context.Context, event Event) {
		delivered <- event
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bridge.Run(ctx) }()

	remote, _ := json.Marshal(envelope{ID: "e-1", Origin: "widget-1", Event: EventDeviceInvalidated})
	tr.incoming <- string(remote)

	select {
	case event := <-delivered:
		if event != EventDeviceInvalidated {
			t.Fatalf("unexpected event %v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("remote event not delivered")
	}
}

func TestRunSkipsOwnOriginAndMalformed(t *testing.T) {
	bus := NewBus(testLogger())
	tr := newFakeTransport()
	bridge, _ := NewBridge(bus, tr, testLogger(), "zentik-recovery", "sync-0")

	var calls int
	done := make(chan struct{}, 1)
	bus.On(EventStorageCorrupted, func(ctx context.Context, event Event) {
		calls++
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bridge.Run(ctx) }()

	own, _ := json.Marshal(envelope{ID: "e-1", Origin: "sync-0", Event: EventStorageCorrupted})
	tr.incoming <- "{not json"
	tr.incoming <- string(own)
	remote, _ := json.Marshal(envelope{ID: "e-2", Origin: "widget-1", Event: EventStorageCorrupted})
	tr.incoming <- string(remote)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("remote event not delivered")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
}
