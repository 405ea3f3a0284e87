package recovery

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

// transport carries recovery envelopes between processes; pkg/redis
// Client satisfies it.
type transport interface {
	Publish(ctx context.Context, channel, payload string) error
	Listen(ctx context.Context, channel string) (<-chan string, error)
}

// envelope is the wire form of a broadcast recovery event.
type envelope struct {
	ID     string `json:"id"`
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Bridge fans recovery events out to companion processes over a pub/sub
// channel. Broadcast emits locally and publishes; received remote
// events only emit locally, so no event loops between instances.
type Bridge struct {
	bus       *Bus
	transport transport
	logg      *logger.Logger
	channel   string
	origin    string
}

// NewBridge wires the bridge onto the local bus and the shared channel.
func NewBridge(bus *Bus, tr transport, logg *logger.Logger, channel, origin string) (*Bridge, error) {
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "recovery bus required")
	}
	if tr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "recovery transport required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if channel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "recovery channel required")
	}
	return &Bridge{
		bus:       bus,
		transport: tr,
		logg:      logg,
		channel:   channel,
		origin:    origin,
	}, nil
}

// Broadcast emits event on the local bus and publishes it for the
// companion processes. A publish failure is logged, not fatal; local
// recovery already ran.
func (b *Bridge) Broadcast(ctx context.Context, event Event) {
	b.bus.Emit(ctx, event)

	payload, err := json.Marshal(envelope{
		ID:     uuid.NewString(),
		Origin: b.origin,
		Event:  event,
	})
	if err != nil {
		b.logg.Error(ctx, "encoding recovery broadcast", err)
		return
	}
	if err := b.transport.Publish(ctx, b.channel, string(payload)); err != nil {
		b.logg.Error(ctx, "publishing recovery broadcast", err)
	}
}

// Run subscribes to the shared channel and replays remote events on the
// local bus until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	messages, err := b.transport.Listen(ctx, b.channel)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribing to recovery channel")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			b.handle(ctx, raw)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logg.Warn(b.logg.WithField(ctx, "payload", raw), "dropping malformed recovery message")
		return
	}
	if env.Origin == b.origin {
		return
	}
	if env.Event == "" {
		return
	}
	b.bus.Emit(b.logg.WithField(ctx, "origin", env.Origin), env.Event)
}
