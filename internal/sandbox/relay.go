package sandbox

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"permisconnect/internal/events"
	"permisconnect/pkg/kafka"
)

// Subscriber is the subset of *kafka.Client the relay consumes from.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error)
}

// Broadcaster pushes an event to live clients. *live.Hub implements it.
type Broadcaster interface {
	Broadcast(ev events.SlotStatusChanged)
}

// Relay consumes timeslot.status_changed and fans each event out to the
// websocket subscribers of its auto-école.
type Relay struct {
	sub Subscriber
	out Broadcaster
	log *zap.Logger
}

// NewRelay creates a relay.
func NewRelay(sub Subscriber, out Broadcaster, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{sub: sub, out: out, log: log.Named("relay")}
}

// Start begins consuming in a background goroutine.
func (r *Relay) Start(ctx context.Context, groupID string) {
	r.sub.Subscribe(ctx, kafka.TopicSlotStatusChanged, groupID, r.handle)
}

func (r *Relay) handle(data []byte) error {
	var ev events.SlotStatusChanged
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	r.log.Debug("slot event",
		zap.Int64("slotId", ev.SlotID),
		zap.Int64("autoEcoleId", ev.AutoEcoleID),
		zap.String("to", string(ev.To)),
	)
	r.out.Broadcast(ev)
	return nil
}
