// Package events carries time-slot status changes from the booking backend
// to whoever watches an auto-école's calendar.
package events

import (
	"context"
	"strconv"
	"sync"

	"permisconnect/internal/models"
	"permisconnect/pkg/kafka"
)

// SlotStatusChanged is published to timeslot.status_changed on every
// accepted transition.
type SlotStatusChanged struct {
	EventID     string            `json:"event_id"`
	SlotID      int64             `json:"slot_id"`
	MoniteurID  int64             `json:"moniteur_id"`
	AutoEcoleID int64             `json:"auto_ecole_id"`
	ClientID    int64             `json:"client_id,omitempty"`
	From        models.SlotStatus `json:"from"`
	To          models.SlotStatus `json:"to"`
	At          string            `json:"at"`
}

// Publisher emits slot events.
type Publisher interface {
	PublishSlotStatus(ctx context.Context, ev SlotStatusChanged) error
}

// Producer is the subset of *kafka.Client the Kafka publisher uses.
type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// KafkaPublisher writes events to Kafka keyed by slot id, so the changes of
// one slot stay ordered.
type KafkaPublisher struct {
	p Producer
}

func NewKafkaPublisher(p Producer) *KafkaPublisher {
	return &KafkaPublisher{p: p}
}

func (k *KafkaPublisher) PublishSlotStatus(ctx context.Context, ev SlotStatusChanged) error {
	return k.p.Publish(ctx, kafka.TopicSlotStatusChanged, strconv.FormatInt(ev.SlotID, 10), ev)
}

// Local delivers events in-process, synchronously, to every subscriber.
// It stands in for Kafka when no broker is configured.
type Local struct {
	mu   sync.RWMutex
	subs []func(SlotStatusChanged)
}

func NewLocal() *Local { return &Local{} }

// Subscribe registers fn for every later event.
func (l *Local) Subscribe(fn func(SlotStatusChanged)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

func (l *Local) PublishSlotStatus(_ context.Context, ev SlotStatusChanged) error {
	l.mu.RLock()
	subs := append([]func(SlotStatusChanged){}, l.subs...)
	l.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}
