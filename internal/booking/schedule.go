package booking

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"permisconnect/internal/models"
)

var (
	ErrSlotUnavailable = errors.New("booking: slot is already booked")
	ErrNotHolder       = errors.New("booking: slot is not booked by you")
	// ErrStaleView means the status change went through but the reload
	// after it failed; the displayed slots predate the change.
	ErrStaleView = errors.New("booking: status updated but reload failed")
)

// Schedule is the calendar state shown to the user. It only changes when a
// full reload succeeds.
type Schedule struct {
	agg *Aggregator

	mu     sync.RWMutex
	slots  []models.Slot
	loaded bool
}

// NewSchedule creates an empty schedule over agg.
func NewSchedule(agg *Aggregator) *Schedule {
	return &Schedule{agg: agg}
}

// Slots returns a copy of the displayed slots.
func (s *Schedule) Slots() []models.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.slots)
}

// Loaded reports whether a reload ever succeeded.
func (s *Schedule) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Find returns the displayed slot with id.
func (s *Schedule) Find(id int64) (models.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, slot := range s.slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return models.Slot{}, false
}

// Reload re-runs the aggregation. On failure the displayed slots stay.
func (s *Schedule) Reload(ctx context.Context) error {
	slots, err := s.agg.Aggregate(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.slots = slots
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// SetStatus asks the backend to move slotID to status, then reloads.
// Nothing local changes before the backend confirmed.
func (s *Schedule) SetStatus(ctx context.Context, slotID int64, status models.SlotStatus) error {
	if !status.Valid() {
		return errors.Errorf("booking: unknown status %q", status)
	}
	if _, err := s.agg.dir.UpdateStatus(ctx, slotID, status); err != nil {
		s.agg.log.Warn("status update failed",
			zap.Int64("slotId", slotID), zap.String("status", string(status)), zap.Error(err))
		return err
	}
	s.agg.log.Info("status updated", zap.Int64("slotId", slotID), zap.String("status", string(status)))
	if err := s.Reload(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStaleView, err)
	}
	return nil
}

// Book reserves slotID for the current client.
func (s *Schedule) Book(ctx context.Context, slotID int64) error {
	if slot, ok := s.Find(slotID); ok && !slot.Available {
		return ErrSlotUnavailable
	}
	return s.SetStatus(ctx, slotID, models.SlotBooked)
}

// Cancel releases a slot the current client holds. Slots shown as held by
// someone else are refused locally; the backend enforces it regardless.
func (s *Schedule) Cancel(ctx context.Context, slotID int64) error {
	if slot, ok := s.Find(slotID); ok {
		clientID, _ := s.agg.id.ClientID()
		if !slot.HeldBy(clientID) {
			return ErrNotHolder
		}
	}
	return s.SetStatus(ctx, slotID, models.SlotAvailable)
}
