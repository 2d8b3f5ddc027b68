package moniteurs

import (
	"context"
	"fmt"
	"net/url"

	"permisconnect/internal/api"
	"permisconnect/internal/models"
)

// Service wraps the instructor, time-slot and reservation endpoints.
type Service struct {
	api *api.Client
}

// NewService creates a moniteur service.
func NewService(c *api.Client) *Service {
	return &Service{api: c}
}

// ByAutoEcole lists the instructors of an auto-école.
func (s *Service) ByAutoEcole(ctx context.Context, autoEcoleID int64) ([]models.Moniteur, error) {
	var out []models.Moniteur
	if err := s.api.Get(ctx, fmt.Sprintf("/moniteurs/auto-ecole/%d", autoEcoleID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TimeSlots lists one instructor's slots, display-ready.
func (s *Service) TimeSlots(ctx context.Context, moniteurID int64) ([]models.Slot, error) {
	var dtos []models.TimeSlotDTO
	if err := s.api.Get(ctx, fmt.Sprintf("/time-slots/moniteur/%d", moniteurID), &dtos); err != nil {
		return nil, err
	}
	out := make([]models.Slot, 0, len(dtos))
	for _, d := range dtos {
		if d.MoniteurID == 0 {
			d.MoniteurID = moniteurID
		}
		out = append(out, ToSlot(d))
	}
	return out, nil
}

// UpdateStatus moves a slot to status.
func (s *Service) UpdateStatus(ctx context.Context, slotID int64, status models.SlotStatus) (*models.Slot, error) {
	var dto models.TimeSlotDTO
	q := url.Values{"status": {string(status)}}
	if err := s.api.Put(ctx, fmt.Sprintf("/time-slots/%d/status", slotID), q, nil, &dto); err != nil {
		return nil, err
	}
	slot := ToSlot(dto)
	return &slot, nil
}

// Reservations lists the reservations held by a client.
func (s *Service) Reservations(ctx context.Context, clientID int64) ([]models.Reservation, error) {
	var dtos []models.ReservationDTO
	if err := s.api.Get(ctx, fmt.Sprintf("/reservations/client/%d", clientID), &dtos); err != nil {
		return nil, err
	}
	out := make([]models.Reservation, 0, len(dtos))
	for _, d := range dtos {
		clientOf := d.ClientID
		if clientOf == 0 {
			clientOf = clientID
		}
		out = append(out, models.Reservation{ID: d.ID, ClientID: clientOf, TimeSlotID: d.SlotID()})
	}
	return out, nil
}
