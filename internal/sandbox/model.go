// Package sandbox is a self-contained PermisConnect backend used for local
// development and end-to-end tests of the client.
package sandbox

import (
	"errors"
	"time"

	"permisconnect/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
)

// wireTime is how slot times travel on the wire (local time, no zone).
const wireTime = "2006-01-02T15:04:05"

// Account is a stored client with credentials.
type Account struct {
	models.Profile
	PasswordHash string
	Role         string
}

// TimeSlot is a stored lesson slot. ClientID is set while booked.
type TimeSlot struct {
	ID         int64
	MoniteurID int64
	Start      time.Time
	End        time.Time
	Status     models.SlotStatus
	ClientID   int64
}

// DTO renders the slot as the client expects it.
func (s TimeSlot) DTO(m *models.Moniteur) models.TimeSlotDTO {
	d := models.TimeSlotDTO{
		ID:         s.ID,
		MoniteurID: s.MoniteurID,
		StartTime:  s.Start.Format(wireTime),
		EndTime:    s.End.Format(wireTime),
		Status:     s.Status,
		ClientID:   s.ClientID,
	}
	if m != nil {
		d.Instructor = m.FullName()
	}
	return d
}
