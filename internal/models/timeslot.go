package models

import "time"

// SlotStatus is the lifecycle state of a time slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
	SlotCancelled SlotStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotBooked, SlotCancelled:
		return true
	}
	return false
}

// TimeSlotDTO is a time slot as the backend sends it. Older payloads nest
// the instructor instead of naming it, and carry the holder as clientId.
type TimeSlotDTO struct {
	ID         int64      `json:"id"`
	MoniteurID int64      `json:"moniteurId,omitempty"`
	StartTime  string     `json:"startTime"`
	EndTime    string     `json:"endTime"`
	Status     SlotStatus `json:"status"`
	Instructor string     `json:"instructor,omitempty"`
	Moniteur   *Moniteur  `json:"moniteur,omitempty"`
	ClientID   int64      `json:"clientId,omitempty"`
	BookedBy   int64      `json:"bookedBy,omitempty"`
}

// Slot is a display-ready time slot.
type Slot struct {
	ID         int64      `json:"id"`
	MoniteurID int64      `json:"moniteurId"`
	Instructor string     `json:"instructor"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	Status     SlotStatus `json:"status"`
	Available  bool       `json:"available"`
	BookedBy   int64      `json:"bookedBy,omitempty"`
}

// HeldBy reports whether clientID holds this slot.
func (s Slot) HeldBy(clientID int64) bool {
	return clientID != 0 && s.BookedBy == clientID
}

// ReservationDTO is a reservation as the backend sends it.
type ReservationDTO struct {
	ID         int64 `json:"id"`
	ClientID   int64 `json:"clientId,omitempty"`
	TimeSlotID int64 `json:"timeSlotId,omitempty"`
	TimeSlot   *struct {
		ID int64 `json:"id"`
	} `json:"timeSlot,omitempty"`
}

// SlotID resolves the reserved slot from either wire shape.
func (r ReservationDTO) SlotID() int64 {
	if r.TimeSlot != nil && r.TimeSlot.ID != 0 {
		return r.TimeSlot.ID
	}
	return r.TimeSlotID
}

// Reservation is a client's claim on a time slot.
type Reservation struct {
	ID         int64 `json:"id"`
	ClientID   int64 `json:"clientId"`
	TimeSlotID int64 `json:"timeSlotId"`
}
