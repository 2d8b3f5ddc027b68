package sandbox

import (
	"context"

	"permisconnect/internal/models"
)

// Store is the sandbox persistence contract. Lookups return ErrNotFound,
// duplicate accounts and lost transition races return ErrConflict.
type Store interface {
	CreateAccount(ctx context.Context, a *Account) error
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	Account(ctx context.Context, id int64) (*Account, error)
	UpdateProfile(ctx context.Context, p models.Profile) error

	AutoEcoles(ctx context.Context) ([]models.AutoEcole, error)
	AutoEcole(ctx context.Context, id int64) (*models.AutoEcole, error)

	Moniteurs(ctx context.Context, autoEcoleID int64) ([]models.Moniteur, error)
	Moniteur(ctx context.Context, id int64) (*models.Moniteur, error)

	TimeSlots(ctx context.Context, moniteurID int64) ([]TimeSlot, error)
	TimeSlot(ctx context.Context, id int64) (*TimeSlot, error)
	// Transition moves a slot from one status to another only if it is
	// still in from. Booking records clientID and a reservation; any other
	// target clears both.
	Transition(ctx context.Context, slotID int64, from, to models.SlotStatus, clientID int64) (*TimeSlot, error)
	Reservations(ctx context.Context, clientID int64) ([]models.Reservation, error)

	Courses(ctx context.Context, kind models.CourseType, autoEcoleID int64) ([]models.Course, error)
	Course(ctx context.Context, id int64) (*models.Course, error)
}
