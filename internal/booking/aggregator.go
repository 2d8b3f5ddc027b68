// Package booking builds the lesson calendar of the selected auto-école and
// books or cancels time slots against it.
package booking

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"permisconnect/internal/api"
	"permisconnect/internal/models"
)

var (
	ErrNoAutoEcoleSelected = errors.New("booking: no auto-école selected")
	ErrNotAuthenticated    = errors.New("booking: not logged in")
)

// DefaultConcurrency caps simultaneous per-instructor fetches.
const DefaultConcurrency = 4

const unknownInstructor = "Unknown Instructor"

// Directory is the backend surface the booking flow needs.
// *moniteurs.Service implements it.
type Directory interface {
	ByAutoEcole(ctx context.Context, autoEcoleID int64) ([]models.Moniteur, error)
	TimeSlots(ctx context.Context, moniteurID int64) ([]models.Slot, error)
	Reservations(ctx context.Context, clientID int64) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, slotID int64, status models.SlotStatus) (*models.Slot, error)
}

// Identity tells the flow who is booking and where. *session.Session
// implements it.
type Identity interface {
	SelectedAutoEcole() (models.AutoEcole, bool)
	ClientID() (int64, bool)
}

// Aggregator merges the time slots of every instructor of the selected
// auto-école into one display-ready list.
type Aggregator struct {
	dir         Directory
	id          Identity
	log         *zap.Logger
	concurrency int
}

// NewAggregator creates an aggregator.
func NewAggregator(dir Directory, id Identity, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{dir: dir, id: id, log: log.Named("booking"), concurrency: DefaultConcurrency}
}

// SetConcurrency changes the per-instructor fan-out limit.
func (a *Aggregator) SetConcurrency(n int) {
	if n > 0 {
		a.concurrency = n
	}
}

// Aggregate loads the slots of every instructor, sorts them by display
// time and annotates availability and the client's own bookings.
//
// A failing instructor is logged and left out. Only a missing selection,
// a missing login, a failed instructor list or a 401 abort the load.
func (a *Aggregator) Aggregate(ctx context.Context) ([]models.Slot, error) {
	ae, ok := a.id.SelectedAutoEcole()
	if !ok {
		return nil, ErrNoAutoEcoleSelected
	}
	clientID, ok := a.id.ClientID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	moniteurs, err := a.dir.ByAutoEcole(ctx, ae.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "load instructors of auto-école %d", ae.ID)
	}

	perMoniteur := make([][]models.Slot, len(moniteurs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, m := range moniteurs {
		i, m := i, m
		g.Go(func() error {
			slots, err := a.dir.TimeSlots(gctx, m.ID)
			if err != nil {
				if api.IsUnauthorized(err) {
					return err
				}
				a.log.Warn("skipping instructor", zap.Int64("moniteurId", m.ID), zap.Error(err))
				return nil
			}
			for j := range slots {
				if slots[j].Instructor == "" || slots[j].Instructor == unknownInstructor {
					if name := m.FullName(); name != "" {
						slots[j].Instructor = name
					}
				}
			}
			perMoniteur[i] = slots
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []models.Slot
	for _, slots := range perMoniteur {
		all = append(all, slots...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time < all[j].Time })

	held, err := a.heldSlots(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i].Available = all[i].Status == models.SlotAvailable
		all[i].BookedBy = 0
		if _, ok := held[all[i].ID]; ok {
			all[i].BookedBy = clientID
		}
	}

	a.log.Debug("aggregated slots",
		zap.Int64("autoEcoleId", ae.ID),
		zap.Int("moniteurs", len(moniteurs)),
		zap.Int("slots", len(all)),
	)
	if all == nil {
		all = []models.Slot{}
	}
	return all, nil
}

// heldSlots returns the ids of the slots the client has reserved. Only a
// 401 is fatal; other failures just mean no slot is shown as ours.
func (a *Aggregator) heldSlots(ctx context.Context, clientID int64) (map[int64]struct{}, error) {
	reservations, err := a.dir.Reservations(ctx, clientID)
	if err != nil {
		if api.IsUnauthorized(err) {
			return nil, err
		}
		a.log.Warn("loading reservations", zap.Int64("clientId", clientID), zap.Error(err))
		return map[int64]struct{}{}, nil
	}
	held := make(map[int64]struct{}, len(reservations))
	for _, r := range reservations {
		held[r.TimeSlotID] = struct{}{}
	}
	return held, nil
}

// ForDate keeps the slots starting on date (YYYY-MM-DD), in order.
func ForDate(slots []models.Slot, date string) []models.Slot {
	out := []models.Slot{}
	for _, s := range slots {
		if s.Date == date {
			out = append(out, s)
		}
	}
	return out
}

// Dates lists the distinct days that have at least one available slot.
func Dates(slots []models.Slot) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range slots {
		if s.Available && s.Date != "" && !seen[s.Date] {
			seen[s.Date] = true
			out = append(out, s.Date)
		}
	}
	sort.Strings(out)
	return out
}
