package booking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permisconnect/internal/api"
	"permisconnect/internal/models"
)

type fakeIdentity struct {
	ae       *models.AutoEcole
	clientID int64
}

func (f fakeIdentity) SelectedAutoEcole() (models.AutoEcole, bool) {
	if f.ae == nil {
		return models.AutoEcole{}, false
	}
	return *f.ae, true
}

func (f fakeIdentity) ClientID() (int64, bool) { return f.clientID, f.clientID != 0 }

type fakeDirectory struct {
	mu           sync.Mutex
	moniteurs    []models.Moniteur
	slots        map[int64][]models.Slot
	slotErr      map[int64]error
	reservations []models.Reservation
	resErr       error
	updateErr    error
	updates      int
}

func (f *fakeDirectory) ByAutoEcole(_ context.Context, _ int64) ([]models.Moniteur, error) {
	return f.moniteurs, nil
}

func (f *fakeDirectory) TimeSlots(_ context.Context, id int64) ([]models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.slotErr[id]; err != nil {
		return nil, err
	}
	return append([]models.Slot(nil), f.slots[id]...), nil
}

func (f *fakeDirectory) Reservations(_ context.Context, _ int64) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resErr != nil {
		return nil, f.resErr
	}
	return append([]models.Reservation(nil), f.reservations...), nil
}

func (f *fakeDirectory) UpdateStatus(_ context.Context, slotID int64, status models.SlotStatus) (*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for mid, slots := range f.slots {
		for i := range slots {
			if slots[i].ID != slotID {
				continue
			}
			slots[i].Status = status
			f.slots[mid] = slots
			switch status {
			case models.SlotBooked:
				f.reservations = append(f.reservations, models.Reservation{ID: slotID * 10, ClientID: 7, TimeSlotID: slotID})
			case models.SlotAvailable:
				kept := f.reservations[:0]
				for _, r := range f.reservations {
					if r.TimeSlotID != slotID {
						kept = append(kept, r)
					}
				}
				f.reservations = kept
			}
			s := slots[i]
			return &s, nil
		}
	}
	return nil, &api.Error{StatusCode: http.StatusNotFound}
}

func slot(id, moniteurID int64, date, tm string, status models.SlotStatus) models.Slot {
	return models.Slot{ID: id, MoniteurID: moniteurID, Date: date, Time: tm, Status: status, Instructor: "Unknown Instructor"}
}

func newFixture() (*fakeDirectory, fakeIdentity) {
	dir := &fakeDirectory{
		moniteurs: []models.Moniteur{
			{ID: 1, Prenom: "Jean", Nom: "Dupont"},
			{ID: 2, Prenom: "Marie", Nom: "Curie"},
		},
		slots: map[int64][]models.Slot{
			1: {
				slot(10, 1, "2025-06-02", "14:00 - 15:00", models.SlotAvailable),
				slot(11, 1, "2025-06-02", "09:00 - 10:00", models.SlotBooked),
			},
			2: {
				slot(20, 2, "2025-06-03", "09:00 - 10:00", models.SlotAvailable),
				slot(21, 2, "2025-06-03", "11:00 - 12:00", models.SlotBooked),
			},
		},
		reservations: []models.Reservation{{ID: 99, ClientID: 7, TimeSlotID: 21}},
	}
	return dir, fakeIdentity{ae: &models.AutoEcole{ID: 3, Nom: "Auto-École du Centre"}, clientID: 7}
}

func ids(slots []models.Slot) []int64 {
	out := make([]int64, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.ID)
	}
	return out
}

func TestAggregate_MergesSortsAndAnnotates(t *testing.T) {
	dir, id := newFixture()
	slots, err := NewAggregator(dir, id, nil).Aggregate(context.Background())
	require.NoError(t, err)

	// sorted by display time; ties keep instructor order
	assert.Equal(t, []int64{11, 20, 21, 10}, ids(slots))

	byID := map[int64]models.Slot{}
	for _, s := range slots {
		byID[s.ID] = s
		assert.Equal(t, s.Status == models.SlotAvailable, s.Available, "slot %d", s.ID)
	}
	assert.True(t, byID[21].HeldBy(7))
	assert.Zero(t, byID[11].BookedBy, "booked by someone else")
	assert.Equal(t, "Jean Dupont", byID[10].Instructor)
	assert.Equal(t, "Marie Curie", byID[20].Instructor)
}

func TestAggregate_RepeatableWithoutChanges(t *testing.T) {
	dir, id := newFixture()
	agg := NewAggregator(dir, id, nil)
	agg.SetConcurrency(1)
	first, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	for n := 0; n < 5; n++ {
		again, err := agg.Aggregate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAggregate_NoInstructorsIsEmpty(t *testing.T) {
	dir, id := newFixture()
	dir.moniteurs = nil
	slots, err := NewAggregator(dir, id, nil).Aggregate(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestAggregate_RequiresSelectionAndLogin(t *testing.T) {
	dir, id := newFixture()

	_, err := NewAggregator(dir, fakeIdentity{clientID: 7}, nil).Aggregate(context.Background())
	assert.ErrorIs(t, err, ErrNoAutoEcoleSelected)

	_, err = NewAggregator(dir, fakeIdentity{ae: id.ae}, nil).Aggregate(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAggregate_SkipsFailingInstructor(t *testing.T) {
	dir, id := newFixture()
	dir.slotErr = map[int64]error{2: &api.Error{StatusCode: http.StatusInternalServerError}}

	slots, err := NewAggregator(dir, id, nil).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 10}, ids(slots))
}

func TestAggregate_UnauthorizedAborts(t *testing.T) {
	dir, id := newFixture()
	dir.slotErr = map[int64]error{2: &api.Error{StatusCode: http.StatusUnauthorized}}

	_, err := NewAggregator(dir, id, nil).Aggregate(context.Background())
	assert.True(t, api.IsUnauthorized(err))
}

func TestAggregate_ReservationFailureHoldsNothing(t *testing.T) {
	dir, id := newFixture()
	dir.resErr = errors.New("boom")

	slots, err := NewAggregator(dir, id, nil).Aggregate(context.Background())
	require.NoError(t, err)
	for _, s := range slots {
		assert.Zero(t, s.BookedBy)
	}

	dir.resErr = &api.Error{StatusCode: http.StatusUnauthorized}
	_, err = NewAggregator(dir, id, nil).Aggregate(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestSchedule_BookReloads(t *testing.T) {
	dir, id := newFixture()
	s := NewSchedule(NewAggregator(dir, id, nil))
	ctx := context.Background()
	require.NoError(t, s.Reload(ctx))
	assert.True(t, s.Loaded())

	require.NoError(t, s.Book(ctx, 20))
	got, ok := s.Find(20)
	require.True(t, ok)
	assert.Equal(t, models.SlotBooked, got.Status)
	assert.False(t, got.Available)
	assert.True(t, got.HeldBy(7))
}

func TestSchedule_BookUnavailableIsRefusedLocally(t *testing.T) {
	dir, id := newFixture()
	s := NewSchedule(NewAggregator(dir, id, nil))
	require.NoError(t, s.Reload(context.Background()))

	err := s.Book(context.Background(), 11)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Zero(t, dir.updates)
}

func TestSchedule_FailedUpdateKeepsDisplay(t *testing.T) {
	dir, id := newFixture()
	s := NewSchedule(NewAggregator(dir, id, nil))
	ctx := context.Background()
	require.NoError(t, s.Reload(ctx))
	before := s.Slots()

	dir.updateErr = &api.Error{StatusCode: http.StatusConflict, Message: "slot already booked"}
	err := s.Book(ctx, 10)
	assert.True(t, api.IsConflict(err))
	assert.Equal(t, before, s.Slots())
}

func TestSchedule_CancelOnlyOwnSlot(t *testing.T) {
	dir, id := newFixture()
	s := NewSchedule(NewAggregator(dir, id, nil))
	ctx := context.Background()
	require.NoError(t, s.Reload(ctx))

	assert.ErrorIs(t, s.Cancel(ctx, 11), ErrNotHolder)
	assert.Zero(t, dir.updates)

	require.NoError(t, s.Cancel(ctx, 21))
	got, _ := s.Find(21)
	assert.True(t, got.Available)
	assert.Zero(t, got.BookedBy)
}

func TestSchedule_StaleViewAfterFailedReload(t *testing.T) {
	dir, id := newFixture()
	s := NewSchedule(NewAggregator(dir, id, nil))
	ctx := context.Background()
	require.NoError(t, s.Reload(ctx))
	before := s.Slots()

	dir.moniteurs = dir.moniteurs[:1]
	dir.slotErr = map[int64]error{1: &api.Error{StatusCode: http.StatusUnauthorized}}
	err := s.Book(ctx, 10)
	assert.ErrorIs(t, err, ErrStaleView)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, before, s.Slots())
}

func TestSchedule_RejectsUnknownStatus(t *testing.T) {
	dir, id := newFixture()
	s := NewSchedule(NewAggregator(dir, id, nil))
	assert.Error(t, s.SetStatus(context.Background(), 10, "PENDING"))
	assert.Zero(t, dir.updates)
}

func TestForDateAndDates(t *testing.T) {
	slots := []models.Slot{
		{ID: 1, Date: "2025-06-03", Available: true},
		{ID: 2, Date: "2025-06-02", Available: false},
		{ID: 3, Date: "2025-06-02", Available: true},
		{ID: 4, Date: "2025-06-04", Available: false},
	}
	assert.Equal(t, []int64{2, 3}, ids(ForDate(slots, "2025-06-02")))
	assert.Empty(t, ForDate(slots, "2025-07-01"))
	assert.Equal(t, []string{"2025-06-02", "2025-06-03"}, Dates(slots))
}
