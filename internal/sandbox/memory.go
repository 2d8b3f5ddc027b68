package sandbox

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"permisconnect/internal/models"
)

// MemoryStore keeps everything in maps behind one mutex.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[int64]*Account
	autoEcoles   map[int64]models.AutoEcole
	moniteurs    map[int64]models.Moniteur
	slots        map[int64]*TimeSlot
	reservations map[int64]models.Reservation // by slot id
	courses      map[int64]models.Course
	nextID       int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     map[int64]*Account{},
		autoEcoles:   map[int64]models.AutoEcole{},
		moniteurs:    map[int64]models.Moniteur{},
		slots:        map[int64]*TimeSlot{},
		reservations: map[int64]models.Reservation{},
		courses:      map[int64]models.Course{},
		nextID:       1000,
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// AddAutoEcole, AddMoniteur, AddTimeSlot and AddCourse load fixtures. A
// zero id is assigned.
func (m *MemoryStore) AddAutoEcole(ae models.AutoEcole) models.AutoEcole {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ae.ID == 0 {
		ae.ID = m.id()
	}
	m.autoEcoles[ae.ID] = ae
	return ae
}

func (m *MemoryStore) AddMoniteur(mo models.Moniteur) models.Moniteur {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mo.ID == 0 {
		mo.ID = m.id()
	}
	m.moniteurs[mo.ID] = mo
	return mo
}

func (m *MemoryStore) AddTimeSlot(s TimeSlot) TimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	if s.Status == "" {
		s.Status = models.SlotAvailable
	}
	cp := s
	m.slots[s.ID] = &cp
	if s.Status == models.SlotBooked && s.ClientID != 0 {
		m.reservations[s.ID] = models.Reservation{ID: m.id(), ClientID: s.ClientID, TimeSlotID: s.ID}
	}
	return s
}

func (m *MemoryStore) AddCourse(c models.Course) models.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.id()
	}
	m.courses[c.ID] = c
	return c
}

func (m *MemoryStore) CreateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.accounts {
		if strings.EqualFold(other.Email, a.Email) ||
			(a.Telephone != "" && other.Telephone == a.Telephone) {
			return ErrConflict
		}
	}
	a.ID = m.id()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *MemoryStore) AccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Account(_ context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[p.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.accounts {
		if id != p.ID && strings.EqualFold(other.Email, p.Email) {
			return ErrConflict
		}
	}
	a.Profile = p
	return nil
}

func (m *MemoryStore) AutoEcoles(_ context.Context) ([]models.AutoEcole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AutoEcole, 0, len(m.autoEcoles))
	for _, ae := range m.autoEcoles {
		out = append(out, ae)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AutoEcole(_ context.Context, id int64) (*models.AutoEcole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ae, ok := m.autoEcoles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ae, nil
}

func (m *MemoryStore) Moniteurs(_ context.Context, autoEcoleID int64) ([]models.Moniteur, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Moniteur{}
	for _, mo := range m.moniteurs {
		if mo.AutoEcoleID == autoEcoleID {
			out = append(out, mo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Moniteur(_ context.Context, id int64) (*models.Moniteur, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.moniteurs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &mo, nil
}

func (m *MemoryStore) TimeSlots(_ context.Context, moniteurID int64) ([]TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []TimeSlot{}
	for _, s := range m.slots {
		if s.MoniteurID == moniteurID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *MemoryStore) TimeSlot(_ context.Context, id int64) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Transition(_ context.Context, slotID int64, from, to models.SlotStatus, clientID int64) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != from {
		return nil, ErrConflict
	}
	s.Status = to
	if to == models.SlotBooked {
		s.ClientID = clientID
		m.reservations[slotID] = models.Reservation{ID: m.id(), ClientID: clientID, TimeSlotID: slotID}
	} else {
		s.ClientID = 0
		delete(m.reservations, slotID)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Reservations(_ context.Context, clientID int64) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Reservation{}
	for _, r := range m.reservations {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Courses(_ context.Context, kind models.CourseType, autoEcoleID int64) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Course{}
	for _, c := range m.courses {
		if c.CourseType != kind {
			continue
		}
		if kind == models.CoursePrivate && c.AutoEcoleID != autoEcoleID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Course(_ context.Context, id int64) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Seed loads a small demo directory: two auto-écoles, three instructors
// and a week of hourly slots starting the day after from.
func Seed(m *MemoryStore, from time.Time) {
	centre := m.AddAutoEcole(models.AutoEcole{
		ID: 1, Nom: "Auto-École du Centre", Adresse: "12 rue de la République",
		CodePostal: "69002", Ville: "Lyon", Telephone: "0472000001",
		Email: "contact@centre-auto.fr", Horaires: "Lun-Sam 9h-19h",
	})
	gare := m.AddAutoEcole(models.AutoEcole{
		ID: 2, Nom: "Auto-École de la Gare", Adresse: "3 place Carnot",
		CodePostal: "69002", Ville: "Lyon", Telephone: "0472000002",
	})

	ms := []models.Moniteur{
		m.AddMoniteur(models.Moniteur{ID: 10, Prenom: "Jean", Nom: "Dupont", AutoEcoleID: centre.ID}),
		m.AddMoniteur(models.Moniteur{ID: 11, Prenom: "Claire", Nom: "Martin", AutoEcoleID: centre.ID}),
		m.AddMoniteur(models.Moniteur{ID: 12, Prenom: "Karim", Nom: "Benali", AutoEcoleID: gare.ID}),
	}

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1)
	for d := 0; d < 7; d++ {
		for i, mo := range ms {
			for _, hour := range []int{9, 11, 14, 16} {
				start := day.AddDate(0, 0, d).Add(time.Duration(hour+i%2) * time.Hour)
				m.AddTimeSlot(TimeSlot{MoniteurID: mo.ID, Start: start, End: start.Add(time.Hour)})
			}
		}
	}

	m.AddCourse(models.Course{
		ID: 100, Titre: "Les panneaux de signalisation", Description: "Reconnaître les panneaux de danger et d'obligation.",
		CloudinaryURL: "https://example.com/courses/panneaux.pdf", CourseType: models.CoursePublic, FileType: "pdf", EstGratuit: true,
	})
	m.AddCourse(models.Course{
		ID: 101, Titre: "Les règles de priorité", Description: "Intersections, ronds-points et priorité à droite.",
		CloudinaryURL: "https://example.com/courses/priorite.mp4", CourseType: models.CoursePublic, FileType: "video", Prix: 9.99,
	})
	m.AddCourse(models.Course{
		ID: 102, Titre: "Préparer l'examen pratique", Description: "Le déroulé de l'épreuve et les critères d'évaluation.",
		CloudinaryURL: "https://example.com/courses/examen.pdf", CourseType: models.CoursePrivate, FileType: "raw",
		Prix: 19.99, AutoEcoleID: centre.ID,
	})
}
