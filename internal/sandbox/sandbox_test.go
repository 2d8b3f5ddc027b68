package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"permisconnect/internal/events"
	"permisconnect/internal/models"
	"permisconnect/pkg/jwt"
)

type fixture struct {
	srv   *httptest.Server
	store *MemoryStore

	mu     sync.Mutex
	events []events.SlotStatusChanged
}

func (f *fixture) published() []events.SlotStatusChanged {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.SlotStatusChanged(nil), f.events...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: NewMemoryStore()}
	Seed(f.store, time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local))

	signer, err := jwt.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	pub := events.NewLocal()
	pub.Subscribe(func(ev events.SlotStatusChanged) {
		f.mu.Lock()
		f.events = append(f.events, ev)
		f.mu.Unlock()
	})

	svc := NewService(f.store, signer, pub, nil)
	f.srv = httptest.NewServer(NewRouter(Server{
		Service:  svc,
		Checkout: FakeCheckout{BaseURL: "http://sandbox.test"},
		Signer:   signer,
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registration(email, phone string) models.ClientRequest {
	return models.ClientRequest{
		Nom: "Martin", Prenom: "Léa", Email: email, Password: "secret123",
		Telephone: phone, Adresse: "1 rue Neuve, Lyon", DateNaissance: "2001-04-12",
	}
}

// register creates an account and returns its id and token.
func (f *fixture) register(t *testing.T, email, phone string) (int64, string) {
	t.Helper()
	var p models.Profile
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/clients", "", registration(email, phone), &p))
	var lr models.LoginResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/auth/login", "",
		models.LoginRequest{Email: email, Password: "secret123"}, &lr))
	require.Equal(t, p.ID, lr.ID)
	require.NotEmpty(t, lr.Token)
	return p.ID, lr.Token
}

func (f *fixture) admin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.MinCost)
	require.NoError(t, err)
	a := &Account{Profile: models.Profile{Nom: "Admin", Prenom: "Root", Email: "admin@permis.fr"},
		PasswordHash: string(hash), Role: jwt.RoleAdmin}
	require.NoError(t, f.store.CreateAccount(context.Background(), a))
	var lr models.LoginResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/auth/login", "",
		models.LoginRequest{Email: "admin@permis.fr", Password: "adminpass"}, &lr))
	return lr.Token
}

func firstSlot(t *testing.T, f *fixture, moniteurID int64) models.TimeSlotDTO {
	t.Helper()
	var slots []models.TimeSlotDTO
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, fmt.Sprintf("/api/time-slots/moniteur/%d", moniteurID), "", nil, &slots))
	require.NotEmpty(t, slots)
	return slots[0]
}

func statusPath(id int64, status models.SlotStatus) string {
	return fmt.Sprintf("/api/time-slots/%d/status?status=%s", id, status)
}

func TestAuth(t *testing.T) {
	f := newFixture(t)
	f.register(t, "lea@example.fr", "0601020304")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/auth/login", "",
		models.LoginRequest{Email: "lea@example.fr", Password: "wrongpass"}, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/auth/login", "",
		models.LoginRequest{Email: "nobody@example.fr", Password: "secret123"}, nil))

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/clients", "",
		registration("LEA@example.fr", "0700000000"), nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/clients", "",
		registration("not-an-email", "0700000000"), nil))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/reservations/client/1", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPut, statusPath(1, models.SlotBooked), "bogus", nil, nil))
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/auto-ecoles", "", nil, nil))
}

func TestClients_SelfOnly(t *testing.T) {
	f := newFixture(t)
	leaID, lea := f.register(t, "lea@example.fr", "0601020304")
	tomID, _ := f.register(t, "tom@example.fr", "0605060708")

	var p models.Profile
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, fmt.Sprintf("/api/clients/%d/auto-ecole", leaID), lea,
		models.AssignAutoEcoleRequest{AutoEcoleID: 1}, &p))
	require.NotNil(t, p.AutoEcole)
	assert.Equal(t, "Auto-École du Centre", p.AutoEcole.Nom)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, fmt.Sprintf("/api/clients/%d", leaID), lea,
		models.ProfileUpdate{Adresse: "2 quai Perrache"}, &p))
	assert.Equal(t, "2 quai Perrache", p.Adresse)
	assert.Equal(t, "Léa", p.Prenom)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, fmt.Sprintf("/api/clients/%d", tomID), lea, nil, nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, fmt.Sprintf("/api/reservations/client/%d", tomID), lea, nil, nil))
}

func TestDirectory(t *testing.T) {
	f := newFixture(t)

	var ms []models.Moniteur
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/moniteurs/auto-ecole/1", "", nil, &ms))
	assert.Len(t, ms, 2)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/moniteurs/auto-ecole/99", "", nil, nil))

	slot := firstSlot(t, f, 10)
	assert.Equal(t, "Jean Dupont", slot.Instructor)
	assert.Equal(t, models.SlotAvailable, slot.Status)
	assert.True(t, strings.HasPrefix(slot.StartTime, "2025-06-02T09:00"), slot.StartTime)
}

func TestTimeSlotTransitions(t *testing.T) {
	f := newFixture(t)
	leaID, lea := f.register(t, "lea@example.fr", "0601020304")
	_, tom := f.register(t, "tom@example.fr", "0605060708")
	slot := firstSlot(t, f, 10)

	var got models.TimeSlotDTO
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotBooked), lea, nil, &got))
	assert.Equal(t, models.SlotBooked, got.Status)
	assert.Equal(t, leaID, got.ClientID)

	var res []models.Reservation
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, fmt.Sprintf("/api/reservations/client/%d", leaID), lea, nil, &res))
	require.Len(t, res, 1)
	assert.Equal(t, slot.ID, res[0].TimeSlotID)

	// double booking and foreign cancel
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotBooked), tom, nil, nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotAvailable), tom, nil, nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotCancelled), lea, nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, statusPath(slot.ID, "PENDING"), lea, nil, nil))

	var released models.TimeSlotDTO
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotAvailable), lea, nil, &released))
	assert.Equal(t, models.SlotAvailable, released.Status)
	assert.Zero(t, released.ClientID)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, fmt.Sprintf("/api/reservations/client/%d", leaID), lea, nil, &res))
	assert.Empty(t, res)

	// releasing a free slot is not a transition
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotAvailable), lea, nil, nil))

	admin := f.admin(t)
	var cancelled models.TimeSlotDTO
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotCancelled), admin, nil, &cancelled))
	assert.Equal(t, models.SlotCancelled, cancelled.Status)
	assert.Zero(t, cancelled.ClientID)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPut, statusPath(slot.ID, models.SlotBooked), lea, nil, nil))

	evs := f.published()
	require.Len(t, evs, 3)
	assert.Equal(t, models.SlotAvailable, evs[0].From)
	assert.Equal(t, models.SlotBooked, evs[0].To)
	assert.Equal(t, int64(1), evs[0].AutoEcoleID)
	assert.NotEmpty(t, evs[0].EventID)
	assert.Equal(t, models.SlotCancelled, evs[2].To)
}

func TestPaymentSession(t *testing.T) {
	f := newFixture(t)
	_, lea := f.register(t, "lea@example.fr", "0601020304")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/courses/101/create-payment-session", "", nil, nil))
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/courses/100/create-payment-session", lea, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/courses/999/create-payment-session", lea, nil, nil))

	var ps models.PaymentSession
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/courses/101/create-payment-session", lea, nil, &ps))
	assert.True(t, strings.HasPrefix(ps.SessionURL, "http://sandbox.test/checkout?"), ps.SessionURL)
	assert.Contains(t, ps.SessionURL, "courseId=101")
}

func TestCourses(t *testing.T) {
	f := newFixture(t)
	_, lea := f.register(t, "lea@example.fr", "0601020304")

	var public, private []models.Course
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/courses/public", "", nil, &public))
	assert.Len(t, public, 2)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/courses/private/1", lea, nil, &private))
	require.Len(t, private, 1)
	assert.Equal(t, models.CoursePrivate, private[0].CourseType)
}

type recordingBroadcaster struct{ got []events.SlotStatusChanged }

func (r *recordingBroadcaster) Broadcast(ev events.SlotStatusChanged) { r.got = append(r.got, ev) }

type stubSubscriber struct {
	topic   string
	handler func([]byte) error
}

func (s *stubSubscriber) Subscribe(_ context.Context, topic, _ string, handler func([]byte) error) {
	s.topic, s.handler = topic, handler
}

func TestRelay(t *testing.T) {
	sub := &stubSubscriber{}
	out := &recordingBroadcaster{}
	NewRelay(sub, out, nil).Start(context.Background(), "test")

	require.NotNil(t, sub.handler)
	assert.Equal(t, "timeslot.status_changed", sub.topic)
	require.NoError(t, sub.handler([]byte(`{"slot_id":4,"auto_ecole_id":1,"to":"BOOKED"}`)))
	assert.Error(t, sub.handler([]byte(`not json`)))
	require.Len(t, out.got, 1)
	assert.Equal(t, int64(4), out.got[0].SlotID)
}
