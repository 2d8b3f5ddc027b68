package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"permisconnect/internal/events"
	"permisconnect/internal/models"
	"permisconnect/pkg/jwt"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a
// wrong password.
var ErrInvalidCredentials = errors.New("Email ou mot de passe incorrect")

// Service holds the sandbox business rules on top of a Store.
type Service struct {
	store  Store
	signer *jwt.Signer
	pub    events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a sandbox service. pub may be nil.
func NewService(store Store, signer *jwt.Signer, pub events.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, signer: signer, pub: pub, log: log.Named("sandbox"), now: time.Now}
}

// Register creates a client account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, req models.ClientRequest) (*models.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a := &Account{
		Profile: models.Profile{
			Nom:           strings.TrimSpace(req.Nom),
			Prenom:        strings.TrimSpace(req.Prenom),
			Email:         strings.TrimSpace(req.Email),
			Telephone:     req.Telephone,
			Adresse:       req.Adresse,
			DateNaissance: req.DateNaissance,
			NumeroPermis:  req.NumeroPermis,
			TypePermis:    req.TypePermis,
		},
		PasswordHash: string(hash),
		Role:         jwt.RoleClient,
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("client registered", zap.Int64("clientId", a.ID))
	return &a.Profile, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	a, err := s.store.AccountByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.signer.Generate(a.ID, a.Email, a.Role)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		Token: token,
		ID:    a.ID,
		User: models.LoginUser{
			ID: a.ID, Nom: a.Nom, Prenom: a.Prenom, Email: a.Email,
			Telephone: a.Telephone, Adresse: a.Adresse,
		},
		DateNaissance: a.DateNaissance,
		NumeroPermis:  a.NumeroPermis,
		TypePermis:    a.TypePermis,
		AutoEcole:     a.AutoEcole,
	}, nil
}

// Profile returns a client's profile.
func (s *Service) Profile(ctx context.Context, id int64) (*models.Profile, error) {
	a, err := s.store.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a.Profile, nil
}

// UpdateProfile applies the non-empty fields of upd.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.Profile, error) {
	a, err := s.store.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	p := a.Profile
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&p.Nom, upd.Nom)
	set(&p.Prenom, upd.Prenom)
	set(&p.Email, upd.Email)
	set(&p.Telephone, upd.Telephone)
	set(&p.Adresse, upd.Adresse)
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AssignAutoEcole attaches a client to an auto-école.
func (s *Service) AssignAutoEcole(ctx context.Context, clientID, autoEcoleID int64) (*models.Profile, error) {
	ae, err := s.store.AutoEcole(ctx, autoEcoleID)
	if err != nil {
		return nil, err
	}
	a, err := s.store.Account(ctx, clientID)
	if err != nil {
		return nil, err
	}
	p := a.Profile
	p.AutoEcole = &models.AutoEcoleRef{ID: ae.ID, Nom: ae.Nom}
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// TimeSlots lists an instructor's slots in wire form.
func (s *Service) TimeSlots(ctx context.Context, moniteurID int64) ([]models.TimeSlotDTO, error) {
	m, err := s.store.Moniteur(ctx, moniteurID)
	if err != nil {
		return nil, err
	}
	slots, err := s.store.TimeSlots(ctx, moniteurID)
	if err != nil {
		return nil, err
	}
	out := make([]models.TimeSlotDTO, 0, len(slots))
	for _, t := range slots {
		out = append(out, t.DTO(m))
	}
	return out, nil
}

// ChangeStatus applies a status transition requested by caller.
//
//	AVAILABLE -> BOOKED     anyone; the caller becomes the holder
//	BOOKED    -> AVAILABLE  the holder or an admin
//	*         -> CANCELLED  admin only
//
// Anything else, including a lost race, is ErrConflict.
func (s *Service) ChangeStatus(ctx context.Context, caller *jwt.Claims, slotID int64, to models.SlotStatus) (*models.TimeSlotDTO, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", to, ErrConflict)
	}
	cur, err := s.store.TimeSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	switch {
	case to == models.SlotCancelled:
		if !caller.IsAdmin() {
			return nil, ErrForbidden
		}
		if cur.Status == models.SlotCancelled {
			return nil, ErrConflict
		}
	case cur.Status == models.SlotAvailable && to == models.SlotBooked:
	case cur.Status == models.SlotBooked && to == models.SlotAvailable:
		if cur.ClientID != caller.ClientID && !caller.IsAdmin() {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrConflict
	}

	updated, err := s.store.Transition(ctx, slotID, cur.Status, to, caller.ClientID)
	if err != nil {
		return nil, err
	}
	m, err := s.store.Moniteur(ctx, updated.MoniteurID)
	if err != nil {
		return nil, err
	}

	s.log.Info("slot status changed",
		zap.Int64("slotId", slotID),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(to)),
		zap.Int64("clientId", caller.ClientID),
	)
	s.publish(ctx, events.SlotStatusChanged{
		EventID:     uuid.NewString(),
		SlotID:      slotID,
		MoniteurID:  m.ID,
		AutoEcoleID: m.AutoEcoleID,
		ClientID:    caller.ClientID,
		From:        cur.Status,
		To:          to,
		At:          s.now().UTC().Format(time.RFC3339),
	})

	dto := updated.DTO(m)
	return &dto, nil
}

func (s *Service) publish(ctx context.Context, ev events.SlotStatusChanged) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishSlotStatus(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("failed to publish slot event", zap.Int64("slotId", ev.SlotID), zap.Error(err))
	}
}

// Reservations lists a client's reservations.
func (s *Service) Reservations(ctx context.Context, clientID int64) ([]models.Reservation, error) {
	return s.store.Reservations(ctx, clientID)
}
