// Package session holds the authenticated identity and the small amount of
// state the client keeps on the device. A single Session is created at
// startup and handed to every service that needs it.
package session

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"permisconnect/internal/models"
)

// Session is the injectable session object.
type Session struct {
	mu    sync.RWMutex
	store Store
	rec   Record
	log   *zap.Logger
}

// New returns an anonymous session backed by store. Call Init to load the
// persisted record.
func New(store Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{store: store, rec: newRecord(), log: log.Named("session")}
}

// Init loads the persisted record. A missing record or one written by an
// incompatible version leaves the session anonymous.
func (s *Session) Init(ctx context.Context) error {
	data, err := s.store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	rec, ok, err := decode(data)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Warn("discarding session record with unknown version")
	}
	s.mu.Lock()
	s.rec = rec
	s.mu.Unlock()
	return nil
}

// update applies fn to a copy of the record and persists it. The in-memory
// record only changes once the save succeeded.
func (s *Session) update(ctx context.Context, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.rec.clone()
	fn(&next)
	next.Version = RecordVersion

	data, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "encode session record")
	}
	if err := s.store.Save(ctx, data); err != nil {
		return errors.Wrap(err, "save session record")
	}
	s.rec = next
	return nil
}

// Snapshot returns a copy of the current record.
func (s *Session) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.clone()
}

// Authenticate moves the session to the authenticated state.
func (s *Session) Authenticate(ctx context.Context, token string, profile models.Profile) error {
	err := s.update(ctx, func(r *Record) {
		r.Token = token
		r.Profile = &profile
	})
	if err == nil {
		s.log.Info("authenticated", zap.Int64("clientId", profile.ID))
	}
	return err
}

// Clear drops the identity and the selected auto-école. Paid courses and
// the last test score survive a logout. Unlike other writes, the in-memory
// record is cleared even when the save fails; the error is still returned.
func (s *Session) Clear(ctx context.Context) error {
	drop := func(r *Record) {
		r.Token = ""
		r.Profile = nil
		r.SelectedAutoEcole = nil
	}
	err := s.update(ctx, drop)
	if err != nil {
		s.mu.Lock()
		drop(&s.rec)
		s.mu.Unlock()
		s.log.Warn("session cleared in memory only", zap.Error(err))
		return err
	}
	s.log.Info("session cleared")
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Token
}

// IsAuthenticated reports whether a profile is cached. The token may be
// empty for backends that only track the authenticated flag.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Profile != nil
}

// Profile returns a copy of the cached profile.
func (s *Session) Profile() (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec.Profile == nil {
		return models.Profile{}, false
	}
	return *s.rec.clone().Profile, true
}

// ClientID returns the id of the logged-in client.
func (s *Session) ClientID() (int64, bool) {
	p, ok := s.Profile()
	return p.ID, ok && p.ID != 0
}

// UpdateProfile replaces the cached profile, keeping the token.
func (s *Session) UpdateProfile(ctx context.Context, profile models.Profile) error {
	return s.update(ctx, func(r *Record) { r.Profile = &profile })
}

// SelectAutoEcole overwrites the selected auto-école. When logged in, the
// cached profile is pointed at it as well.
func (s *Session) SelectAutoEcole(ctx context.Context, ae models.AutoEcole) error {
	return s.update(ctx, func(r *Record) {
		r.SelectedAutoEcole = &ae
		if r.Profile != nil {
			r.Profile.AutoEcole = &models.AutoEcoleRef{ID: ae.ID, Nom: ae.Nom}
		}
	})
}

// SelectedAutoEcole returns the selected auto-école, if any.
func (s *Session) SelectedAutoEcole() (models.AutoEcole, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec.SelectedAutoEcole == nil {
		return models.AutoEcole{}, false
	}
	return *s.rec.SelectedAutoEcole, true
}

// CacheCourses stores the last fetched course list.
func (s *Session) CacheCourses(ctx context.Context, courses []models.Course) error {
	return s.update(ctx, func(r *Record) { r.Courses = slices.Clone(courses) })
}

// MarkCoursePaid records a completed payment: the paid set, the payment
// flag and the cached course entry change in one write.
func (s *Session) MarkCoursePaid(ctx context.Context, courseID int64) error {
	return s.update(ctx, func(r *Record) {
		if !slices.Contains(r.PaidCourses, courseID) {
			r.PaidCourses = append(r.PaidCourses, courseID)
		}
		r.HasPaid = true
		for i := range r.Courses {
			if r.Courses[i].ID == courseID {
				r.Courses[i].EstGratuit = true
			}
		}
	})
}

// IsCoursePaid reports whether courseID was paid on this device.
func (s *Session) IsCoursePaid(courseID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.rec.PaidCourses, courseID)
}

func (s *Session) HasPaid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.HasPaid
}

// RecordTestScore stores the last practice-test score.
func (s *Session) RecordTestScore(ctx context.Context, score float64) error {
	return s.update(ctx, func(r *Record) { r.LastTestScore = &score })
}

// LastTestScore returns the last practice-test score, if any.
func (s *Session) LastTestScore() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec.LastTestScore == nil {
		return 0, false
	}
	return *s.rec.LastTestScore, true
}
