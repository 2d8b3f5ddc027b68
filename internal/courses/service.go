package courses

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"permisconnect/internal/api"
	"permisconnect/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("courses: no authentication token")
	ErrNoPaymentURL     = errors.New("courses: no payment session URL returned")
)

// Service is the course catalog and its payment flow.
type Service struct {
	api *api.Client
	log *zap.Logger
}

// NewService creates a course service.
func NewService(c *api.Client, log *zap.Logger) *Service {
	return &Service{api: c, log: log.Named("courses")}
}

// List returns the private catalog of the client's auto-école, or the
// public one when the client has none. Courses paid on this device are
// reported free, and the result is cached in the session.
func (s *Service) List(ctx context.Context) ([]models.Course, error) {
	sess := s.api.Session()
	if sess.Token() == "" {
		return nil, ErrNotAuthenticated
	}

	path := "/courses/public"
	if p, ok := sess.Profile(); ok && p.AutoEcole != nil && p.AutoEcole.ID != 0 {
		path = fmt.Sprintf("/courses/private/%d", p.AutoEcole.ID)
	}

	var out []models.Course
	if err := s.api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if sess.IsCoursePaid(out[i].ID) {
			out[i].EstGratuit = true
		}
	}
	if err := sess.CacheCourses(ctx, out); err != nil {
		s.log.Warn("cache course list", zap.Error(err))
	}
	return out, nil
}

// NeedsPayment reports whether c must be paid before viewing.
func NeedsPayment(c models.Course) bool {
	return c.CourseType == models.CoursePublic && !c.EstGratuit
}

// CreatePaymentSession asks the backend for a hosted payment page.
func (s *Service) CreatePaymentSession(ctx context.Context, courseID int64) (string, error) {
	if s.api.Session().Token() == "" {
		return "", ErrNotAuthenticated
	}
	var out models.PaymentSession
	if err := s.api.Post(ctx, fmt.Sprintf("/courses/%d/create-payment-session", courseID), struct{}{}, &out); err != nil {
		return "", err
	}
	if out.SessionURL == "" {
		return "", ErrNoPaymentURL
	}
	return out.SessionURL, nil
}

// ConfirmPayment records a successful payment for courseID on the device.
func (s *Service) ConfirmPayment(ctx context.Context, courseID int64) error {
	if err := s.api.Session().MarkCoursePaid(ctx, courseID); err != nil {
		return err
	}
	s.log.Info("course paid", zap.Int64("courseId", courseID))
	return nil
}
