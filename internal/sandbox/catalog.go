package sandbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"permisconnect/internal/models"
)

func (s *Service) AutoEcoles(ctx context.Context) ([]models.AutoEcole, error) {
	return s.store.AutoEcoles(ctx)
}

func (s *Service) AutoEcole(ctx context.Context, id int64) (*models.AutoEcole, error) {
	return s.store.AutoEcole(ctx, id)
}

// Moniteurs lists the instructors of an existing auto-école.
func (s *Service) Moniteurs(ctx context.Context, autoEcoleID int64) ([]models.Moniteur, error) {
	if _, err := s.store.AutoEcole(ctx, autoEcoleID); err != nil {
		return nil, err
	}
	return s.store.Moniteurs(ctx, autoEcoleID)
}

func (s *Service) PublicCourses(ctx context.Context) ([]models.Course, error) {
	return s.store.Courses(ctx, models.CoursePublic, 0)
}

func (s *Service) PrivateCourses(ctx context.Context, autoEcoleID int64) ([]models.Course, error) {
	return s.store.Courses(ctx, models.CoursePrivate, autoEcoleID)
}

// PaymentSession opens a checkout for a paid course.
func (s *Service) PaymentSession(ctx context.Context, checkout Checkout, courseID, clientID int64) (string, error) {
	c, err := s.store.Course(ctx, courseID)
	if err != nil {
		return "", err
	}
	if c.EstGratuit || c.Prix <= 0 {
		return "", fmt.Errorf("course %d is free: %w", courseID, ErrConflict)
	}
	u, err := checkout.CreateSession(ctx, *c, clientID)
	if err != nil {
		return "", err
	}
	s.log.Info("payment session created", zap.Int64("courseId", courseID), zap.Int64("clientId", clientID))
	return u, nil
}
