package autoecoles

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"permisconnect/internal/api"
	"permisconnect/internal/clients"
	"permisconnect/internal/models"
)

// Service wraps the auto-école directory.
type Service struct {
	api     *api.Client
	clients *clients.Service
	log     *zap.Logger
}

// NewService creates a directory service.
func NewService(c *api.Client, cs *clients.Service, log *zap.Logger) *Service {
	return &Service{api: c, clients: cs, log: log.Named("autoecoles")}
}

// List returns every auto-école.
func (s *Service) List(ctx context.Context) ([]models.AutoEcole, error) {
	var out []models.AutoEcole
	if err := s.api.Get(ctx, "/auto-ecoles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one auto-école.
func (s *Service) Get(ctx context.Context, id int64) (*models.AutoEcole, error) {
	var out models.AutoEcole
	if err := s.api.Get(ctx, fmt.Sprintf("/auto-ecoles/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Select makes id the device's auto-école. When logged in the backend is
// told as well; failing that only logs, the local selection stands.
func (s *Service) Select(ctx context.Context, id int64) (*models.AutoEcole, error) {
	ae, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess := s.api.Session()
	if err := sess.SelectAutoEcole(ctx, *ae); err != nil {
		return nil, err
	}
	if clientID, ok := sess.ClientID(); ok {
		if err := s.clients.AssignAutoEcole(ctx, clientID, ae.ID); err != nil {
			if api.IsUnauthorized(err) {
				return nil, err
			}
			s.log.Warn("assign auto-école on backend",
				zap.Int64("clientId", clientID), zap.Int64("autoEcoleId", ae.ID), zap.Error(err))
		}
	}
	return ae, nil
}
