package clients

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"permisconnect/internal/api"
	"permisconnect/internal/models"
	"permisconnect/pkg/validation"
)

// Service wraps the /clients endpoints.
type Service struct {
	api *api.Client
}

// NewService creates a client service.
func NewService(c *api.Client) *Service {
	return &Service{api: c}
}

// Create registers a new client account.
func (s *Service) Create(ctx context.Context, req models.ClientRequest) (*models.Profile, error) {
	var out models.Profile
	if err := s.api.Post(ctx, "/clients", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a client profile.
func (s *Service) Get(ctx context.Context, id int64) (*models.Profile, error) {
	var out models.Profile
	if err := s.api.Get(ctx, fmt.Sprintf("/clients/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update edits the profile and refreshes the cached copy in the session.
func (s *Service) Update(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.Profile, error) {
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}
	var out models.Profile
	if err := s.api.Put(ctx, fmt.Sprintf("/clients/%d", id), nil, upd, &out); err != nil {
		return nil, err
	}
	sess := s.api.Session()
	if cur, ok := sess.ClientID(); ok && cur == out.ID {
		if err := sess.UpdateProfile(ctx, out); err != nil {
			return &out, errors.Wrap(err, "cache updated profile")
		}
	}
	return &out, nil
}

// AssignAutoEcole attaches the client to an auto-école on the backend.
func (s *Service) AssignAutoEcole(ctx context.Context, clientID, autoEcoleID int64) error {
	return s.api.Put(ctx, fmt.Sprintf("/clients/%d/auto-ecole", clientID), nil,
		models.AssignAutoEcoleRequest{AutoEcoleID: autoEcoleID}, nil)
}
