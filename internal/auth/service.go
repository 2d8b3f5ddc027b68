package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"permisconnect/internal/api"
	"permisconnect/internal/clients"
	"permisconnect/internal/models"
	"permisconnect/pkg/validation"
)

var (
	ErrInvalidCredentials  = errors.New("Email ou mot de passe incorrect")
	ErrAlreadyRegistered   = errors.New("Cet email ou ce numéro de téléphone est déjà utilisé")
	ErrInvalidRegistration = errors.New("Données invalides. Veuillez vérifier vos informations.")
	ErrEmptyResponse       = errors.New("Aucune donnée reçue du serveur")
)

// Service handles login, registration and logout.
type Service struct {
	api     *api.Client
	clients *clients.Service
	log     *zap.Logger
}

// NewService creates an auth service.
func NewService(c *api.Client, cs *clients.Service, log *zap.Logger) *Service {
	return &Service{api: c, clients: cs, log: log.Named("auth")}
}

// Login authenticates and stores the token and profile in the session.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Profile, error) {
	req := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var resp models.LoginResponse
	if err := s.api.Post(ctx, "/auth/login", req, &resp); err != nil {
		s.log.Warn("login failed", zap.String("email", req.Email), zap.Error(err))
		if api.IsUnauthorized(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	profile := resp.Profile()
	if profile.ID == 0 {
		return nil, ErrEmptyResponse
	}
	if err := s.api.Session().Authenticate(ctx, resp.Token, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Register creates the account. It does not log in.
func (s *Service) Register(ctx context.Context, req models.ClientRequest) (*models.Profile, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	created, err := s.clients.Create(ctx, req)
	switch {
	case api.IsConflict(err):
		return nil, ErrAlreadyRegistered
	case api.StatusCode(err) == 400:
		if msg := api.Message(err); msg != "" {
			return nil, errors.Wrap(ErrInvalidRegistration, msg)
		}
		return nil, ErrInvalidRegistration
	case err != nil:
		return nil, err
	case created == nil || created.ID == 0:
		return nil, ErrEmptyResponse
	}
	s.log.Info("registered", zap.Int64("clientId", created.ID))
	return created, nil
}

// Logout clears the session.
func (s *Service) Logout(ctx context.Context) error {
	return s.api.Session().Clear(ctx)
}

// CurrentUser returns the cached profile.
func (s *Service) CurrentUser() (models.Profile, bool) {
	return s.api.Session().Profile()
}
