package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"permisconnect/internal/api"
	"permisconnect/internal/clients"
	"permisconnect/internal/models"
	"permisconnect/internal/session"
	"permisconnect/pkg/validation"
)

func newService(t *testing.T, h http.HandlerFunc) (*Service, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sess := session.New(&session.MemoryStore{}, nil)
	c, err := api.New(srv.URL, sess)
	require.NoError(t, err)
	return NewService(c, clients.NewService(c), zap.NewNop()), sess
}

func TestLogin(t *testing.T) {
	svc, sess := newService(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(models.LoginResponse{
			Token:     "tok",
			User:      models.LoginUser{ID: 4, Nom: "Martin", Prenom: "Léa", Email: req.Email},
			AutoEcole: &models.AutoEcoleRef{ID: 1, Nom: "Auto-École du Centre"},
		})
	})
	ctx := context.Background()

	_, err := svc.Login(ctx, "lea@example.fr", "badpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, sess.IsAuthenticated())

	_, err = svc.Login(ctx, "not-an-email", "secret123")
	var verr *validation.Error
	assert.ErrorAs(t, err, &verr)

	p, err := svc.Login(ctx, " lea@example.fr ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.ID, "id falls back to user.id")
	assert.Equal(t, "tok", sess.Token())
	cur, ok := svc.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "Auto-École du Centre", cur.AutoEcole.Nom)

	require.NoError(t, svc.Logout(ctx))
	assert.False(t, sess.IsAuthenticated())
}

func TestRegister(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusCreated)
	svc, sess := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clients", r.URL.Path)
		code := int(status.Load())
		w.WriteHeader(code)
		switch code {
		case http.StatusCreated:
			w.Write([]byte(`{"id":12,"nom":"Martin","prenom":"Léa","email":"lea@example.fr"}`))
		case http.StatusBadRequest:
			w.Write([]byte(`{"message":"telephone invalide"}`))
		}
	})
	req := models.ClientRequest{
		Nom: "Martin", Prenom: "Léa", Email: "lea@example.fr", Password: "secret123",
		Telephone: "06 01 02 03 04", Adresse: "1 rue Neuve", DateNaissance: "2001-04-12",
	}
	ctx := context.Background()

	p, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.ID)
	assert.False(t, sess.IsAuthenticated(), "registering does not log in")

	status.Store(http.StatusConflict)
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	status.Store(http.StatusBadRequest)
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidRegistration)
	assert.Contains(t, err.Error(), "telephone invalide")

	bad := req
	bad.DateNaissance = "12/04/2001"
	_, err = svc.Register(ctx, bad)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "dateNaissance", verr.Fields[0].Field)
}
