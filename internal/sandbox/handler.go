package sandbox

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"permisconnect/internal/models"
	"permisconnect/pkg/jwt"
	"permisconnect/pkg/validation"
)

// Handler exposes the REST API the client talks to.
type Handler struct {
	svc      *Service
	checkout Checkout
	log      *zap.Logger
}

// NewHandler wires a handler to the sandbox service.
func NewHandler(svc *Service, checkout Checkout) *Handler {
	return &Handler{svc: svc, checkout: checkout, log: svc.log}
}

// Routes returns a chi.Router with every API route. It expects claims to
// be extracted upstream (jwt.Signer.Optional).
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Public
	r.Post("/auth/login", h.Login)
	r.Post("/clients", h.Register)
	r.Get("/auto-ecoles", h.ListAutoEcoles)
	r.Get("/auto-ecoles/{id}", h.GetAutoEcole)
	r.Get("/moniteurs/auto-ecole/{id}", h.ListMoniteurs)
	r.Get("/time-slots/moniteur/{id}", h.ListTimeSlots)
	r.Get("/courses/public", h.PublicCourses)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(jwt.Require)
		r.Get("/clients/{id}", h.GetClient)
		r.Put("/clients/{id}", h.UpdateClient)
		r.Put("/clients/{id}/auto-ecole", h.AssignAutoEcole)
		r.Get("/courses/private/{id}", h.PrivateCourses)
		r.Post("/courses/{id}/create-payment-session", h.CreatePaymentSession)
		r.Put("/time-slots/{id}/status", h.UpdateStatus)
		r.Get("/reservations/client/{id}", h.ListReservations)
	})

	return r
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := validation.Struct(req); err != nil {
		writeInvalid(w, err)
		return
	}
	p, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}
	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := validation.Struct(upd); err != nil {
		writeInvalid(w, err)
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AssignAutoEcole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}
	var req models.AssignAutoEcoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AutoEcoleID == 0 {
		writeMessage(w, http.StatusBadRequest, "autoEcoleId is required")
		return
	}
	p, err := h.svc.AssignAutoEcole(r.Context(), id, req.AutoEcoleID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListAutoEcoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.AutoEcoles(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetAutoEcole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ae, err := h.svc.AutoEcole(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ae)
}

func (h *Handler) ListMoniteurs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Moniteurs(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListTimeSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.TimeSlots(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status := models.SlotStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		writeMessage(w, http.StatusBadRequest, "status must be AVAILABLE, BOOKED or CANCELLED")
		return
	}
	slot, err := h.svc.ChangeStatus(r.Context(), jwt.GetClaims(r.Context()), id, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Reservations(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) PublicCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.PublicCourses(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) PrivateCourses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.PrivateCourses(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.PaymentSession(r.Context(), h.checkout, id, jwt.GetClaims(r.Context()).ClientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PaymentSession{SessionURL: u})
}

// self parses the {id} of a per-client route and checks the caller may act
// on it.
func (h *Handler) self(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return 0, false
	}
	c := jwt.GetClaims(r.Context())
	if c.ClientID != id && !c.IsAdmin() {
		writeMessage(w, http.StatusForbidden, "forbidden")
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		writeMessage(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeInvalid(w http.ResponseWriter, err error) {
	body := map[string]any{"message": err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	writeJSON(w, http.StatusBadRequest, body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
