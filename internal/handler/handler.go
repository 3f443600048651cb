// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/service"
	"github.com/go-chi/chi/v5"
)

// EventHandler holds all HTTP handlers for the event registration API.
type EventHandler struct {
	events      *service.EventService
	coordinator *service.Coordinator
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, coordinator *service.Coordinator) *EventHandler {
	return &EventHandler{events: events, coordinator: coordinator}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Events ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /api/events
// Returns upcoming events with their registration counts and free spots.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /api/events
// The caller becomes the event's creator.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), CallerID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register handles POST /api/events/{id}/register
// Responds 201 for a new registration and 200 when a cancelled one is
// re-activated.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	res, err := h.coordinator.Register(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res.Registration)
}

// CancelRegistration handles DELETE /api/events/{id}/register
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.coordinator.Cancel(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ─── Users ────────────────────────────────────────────────────────────────────

// ListUserRegistrations handles GET /api/users/{id}/registrations
func (h *EventHandler) ListUserRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.coordinator.ListUserRegistrations(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListUserEvents handles GET /api/users/{id}/events
// Returns every event the user created, past ones included.
func (h *EventHandler) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListCreatedEvents(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ─── Index & health ───────────────────────────────────────────────────────────

type endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Auth   bool   `json:"auth"`
}

var apiEndpoints = []endpoint{
	{http.MethodGet, "/api/events", false},
	{http.MethodGet, "/api/events/{id}", false},
	{http.MethodPost, "/api/events", true},
	{http.MethodPost, "/api/events/{id}/register", true},
	{http.MethodDelete, "/api/events/{id}/register", true},
	{http.MethodGet, "/api/users/{id}/registrations", true},
	{http.MethodGet, "/api/users/{id}/events", true},
}

// APIIndex handles GET /api
func APIIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      "event-reg-coordinator",
		"endpoints": apiEndpoints,
	})
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
