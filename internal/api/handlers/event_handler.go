package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/ender-auth/internal/apperr"
	"github.com/isdelr/ender-auth/internal/auth"
	"github.com/isdelr/ender-auth/internal/httpx/respond"
	"github.com/isdelr/ender-auth/internal/models"
	"github.com/isdelr/ender-auth/internal/services"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

// EventHandler serves the authenticated user's auth activity.
type EventHandler struct {
	service services.EventServiceProvider
	render  respond.Renderer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider, production bool) *EventHandler {
	return &EventHandler{service: service, render: respond.Renderer{Production: production}}
}

type eventsResponse struct {
	Success bool           `json:"success"`
	Events  []models.Event `json:"events"`
}

// GetRecent handles the request to get the caller's recent auth events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.render.Error(w, r, apperr.New(apperr.Unauthorized, "Not authorized"), "Error fetching activity")
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultEventLimit // Default limit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), userID, limit)
	if err != nil {
		h.render.Error(w, r, apperr.Wrap(apperr.Storage, "Failed to retrieve events", err), "Error fetching activity")
		return
	}

	respond.JSON(w, http.StatusOK, eventsResponse{Success: true, Events: events})
}
