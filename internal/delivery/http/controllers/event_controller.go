package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	h "guestcheckin/internal/delivery/http/helpers"
	"guestcheckin/internal/domain"
)

// EventRequest is the request body for POST /events and PUT /events/{eventID}.
// ID is optional on create; when set it must be a UUID.
type EventRequest struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date" example:"2026-11-01T18:30:00Z"`
	Location    string     `json:"location"`
}

// Validate implements Validator.
func (e EventRequest) Validate() []string {
	var errs []string
	if e.ID != "" {
		if _, err := uuid.Parse(e.ID); err != nil {
			errs = append(errs, "id must be a valid UUID")
		}
	}
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, "name is required")
	}
	if e.Date == nil || e.Date.IsZero() {
		errs = append(errs, "date is required (RFC3339)")
	}
	if strings.TrimSpace(e.Location) == "" {
		errs = append(errs, "location is required")
	}
	return errs
}

func (e EventRequest) toEvent(ownerID string) *domain.Event {
	event := domain.NewEvent(e.Name, e.Description, *e.Date, e.Location, ownerID, time.Time{})
	event.ID = h.CanonicalUUID(e.ID)
	return event
}

// EventSuccessResponse is the success envelope for single-event endpoints.
// swagger:model EventSuccessResponse
type EventSuccessResponse struct {
	Data  *domain.Event `json:"data"`
	Error *h.APIError   `json:"error"`
}

// ListEventsSuccessResponse is the success envelope for GET /events.
// swagger:model ListEventsSuccessResponse
type ListEventsSuccessResponse struct {
	Data  []*domain.Event `json:"data"`
	Error *h.APIError     `json:"error"`
}

// EventStatsSuccessResponse is the success envelope for GET /events/{eventID}/stats.
// swagger:model EventStatsSuccessResponse
type EventStatsSuccessResponse struct {
	Data  *domain.EventStats `json:"data"`
	Error *h.APIError        `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Create an event owned by the authenticated organizer.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body EventRequest true "Event data"
// @Success 201 {object} EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	var req EventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event := req.toEvent(ownerID)
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		writeError(c.Logger, w, r, err, "failed to create event")
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description List the authenticated organizer's events, newest date first.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ListEventsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListEvents(r.Context(), ownerID)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to list events")
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID, ownerID)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to get event")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ReplaceEvent godoc
// @Summary Replace an event
// @Description Replace name, description, date, and location of an event. Owner and creation time are kept.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body EventRequest true "Event data"
// @Success 200 {object} EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [put]
func (c *EventController) ReplaceEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req EventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event := req.toEvent(ownerID)
	event.ID = eventID
	updated, err := c.Service.ReplaceEvent(r.Context(), event, ownerID)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to replace event")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, updated)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Delete an event together with all of its guests.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID, ownerID); err != nil {
		writeError(c.Logger, w, r, err, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEventStats godoc
// @Summary Event attendance statistics
// @Description Totals, attendance rate, and the five most recent check-ins.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} EventStatsSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/stats [get]
func (c *EventController) GetEventStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	stats, err := c.Service.GetEventStats(r.Context(), eventID, ownerID)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to get event stats")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, stats)
}
