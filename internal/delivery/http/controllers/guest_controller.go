package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	h "guestcheckin/internal/delivery/http/helpers"
	"guestcheckin/internal/domain"
)

// AddGuestRequest is the request body for POST /events/{eventID}/guests
type AddGuestRequest struct {
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// Validate implements Validator.
func (a AddGuestRequest) Validate() []string {
	var errs []string
	if a.ID != "" {
		if _, err := uuid.Parse(a.ID); err != nil {
			errs = append(errs, "id must be a valid UUID")
		}
	}
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, "name is required")
	}
	email := strings.TrimSpace(a.Email)
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}
	return errs
}

// UpdateGuestRequest is the request body for PATCH /events/{eventID}/guests/{guestID}.
// Omitted fields are left unchanged.
type UpdateGuestRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Validate implements Validator.
func (u UpdateGuestRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if u.Email != nil && !emailRegexp.MatchString(strings.TrimSpace(*u.Email)) {
		errs = append(errs, "invalid email format")
	}
	return errs
}

// GuestSuccessResponse is the success envelope for single-guest endpoints.
// swagger:model GuestSuccessResponse
type GuestSuccessResponse struct {
	Data  *domain.Guest `json:"data"`
	Error *h.APIError   `json:"error"`
}

// ListGuestsSuccessResponse is the success envelope for GET /events/{eventID}/guests.
// swagger:model ListGuestsSuccessResponse
type ListGuestsSuccessResponse struct {
	Data  h.PaginatedList[*domain.Guest] `json:"data"`
	Error *h.APIError                    `json:"error"`
}

// InvitationSuccessResponse is the success envelope for invitation endpoints.
// png is base64 encoded.
// swagger:model InvitationSuccessResponse
type InvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *h.APIError        `json:"error"`
}

type GuestController struct {
	Logger  *slog.Logger
	Service domain.GuestService
}

func NewGuestController(logger *slog.Logger, svc domain.GuestService) *GuestController {
	return &GuestController{
		Logger:  logger,
		Service: svc,
	}
}

// AddGuest godoc
// @Summary Add a guest
// @Description Add a guest to an event. The guest gets a fresh invite code and starts absent.
// @Tags guests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body AddGuestRequest true "Guest data"
// @Success 201 {object} GuestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID}/guests [post]
func (c *GuestController) AddGuest(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req AddGuestRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	guest := domain.NewGuest(eventID, req.Name, req.Email, req.Phone, time.Time{})
	guest.ID = h.CanonicalUUID(req.ID)
	if err := c.Service.AddGuest(r.Context(), guest, ownerID); err != nil {
		writeError(c.Logger, w, r, err, "failed to add guest")
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, guest)
}

// ListGuests godoc
// @Summary List guests
// @Description List an event's guests ordered by name. search matches name, email, or invite code.
// @Tags guests
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param search query string false "Case-insensitive search"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} ListGuestsSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests [get]
func (c *GuestController) ListGuests(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	params := h.ParsePagination(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	guests, total, err := c.Service.ListGuests(r.Context(), eventID, ownerID, search, params)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to list guests")
		return
	}
	if guests == nil {
		guests = []*domain.Guest{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, h.PaginatedList[*domain.Guest]{
		Items:      guests,
		Pagination: h.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// GetGuest godoc
// @Summary Get a guest
// @Tags guests
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param guestID path string true "Guest ID (UUID)"
// @Success 200 {object} GuestSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests/{guestID} [get]
func (c *GuestController) GetGuest(w http.ResponseWriter, r *http.Request) {
	ownerID, eventID, guestID, ok := guestPath(w, r)
	if !ok {
		return
	}
	guest, err := c.Service.GetGuest(r.Context(), eventID, guestID, ownerID)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to get guest")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, guest)
}

// UpdateGuest godoc
// @Summary Update a guest
// @Description Change name, email, or phone. Presence is only changed by scanning.
// @Tags guests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param guestID path string true "Guest ID (UUID)"
// @Param body body UpdateGuestRequest true "Fields to change"
// @Success 200 {object} GuestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests/{guestID} [patch]
func (c *GuestController) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	ownerID, eventID, guestID, ok := guestPath(w, r)
	if !ok {
		return
	}
	var req UpdateGuestRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	upd := domain.GuestUpdate{Name: req.Name, Email: req.Email, Phone: req.Phone}
	guest, err := c.Service.UpdateGuest(r.Context(), eventID, guestID, ownerID, upd)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to update guest")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, guest)
}

// DeleteGuest godoc
// @Summary Delete a guest
// @Tags guests
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param guestID path string true "Guest ID (UUID)"
// @Success 204
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests/{guestID} [delete]
func (c *GuestController) DeleteGuest(w http.ResponseWriter, r *http.Request) {
	ownerID, eventID, guestID, ok := guestPath(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteGuest(r.Context(), eventID, guestID, ownerID); err != nil {
		writeError(c.Logger, w, r, err, "failed to delete guest")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInvitation godoc
// @Summary Get a guest's invitation QR code
// @Description Returns the raw PNG when the client accepts image/png, otherwise the payload and base64 PNG in JSON.
// @Tags guests
// @Produce json,png
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param guestID path string true "Guest ID (UUID)"
// @Success 200 {object} InvitationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests/{guestID}/invitation [get]
func (c *GuestController) GetInvitation(w http.ResponseWriter, r *http.Request) {
	ownerID, eventID, guestID, ok := guestPath(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.GetInvitation(r.Context(), eventID, guestID, ownerID)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to build invitation")
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "image/png") {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(inv.PNG)))
		w.Header().Set("Content-Disposition", `inline; filename="`+inv.Guest.ID+`.png"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(inv.PNG)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, inv)
}

// SendInvitation godoc
// @Summary Email a guest's invitation
// @Description Sends the invitation with its QR code to the guest's email address.
// @Tags guests
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param guestID path string true "Guest ID (UUID)"
// @Success 200 {object} InvitationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/guests/{guestID}/invitation/send [post]
func (c *GuestController) SendInvitation(w http.ResponseWriter, r *http.Request) {
	ownerID, eventID, guestID, ok := guestPath(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.SendInvitation(r.Context(), eventID, guestID, ownerID)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to send invitation")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, inv)
}

func guestPath(w http.ResponseWriter, r *http.Request) (ownerID, eventID, guestID string, ok bool) {
	if ownerID, ok = organizerID(w, r); !ok {
		return
	}
	if eventID, ok = h.PathUUID(w, r, "eventID"); !ok {
		return
	}
	guestID, ok = h.PathUUID(w, r, "guestID")
	return
}
