package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"guestcheckin/internal/adapters/qrcode"
	h "guestcheckin/internal/delivery/http/helpers"
	"guestcheckin/internal/domain"
)

// maxFrameBytes caps uploaded camera frames.
const maxFrameBytes = 5 << 20

// ScanRequest is the request body for POST /events/{eventID}/scans.
// Data is the decoded QR text or a typed invite code.
type ScanRequest struct {
	Data string `json:"data"`
}

// ScanSuccessResponse is the envelope for scan endpoints. A rejected scan is still a 200;
// data.success and data.code carry the outcome.
// swagger:model ScanSuccessResponse
type ScanSuccessResponse struct {
	Data  *domain.ScanResult `json:"data"`
	Error *h.APIError        `json:"error"`
}

type ScanController struct {
	Logger  *slog.Logger
	Events  domain.EventService
	CheckIn domain.CheckInService
	Decoder domain.QRDecoder
}

func NewScanController(logger *slog.Logger, events domain.EventService, checkIn domain.CheckInService, decoder domain.QRDecoder) *ScanController {
	return &ScanController{
		Logger:  logger,
		Events:  events,
		CheckIn: checkIn,
		Decoder: decoder,
	}
}

// Scan godoc
// @Summary Check in a guest from scanned text
// @Description Resolve the scanned payload or manual invite code against the event and mark the guest present.
// @Tags scans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ScanRequest true "Scanned text"
// @Success 200 {object} ScanSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Router /events/{eventID}/scans [post]
func (c *ScanController) Scan(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.selectedEvent(w, r)
	if !ok {
		return
	}
	var req ScanRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	c.checkIn(w, r, eventID, req.Data)
}

// ScanImage godoc
// @Summary Check in a guest from a camera frame
// @Description Decode the QR code in an uploaded PNG or JPEG frame and check the guest in.
// @Tags scans
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param frame formData file true "Camera frame"
// @Success 200 {object} ScanSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Router /events/{eventID}/scans/image [post]
func (c *ScanController) ScanImage(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.selectedEvent(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFrameBytes)
	file, _, err := r.FormFile("frame")
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "frame file is required")
		return
	}
	defer file.Close()

	img, err := qrcode.ReadImage(file)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to read frame")
		return
	}
	text, err := c.Decoder.Decode(img)
	if errors.Is(err, domain.ErrNoQRCode) {
		// An unreadable frame is reported like an empty payload.
		text, err = "", nil
	}
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to decode frame")
		return
	}
	c.checkIn(w, r, eventID, text)
}

// selectedEvent resolves the event in the path and checks the caller owns it.
func (c *ScanController) selectedEvent(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := organizerID(w, r)
	if !ok {
		return "", false
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return "", false
	}
	if _, err := c.Events.GetEvent(r.Context(), eventID, ownerID); err != nil {
		writeError(c.Logger, w, r, err, "failed to load event")
		return "", false
	}
	return eventID, true
}

func (c *ScanController) checkIn(w http.ResponseWriter, r *http.Request, eventID, raw string) {
	res, err := c.CheckIn.Scan(r.Context(), eventID, raw)
	if err != nil {
		writeError(c.Logger, w, r, err, "failed to process scan")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, res)
}
