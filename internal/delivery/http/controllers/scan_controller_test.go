package controllers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestcheckin/internal/domain"
)

func scanRequest(t *testing.T, body *bytes.Buffer, contentType string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events/"+testEventID+"/scans", body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.SetPathValue("eventID", testEventID)
	return withOrganizer(req)
}

func frameBody(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("frame", "frame.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(fw, img))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestScanController_Scan(t *testing.T) {
	t.Run("rejected scan is still ok", func(t *testing.T) {
		checkIn := &fakeCheckInService{result: &domain.ScanResult{
			Code:    domain.ScanWrongEvent,
			Message: "This QR code is for a different event",
			State:   domain.ScanStateReported,
		}}
		ctrl := NewScanController(testLogger, &fakeEventService{event: &domain.Event{ID: testEventID}}, checkIn, &fakeDecoder{})
		rr := httptest.NewRecorder()

		ctrl.Scan(rr, scanRequest(t, bytes.NewBufferString(`{"data":"abc"}`), "application/json"))

		require.Equal(t, http.StatusOK, rr.Code)
		var res domain.ScanResult
		decodeData(t, decodeEnvelope(t, rr), &res)
		assert.False(t, res.Success)
		assert.Equal(t, domain.ScanWrongEvent, res.Code)
		assert.Equal(t, testEventID, checkIn.lastEventID)
		assert.Equal(t, "abc", checkIn.lastRaw)
	})

	t.Run("event of another organizer", func(t *testing.T) {
		checkIn := &fakeCheckInService{}
		ctrl := NewScanController(testLogger, &fakeEventService{err: domain.ErrForbidden}, checkIn, &fakeDecoder{})
		rr := httptest.NewRecorder()

		ctrl.Scan(rr, scanRequest(t, bytes.NewBufferString(`{"data":"abc"}`), "application/json"))

		require.Equal(t, http.StatusForbidden, rr.Code)
		assert.Zero(t, checkIn.calls)
	})

	t.Run("upper-case event id is canonicalized", func(t *testing.T) {
		checkIn := &fakeCheckInService{result: &domain.ScanResult{Success: true, Code: domain.ScanCheckedIn}}
		events := &fakeEventService{event: &domain.Event{ID: testEventID}}
		ctrl := NewScanController(testLogger, events, checkIn, &fakeDecoder{})
		req := scanRequest(t, bytes.NewBufferString(`{"data":"abc"}`), "application/json")
		req.SetPathValue("eventID", strings.ToUpper(testEventID))
		rr := httptest.NewRecorder()

		ctrl.Scan(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, testEventID, events.lastEventID)
		assert.Equal(t, testEventID, checkIn.lastEventID)
	})

	t.Run("empty data reaches the check-in flow", func(t *testing.T) {
		checkIn := &fakeCheckInService{result: &domain.ScanResult{Code: domain.ScanInvalidFormat}}
		ctrl := NewScanController(testLogger, &fakeEventService{}, checkIn, &fakeDecoder{})
		rr := httptest.NewRecorder()

		ctrl.Scan(rr, scanRequest(t, bytes.NewBufferString(`{"data":""}`), "application/json"))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, checkIn.calls)
	})
}

func TestScanController_ScanImage(t *testing.T) {
	t.Run("decoded frame is checked in", func(t *testing.T) {
		checkIn := &fakeCheckInService{result: &domain.ScanResult{Success: true, Code: domain.ScanCheckedIn}}
		ctrl := NewScanController(testLogger, &fakeEventService{}, checkIn, &fakeDecoder{text: "invite-1"})
		body, ct := frameBody(t)
		rr := httptest.NewRecorder()

		ctrl.ScanImage(rr, scanRequest(t, body, ct))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "invite-1", checkIn.lastRaw)
	})

	t.Run("no qr code in frame", func(t *testing.T) {
		checkIn := &fakeCheckInService{result: &domain.ScanResult{Code: domain.ScanInvalidFormat}}
		ctrl := NewScanController(testLogger, &fakeEventService{}, checkIn, &fakeDecoder{err: domain.ErrNoQRCode})
		body, ct := frameBody(t)
		rr := httptest.NewRecorder()

		ctrl.ScanImage(rr, scanRequest(t, body, ct))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, checkIn.calls)
		assert.Empty(t, checkIn.lastRaw)
		assert.Contains(t, rr.Body.String(), "invalid_format")
	})

	t.Run("missing frame", func(t *testing.T) {
		ctrl := NewScanController(testLogger, &fakeEventService{}, &fakeCheckInService{}, &fakeDecoder{})
		rr := httptest.NewRecorder()

		ctrl.ScanImage(rr, scanRequest(t, bytes.NewBufferString(`{}`), "application/json"))

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
