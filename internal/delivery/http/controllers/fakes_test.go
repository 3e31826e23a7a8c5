package controllers

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"guestcheckin/internal/delivery/http/helpers"
	"guestcheckin/internal/delivery/http/middleware"
	"guestcheckin/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testOwnerID = "user-123"
	testEventID = "0b8f5c36-1d0e-4d7f-9c3a-2f1e4b6a7c01"
	testGuestID = "5a2d9e10-7b3c-4f21-8e6d-9c0b1a2f3e45"
)

// withOrganizer attaches the test organizer to the request context.
func withOrganizer(req *http.Request) *http.Request {
	return req.WithContext(middleware.SetOrganizerID(req.Context(), testOwnerID))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	return envelope
}

// decodeData re-marshals envelope.Data into dest.
func decodeData(t *testing.T, envelope helpers.APIResponse, dest any) {
	t.Helper()
	b, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dest))
}

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	signUpErr    error
	loginErr     error
	getByIDErr   error
	token        string
	user         *domain.User
	lastEmail    string
	lastPassword string
	lastName     string
	lastGetByID  string
}

func (f *fakeAuthService) SignUp(_ context.Context, email, password, name string) (*domain.User, error) {
	f.lastEmail, f.lastPassword, f.lastName = email, password, name
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &domain.User{ID: "user-new", Email: email, Name: name}, nil
}

func (f *fakeAuthService) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	f.lastEmail, f.lastPassword = email, password
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.token, f.user, nil
}

func (f *fakeAuthService) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.lastGetByID = id
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.user, nil
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err          error
	event        *domain.Event
	events       []*domain.Event
	stats        *domain.EventStats
	lastEvent    *domain.Event
	lastEventID  string
	lastOwnerID  string
	deleteCalled bool
}

func (f *fakeEventService) CreateEvent(_ context.Context, event *domain.Event) error {
	f.lastEvent = event
	if f.err != nil {
		return f.err
	}
	event.ID = "ev-created"
	return nil
}

func (f *fakeEventService) ListEvents(_ context.Context, ownerID string) ([]*domain.Event, error) {
	f.lastOwnerID = ownerID
	return f.events, f.err
}

func (f *fakeEventService) GetEvent(_ context.Context, eventID, ownerID string) (*domain.Event, error) {
	f.lastEventID, f.lastOwnerID = eventID, ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) ReplaceEvent(_ context.Context, event *domain.Event, ownerID string) (*domain.Event, error) {
	f.lastEvent, f.lastOwnerID = event, ownerID
	if f.err != nil {
		return nil, f.err
	}
	return event, nil
}

func (f *fakeEventService) DeleteEvent(_ context.Context, eventID, ownerID string) error {
	f.deleteCalled = true
	f.lastEventID, f.lastOwnerID = eventID, ownerID
	return f.err
}

func (f *fakeEventService) GetEventStats(_ context.Context, eventID, ownerID string) (*domain.EventStats, error) {
	f.lastEventID, f.lastOwnerID = eventID, ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

// fakeGuestService implements domain.GuestService for handler tests.
type fakeGuestService struct {
	err         error
	guest       *domain.Guest
	guests      []*domain.Guest
	total       int
	invitation  *domain.Invitation
	lastGuest   *domain.Guest
	lastEventID string
	lastGuestID string
	lastOwnerID string
	lastSearch  string
	lastParams  domain.PaginationParams
	lastUpdate  domain.GuestUpdate
}

func (f *fakeGuestService) AddGuest(_ context.Context, guest *domain.Guest, ownerID string) error {
	f.lastGuest, f.lastOwnerID = guest, ownerID
	if f.err != nil {
		return f.err
	}
	if guest.ID == "" {
		guest.ID = "guest-created"
	}
	guest.InviteCode = "abc123def456"
	return nil
}

func (f *fakeGuestService) ListGuests(_ context.Context, eventID, ownerID, search string, params domain.PaginationParams) ([]*domain.Guest, int, error) {
	f.lastEventID, f.lastOwnerID, f.lastSearch, f.lastParams = eventID, ownerID, search, params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.guests, f.total, nil
}

func (f *fakeGuestService) GetGuest(_ context.Context, eventID, guestID, ownerID string) (*domain.Guest, error) {
	f.lastEventID, f.lastGuestID, f.lastOwnerID = eventID, guestID, ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.guest, nil
}

func (f *fakeGuestService) UpdateGuest(_ context.Context, eventID, guestID, ownerID string, upd domain.GuestUpdate) (*domain.Guest, error) {
	f.lastEventID, f.lastGuestID, f.lastOwnerID, f.lastUpdate = eventID, guestID, ownerID, upd
	if f.err != nil {
		return nil, f.err
	}
	return f.guest, nil
}

func (f *fakeGuestService) DeleteGuest(_ context.Context, eventID, guestID, ownerID string) error {
	f.lastEventID, f.lastGuestID, f.lastOwnerID = eventID, guestID, ownerID
	return f.err
}

func (f *fakeGuestService) GetInvitation(_ context.Context, eventID, guestID, ownerID string) (*domain.Invitation, error) {
	f.lastEventID, f.lastGuestID, f.lastOwnerID = eventID, guestID, ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.invitation, nil
}

func (f *fakeGuestService) SendInvitation(_ context.Context, eventID, guestID, ownerID string) (*domain.Invitation, error) {
	f.lastEventID, f.lastGuestID, f.lastOwnerID = eventID, guestID, ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.invitation, nil
}

// fakeCheckInService implements domain.CheckInService for handler tests.
type fakeCheckInService struct {
	err         error
	result      *domain.ScanResult
	calls       int
	lastEventID string
	lastRaw     string
}

func (f *fakeCheckInService) Scan(_ context.Context, eventID, raw string) (*domain.ScanResult, error) {
	f.calls++
	f.lastEventID, f.lastRaw = eventID, raw
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeDecoder implements domain.QRDecoder.
type fakeDecoder struct {
	text string
	err  error
}

func (f *fakeDecoder) Decode(image.Image) (string, error) {
	return f.text, f.err
}
