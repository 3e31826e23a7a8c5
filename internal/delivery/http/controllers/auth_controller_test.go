package controllers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestcheckin/internal/domain"
)

func TestAuthController_SignUp(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		fakeErr        error
		wantStatus     int
		wantBodySubstr string
	}{
		{name: "success", body: `{"email":"ada@example.com","password":"longenough","name":"Ada"}`, wantStatus: http.StatusCreated},
		{name: "invalid json", body: `{bad`, wantStatus: http.StatusBadRequest, wantBodySubstr: "invalid"},
		{name: "missing fields", body: `{}`, wantStatus: http.StatusBadRequest, wantBodySubstr: "email is required"},
		{name: "short password", body: `{"email":"ada@example.com","password":"short","name":"Ada"}`, wantStatus: http.StatusBadRequest, wantBodySubstr: "at least 8"},
		{name: "bad email", body: `{"email":"nope","password":"longenough","name":"Ada"}`, wantStatus: http.StatusBadRequest, wantBodySubstr: "invalid email"},
		{name: "duplicate email", body: `{"email":"ada@example.com","password":"longenough","name":"Ada"}`, fakeErr: domain.ErrDuplicateEmail, wantStatus: http.StatusConflict, wantBodySubstr: "already in use"},
		{name: "service error", body: `{"email":"ada@example.com","password":"longenough","name":"Ada"}`, fakeErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantBodySubstr: "failed to sign up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthService{signUpErr: tt.fakeErr}
			ctrl := NewAuthController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			ctrl.SignUp(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			envelope := decodeEnvelope(t, rr)
			if tt.wantStatus == http.StatusCreated {
				require.Nil(t, envelope.Error)
				var user domain.User
				decodeData(t, envelope, &user)
				assert.Equal(t, "ada@example.com", user.Email)
				assert.Equal(t, "Ada", fake.lastName)
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
		})
	}
}

func TestAuthController_Login(t *testing.T) {
	t.Run("success returns bearer token", func(t *testing.T) {
		fake := &fakeAuthService{token: "tok", user: &domain.User{ID: testOwnerID, Email: "ada@example.com"}}
		ctrl := NewAuthController(testLogger, fake)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ada@example.com","password":"longenough"}`))
		rr := httptest.NewRecorder()

		ctrl.Login(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp LoginResponse
		decodeData(t, decodeEnvelope(t, rr), &resp)
		assert.Equal(t, "tok", resp.Token)
		assert.Equal(t, "Bearer", resp.TokenType)
		require.NotNil(t, resp.User)
		assert.Equal(t, testOwnerID, resp.User.ID)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		fake := &fakeAuthService{loginErr: domain.ErrInvalidCredentials}
		ctrl := NewAuthController(testLogger, fake)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ada@example.com","password":"wrong-one"}`))
		rr := httptest.NewRecorder()

		ctrl.Login(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		envelope := decodeEnvelope(t, rr)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "unauthorized", envelope.Error.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{})
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ada@example.com"}`))
		rr := httptest.NewRecorder()

		ctrl.Login(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthController_Me(t *testing.T) {
	t.Run("returns current user", func(t *testing.T) {
		fake := &fakeAuthService{user: &domain.User{ID: testOwnerID, Name: "Ada"}}
		ctrl := NewAuthController(testLogger, fake)
		req := withOrganizer(httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		rr := httptest.NewRecorder()

		ctrl.Me(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, testOwnerID, fake.lastGetByID)
	})

	t.Run("no organizer in context", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{})
		rr := httptest.NewRecorder()

		ctrl.Me(rr, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("user gone", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{getByIDErr: domain.ErrUserNotFound})
		rr := httptest.NewRecorder()

		ctrl.Me(rr, withOrganizer(httptest.NewRequest(http.MethodGet, "/auth/me", nil)))

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}
