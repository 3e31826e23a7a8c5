package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnknownID marks a payload identifier that was not present in the scanned text.
const UnknownID = "unknown"

// ErrEmptyPayload is returned when a scanned or typed string is empty after trimming.
var ErrEmptyPayload = errors.New("empty scan payload")

// ScanPayload is the content of a guest's QR code. It is never persisted.
// swagger:model ScanPayload
type ScanPayload struct {
	GuestID    string `json:"guestId"`
	EventID    string `json:"eventId"`
	InviteCode string `json:"inviteCode"`
}

// HasGuestID reports whether the payload names a concrete guest.
func (p ScanPayload) HasGuestID() bool {
	return p.GuestID != "" && p.GuestID != UnknownID
}

// HasEventID reports whether the payload names a concrete event.
func (p ScanPayload) HasEventID() bool {
	return p.EventID != "" && p.EventID != UnknownID
}

func (p ScanPayload) complete() bool {
	return p.GuestID != "" && p.EventID != "" && p.InviteCode != ""
}

// EncodeScanPayload serializes p to the JSON text embedded in QR codes.
func EncodeScanPayload(p ScanPayload) (string, error) {
	if !p.complete() {
		return "", fmt.Errorf("%w: guestId, eventId and inviteCode are required", ErrInvalidInput)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode scan payload: %w", err)
	}
	return string(b), nil
}

// DecodeScanPayload parses scanned text. Anything that is not a complete JSON payload is
// treated as a bare invite code with unknown guest and event ids.
func DecodeScanPayload(raw string) (ScanPayload, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ScanPayload{}, ErrEmptyPayload
	}
	var p ScanPayload
	if err := json.Unmarshal([]byte(text), &p); err == nil && p.complete() {
		return p, nil
	}
	return ScanPayload{GuestID: UnknownID, EventID: UnknownID, InviteCode: text}, nil
}

// ScanState is the step a scan attempt reached.
type ScanState string

const (
	ScanStateIdle      ScanState = "idle"
	ScanStateDecoding  ScanState = "decoding"
	ScanStateResolving ScanState = "resolving"
	ScanStateApplying  ScanState = "applying"
	ScanStateReported  ScanState = "reported"
)

// ScanCode classifies the outcome of a scan attempt.
type ScanCode string

const (
	ScanCheckedIn        ScanCode = "checked_in"
	ScanInvalidFormat    ScanCode = "invalid_format"
	ScanNoEventSelected  ScanCode = "no_event_selected"
	ScanWrongEvent       ScanCode = "wrong_event"
	ScanGuestNotFound    ScanCode = "guest_not_found"
	ScanAlreadyCheckedIn ScanCode = "already_checked_in"
	ScanStoreError       ScanCode = "store_error"
)

// ScanResult is what a scan attempt reports back to the scanning surface.
// swagger:model ScanResult
type ScanResult struct {
	Success bool      `json:"success"`
	Code    ScanCode  `json:"code"`
	Message string    `json:"message"`
	Guest   *Guest    `json:"guest,omitempty"`
	State   ScanState `json:"state"`
}

// CheckInNotice is published after a guest is checked in.
type CheckInNotice struct {
	EventID     string    `json:"event_id"`
	GuestID     string    `json:"guest_id"`
	GuestName   string    `json:"guest_name"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// CheckInNotifier fans check-in notices out to interested subscribers.
type CheckInNotifier interface {
	Publish(notice CheckInNotice)
}

// CheckInService reconciles a scanned string against the guests of the selected event.
type CheckInService interface {
	// Scan runs one decode-resolve-apply cycle. Failures are reported in the result; the
	// error is non-nil only when ctx is done.
	Scan(ctx context.Context, selectedEventID, raw string) (*ScanResult, error)
}
