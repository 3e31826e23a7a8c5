package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"guestcheckin/internal/domain"
)

// Messages shown at the door for each scan outcome.
const (
	msgInvalidFormat   = "Invalid QR code format"
	msgNoEventSelected = "Please select an event first"
	msgWrongEvent      = "This QR code is for a different event"
	msgGuestNotFound   = "Guest not found. Check the QR code or invite code."
	msgStoreError      = "Could not record the check-in. Please try again."
)

type checkInService struct {
	store          domain.Store
	notifier       domain.CheckInNotifier
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewCheckInService returns the door check-in flow. notifier may be nil when nobody
// listens for check-ins.
func NewCheckInService(store domain.Store, notifier domain.CheckInNotifier, logger *slog.Logger, timeout time.Duration) domain.CheckInService {
	return &checkInService{
		store:          store,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *checkInService) Scan(ctx context.Context, selectedEventID, raw string) (*domain.ScanResult, error) {
	res := &domain.ScanResult{State: domain.ScanStateDecoding}

	payload, err := domain.DecodeScanPayload(raw)
	if err != nil {
		return s.report(res, domain.ScanInvalidFormat, msgInvalidFormat, nil), nil
	}
	eventID := canonicalID(selectedEventID)
	if eventID == "" {
		return s.report(res, domain.ScanNoEventSelected, msgNoEventSelected, nil), nil
	}
	if payload.HasEventID() && canonicalID(payload.EventID) != eventID {
		return s.report(res, domain.ScanWrongEvent, msgWrongEvent, nil), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	res.State = domain.ScanStateResolving
	guest := s.resolve(ctx, eventID, payload, raw)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if guest == nil {
		return s.report(res, domain.ScanGuestNotFound, msgGuestNotFound, nil), nil
	}
	if guest.IsPresent {
		return s.report(res, domain.ScanAlreadyCheckedIn, alreadyCheckedInMessage(guest), guest), nil
	}

	res.State = domain.ScanStateApplying
	at := s.now().UTC()
	marked, err := s.store.MarkGuestPresent(ctx, guest.ID, at)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, domain.ErrNotFound):
		return s.report(res, domain.ScanGuestNotFound, msgGuestNotFound, nil), nil
	default:
		s.logger.ErrorContext(ctx, "mark guest present failed", "event_id", eventID, "guest_id", guest.ID, "error", err)
		return s.report(res, domain.ScanStoreError, msgStoreError, guest), nil
	}

	if !marked {
		// Another station got there first.
		if current, err := s.store.GetGuest(ctx, guest.ID); err == nil {
			guest = current
		} else {
			guest.IsPresent = true
		}
		return s.report(res, domain.ScanAlreadyCheckedIn, alreadyCheckedInMessage(guest), guest), nil
	}

	guest.IsPresent = true
	guest.CheckedInAt = &at
	if s.notifier != nil {
		s.notifier.Publish(domain.CheckInNotice{
			EventID:     eventID,
			GuestID:     guest.ID,
			GuestName:   guest.Name,
			CheckedInAt: at,
		})
	}
	s.logger.InfoContext(ctx, "guest checked in", "event_id", eventID, "guest_id", guest.ID)

	res.Success = true
	return s.report(res, domain.ScanCheckedIn, fmt.Sprintf("Welcome, %s!", guest.Name), guest), nil
}

// resolve finds the guest by invite code within the event, then by guest id, then by the
// raw scanned text used as an invite code.
func (s *checkInService) resolve(ctx context.Context, eventID string, payload domain.ScanPayload, raw string) *domain.Guest {
	if guest, err := s.store.GetGuestByInviteCode(ctx, eventID, payload.InviteCode); err == nil {
		return guest
	}
	if payload.HasGuestID() {
		guest, err := s.store.GetGuest(ctx, canonicalID(payload.GuestID))
		if err == nil && canonicalID(guest.EventID) == eventID {
			return guest
		}
	}
	if code := strings.TrimSpace(raw); code != payload.InviteCode {
		if guest, err := s.store.GetGuestByInviteCode(ctx, eventID, code); err == nil {
			return guest
		}
	}
	return nil
}

// canonicalID lower-cases UUIDs so ids typed or printed in another case still compare
// equal. Other ids are only trimmed.
func canonicalID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}

func (s *checkInService) report(res *domain.ScanResult, code domain.ScanCode, msg string, guest *domain.Guest) *domain.ScanResult {
	res.Code = code
	res.Message = msg
	res.Guest = guest
	res.State = domain.ScanStateReported
	return res
}

func alreadyCheckedInMessage(g *domain.Guest) string {
	if g.CheckedInAt != nil {
		return fmt.Sprintf("%s already checked in at %s", g.Name, g.CheckedInAt.Format("15:04"))
	}
	return fmt.Sprintf("%s is already checked in", g.Name)
}
