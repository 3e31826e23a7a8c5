package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"guestcheckin/internal/domain"
)

type store struct {
	events domain.EventRepository
	guests domain.GuestRepository
	logger *slog.Logger
}

// NewStore wraps the repositories behind the domain.Store facade. Failed reads are logged
// and degrade to an empty result; failed writes are returned.
func NewStore(events domain.EventRepository, guests domain.GuestRepository, logger *slog.Logger) domain.Store {
	return &store{events: events, guests: guests, logger: logger}
}

func (s *store) CreateEvent(ctx context.Context, event *domain.Event) error {
	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *store) ListEvents(ctx context.Context, ownerID string) []*domain.Event {
	events, err := s.events.ListByOwnerID(ctx, ownerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list events failed", "owner_id", ownerID, "error", err)
		return []*domain.Event{}
	}
	if events == nil {
		return []*domain.Event{}
	}
	return events
}

func (s *store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupFailed(ctx, "get event failed", "event_id", id, err)
	}
	return event, nil
}

func (s *store) ReplaceEvent(ctx context.Context, event *domain.Event) error {
	if err := s.events.Replace(ctx, event); err != nil {
		return fmt.Errorf("replace event: %w", err)
	}
	return nil
}

func (s *store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *store) CreateGuest(ctx context.Context, guest *domain.Guest) error {
	if err := s.guests.Create(ctx, guest); err != nil {
		return fmt.Errorf("create guest: %w", err)
	}
	return nil
}

func (s *store) ListGuests(ctx context.Context, eventID string) []*domain.Guest {
	guests, err := s.guests.ListByEventID(ctx, eventID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list guests failed", "event_id", eventID, "error", err)
		return []*domain.Guest{}
	}
	if guests == nil {
		return []*domain.Guest{}
	}
	return guests
}

func (s *store) SearchGuests(ctx context.Context, eventID, search string, params domain.PaginationParams) ([]*domain.Guest, int) {
	guests, total, err := s.guests.SearchByEventID(ctx, eventID, search, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "search guests failed", "event_id", eventID, "error", err)
		return []*domain.Guest{}, 0
	}
	if guests == nil {
		guests = []*domain.Guest{}
	}
	return guests, total
}

func (s *store) GetGuest(ctx context.Context, id string) (*domain.Guest, error) {
	guest, err := s.guests.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupFailed(ctx, "get guest failed", "guest_id", id, err)
	}
	return guest, nil
}

func (s *store) GetGuestByInviteCode(ctx context.Context, eventID, inviteCode string) (*domain.Guest, error) {
	guest, err := s.guests.GetByInviteCode(ctx, eventID, inviteCode)
	if err != nil {
		return nil, s.lookupFailed(ctx, "get guest by invite code failed", "event_id", eventID, err)
	}
	return guest, nil
}

func (s *store) UpdateGuest(ctx context.Context, id string, upd domain.GuestUpdate) (*domain.Guest, error) {
	guest, err := s.guests.Update(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update guest: %w", err)
	}
	return guest, nil
}

func (s *store) MarkGuestPresent(ctx context.Context, id string, at time.Time) (bool, error) {
	marked, err := s.guests.MarkPresent(ctx, id, at)
	if err != nil {
		return false, fmt.Errorf("mark guest present: %w", err)
	}
	return marked, nil
}

func (s *store) DeleteGuest(ctx context.Context, id string) error {
	if err := s.guests.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return nil
}

// lookupFailed maps any lookup failure to domain.ErrNotFound, logging the ones that were
// not a plain miss.
func (s *store) lookupFailed(ctx context.Context, msg, key, id string, err error) error {
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, msg, key, id, "error", err)
	}
	return domain.ErrNotFound
}
