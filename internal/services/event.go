package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"guestcheckin/internal/domain"
)

// recentCheckInLimit is how many check-ins the stats dashboard lists.
const recentCheckInLimit = 5

type eventService struct {
	store          domain.Store
	contextTimeout time.Duration
}

func NewEventService(store domain.Store, timeout time.Duration) domain.EventService {
	return &eventService{
		store:          store,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.OwnerID == "" {
		return fmt.Errorf("%w: event owner is required", domain.ErrInvalidInput)
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = time.Now()

	return s.store.CreateEvent(ctx, event)
}

func (s *eventService) ListEvents(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.store.ListEvents(ctx, ownerID), nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID, ownerID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return ownedEvent(ctx, s.store, eventID, ownerID)
}

func (s *eventService) ReplaceEvent(ctx context.Context, event *domain.Event, ownerID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	existing, err := ownedEvent(ctx, s.store, event.ID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	event.OwnerID = existing.OwnerID
	event.CreatedAt = existing.CreatedAt
	if err := s.store.ReplaceEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := ownedEvent(ctx, s.store, eventID, ownerID); err != nil {
		return err
	}
	return s.store.DeleteEvent(ctx, eventID)
}

func (s *eventService) GetEventStats(ctx context.Context, eventID, ownerID string) (*domain.EventStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := ownedEvent(ctx, s.store, eventID, ownerID); err != nil {
		return nil, err
	}
	return computeStats(eventID, s.store.ListGuests(ctx, eventID)), nil
}

func computeStats(eventID string, guests []*domain.Guest) *domain.EventStats {
	stats := &domain.EventStats{
		EventID:        eventID,
		TotalGuests:    len(guests),
		RecentCheckIns: []*domain.Guest{},
	}
	var checkedIn []*domain.Guest
	for _, g := range guests {
		if !g.IsPresent {
			continue
		}
		stats.PresentGuests++
		if g.CheckedInAt != nil {
			checkedIn = append(checkedIn, g)
		}
	}
	stats.AbsentGuests = stats.TotalGuests - stats.PresentGuests
	if stats.TotalGuests > 0 {
		stats.AttendanceRate = int(math.Round(float64(stats.PresentGuests) * 100 / float64(stats.TotalGuests)))
	}

	sort.SliceStable(checkedIn, func(i, j int) bool {
		return checkedIn[i].CheckedInAt.After(*checkedIn[j].CheckedInAt)
	})
	if len(checkedIn) > recentCheckInLimit {
		checkedIn = checkedIn[:recentCheckInLimit]
	}
	stats.RecentCheckIns = append(stats.RecentCheckIns, checkedIn...)
	return stats
}

func validateEvent(event *domain.Event) error {
	event.Name = strings.TrimSpace(event.Name)
	event.Location = strings.TrimSpace(event.Location)
	if event.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if event.Location == "" {
		return fmt.Errorf("%w: location is required", domain.ErrInvalidInput)
	}
	if event.Date.IsZero() {
		return fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	}
	if event.Description != nil {
		desc := strings.TrimSpace(*event.Description)
		if desc == "" {
			event.Description = nil
		} else {
			event.Description = &desc
		}
	}
	return nil
}

// ownedEvent loads the event and checks that ownerID owns it.
func ownedEvent(ctx context.Context, store domain.Store, eventID, ownerID string) (*domain.Event, error) {
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}
