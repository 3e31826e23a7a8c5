package domain

import (
	"context"
	"time"
)

// Store is the single storage entry point used by the services. Reads degrade to an empty
// result (empty slice or ErrNotFound) when the backend fails; writes return the backend error.
type Store interface {
	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, ownerID string) []*Event
	GetEvent(ctx context.Context, id string) (*Event, error)
	ReplaceEvent(ctx context.Context, event *Event) error
	DeleteEvent(ctx context.Context, id string) error

	CreateGuest(ctx context.Context, guest *Guest) error
	ListGuests(ctx context.Context, eventID string) []*Guest
	SearchGuests(ctx context.Context, eventID, search string, params PaginationParams) ([]*Guest, int)
	GetGuest(ctx context.Context, id string) (*Guest, error)
	GetGuestByInviteCode(ctx context.Context, eventID, inviteCode string) (*Guest, error)
	UpdateGuest(ctx context.Context, id string, upd GuestUpdate) (*Guest, error)
	MarkGuestPresent(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteGuest(ctx context.Context, id string) error
}
