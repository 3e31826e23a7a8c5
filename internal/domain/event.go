package domain

import (
	"context"
	"time"
)

// Event represents an organizer's event that guests are invited to.
// swagger:model Event
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the service on create.
func NewEvent(name string, description *string, date time.Time, location, ownerID string, createdAt time.Time) *Event {
	return &Event{
		Name:        name,
		Description: description,
		Date:        date,
		Location:    location,
		OwnerID:     ownerID,
		CreatedAt:   createdAt,
	}
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Event, error)
	// Replace overwrites name, description, date and location of an existing event.
	Replace(ctx context.Context, event *Event) error
	// Delete removes the event and every guest whose event_id references it.
	Delete(ctx context.Context, id string) error
}

// EventStats is the attendance summary shown on the dashboard.
// swagger:model EventStats
type EventStats struct {
	EventID        string   `json:"event_id"`
	TotalGuests    int      `json:"total_guests"`
	PresentGuests  int      `json:"present_guests"`
	AbsentGuests   int      `json:"absent_guests"`
	AttendanceRate int      `json:"attendance_rate"`
	RecentCheckIns []*Guest `json:"recent_check_ins"`
}

// EventService defines the organizer-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, ownerID string) ([]*Event, error)
	GetEvent(ctx context.Context, eventID, ownerID string) (*Event, error)
	// ReplaceEvent overwrites the mutable fields of the event; there is no partial update.
	ReplaceEvent(ctx context.Context, event *Event, ownerID string) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, ownerID string) error
	GetEventStats(ctx context.Context, eventID, ownerID string) (*EventStats, error)
}
