package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateInviteCode is returned when an invite code collides with an existing guest.
var ErrDuplicateInviteCode = errors.New("invite code already in use")

// Guest represents a person invited to an event.
// swagger:model Guest
type Guest struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       *string    `json:"phone,omitempty"`
	InviteCode  string     `json:"invite_code"`
	IsPresent   bool       `json:"is_present"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewGuest returns a not-yet-present Guest. ID and InviteCode are set by the service on create.
func NewGuest(eventID, name, email string, phone *string, createdAt time.Time) *Guest {
	return &Guest{
		EventID:   eventID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: createdAt,
	}
}

// GuestUpdate carries the editable guest fields. Nil fields are left unchanged.
// Presence is not editable here; see GuestRepository.MarkPresent.
type GuestUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

// Empty reports whether the update changes nothing.
func (u GuestUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil
}

// GuestRepository defines the interface for guest storage
type GuestRepository interface {
	Create(ctx context.Context, guest *Guest) error
	GetByID(ctx context.Context, id string) (*Guest, error)
	GetByInviteCode(ctx context.Context, eventID, inviteCode string) (*Guest, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Guest, error)
	// SearchByEventID returns one page of guests whose name or email contains search, and the total match count.
	SearchByEventID(ctx context.Context, eventID, search string, params PaginationParams) ([]*Guest, int, error)
	Update(ctx context.Context, id string, upd GuestUpdate) (*Guest, error)
	// MarkPresent flips is_present to true and stamps checked_in_at. It returns false without
	// touching the row when the guest is already present.
	MarkPresent(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Invitation is a guest's scannable invitation: the encoded payload and its QR image.
// swagger:model Invitation
type Invitation struct {
	Guest    *Guest `json:"guest"`
	Payload  string `json:"payload"`
	PNG      []byte `json:"png,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// GuestService defines the organizer-facing guest operations.
type GuestService interface {
	AddGuest(ctx context.Context, guest *Guest, ownerID string) error
	ListGuests(ctx context.Context, eventID, ownerID, search string, params PaginationParams) ([]*Guest, int, error)
	GetGuest(ctx context.Context, eventID, guestID, ownerID string) (*Guest, error)
	UpdateGuest(ctx context.Context, eventID, guestID, ownerID string, upd GuestUpdate) (*Guest, error)
	DeleteGuest(ctx context.Context, eventID, guestID, ownerID string) error
	GetInvitation(ctx context.Context, eventID, guestID, ownerID string) (*Invitation, error)
	// SendInvitation uploads the QR image and emails the invitation to the guest.
	SendInvitation(ctx context.Context, eventID, guestID, ownerID string) (*Invitation, error)
}
