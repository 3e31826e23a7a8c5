package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"guestcheckin/internal/domain"
)

const (
	inviteCodeLength   = 12
	inviteCodeAttempts = 3
	// InvitationImageSize is the pixel size of invitation QR images.
	InvitationImageSize = 256
)

var inviteCodeAlphabet = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

func generateInviteCode() (string, error) {
	b := make([]rune, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

type guestService struct {
	store          domain.Store
	encoder        domain.QREncoder
	images         domain.QRImageStore
	emailService   domain.EmailService
	contextTimeout time.Duration
	newInviteCode  func() (string, error)
}

func NewGuestService(store domain.Store,
	encoder domain.QREncoder,
	images domain.QRImageStore,
	emailService domain.EmailService,
	timeout time.Duration,
) domain.GuestService {
	return &guestService{
		store:          store,
		encoder:        encoder,
		images:         images,
		emailService:   emailService,
		contextTimeout: timeout,
		newInviteCode:  generateInviteCode,
	}
}

func (s *guestService) AddGuest(ctx context.Context, guest *domain.Guest, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	guest.Name = strings.TrimSpace(guest.Name)
	guest.Email = strings.TrimSpace(strings.ToLower(guest.Email))
	if guest.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !emailRegexp.MatchString(guest.Email) {
		return fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	guest.Phone = trimOptional(guest.Phone)

	if _, err := ownedEvent(ctx, s.store, guest.EventID, ownerID); err != nil {
		return err
	}

	if guest.ID == "" {
		guest.ID = uuid.NewString()
	}
	guest.IsPresent = false
	guest.CheckedInAt = nil
	guest.CreatedAt = time.Now()

	var err error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		guest.InviteCode, err = s.newInviteCode()
		if err != nil {
			return fmt.Errorf("generate invite code: %w", err)
		}
		err = s.store.CreateGuest(ctx, guest)
		if !errors.Is(err, domain.ErrDuplicateInviteCode) {
			return err
		}
	}
	return err
}

func (s *guestService) ListGuests(ctx context.Context, eventID, ownerID, search string, params domain.PaginationParams) ([]*domain.Guest, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := ownedEvent(ctx, s.store, eventID, ownerID); err != nil {
		return nil, 0, err
	}
	guests, total := s.store.SearchGuests(ctx, eventID, search, params)
	return guests, total, nil
}

func (s *guestService) GetGuest(ctx context.Context, eventID, guestID, ownerID string) (*domain.Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, guest, err := s.ownedGuest(ctx, eventID, guestID, ownerID)
	return guest, err
}

func (s *guestService) UpdateGuest(ctx context.Context, eventID, guestID, ownerID string, upd domain.GuestUpdate) (*domain.Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if !emailRegexp.MatchString(email) {
			return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		upd.Phone = &phone
	}

	_, guest, err := s.ownedGuest(ctx, eventID, guestID, ownerID)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return guest, nil
	}
	return s.store.UpdateGuest(ctx, guestID, upd)
}

func (s *guestService) DeleteGuest(ctx context.Context, eventID, guestID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, _, err := s.ownedGuest(ctx, eventID, guestID, ownerID); err != nil {
		return err
	}
	return s.store.DeleteGuest(ctx, guestID)
}

func (s *guestService) GetInvitation(ctx context.Context, eventID, guestID, ownerID string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, inv, err := s.invitation(ctx, eventID, guestID, ownerID)
	return inv, err
}

func (s *guestService) SendInvitation(ctx context.Context, eventID, guestID, ownerID string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, inv, err := s.invitation(ctx, eventID, guestID, ownerID)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s/%s.png", event.ID, inv.Guest.ID)
	inv.ImageURL, err = s.images.Put(ctx, name, inv.PNG)
	if err != nil {
		return nil, fmt.Errorf("store invitation image: %w", err)
	}

	data := &domain.InvitationEmailData{
		Email:         inv.Guest.Email,
		GuestName:     inv.Guest.Name,
		EventName:     event.Name,
		EventDate:     event.Date.Format("Monday, January 2, 2006 at 15:04"),
		EventLocation: event.Location,
		InviteCode:    inv.Guest.InviteCode,
		QRImageURL:    inv.ImageURL,
		QRPNG:         inv.PNG,
	}
	if err := s.emailService.SendInvitation(ctx, data); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *guestService) invitation(ctx context.Context, eventID, guestID, ownerID string) (*domain.Event, *domain.Invitation, error) {
	event, guest, err := s.ownedGuest(ctx, eventID, guestID, ownerID)
	if err != nil {
		return nil, nil, err
	}
	payload, err := domain.EncodeScanPayload(domain.ScanPayload{
		GuestID:    guest.ID,
		EventID:    event.ID,
		InviteCode: guest.InviteCode,
	})
	if err != nil {
		return nil, nil, err
	}
	png, err := s.encoder.EncodePNG(payload, InvitationImageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("render invitation: %w", err)
	}
	return event, &domain.Invitation{Guest: guest, Payload: payload, PNG: png}, nil
}

// ownedGuest loads a guest of an event owned by ownerID. A guest of another event is
// reported as not found.
func (s *guestService) ownedGuest(ctx context.Context, eventID, guestID, ownerID string) (*domain.Event, *domain.Guest, error) {
	event, err := ownedEvent(ctx, s.store, eventID, ownerID)
	if err != nil {
		return nil, nil, err
	}
	guest, err := s.store.GetGuest(ctx, guestID)
	if err != nil {
		return nil, nil, err
	}
	if guest.EventID != event.ID {
		return nil, nil, domain.ErrNotFound
	}
	return event, guest, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
