package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"guestcheckin/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const testTimeout = time.Second

// memEventRepo implements domain.EventRepository in memory.
type memEventRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Event
	getErr  error
	listErr error
	err     error
	guests  *memGuestRepo
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{byID: make(map[string]*domain.Event)}
}

func (r *memEventRepo) Create(_ context.Context, e *domain.Event) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.byID[e.ID] = &cp
	return nil
}

func (r *memEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEventRepo) ListByOwnerID(_ context.Context, ownerID string) ([]*domain.Event, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.byID {
		if e.OwnerID == ownerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *memEventRepo) Replace(_ context.Context, e *domain.Event) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *e
	r.byID[e.ID] = &cp
	return nil
}

func (r *memEventRepo) Delete(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	if r.guests != nil {
		r.guests.deleteEvent(id)
	}
	return nil
}

// memGuestRepo implements domain.GuestRepository in memory, including the conditional
// MarkPresent and the per-event invite code uniqueness.
type memGuestRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Guest
	createErr error
	listErr   error
	getErr    error
	markErr   error
	// beforeMark runs inside MarkPresent before the guest is updated.
	beforeMark  func(id string)
	createCalls int
	lookups     int
}

func newMemGuestRepo() *memGuestRepo {
	return &memGuestRepo{byID: make(map[string]*domain.Guest)}
}

func (r *memGuestRepo) put(g *domain.Guest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.byID[g.ID] = &cp
}

func (r *memGuestRepo) Create(_ context.Context, g *domain.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byID[g.ID]; ok {
		return fmt.Errorf("guest %s: %w", g.ID, domain.ErrAlreadyExists)
	}
	for _, other := range r.byID {
		if other.InviteCode == g.InviteCode {
			return domain.ErrDuplicateInviteCode
		}
	}
	cp := *g
	r.byID[g.ID] = &cp
	return nil
}

func (r *memGuestRepo) GetByID(_ context.Context, id string) (*domain.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.getErr != nil {
		return nil, r.getErr
	}
	g, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *memGuestRepo) GetByInviteCode(_ context.Context, eventID, inviteCode string) (*domain.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, g := range r.byID {
		if g.EventID == eventID && g.InviteCode == inviteCode {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memGuestRepo) ListByEventID(_ context.Context, eventID string) ([]*domain.Guest, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Guest
	for _, g := range r.byID {
		if g.EventID == eventID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memGuestRepo) SearchByEventID(ctx context.Context, eventID, search string, params domain.PaginationParams) ([]*domain.Guest, int, error) {
	all, err := r.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	search = strings.ToLower(search)
	var matched []*domain.Guest
	for _, g := range all {
		if search == "" || strings.Contains(strings.ToLower(g.Name+" "+g.Email+" "+g.InviteCode), search) {
			matched = append(matched, g)
		}
	}
	start := params.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (r *memGuestRepo) Update(_ context.Context, id string, upd domain.GuestUpdate) (*domain.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Name != nil {
		g.Name = *upd.Name
	}
	if upd.Email != nil {
		g.Email = *upd.Email
	}
	if upd.Phone != nil {
		if *upd.Phone == "" {
			g.Phone = nil
		} else {
			phone := *upd.Phone
			g.Phone = &phone
		}
	}
	cp := *g
	return &cp, nil
}

func (r *memGuestRepo) MarkPresent(_ context.Context, id string, at time.Time) (bool, error) {
	if r.beforeMark != nil {
		r.beforeMark(id)
	}
	if r.markErr != nil {
		return false, r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if g.IsPresent {
		return false, nil
	}
	g.IsPresent = true
	g.CheckedInAt = &at
	return true, nil
}

func (r *memGuestRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memGuestRepo) deleteEvent(eventID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, g := range r.byID {
		if g.EventID == eventID {
			delete(r.byID, id)
		}
	}
}

// testStore bundles the in-memory repositories behind the real store facade.
type testStore struct {
	domain.Store
	events *memEventRepo
	guests *memGuestRepo
}

func newTestStore() *testStore {
	events := newMemEventRepo()
	guests := newMemGuestRepo()
	events.guests = guests
	return &testStore{
		Store:  NewStore(events, guests, testLogger),
		events: events,
		guests: guests,
	}
}

func (s *testStore) seedEvent(id, ownerID string) *domain.Event {
	e := &domain.Event{
		ID:        id,
		Name:      "Gala " + id,
		Date:      time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC),
		Location:  "Main hall",
		OwnerID:   ownerID,
		CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
	s.events.byID[id] = e
	cp := *e
	return &cp
}

func (s *testStore) seedGuest(id, eventID, name, inviteCode string) *domain.Guest {
	g := &domain.Guest{
		ID:         id,
		EventID:    eventID,
		Name:       name,
		Email:      strings.ToLower(name) + "@example.com",
		InviteCode: inviteCode,
		CreatedAt:  time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC),
	}
	s.guests.put(g)
	cp := *g
	return &cp
}

// recordingNotifier implements domain.CheckInNotifier.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []domain.CheckInNotice
}

func (n *recordingNotifier) Publish(notice domain.CheckInNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

// fakeEncoder implements domain.QREncoder by echoing the content.
type fakeEncoder struct {
	err      error
	lastSize int
}

func (f *fakeEncoder) EncodePNG(content string, size int) ([]byte, error) {
	f.lastSize = size
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + content), nil
}

// fakeImageStore implements domain.QRImageStore.
type fakeImageStore struct {
	url      string
	err      error
	lastName string
	lastPNG  []byte
}

func (f *fakeImageStore) Put(_ context.Context, name string, png []byte) (string, error) {
	f.lastName, f.lastPNG = name, png
	return f.url, f.err
}

// fakeEmailService implements domain.EmailService.
type fakeEmailService struct {
	err  error
	last *domain.InvitationEmailData
}

func (f *fakeEmailService) SendInvitation(_ context.Context, data *domain.InvitationEmailData) error {
	f.last = data
	return f.err
}

// fakeMailer implements domain.Mailer.
type fakeMailer struct {
	err  error
	sent []*domain.EmailMessage
}

func (f *fakeMailer) Send(_ context.Context, msg *domain.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakeRenderer implements domain.EmailTemplateRenderer and keeps the data it rendered.
type fakeRenderer struct {
	err      error
	lastName string
	lastData any
}

func (f *fakeRenderer) Render(name string, data any) (string, string, string, error) {
	f.lastName, f.lastData = name, data
	if f.err != nil {
		return "", "", "", f.err
	}
	return "subject", "<p>html</p>", "text", nil
}

// fakeUserRepo implements domain.UserRepository.
type fakeUserRepo struct {
	byEmail   map[string]*domain.User
	createErr error
	getErr    error
	created   *domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	u.ID = "user-" + u.Email
	f.created = u
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// fakePasswordHasher implements domain.PasswordHasher for tests.
type fakePasswordHasher struct {
	saltErr error
}

func (f *fakePasswordHasher) GenerateSalt() (string, error) { return "salt", f.saltErr }
func (f *fakePasswordHasher) Hash(salt, password string) (string, error) {
	return "hash-" + salt + "-" + password, nil
}
func (f *fakePasswordHasher) Compare(hash, salt, password string) error {
	if hash != "hash-"+salt+"-"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokenIssuer implements domain.TokenIssuer for tests.
type fakeTokenIssuer struct {
	err        error
	lastUserID string
	lastExpiry time.Duration
}

func (f *fakeTokenIssuer) Issue(userID, email string, expiry time.Duration) (string, error) {
	f.lastUserID, f.lastExpiry = userID, expiry
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}
