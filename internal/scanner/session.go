// Package scanner drives a door station: it pulls frames from a camera, decodes QR codes
// and hands them to the check-in service, one at a time.
package scanner

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"guestcheckin/internal/domain"
)

var (
	// ErrRunning is returned by Start when the session is already scanning.
	ErrRunning = errors.New("scanner already running")
	// ErrBusy is returned by Submit while another scan is being resolved.
	ErrBusy = errors.New("a scan is already in progress")
)

// FrameSource supplies camera frames. Frame returns domain.ErrNoFrame when nothing new
// has been captured.
type FrameSource interface {
	Open(ctx context.Context) error
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

const (
	defaultInterval     = 200 * time.Millisecond
	defaultRepeatWindow = 3 * time.Second
	resultBuffer        = 16
)

// Option configures a Session.
type Option func(*Session)

// WithInterval sets how often the camera is polled for a frame.
func WithInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

// WithRepeatWindow sets how long the same decoded text is ignored after it was scanned.
func WithRepeatWindow(d time.Duration) Option {
	return func(s *Session) { s.repeatWindow = d }
}

// Session is one scanning station bound to a selected event.
type Session struct {
	source       FrameSource
	decoder      domain.QRDecoder
	checkIn      domain.CheckInService
	logger       *slog.Logger
	interval     time.Duration
	repeatWindow time.Duration
	now          func() time.Time

	inFlight atomic.Bool
	results  chan domain.ScanResult

	mu       sync.Mutex
	eventID  string
	cancel   context.CancelFunc
	done     chan struct{}
	lastText string
	lastAt   time.Time
}

func NewSession(source FrameSource, decoder domain.QRDecoder, checkIn domain.CheckInService, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		source:       source,
		decoder:      decoder,
		checkIn:      checkIn,
		logger:       logger,
		interval:     defaultInterval,
		repeatWindow: defaultRepeatWindow,
		now:          time.Now,
		results:      make(chan domain.ScanResult, resultBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectEvent sets the event scans are checked against.
func (s *Session) SelectEvent(eventID string) {
	s.mu.Lock()
	s.eventID = strings.TrimSpace(eventID)
	s.mu.Unlock()
}

// EventID returns the selected event.
func (s *Session) EventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventID
}

// Results delivers the outcome of every camera scan. Manual submissions return their
// result directly instead.
func (s *Session) Results() <-chan domain.ScanResult {
	return s.results
}

// Running reports whether the camera loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Start opens the frame source and starts the camera loop. Camera failures are returned
// as the domain camera errors; manual entry through Submit keeps working. The loop ends on
// Stop or when ctx is done; either way the frame source is closed and Start may be called
// again.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrRunning
	}
	if err := s.source.Open(ctx); err != nil {
		return err
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)
	return nil
}

// Stop halts the camera loop and releases the frame source. It is safe to call when the
// session is not running.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()
	<-done
	return s.source.Close()
}

// Submit checks in a manually entered code or payload.
func (s *Session) Submit(ctx context.Context, raw string) (*domain.ScanResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.inFlight.Store(false)
	return s.checkIn.Scan(ctx, s.EventID(), raw)
}

func (s *Session) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.release(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// release clears the running state when the loop ended on its own. After Stop the state
// belongs to Stop, which closes the source itself.
func (s *Session) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != done {
		return
	}
	s.cancel()
	if err := s.source.Close(); err != nil {
		s.logger.Warn("close frame source failed", "error", err)
	}
	s.cancel, s.done = nil, nil
}

// tick processes at most one frame. The loop does not advance while a scan is resolving.
func (s *Session) tick(ctx context.Context) {
	if s.inFlight.Load() {
		return
	}
	frame, err := s.source.Frame(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoFrame) && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "frame capture failed", "error", err)
		}
		return
	}
	text, err := s.decoder.Decode(frame)
	if err != nil {
		if !errors.Is(err, domain.ErrNoQRCode) {
			s.logger.DebugContext(ctx, "frame decode failed", "error", err)
		}
		return
	}
	if s.recentlySeen(text) {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	res, err := s.checkIn.Scan(ctx, s.EventID(), text)
	s.inFlight.Store(false)
	if err != nil {
		return
	}
	select {
	case s.results <- *res:
	case <-ctx.Done():
	}
}

func (s *Session) recentlySeen(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if text == s.lastText && now.Sub(s.lastAt) < s.repeatWindow {
		return true
	}
	s.lastText = text
	s.lastAt = now
	return false
}
