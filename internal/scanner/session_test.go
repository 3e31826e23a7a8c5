package scanner

import (
	"context"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestcheckin/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// textFrame is a frame whose QR content is known up front.
type textFrame struct {
	image.Image
	text string
}

type fakeSource struct {
	mu      sync.Mutex
	openErr error
	frames  []image.Image
	opened  bool
	closed  int
	calls   atomic.Int32
}

func (f *fakeSource) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	return nil
}

func (f *fakeSource) Frame(ctx context.Context) (image.Image, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil, domain.ErrNoFrame
	}
	next := f.frames[0]
	f.frames = f.frames[1:]
	return next, nil
}

func (f *fakeSource) push(frames ...image.Image) {
	f.mu.Lock()
	f.frames = append(f.frames, frames...)
	f.mu.Unlock()
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(img image.Image) (string, error) {
	if tf, ok := img.(textFrame); ok && tf.text != "" {
		return tf.text, nil
	}
	return "", domain.ErrNoQRCode
}

type fakeCheckIn struct {
	mu      sync.Mutex
	calls   []string
	events  []string
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeCheckIn) Scan(ctx context.Context, eventID, raw string) (*domain.ScanResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, raw)
	f.events = append(f.events, eventID)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return &domain.ScanResult{Success: true, Code: domain.ScanCheckedIn, Message: raw, State: domain.ScanStateReported}, nil
}

func (f *fakeCheckIn) scanned() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func frame(text string) image.Image {
	return textFrame{Image: image.NewGray(image.Rect(0, 0, 1, 1)), text: text}
}

func waitResult(t *testing.T, s *Session) domain.ScanResult {
	t.Helper()
	select {
	case r := <-s.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scan result")
		return domain.ScanResult{}
	}
}

func TestSession_CameraScan(t *testing.T) {
	src := &fakeSource{}
	checkIn := &fakeCheckIn{}
	s := NewSession(src, fakeDecoder{}, checkIn, testLogger(), WithInterval(5*time.Millisecond))
	s.SelectEvent(" ev-1 ")

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.True(t, s.Running())

	src.push(frame(""), frame("abc123def456"))
	res := waitResult(t, s)
	assert.Equal(t, domain.ScanCheckedIn, res.Code)
	assert.Equal(t, "abc123def456", res.Message)
	assert.Equal(t, []string{"ev-1"}, checkIn.events)
}

func TestSession_RepeatWindowSuppressesSameCode(t *testing.T) {
	src := &fakeSource{}
	checkIn := &fakeCheckIn{}
	s := NewSession(src, fakeDecoder{}, checkIn, testLogger(), WithInterval(5*time.Millisecond), WithRepeatWindow(time.Hour))
	s.SelectEvent("ev-1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	src.push(frame("code-a"), frame("code-a"), frame("code-a"), frame("code-b"))
	waitResult(t, s)
	waitResult(t, s)
	assert.Equal(t, []string{"code-a", "code-b"}, checkIn.scanned())
}

func TestSession_StartTwiceAndStop(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(src, fakeDecoder{}, &fakeCheckIn{}, testLogger(), WithInterval(5*time.Millisecond))

	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), ErrRunning)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.False(t, s.Running())
	assert.Equal(t, 1, src.closed)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	assert.Equal(t, 2, src.closed)
}

func TestSession_ParentContextEndsLoop(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(src, fakeDecoder{}, &fakeCheckIn{}, testLogger(), WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, 5*time.Millisecond)
	src.mu.Lock()
	assert.Equal(t, 1, src.closed)
	src.mu.Unlock()

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	src.mu.Lock()
	assert.Equal(t, 2, src.closed)
	src.mu.Unlock()
}

func TestSession_CameraUnavailable_ManualEntryStillWorks(t *testing.T) {
	src := &fakeSource{openErr: domain.ErrCameraPermissionDenied}
	checkIn := &fakeCheckIn{}
	s := NewSession(src, fakeDecoder{}, checkIn, testLogger())
	s.SelectEvent("ev-1")

	err := s.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrCameraPermissionDenied)
	assert.False(t, s.Running())

	res, err := s.Submit(context.Background(), "abc123def456")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"abc123def456"}, checkIn.scanned())
}

func TestSession_SubmitWhileInFlight(t *testing.T) {
	src := &fakeSource{}
	checkIn := &fakeCheckIn{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := NewSession(src, fakeDecoder{}, checkIn, testLogger(), WithInterval(5*time.Millisecond))
	s.SelectEvent("ev-1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	first := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first")
		first <- err
	}()
	<-checkIn.entered

	_, err := s.Submit(context.Background(), "second")
	require.ErrorIs(t, err, ErrBusy)

	// The camera loop does not pull frames while a scan is resolving.
	before := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, src.calls.Load())

	close(checkIn.block)
	require.NoError(t, <-first)
	assert.Equal(t, []string{"first"}, checkIn.scanned())
}
