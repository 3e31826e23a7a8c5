// Package camera provides frame sources for the door scanner.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"guestcheckin/internal/adapters/qrcode"
	"guestcheckin/internal/domain"
)

const lockName = ".doorscan.lock"

var frameExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// DirSource reads frames that a capture tool drops into a directory. Each call to Frame
// returns the newest image not returned before.
type DirSource struct {
	dir string

	mu       sync.Mutex
	lockPath string
	lastMod  time.Time
	lastName string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Open claims the directory. A second station on the same directory gets ErrCameraBusy.
// A lock left behind by a station that is no longer running is taken over.
func (s *DirSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.dir)
	if err != nil {
		return mapOpenError(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrCameraNotFound, s.dir)
	}
	lockPath := filepath.Join(s.dir, lockName)
	f, err := createLock(lockPath)
	if errors.Is(err, fs.ErrExist) && staleLock(lockPath) {
		if rmErr := os.Remove(lockPath); rmErr == nil || errors.Is(rmErr, fs.ErrNotExist) {
			f, err = createLock(lockPath)
		}
	}
	if err != nil {
		return mapOpenError(err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	s.lockPath = lockPath
	s.lastMod = time.Time{}
	s.lastName = ""
	return nil
}

func (s *DirSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockPath == "" {
		return nil, fmt.Errorf("frame source %s is not open", s.dir)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, mapOpenError(err)
	}
	var newest fs.FileInfo
	for _, e := range entries {
		if e.IsDir() || !frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !s.isNewer(info) {
			continue
		}
		if newest == nil || info.ModTime().After(newest.ModTime()) {
			newest = info
		}
	}
	if newest == nil {
		return nil, domain.ErrNoFrame
	}
	s.lastMod = newest.ModTime()
	s.lastName = newest.Name()

	f, err := os.Open(filepath.Join(s.dir, newest.Name()))
	if err != nil {
		return nil, mapOpenError(err)
	}
	defer f.Close()
	return qrcode.ReadImage(f)
}

func (s *DirSource) isNewer(info fs.FileInfo) bool {
	if info.ModTime().After(s.lastMod) {
		return true
	}
	return info.ModTime().Equal(s.lastMod) && info.Name() > s.lastName
}

// Close releases the directory. It is safe to call more than once.
func (s *DirSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockPath == "" {
		return nil
	}
	err := os.Remove(s.lockPath)
	s.lockPath = ""
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func createLock(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
}

// staleLock reports whether the lock file names a process that has exited. A lock
// without a readable pid is treated as held.
func staleLock(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	return !processAlive(pid)
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func mapOpenError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", domain.ErrCameraNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", domain.ErrCameraPermissionDenied, err)
	case errors.Is(err, fs.ErrExist), errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %v", domain.ErrCameraBusy, err)
	}
	return err
}
