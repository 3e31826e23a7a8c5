package domain

import "errors"

// Camera errors reported by frame sources. Each maps to its own user-facing message.
var (
	ErrCameraPermissionDenied = errors.New("camera permission denied")
	ErrCameraNotFound         = errors.New("camera not found")
	ErrCameraBusy             = errors.New("camera busy")
)

// ErrNoFrame is returned by a frame source that has no new frame yet.
var ErrNoFrame = errors.New("no new frame")

// CameraErrorMessage returns the message shown to the operator for a camera failure.
// Manual entry stays available in every case.
func CameraErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCameraPermissionDenied):
		return "Camera access denied. Allow camera access and try again, or enter the code manually."
	case errors.Is(err, ErrCameraNotFound):
		return "No camera found on this device. Enter the code manually."
	case errors.Is(err, ErrCameraBusy):
		return "Camera is already in use by another application. Enter the code manually."
	default:
		return "Camera error: " + err.Error()
	}
}
