package domain

import (
	"context"
	"errors"
	"image"
)

// ErrNoQRCode is returned by a QRDecoder when the image holds no readable code.
var ErrNoQRCode = errors.New("no QR code found")

// QREncoder renders text as a square PNG QR code of the given pixel size.
type QREncoder interface {
	EncodePNG(content string, size int) ([]byte, error)
}

// QRDecoder extracts the text of the first QR code found in img.
type QRDecoder interface {
	Decode(img image.Image) (string, error)
}

// QRImageStore persists invitation images and returns a URL they can be fetched from.
// An empty URL means the store keeps nothing.
type QRImageStore interface {
	Put(ctx context.Context, name string, png []byte) (url string, err error)
}
