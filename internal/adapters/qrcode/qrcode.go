// Package qrcode renders invitation QR codes and reads them back from camera frames.
package qrcode

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // frame formats accepted by ReadImage
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	goqrcode "github.com/skip2/go-qrcode"

	"guestcheckin/internal/domain"
)

type pngEncoder struct {
	level goqrcode.RecoveryLevel
}

// NewEncoder returns a QREncoder producing PNGs at medium error correction.
func NewEncoder() domain.QREncoder {
	return &pngEncoder{level: goqrcode.Medium}
}

func (e *pngEncoder) EncodePNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: empty QR content", domain.ErrInvalidInput)
	}
	png, err := goqrcode.Encode(content, e.level, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

type zxingDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewDecoder returns a QRDecoder backed by gozxing.
func NewDecoder() domain.QRDecoder {
	return &zxingDecoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *zxingDecoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize frame: %w", err)
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoQRCode, err)
	}
	return result.GetText(), nil
}

// ReadImage decodes a PNG or JPEG frame.
func ReadImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable image: %v", domain.ErrInvalidInput, err)
	}
	return img, nil
}

// DecodeBytes reads an encoded frame and returns the text of the QR code in it.
func DecodeBytes(d domain.QRDecoder, frame []byte) (string, error) {
	img, err := ReadImage(bytes.NewReader(frame))
	if err != nil {
		return "", err
	}
	return d.Decode(img)
}
