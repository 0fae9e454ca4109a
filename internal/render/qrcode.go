package render

import (
	"errors"
	"image"

	"github.com/skip2/go-qrcode"
)

// QRCode encodes payload as a size x size image with lit modules on the
// background colour, which reads correctly on an emissive panel. There is
// no quiet zone; callers leave their own margin.
func QRCode(payload string, size int) (image.Image, error) {
	if payload == "" {
		return nil, errors.New("empty qr payload")
	}
	if size <= 0 {
		size = CanvasHeight
	}
	q, err := qrcode.New(payload, qrcode.Low)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	q.ForegroundColor = Foreground
	q.BackgroundColor = Background
	return q.Image(size), nil
}
