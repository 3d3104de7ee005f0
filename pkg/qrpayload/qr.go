package qrpayload

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	minImageSize     = 128
	maxImageSize     = 1024
	defaultImageSize = 256
)

// RenderPNG encodes the payload text as a QR code image.
func RenderPNG(p Payload, size int) ([]byte, error) {
	raw, err := p.Marshal()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = defaultImageSize
	}
	if size < minImageSize {
		size = minImageSize
	}
	if size > maxImageSize {
		size = maxImageSize
	}
	png, err := qrcode.Encode(string(raw), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return png, nil
}
