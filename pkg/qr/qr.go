// Package qr generates order tokens and renders them as QR code images.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Renderer turns a token into a PNG image.
type Renderer interface {
	PNG(content string) ([]byte, error)
}

// PNGRenderer renders square PNGs of Size pixels at medium error correction.
type PNGRenderer struct {
	Size int
}

func NewPNGRenderer(size int) PNGRenderer {
	if size <= 0 {
		size = 256
	}
	return PNGRenderer{Size: size}
}

func (r PNGRenderer) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr: empty content")
	}
	png, err := qrcode.Encode(content, qrcode.Medium, r.Size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return png, nil
}

// DataURI embeds a PNG in an <img src>.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
