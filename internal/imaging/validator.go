// Package imaging validates uploaded crop photos before they reach a model.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxBytes  = 10 << 20
	DefaultMaxPixels = 50_000_000
)

var (
	ErrEmpty             = errors.New("image is empty")
	ErrTooLarge          = errors.New("image exceeds size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorrupt           = errors.New("image could not be decoded")
)

var mimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var signatures = []struct {
	format string
	prefix []byte
}{
	{format: "jpeg", prefix: []byte{0xFF, 0xD8, 0xFF}},
	{format: "png", prefix: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{format: "gif", prefix: []byte("GIF8")},
	{format: "webp", prefix: []byte("RIFF")},
}

type Image struct {
	Data     []byte
	Format   string
	MIMEType string
	Width    int
	Height   int
}

type Validator struct {
	MaxBytes  int64
	MaxPixels int64
}

func NewValidator(maxBytes int64) Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Validator{MaxBytes: maxBytes, MaxPixels: DefaultMaxPixels}
}

// Validate checks size, magic bytes and decodability, and reports the MIME
// type derived from the content rather than from the client's header.
func (v Validator) Validate(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	if v.MaxBytes > 0 && int64(len(data)) > v.MaxBytes {
		return Image{}, fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, len(data), v.MaxBytes)
	}

	format := sniffFormat(data)
	if format == "" {
		return Image{}, ErrUnsupportedFormat
	}

	cfg, decodedFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if decodedFormat != format {
		return Image{}, fmt.Errorf("%w: content is %s but header says %s", ErrUnsupportedFormat, decodedFormat, format)
	}
	if v.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > v.MaxPixels {
		return Image{}, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	return Image{
		Data:     data,
		Format:   format,
		MIMEType: mimeTypes[format],
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

func sniffFormat(data []byte) string {
	for _, signature := range signatures {
		if !bytes.HasPrefix(data, signature.prefix) {
			continue
		}
		if signature.format == "webp" && (len(data) < 12 || !bytes.Equal(data[8:12], []byte("WEBP"))) {
			continue
		}
		return signature.format
	}
	return ""
}
