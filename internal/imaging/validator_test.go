package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestValidateAcceptsPNG(t *testing.T) {
	validated, err := NewValidator(0).Validate(pngBytes(t, 4, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if validated.MIMEType != "image/png" || validated.Width != 4 || validated.Height != 3 {
		t.Fatalf("unexpected image metadata %+v", validated)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	validator := NewValidator(64)

	if _, err := validator.Validate(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := validator.Validate(bytes.Repeat([]byte{0xFF}, 65)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := validator.Validate([]byte("%PDF-1.4 not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := validator.Validate([]byte("RIFF\x00\x00\x00\x00WAVEfmt ")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected RIFF non-webp to be unsupported, got %v", err)
	}
	if _, err := validator.Validate([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for truncated png, got %v", err)
	}
}

func TestValidateRejectsTooManyPixels(t *testing.T) {
	validator := Validator{MaxBytes: DefaultMaxBytes, MaxPixels: 10}
	if _, err := validator.Validate(pngBytes(t, 5, 5)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for pixel count, got %v", err)
	}
}
