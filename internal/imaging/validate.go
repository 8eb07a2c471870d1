// Package imaging handles upload validation, transport encoding, and
// thumbnail generation for swing images.
package imaging

import (
	"bytes"
	"image"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/swing-coach/internal/config"

	_ "image/jpeg"
	_ "image/png"
)

// Client-input validation failures. The HTTP layer maps these to 400.
var (
	ErrInvalidFormat = eris.New("invalid image format")
	ErrTooLarge      = eris.New("image exceeds size limit")
	ErrCorruptImage  = eris.New("image could not be decoded")
)

// Validator checks uploaded images against the configured bounds. It operates
// on fully buffered bytes so downstream stages can re-read the same payload.
type Validator struct {
	maxSizeMB int
	maxBytes  int
	allowed   map[string]struct{}
}

// NewValidator builds a Validator from image config.
func NewValidator(cfg config.ImageConfig) *Validator {
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return &Validator{
		maxSizeMB: cfg.MaxSizeMB,
		maxBytes:  cfg.MaxSizeMB << 20,
		allowed:   allowed,
	}
}

// Validate fails if the content type is outside the allow-list, the payload
// exceeds the configured ceiling, or the bytes do not decode as a raster
// image. Checks run in that order so the cheap ones reject first.
func (v *Validator) Validate(contentType string, data []byte) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := v.allowed[ct]; !ok {
		return eris.Wrapf(ErrInvalidFormat, "imaging: content type %q not allowed", contentType)
	}

	if len(data) > v.maxBytes {
		return eris.Wrapf(ErrTooLarge, "imaging: image is %.2fMB, limit is %dMB",
			float64(len(data))/(1<<20), v.maxSizeMB)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return eris.Wrapf(ErrCorruptImage, "imaging: decode: %v", err)
	}

	return nil
}
