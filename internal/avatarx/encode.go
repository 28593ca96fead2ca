// Package avatarx turns raw avatar images into the compact, transport-safe
// textual encoding stored on identity records. Encoding is pure and
// stateless: the same input always yields the same output.
package avatarx

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// previewWidth is the fixed width of the stored preview; height follows
// the source aspect ratio.
const previewWidth = 150

// jpegQuality trades size for fidelity; previews are thumbnails, not art.
const jpegQuality = 50

var ErrEmptyImage = errors.New("empty image")

// Encode decodes raw image bytes (JPEG, PNG, or GIF), scales the picture
// down to a 150px-wide preview, re-encodes it as JPEG, and returns the
// base64 text form suitable for embedding in an identity record.
func Encode(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	preview := resize.Resize(previewWidth, 0, img, resize.NearestNeighbor)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, preview, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses the textual form back into JPEG bytes for display.
func Decode(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrEmptyImage
	}
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	return b, nil
}
