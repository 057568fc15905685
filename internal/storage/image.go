package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const jpegQuality = 85

var ErrNotAnImage = errors.New("upload is not a decodable image")

// Normalize decodes an uploaded image, applies its EXIF orientation, scales it
// down to maxWidth when wider and re-encodes it as JPEG.
func Normalize(r io.Reader, maxWidth int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("imaging.Encode -> %w", err)
	}

	return buf.Bytes(), nil
}
