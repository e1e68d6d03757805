// Package thumb shrinks page screenshots for transport over the bridge.
package thumb

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth is the width screenshots are scaled down to.
const DefaultMaxWidth = 800

// Image is an encoded PNG and its dimensions.
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// Shrink decodes a screenshot and scales it to at most maxWidth pixels
// wide, keeping the aspect ratio. Narrower images are only re-encoded.
func Shrink(data []byte, maxWidth uint) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	if maxWidth == 0 {
		maxWidth = DefaultMaxWidth
	}
	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	b := img.Bounds()
	return &Image{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
