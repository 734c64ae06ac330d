// Selection bounds for processing a sub-rectangle of an image
package core

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ErrRegionOutOfBounds is returned when a selection does not fit inside the image.
var ErrRegionOutOfBounds = errors.New("region out of bounds")

// ParseRegion parses "x1,y1,x2,y2" into the half-open rectangle [x1, x2) x [y1, y2).
// An empty string yields the zero rectangle, which selects the whole image.
// Coordinates are kept as given, so an inverted rectangle stays empty.
func ParseRegion(s string) (image.Rectangle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return image.Rectangle{}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region must be x1,y1,x2,y2: %q", s)
	}

	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region coordinate %q: %w", p, err)
		}
		vals[i] = v
	}

	return image.Rectangle{
		Min: image.Point{X: vals[0], Y: vals[1]},
		Max: image.Point{X: vals[2], Y: vals[3]},
	}, nil
}

// Resolve returns the effective selection for the buffer: the whole image for the zero
// rectangle, r itself when it is non-empty and inside the buffer.
func (b *PixelBuffer) Resolve(r image.Rectangle) (image.Rectangle, error) {
	if r == (image.Rectangle{}) {
		return b.Bounds(), nil
	}
	if r.Empty() || !r.In(b.Bounds()) {
		return image.Rectangle{}, fmt.Errorf("%w: %v in %dx%d image", ErrRegionOutOfBounds, r, b.Width, b.Height)
	}
	return r, nil
}

// Crop copies the pixels inside r into a new buffer
func (b *PixelBuffer) Crop(r image.Rectangle) (*PixelBuffer, error) {
	r, err := b.Resolve(r)
	if err != nil {
		return nil, err
	}

	out, err := NewPixelBuffer(r.Dx(), r.Dy(), b.BPP)
	if err != nil {
		return nil, err
	}

	rowLen := r.Dx() * b.BPP
	for y := 0; y < r.Dy(); y++ {
		src := b.Offset(r.Min.X, r.Min.Y+y)
		copy(out.Pix[out.Offset(0, y):out.Offset(0, y)+rowLen], b.Pix[src:src+rowLen])
	}

	return out, nil
}

// Paste writes src into b at r. src must have the size of r and the same channel count.
func (b *PixelBuffer) Paste(src *PixelBuffer, r image.Rectangle) error {
	r, err := b.Resolve(r)
	if err != nil {
		return err
	}
	if src.Width != r.Dx() || src.Height != r.Dy() || src.BPP != b.BPP {
		return fmt.Errorf("%w: paste %dx%dx%d into %v", ErrInvalidGeometry, src.Width, src.Height, src.BPP, r)
	}

	rowLen := r.Dx() * b.BPP
	for y := 0; y < r.Dy(); y++ {
		dst := b.Offset(r.Min.X, r.Min.Y+y)
		copy(b.Pix[dst:dst+rowLen], src.Pix[src.Offset(0, y):src.Offset(0, y)+rowLen])
	}

	return nil
}
