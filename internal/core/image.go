// Core pixel buffer shared by the engine, the loader and the pipeline
package core

import (
	"errors"
	"fmt"
	"image"
)

// MaxDimension bounds width and height to keep allocations reasonable.
const MaxDimension = 16384

// ErrInvalidGeometry is returned when a buffer's sample count disagrees with its declared
// width, height and channels per pixel.
var ErrInvalidGeometry = errors.New("invalid geometry")

// PixelBuffer is a row-major sequence of 8-bit channel samples.
// Pixel (x, y) occupies Pix[(x+Width*y)*BPP : (x+Width*y)*BPP+BPP].
type PixelBuffer struct {
	Width  int
	Height int
	BPP    int // channel samples per pixel, at least R, G, B
	Pix    []uint8
}

// NewPixelBuffer allocates a zeroed buffer with the given geometry
func NewPixelBuffer(width, height, bpp int) (*PixelBuffer, error) {
	if err := ValidateGeometry(width, height, bpp, width*height*bpp); err != nil {
		return nil, err
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		BPP:    bpp,
		Pix:    make([]uint8, width*height*bpp),
	}, nil
}

// ValidateGeometry checks declared dimensions against a sample count
func ValidateGeometry(width, height, bpp, length int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGeometry, width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: image too large: %dx%d (max: %d)", ErrInvalidGeometry, width, height, MaxDimension)
	}
	if bpp < 3 {
		return fmt.Errorf("%w: %d channels per pixel, need at least 3", ErrInvalidGeometry, bpp)
	}
	if length != width*height*bpp {
		return fmt.Errorf("%w: %d samples for %dx%dx%d", ErrInvalidGeometry, length, width, height, bpp)
	}
	return nil
}

// Validate checks the buffer invariants
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidGeometry)
	}
	return ValidateGeometry(b.Width, b.Height, b.BPP, len(b.Pix))
}

// Offset returns the index of the first sample of pixel (x, y)
func (b *PixelBuffer) Offset(x, y int) int {
	return (x + b.Width*y) * b.BPP
}

// Pixel returns the samples of pixel (x, y). The slice aliases Pix.
func (b *PixelBuffer) Pixel(x, y int) []uint8 {
	i := b.Offset(x, y)
	return b.Pix[i : i+b.BPP : i+b.BPP]
}

// SameGeometry reports whether two buffers have identical width, height and channels
func (b *PixelBuffer) SameGeometry(other *PixelBuffer) bool {
	return other != nil && b.Width == other.Width && b.Height == other.Height && b.BPP == other.BPP
}

// Clone returns a deep copy
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{
		Width:  b.Width,
		Height: b.Height,
		BPP:    b.BPP,
		Pix:    pix,
	}
}

// Bounds returns the rectangle covering the whole buffer
func (b *PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}
