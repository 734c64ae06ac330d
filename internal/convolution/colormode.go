package convolution

import (
	"fmt"
	"strconv"
	"strings"
)

// ColorMode selects how the two gradient sums are rendered into output channels.
type ColorMode int

const (
	// Grayscale writes the clamped gradient magnitude to R, G and B.
	Grayscale ColorMode = iota
	// RedBlue writes the X response to R and the Y response to B, with half of it in G.
	RedBlue
)

func (m ColorMode) String() string {
	switch m {
	case Grayscale:
		return "grayscale"
	case RedBlue:
		return "redblue"
	default:
		return "ColorMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Label is the human readable name shown in listings
func (m ColorMode) Label() string {
	switch m {
	case RedBlue:
		return "Red and blue"
	default:
		return "Grayscale"
	}
}

// IsValid reports whether m is one of the defined modes
func (m ColorMode) IsValid() bool {
	return m == Grayscale || m == RedBlue
}

// ParseColorMode accepts a mode name or its numeric value
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "grayscale", "gray", "grey":
		return Grayscale, nil
	case "1", "redblue", "red-blue", "red_blue":
		return RedBlue, nil
	}
	return Grayscale, fmt.Errorf("unknown color mode %q (want grayscale|redblue|0|1)", s)
}

// ColorModes returns all defined modes in numeric order
func ColorModes() []ColorMode {
	return []ColorMode{Grayscale, RedBlue}
}
