// Fixed catalog of directional gradient kernel pairs
package kernels

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownKernel is returned when a name does not match a registered preset.
var ErrUnknownKernel = errors.New("unknown kernel")

// Preset names. The coefficients behind them are part of the output contract:
// changing any value changes every result.
const (
	Sobel   = "Sobel"
	Roberts = "Roberts"
	Prewitt = "Prewitt"
)

// Kernel is a square matrix of signed weights.
// The engine indexes it as k[x][y], so the first index selects the horizontal offset.
type Kernel [][]int

// Size returns the side length
func (k Kernel) Size() int {
	return len(k)
}

// Clone returns a deep copy
func (k Kernel) Clone() Kernel {
	out := make(Kernel, len(k))
	for i, row := range k {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Pair is a named directional kernel pair
type Pair struct {
	Name string
	X    Kernel
	Y    Kernel
}

var catalog = map[string]Pair{
	Sobel: {
		Name: Sobel,
		X: Kernel{
			{1, 0, -1},
			{2, 0, -2},
			{1, 0, -1},
		},
		Y: Kernel{
			{1, 2, 1},
			{0, 0, 0},
			{-1, -2, -1},
		},
	},
	Roberts: {
		Name: Roberts,
		X: Kernel{
			{1, 0},
			{0, -1},
		},
		Y: Kernel{
			{0, 1},
			{-1, 0},
		},
	},
	Prewitt: {
		Name: Prewitt,
		X: Kernel{
			{-1, 0, 1},
			{-1, 0, 1},
			{-1, 0, 1},
		},
		Y: Kernel{
			{-1, -1, -1},
			{0, 0, 0},
			{1, 1, 1},
		},
	},
}

// Default returns the name used when nothing else is selected
func Default() string {
	return Sobel
}

// Get returns copies of the X and Y kernels registered under name
func Get(name string) (Kernel, Kernel, error) {
	pair, ok := Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	return pair.X, pair.Y, nil
}

// Lookup returns a copy of the pair registered under name
func Lookup(name string) (Pair, bool) {
	pair, exists := catalog[name]
	if !exists {
		return Pair{}, false
	}
	return Pair{Name: pair.Name, X: pair.X.Clone(), Y: pair.Y.Clone()}, true
}

// IsValid reports whether name is a registered preset
func IsValid(name string) bool {
	_, exists := catalog[name]
	return exists
}

// Names returns the preset names in sorted order
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
