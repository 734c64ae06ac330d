// Edge detection by convolving a grayscale view of the image with a kernel pair
package convolution

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"edge-detection/internal/core"
	"edge-detection/internal/kernels"
)

var (
	// ErrEmptyKernel is returned when a kernel has no rows or an empty row.
	ErrEmptyKernel = errors.New("empty kernel")
	// ErrKernelShape is returned when a kernel is not square or the pair sizes differ.
	ErrKernelShape = errors.New("kernel pair must be square and of equal size")
)

// Engine convolves pixel buffers. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	workers int
}

// Option configures an Engine
type Option func(*Engine)

// WithWorkers sets how many rows may be processed at once. Values below 2 run sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// NewEngine creates an engine; by default rows are processed sequentially
func NewEngine(opts ...Option) *Engine {
	e := &Engine{workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the configured row concurrency
func (e *Engine) Workers() int {
	return e.workers
}

// Run applies the kernel pair to src and returns a new buffer of the same geometry.
// src is never modified. The context is checked once per row; on cancellation the
// partial result is discarded and the context error is returned.
func (e *Engine) Run(ctx context.Context, src *core.PixelBuffer, kernelX, kernelY kernels.Kernel, mode ColorMode, progress ProgressFunc) (*core.PixelBuffer, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	step, err := kernelStep(kernelX, kernelY)
	if err != nil {
		return nil, err
	}

	dst := &core.PixelBuffer{
		Width:  src.Width,
		Height: src.Height,
		BPP:    src.BPP,
		Pix:    make([]uint8, len(src.Pix)),
	}

	c := convolver{src: src, dst: dst, kernelX: kernelX, kernelY: kernelY, step: step, mode: mode}
	tracker := newProgressTracker(src.Height, progress)
	tracker.start()

	if e.workers <= 1 {
		for y := 0; y < src.Height; y++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.row(y)
			tracker.rowDone()
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for y := 0; y < src.Height; y++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c.row(y)
				tracker.rowDone()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	tracker.finish()
	return dst, nil
}

func kernelStep(kernelX, kernelY kernels.Kernel) (int, error) {
	step := len(kernelX)
	if step == 0 || len(kernelY) == 0 {
		return 0, ErrEmptyKernel
	}
	if len(kernelY) != step {
		return 0, fmt.Errorf("%w: X is %d rows, Y is %d rows", ErrKernelShape, step, len(kernelY))
	}
	for i := 0; i < step; i++ {
		if len(kernelX[i]) == 0 || len(kernelY[i]) == 0 {
			return 0, ErrEmptyKernel
		}
		if len(kernelX[i]) != step || len(kernelY[i]) != step {
			return 0, fmt.Errorf("%w: row %d is not %d wide", ErrKernelShape, i, step)
		}
	}
	return step, nil
}

type convolver struct {
	src, dst         *core.PixelBuffer
	kernelX, kernelY kernels.Kernel
	step             int
	mode             ColorMode
}

// row computes every output pixel of row py. It reads only src and writes only row py of dst.
func (c *convolver) row(py int) {
	src := c.src
	half := c.step / 2

	for px := 0; px < src.Width; px++ {
		var sumX, sumY int
		for dy := 0; dy < c.step; dy++ {
			sy := reflectIndex(py-half+dy, src.Height)
			for dx := 0; dx < c.step; dx++ {
				sx := reflectIndex(px-half+dx, src.Width)
				i := src.Offset(sx, sy)
				gray := (int(src.Pix[i]) + int(src.Pix[i+1]) + int(src.Pix[i+2])) / 3
				sumX += gray * c.kernelX[dx][dy]
				sumY += gray * c.kernelY[dx][dy]
			}
		}

		o := src.Offset(px, py)
		out := c.dst.Pix[o : o+src.BPP]
		copy(out, src.Pix[o:o+src.BPP])
		combine(out, sumX, sumY, c.mode)
	}
}

// reflectIndex maps an out-of-range coordinate to n-|i|, then clamps into [0, n-1].
// For a one-cell overshoot this wraps to the opposite edge: -1 becomes n-1 and n becomes 0.
func reflectIndex(i, n int) int {
	if i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		i = n - i
	}
	return clampIndex(i, n)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// combine writes the rendered gradient into the first three samples of out
func combine(out []uint8, sumX, sumY int, mode ColorMode) {
	if mode == RedBlue {
		out[0] = clampColor(sumX)
		out[1] = clampColor(sumY / 2)
		out[2] = clampColor(sumY)
		return
	}

	m := clampColor(int(math.Sqrt(float64(sumX*sumX + sumY*sumY))))
	out[0], out[1], out[2] = m, m, m
}

func clampColor(v int) uint8 {
	return uint8(max(0, min(255, v)))
}
