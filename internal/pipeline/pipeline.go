// Edge detection pipeline: settings, region selection, convolution and reporting
package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"edge-detection/internal/convolution"
	"edge-detection/internal/core"
	"edge-detection/internal/kernels"
	"edge-detection/internal/metrics"
	"edge-detection/internal/settings"
)

// RunMode decides where the filter selection comes from
type RunMode int

const (
	// NonInteractive uses the request's kernel and display values and remembers them.
	NonInteractive RunMode = iota
	// WithLastValues ignores the request's values and reuses the remembered selection.
	WithLastValues
)

func (m RunMode) String() string {
	switch m {
	case NonInteractive:
		return "non-interactive"
	case WithLastValues:
		return "with-last-values"
	default:
		return fmt.Sprintf("RunMode(%d)", int(m))
	}
}

// SettingsStore persists the filter selection between runs
type SettingsStore interface {
	Load() (settings.Settings, error)
	Save(settings.Settings) error
}

// ImageStore reads and writes image files
type ImageStore interface {
	LoadImage(path string) (*core.PixelBuffer, error)
	SaveImage(buf *core.PixelBuffer, path string) error
}

// Request describes one filter run
type Request struct {
	Mode    RunMode
	Kernel  string
	Display convolution.ColorMode
	Region  image.Rectangle // zero value processes the whole image
}

// Result is the outcome of a filter run
type Result struct {
	Image    *core.PixelBuffer
	Settings settings.Settings
	Region   image.Rectangle
	Metrics  map[string]float64
	Duration time.Duration
}

// Processor runs edge detection requests
type Processor struct {
	engine      *convolution.Engine
	store       SettingsStore
	images      ImageStore
	metricsEval *metrics.Evaluator
	logger      logrus.FieldLogger
}

// NewProcessor creates a processor. store and images may be nil when the caller never
// needs persistence or file access.
func NewProcessor(engine *convolution.Engine, store SettingsStore, images ImageStore, logger logrus.FieldLogger) *Processor {
	return &Processor{
		engine:      engine,
		store:       store,
		images:      images,
		metricsEval: metrics.NewEvaluator(),
		logger:      logger,
	}
}

// Process applies the requested filter to src. src is not modified; pixels outside the
// request region are copied through unchanged.
func (p *Processor) Process(ctx context.Context, src *core.PixelBuffer, req Request) (*Result, error) {
	start := time.Now()

	s, err := p.resolveSettings(req)
	if err != nil {
		return nil, err
	}
	log := p.logger.WithFields(logrus.Fields{
		"kernel":   s.Kernel,
		"display":  s.Display.String(),
		"run_mode": req.Mode.String(),
	})

	if err := src.Validate(); err != nil {
		log.WithError(err).Error("PIPELINE: Invalid source image")
		return nil, err
	}
	kernelX, kernelY, err := kernels.Get(s.Kernel)
	if err != nil {
		log.WithError(err).Error("PIPELINE: Unknown kernel")
		return nil, err
	}
	region, err := src.Resolve(req.Region)
	if err != nil {
		log.WithError(err).Error("PIPELINE: Invalid region")
		return nil, err
	}

	input := src
	if region != src.Bounds() {
		if input, err = src.Crop(region); err != nil {
			return nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"width":   input.Width,
		"height":  input.Height,
		"region":  region.String(),
		"workers": p.engine.Workers(),
	}).Info("PIPELINE: Detecting edges")

	edges, err := p.engine.Run(ctx, input, kernelX, kernelY, s.Display, progressLogger(log, 10))
	if err != nil {
		log.WithError(err).Error("PIPELINE: Edge detection failed")
		return nil, fmt.Errorf("edge detection: %w", err)
	}

	out := edges
	if input != src {
		out = src.Clone()
		if err := out.Paste(edges, region); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Image:    out,
		Settings: s,
		Region:   region,
		Metrics:  p.metricsEval.CalculateAll(input, edges),
		Duration: time.Since(start),
	}

	if req.Mode == NonInteractive && p.store != nil {
		if err := p.store.Save(s); err != nil {
			log.WithError(err).Warn("PIPELINE: Could not remember settings")
		}
	}

	log.WithFields(logrus.Fields{
		"duration_ms": result.Duration.Milliseconds(),
		"metrics":     result.Metrics,
	}).Info("PIPELINE: Edges detected")

	return result, nil
}

// ProcessFile loads input, processes it and saves the result to output
func (p *Processor) ProcessFile(ctx context.Context, input, output string, req Request) (*Result, error) {
	if p.images == nil {
		return nil, fmt.Errorf("no image store configured")
	}

	src, err := p.images.LoadImage(input)
	if err != nil {
		return nil, err
	}

	result, err := p.Process(ctx, src, req)
	if err != nil {
		return nil, err
	}

	if err := p.images.SaveImage(result.Image, output); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Processor) resolveSettings(req Request) (settings.Settings, error) {
	switch req.Mode {
	case NonInteractive:
		s := settings.Settings{Kernel: req.Kernel, Display: req.Display}
		if err := s.Validate(); err != nil {
			return settings.Settings{}, err
		}
		return s, nil
	case WithLastValues:
		if p.store == nil {
			return settings.Default(), nil
		}
		s, err := p.store.Load()
		if err != nil {
			return settings.Settings{}, fmt.Errorf("loading last values: %w", err)
		}
		return s, nil
	default:
		return settings.Settings{}, fmt.Errorf("unsupported run mode: %s", req.Mode)
	}
}

// progressLogger logs at Debug each time progress crosses another multiple of stepPercent
func progressLogger(logger logrus.FieldLogger, stepPercent int) convolution.ProgressFunc {
	next := 0
	return func(fraction float64) {
		pct := int(math.Round(fraction * 100))
		if pct < next {
			return
		}
		logger.WithField("progress", fmt.Sprintf("%d%%", pct)).Debug("PIPELINE: Detecting edges...")
		next = (pct/stepPercent + 1) * stepPercent
	}
}
