package pipeline

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-detection/internal/convolution"
	"edge-detection/internal/core"
	"edge-detection/internal/kernels"
	"edge-detection/internal/settings"
)

type memoryImages struct {
	files map[string]*core.PixelBuffer
}

func (m *memoryImages) LoadImage(path string) (*core.PixelBuffer, error) {
	buf, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such image: " + path)
	}
	return buf.Clone(), nil
}

func (m *memoryImages) SaveImage(buf *core.PixelBuffer, path string) error {
	m.files[path] = buf.Clone()
	return nil
}

type fixture struct {
	processor *Processor
	store     *settings.Store
	images    *memoryImages
	hook      *test.Hook
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	store := &settings.Store{Path: filepath.Join(t.TempDir(), "settings.yaml")}
	images := &memoryImages{files: map[string]*core.PixelBuffer{}}
	return &fixture{
		processor: NewProcessor(convolution.NewEngine(convolution.WithWorkers(workers)), store, images, logger),
		store:     store,
		images:    images,
		hook:      hook,
	}
}

// impulse returns a w x h RGBA image with one gray pixel at (x, y) and opaque alpha
func impulse(t *testing.T, w, h, x, y int, v uint8) *core.PixelBuffer {
	t.Helper()
	buf, err := core.NewPixelBuffer(w, h, 4)
	require.NoError(t, err)
	for i := 3; i < len(buf.Pix); i += 4 {
		buf.Pix[i] = 255
	}
	copy(buf.Pixel(x, y), []uint8{v, v, v, 255})
	return buf
}

func direct(t *testing.T, src *core.PixelBuffer, name string, mode convolution.ColorMode) *core.PixelBuffer {
	t.Helper()
	kx, ky, err := kernels.Get(name)
	require.NoError(t, err)
	out, err := convolution.NewEngine().Run(context.Background(), src, kx, ky, mode, nil)
	require.NoError(t, err)
	return out
}

func TestProcessMatchesEngine(t *testing.T) {
	f := newFixture(t, 3)
	src := impulse(t, 6, 5, 2, 2, 120)
	orig := src.Clone()

	res, err := f.processor.Process(context.Background(), src, Request{
		Mode:    NonInteractive,
		Kernel:  kernels.Prewitt,
		Display: convolution.RedBlue,
	})
	require.NoError(t, err)

	assert.Equal(t, direct(t, src, kernels.Prewitt, convolution.RedBlue).Pix, res.Image.Pix)
	assert.Equal(t, orig.Pix, src.Pix)
	assert.Equal(t, src.Bounds(), res.Region)
	assert.Equal(t, settings.Settings{Kernel: kernels.Prewitt, Display: convolution.RedBlue}, res.Settings)
	assert.Contains(t, res.Metrics, "edge_ratio")
	assert.Greater(t, res.Metrics["max_intensity"], 0.0)
}

func TestNonInteractiveRemembersSelection(t *testing.T) {
	f := newFixture(t, 1)
	src := impulse(t, 4, 4, 1, 1, 200)

	_, err := f.processor.Process(context.Background(), src, Request{Mode: NonInteractive, Kernel: kernels.Roberts, Display: convolution.RedBlue})
	require.NoError(t, err)

	saved, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{Kernel: kernels.Roberts, Display: convolution.RedBlue}, saved)

	// the request values are ignored in favour of the remembered ones
	res, err := f.processor.Process(context.Background(), src, Request{Mode: WithLastValues, Kernel: kernels.Sobel})
	require.NoError(t, err)
	assert.Equal(t, saved, res.Settings)
	assert.Equal(t, direct(t, src, kernels.Roberts, convolution.RedBlue).Pix, res.Image.Pix)
}

func TestWithLastValuesDefaults(t *testing.T) {
	f := newFixture(t, 1)
	src := impulse(t, 4, 4, 2, 2, 255)

	res, err := f.processor.Process(context.Background(), src, Request{Mode: WithLastValues})
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), res.Settings)

	noStore := NewProcessor(convolution.NewEngine(), nil, nil, logrus.New())
	res, err = noStore.Process(context.Background(), src, Request{Mode: WithLastValues})
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), res.Settings)
}

func TestProcessRegion(t *testing.T) {
	f := newFixture(t, 1)
	src := impulse(t, 6, 6, 3, 3, 90)
	region := image.Rect(2, 2, 5, 5)

	res, err := f.processor.Process(context.Background(), src, Request{
		Mode:    NonInteractive,
		Kernel:  kernels.Sobel,
		Display: convolution.Grayscale,
		Region:  region,
	})
	require.NoError(t, err)
	assert.Equal(t, region, res.Region)

	crop, err := src.Crop(region)
	require.NoError(t, err)
	want := direct(t, crop, kernels.Sobel, convolution.Grayscale)

	got, err := res.Image.Crop(region)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)

	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if x < 2 || x >= 5 || y < 2 || y >= 5 {
				assert.Equal(t, src.Pixel(x, y), res.Image.Pixel(x, y), "outside region %d,%d", x, y)
			}
		}
	}
}

func TestProcessErrors(t *testing.T) {
	f := newFixture(t, 1)
	src := impulse(t, 4, 4, 0, 0, 10)
	ctx := context.Background()

	_, err := f.processor.Process(ctx, src, Request{Kernel: "Canny"})
	assert.ErrorIs(t, err, settings.ErrInvalidSettings)

	_, err = f.processor.Process(ctx, src, Request{Kernel: kernels.Sobel, Region: image.Rect(0, 0, 9, 2)})
	assert.ErrorIs(t, err, core.ErrRegionOutOfBounds)

	_, err = f.processor.Process(ctx, &core.PixelBuffer{Width: 4, Height: 4, BPP: 3}, Request{Kernel: kernels.Sobel})
	assert.ErrorIs(t, err, core.ErrInvalidGeometry)

	_, err = f.processor.Process(ctx, src, Request{Mode: RunMode(9), Kernel: kernels.Sobel})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.processor.Process(cancelled, src, Request{Kernel: kernels.Sobel})
	assert.ErrorIs(t, err, context.Canceled)

	// failed runs must not overwrite the remembered selection
	saved, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), saved)
}

// staleStore hands back whatever it holds without validating it
type staleStore struct {
	s settings.Settings
}

func (st staleStore) Load() (settings.Settings, error) { return st.s, nil }
func (st staleStore) Save(settings.Settings) error { return nil }

func TestUnknownStoredKernelIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewProcessor(convolution.NewEngine(), staleStore{settings.Settings{Kernel: "Canny"}}, nil, logger)

	_, err := p.Process(context.Background(), impulse(t, 4, 4, 1, 1, 80), Request{Mode: WithLastValues})
	assert.ErrorIs(t, err, kernels.ErrUnknownKernel)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "PIPELINE: Unknown kernel", entry.Message)
	assert.Equal(t, "Canny", entry.Data["kernel"])
}

func TestProcessFile(t *testing.T) {
	f := newFixture(t, 2)
	f.images.files["in.png"] = impulse(t, 5, 5, 2, 2, 255)

	res, err := f.processor.ProcessFile(context.Background(), "in.png", "out.png", Request{Kernel: kernels.Sobel})
	require.NoError(t, err)
	require.Contains(t, f.images.files, "out.png")
	assert.Equal(t, res.Image.Pix, f.images.files["out.png"].Pix)

	_, err = f.processor.ProcessFile(context.Background(), "missing.png", "out2.png", Request{Kernel: kernels.Sobel})
	assert.Error(t, err)
	assert.NotContains(t, f.images.files, "out2.png")

	noImages := NewProcessor(convolution.NewEngine(), nil, nil, logrus.New())
	_, err = noImages.ProcessFile(context.Background(), "in.png", "out.png", Request{Kernel: kernels.Sobel})
	assert.Error(t, err)
}

func TestProgressIsLogged(t *testing.T) {
	f := newFixture(t, 1)
	src := impulse(t, 3, 20, 1, 1, 50)

	_, err := f.processor.Process(context.Background(), src, Request{Kernel: kernels.Sobel})
	require.NoError(t, err)

	var progress []string
	for _, e := range f.hook.AllEntries() {
		if e.Message == "PIPELINE: Detecting edges..." {
			progress = append(progress, e.Data["progress"].(string))
		}
	}
	assert.Equal(t, []string{"0%", "10%", "20%", "30%", "40%", "50%", "60%", "70%", "80%", "90%", "100%"}, progress)
	assert.Equal(t, "PIPELINE: Edges detected", f.hook.LastEntry().Message)
}

func TestRunModeString(t *testing.T) {
	assert.Equal(t, "non-interactive", NonInteractive.String())
	assert.Equal(t, "with-last-values", WithLastValues.String())
	assert.Equal(t, "RunMode(5)", RunMode(5).String())
}
