// Image loading and saving through OpenCV
package io

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"edge-detection/internal/core"
)

var supportedFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}

// ImageLoader handles image file operations
type ImageLoader struct {
	logger logrus.FieldLogger
}

// NewImageLoader creates a loader that logs through logger
func NewImageLoader(logger logrus.FieldLogger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// LoadImage reads an 8-bit image and returns its samples in R, G, B(, A) order.
// Single-channel images are expanded to three equal channels.
func (il *ImageLoader) LoadImage(path string) (*core.PixelBuffer, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	if !il.IsSupportedImageFormat(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to load image: %s", path)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()

	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		gocv.CvtColor(mat, &rgb, gocv.ColorGrayToBGR)
	case gocv.MatTypeCV8UC3:
		gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)
	case gocv.MatTypeCV8UC4:
		gocv.CvtColor(mat, &rgb, gocv.ColorBGRAToRGBA)
	default:
		return nil, fmt.Errorf("unsupported pixel format %v in %s (want 8-bit gray, BGR or BGRA)", mat.Type(), path)
	}

	buf := &core.PixelBuffer{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		BPP:    rgb.Channels(),
		Pix:    rgb.ToBytes(),
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    buf.Width,
		"height":   buf.Height,
		"channels": buf.BPP,
	}).Info("Image loaded successfully")

	return buf, nil
}

// SaveImage writes buf, converting back to OpenCV's BGR(A) sample order
func (il *ImageLoader) SaveImage(buf *core.PixelBuffer, path string) error {
	il.logger.WithField("filepath", path).Debug("Saving image")

	if err := buf.Validate(); err != nil {
		return fmt.Errorf("cannot save image: %w", err)
	}
	if !il.IsSupportedImageFormat(path) {
		return fmt.Errorf("unsupported image format: %s", path)
	}

	var (
		matType gocv.MatType
		code    gocv.ColorConversionCode
	)
	switch buf.BPP {
	case 3:
		matType, code = gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR
	case 4:
		matType, code = gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGRA
	default:
		return fmt.Errorf("cannot save %d-channel image", buf.BPP)
	}

	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, matType, buf.Pix)
	if err != nil {
		return fmt.Errorf("wrapping pixels: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, code)

	if !gocv.IMWrite(path, bgr) {
		return fmt.Errorf("failed to save image: %s", path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    buf.Width,
		"height":   buf.Height,
		"channels": buf.BPP,
	}).Info("Image saved successfully")

	return nil
}

// IsSupportedImageFormat checks the file extension against the formats OpenCV is asked to handle
func (il *ImageLoader) IsSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// GetSupportedFormats returns the accepted file extensions
func (il *ImageLoader) GetSupportedFormats() []string {
	return append([]string(nil), supportedFormats...)
}
