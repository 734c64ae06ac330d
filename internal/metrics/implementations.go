// Concrete implementations of edge map statistics
package metrics

import (
	"fmt"

	"gocv.io/x/gocv"

	"edge-detection/internal/core"
)

// DefaultEdgeThreshold is the channel value above which a pixel counts as an edge
const DefaultEdgeThreshold = 32

func checkPair(source, edges *core.PixelBuffer) error {
	if err := edges.Validate(); err != nil {
		return err
	}
	if source != nil && !source.SameGeometry(edges) {
		return fmt.Errorf("image dimensions mismatch")
	}
	return nil
}

// matType returns the 8-bit Mat type with bpp channels
func matType(bpp int) gocv.MatType {
	return gocv.MatTypeCV8U + gocv.MatType((bpp-1)<<3)
}

// rgbPlanes splits the R, G and B planes out of edges. Extra channels are dropped.
// The caller closes the returned Mats.
func rgbPlanes(edges *core.PixelBuffer) ([]gocv.Mat, error) {
	mat, err := gocv.NewMatFromBytes(edges.Height, edges.Width, matType(edges.BPP), edges.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap edge map: %w", err)
	}
	defer mat.Close()

	planes := gocv.Split(mat)
	for i := 3; i < len(planes); i++ {
		planes[i].Close()
	}
	return planes[:3], nil
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}

// peakResponse returns a single-channel Mat holding max(R, G, B) per pixel
func peakResponse(edges *core.PixelBuffer) (gocv.Mat, error) {
	planes, err := rgbPlanes(edges)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer closeAll(planes)

	rg := gocv.NewMat()
	defer rg.Close()
	gocv.Max(planes[0], planes[1], &rg)

	peak := gocv.NewMat()
	gocv.Max(rg, planes[2], &peak)
	return peak, nil
}

// MeanIntensity is the mean of the R, G and B samples of the edge map
type MeanIntensity struct{}

// NewMeanIntensity creates a new mean intensity metric
func NewMeanIntensity() *MeanIntensity {
	return &MeanIntensity{}
}

func (m *MeanIntensity) Calculate(source, edges *core.PixelBuffer) (float64, error) {
	if err := checkPair(source, edges); err != nil {
		return 0, err
	}

	planes, err := rgbPlanes(edges)
	if err != nil {
		return 0, err
	}
	defer closeAll(planes)

	// every plane has the same pixel count, so the mean of means is the overall mean
	var sum float64
	for _, plane := range planes {
		sum += plane.Mean().Val1
	}

	return sum / float64(len(planes)), nil
}

func (m *MeanIntensity) GetName() string {
	return "Mean Intensity"
}

func (m *MeanIntensity) GetDescription() string {
	return "Average edge response over all color samples"
}

func (m *MeanIntensity) GetRange() (float64, float64) {
	return 0, 255
}

// MaxIntensity is the strongest color sample in the edge map
type MaxIntensity struct{}

// NewMaxIntensity creates a new max intensity metric
func NewMaxIntensity() *MaxIntensity {
	return &MaxIntensity{}
}

func (m *MaxIntensity) Calculate(source, edges *core.PixelBuffer) (float64, error) {
	if err := checkPair(source, edges); err != nil {
		return 0, err
	}

	peak, err := peakResponse(edges)
	if err != nil {
		return 0, err
	}
	defer peak.Close()

	_, maxVal, _, _ := gocv.MinMaxLoc(peak)
	return float64(maxVal), nil
}

func (m *MaxIntensity) GetName() string {
	return "Max Intensity"
}

func (m *MaxIntensity) GetDescription() string {
	return "Strongest edge response"
}

func (m *MaxIntensity) GetRange() (float64, float64) {
	return 0, 255
}

// EdgeRatio is the fraction of pixels whose strongest color sample exceeds Threshold
type EdgeRatio struct {
	Threshold uint8
}

// NewEdgeRatio creates a new edge ratio metric
func NewEdgeRatio(threshold uint8) *EdgeRatio {
	return &EdgeRatio{Threshold: threshold}
}

func (r *EdgeRatio) Calculate(source, edges *core.PixelBuffer) (float64, error) {
	if err := checkPair(source, edges); err != nil {
		return 0, err
	}

	peak, err := peakResponse(edges)
	if err != nil {
		return 0, err
	}
	defer peak.Close()

	// binary threshold keeps values strictly above Threshold
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(peak, &binary, float32(r.Threshold), 255, gocv.ThresholdBinary)

	return float64(gocv.CountNonZero(binary)) / float64(edges.Width*edges.Height), nil
}

func (r *EdgeRatio) GetName() string {
	return "Edge Ratio"
}

func (r *EdgeRatio) GetDescription() string {
	return fmt.Sprintf("Fraction of pixels with a response above %d", r.Threshold)
}

func (r *EdgeRatio) GetRange() (float64, float64) {
	return 0, 1
}
