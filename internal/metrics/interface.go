// Edge map statistics reported after a filter run
package metrics

import (
	"fmt"
	"sort"

	"edge-detection/internal/core"
)

// Metric defines the interface for edge map statistics
type Metric interface {
	// Calculate computes the metric for an edge map produced from source
	Calculate(source, edges *core.PixelBuffer) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates an evaluator with the default metrics registered
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.RegisterDefaultMetrics()

	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("mean_intensity", NewMeanIntensity())
	e.Register("max_intensity", NewMaxIntensity())
	e.Register("edge_ratio", NewEdgeRatio(DefaultEdgeThreshold))
}

// Register registers a metric, replacing any metric with the same name
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, source, edges *core.PixelBuffer) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}

	return metric.Calculate(source, edges)
}

// CalculateAll calculates all registered metrics, skipping any that fail
func (e *Evaluator) CalculateAll(source, edges *core.PixelBuffer) map[string]float64 {
	results := make(map[string]float64)

	for _, name := range e.Names() {
		if value, err := e.Calculate(name, source, edges); err == nil {
			results[name] = value
		}
	}

	return results
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name        string
	Description string
	Range       [2]float64 // [min, max]
}

// GetMetricInfo returns information about all metrics
func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	info := make(map[string]MetricInfo)

	for name, metric := range e.metrics {
		min, max := metric.GetRange()
		info[name] = MetricInfo{
			Name:        metric.GetName(),
			Description: metric.GetDescription(),
			Range:       [2]float64{min, max},
		}
	}

	return info
}
