package profile

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOptions is returned when weights or thresholds are out of range.
var ErrInvalidOptions = errors.New("invalid profile options")

// StrongCorrelationThreshold is the |r| above which (exclusive) a pair is strong.
const StrongCorrelationThreshold = 0.7

// Weights of the readiness score components. They must be non-negative and sum to 1.
type Weights struct {
	Completeness float64 `json:"completeness" mapstructure:"completeness" yaml:"completeness"`
	Uniqueness   float64 `json:"uniqueness" mapstructure:"uniqueness" yaml:"uniqueness"`
	Numeric      float64 `json:"numeric" mapstructure:"numeric" yaml:"numeric"`
	Categorical  float64 `json:"categorical" mapstructure:"categorical" yaml:"categorical"`
}

// DefaultWeights is the 0.4/0.3/0.15/0.15 split most dashboard variants converge on.
func DefaultWeights() Weights {
	return Weights{Completeness: 0.4, Uniqueness: 0.3, Numeric: 0.15, Categorical: 0.15}
}

func (w Weights) sum() float64 { return w.Completeness + w.Uniqueness + w.Numeric + w.Categorical }

// Options controls profiling behavior.
type Options struct {
	// Weights of the readiness score; the zero value means DefaultWeights.
	Weights Weights
	// StrongCorrelation flags pairs with |r| strictly above it; 0 means StrongCorrelationThreshold.
	StrongCorrelation float64
	// HighMissingThreshold raises a high_missing alert when a column's missing ratio exceeds it.
	HighMissingThreshold float64
	// OutlierThreshold is the robust |z| (MAD) cut-off; 0 disables outlier counting.
	OutlierThreshold float64
	// SampleValues is how many distinct example values to keep per column.
	SampleValues int
	// TopValues is how many frequent values to keep for categorical columns.
	TopValues int
	// RequireRows makes zero-row datasets fail with dataset.ErrEmptyDataset.
	RequireRows bool
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{
		Weights:              DefaultWeights(),
		StrongCorrelation:    StrongCorrelationThreshold,
		HighMissingThreshold: 0.5,
		OutlierThreshold:     3.5,
		SampleValues:         5,
		TopValues:            8,
	}
}

func (o Options) normalized() Options {
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights()
	}
	if o.StrongCorrelation == 0 {
		o.StrongCorrelation = StrongCorrelationThreshold
	}
	if o.HighMissingThreshold == 0 {
		o.HighMissingThreshold = 0.5
	}
	if o.SampleValues <= 0 {
		o.SampleValues = 5
	}
	if o.TopValues <= 0 {
		o.TopValues = 8
	}
	return o
}

// Validate checks weights and thresholds.
func (o Options) Validate() error {
	o = o.normalized()
	w := o.Weights
	for name, v := range map[string]float64{
		"completeness": w.Completeness,
		"uniqueness":   w.Uniqueness,
		"numeric":      w.Numeric,
		"categorical":  w.Categorical,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: weight %s must be >= 0, got %v", ErrInvalidOptions, name, v)
		}
	}
	if math.Abs(w.sum()-1) > 1e-6 {
		return fmt.Errorf("%w: weights must sum to 1, got %.4f", ErrInvalidOptions, w.sum())
	}
	if o.StrongCorrelation < 0 || o.StrongCorrelation >= 1 {
		return fmt.Errorf("%w: strong correlation threshold must be in [0,1), got %v", ErrInvalidOptions, o.StrongCorrelation)
	}
	if o.HighMissingThreshold < 0 || o.HighMissingThreshold > 1 {
		return fmt.Errorf("%w: high missing threshold must be in [0,1], got %v", ErrInvalidOptions, o.HighMissingThreshold)
	}
	if o.OutlierThreshold < 0 {
		return fmt.Errorf("%w: outlier threshold must be >= 0, got %v", ErrInvalidOptions, o.OutlierThreshold)
	}
	return nil
}
