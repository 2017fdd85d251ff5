package indicator

import "github.com/rxtech-lab/argo-structure/internal/types"

// Indicator interface defines methods that any technical indicator must implement
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// RawValue returns the latest value of the indicator
	RawValue(params ...any) (float64, error)
	Config(params ...any) error
}

// MomentumIndicator computes a momentum snapshot per analysis bar.
type MomentumIndicator interface {
	Indicator
	Calculate(bars []types.AnalysisBar) []types.MomentumSnapshot
}

// closes returns the close of the last constituent of every analysis bar.
func closes(bars []types.AnalysisBar) []float64 {
	values := make([]float64, len(bars))
	for i, bar := range bars {
		values[i] = bar.Close
	}

	return values
}
