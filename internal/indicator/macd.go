package indicator

import (
	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
)

// MACD represents the Moving Average Convergence Divergence indicator.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
	// amplified doubles the histogram
	amplified bool
}

// NewMACD creates a new MACD indicator with default configuration.
func NewMACD() MomentumIndicator {
	return &MACD{
		fastPeriod:   12, // Default fast period
		slowPeriod:   26, // Default slow period
		signalPeriod: 9,  // Default signal period
	}
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the MACD indicator. Expected parameters: fastPeriod (int),
// slowPeriod (int), signalPeriod (int) and optionally amplified (bool).
func (m *MACD) Config(params ...any) error {
	if len(params) != 3 && len(params) != 4 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 3 parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int), and optional amplified (bool)")
	}

	fastPeriod, ok := params[0].(int)
	if !ok {
		return errors.New(errors.ErrCodeInvalidType, "invalid type for fastPeriod parameter, expected int")
	}

	if fastPeriod <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "fastPeriod must be a positive integer, got %d", fastPeriod)
	}

	slowPeriod, ok := params[1].(int)
	if !ok {
		return errors.New(errors.ErrCodeInvalidType, "invalid type for slowPeriod parameter, expected int")
	}

	if slowPeriod <= fastPeriod {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "slowPeriod must be greater than fastPeriod, got %d and %d", slowPeriod, fastPeriod)
	}

	signalPeriod, ok := params[2].(int)
	if !ok {
		return errors.New(errors.ErrCodeInvalidType, "invalid type for signalPeriod parameter, expected int")
	}

	if signalPeriod <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "signalPeriod must be a positive integer, got %d", signalPeriod)
	}

	amplified := false
	if len(params) == 4 {
		amplified, ok = params[3].(bool)
		if !ok {
			return errors.New(errors.ErrCodeInvalidType, "invalid type for amplified parameter, expected bool")
		}
	}

	m.fastPeriod = fastPeriod
	m.slowPeriod = slowPeriod
	m.signalPeriod = signalPeriod
	m.amplified = amplified

	return nil
}

// lookback is the number of closes needed before the signal line is defined.
func (m *MACD) lookback() int {
	return m.slowPeriod + m.signalPeriod - 1
}

// Calculate returns one snapshot per analysis bar. Snapshots before the
// indicator has enough closes are zero valued apart from index and time.
// Early values depend on the seed of the averages, so callers should pass
// materially more history than the slow period.
func (m *MACD) Calculate(bars []types.AnalysisBar) []types.MomentumSnapshot {
	snapshots := make([]types.MomentumSnapshot, len(bars))
	for i, bar := range bars {
		snapshots[i] = types.MomentumSnapshot{Index: bar.Index, Time: bar.EndTime}
	}

	values := closes(bars)
	if len(values) <= m.lookback() {
		return snapshots
	}

	fast := (&EMA{period: m.fastPeriod}).Series(values)
	slow := (&EMA{period: m.slowPeriod}).Series(values)
	macd, signal, hist := talib.Macd(values, m.fastPeriod, m.slowPeriod, m.signalPeriod)

	area := 0.0

	for i := range snapshots {
		histogram := hist[i]
		if m.amplified {
			histogram *= 2
		}

		// the running area restarts whenever the histogram changes sign
		if (histogram > 0 && area < 0) || (histogram < 0 && area > 0) {
			area = 0
		}

		area += histogram

		snapshots[i].FastEMA = fast[i]
		snapshots[i].SlowEMA = slow[i]
		snapshots[i].MACD = macd[i]
		snapshots[i].Signal = signal[i]
		snapshots[i].Histogram = histogram
		snapshots[i].ImpulseArea = area
	}

	return snapshots
}

// RawValue returns the latest histogram value. Expected parameters: bars ([]types.AnalysisBar).
func (m *MACD) RawValue(params ...any) (float64, error) {
	if len(params) != 1 {
		return 0, errors.New(errors.ErrCodeMissingParameter, "RawValue expects 1 parameter: bars ([]types.AnalysisBar)")
	}

	bars, ok := params[0].([]types.AnalysisBar)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidType, "first parameter must be of type []types.AnalysisBar")
	}

	if len(bars) <= m.lookback() {
		return 0, errors.NewInsufficientDataErrorf(m.lookback()+1, len(bars), "insufficient data for MACD calculation: required %d, got %d", m.lookback()+1, len(bars))
	}

	snapshots := m.Calculate(bars)

	return snapshots[len(snapshots)-1].Histogram, nil
}
