package indicator

import (
	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
)

// EMA indicator implements Exponential Moving Average calculation.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator with default configuration.
func NewEMA() Indicator {
	return &EMA{
		period: 20, // Default period
	}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config configures the EMA indicator. Expected parameters: period (int).
func (e *EMA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, ok := params[0].(int)
	if !ok {
		return errors.New(errors.ErrCodeInvalidType, "invalid type for period parameter, expected int")
	}

	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	e.period = period

	return nil
}

// Series returns the EMA of every value. Values before the first full
// period are zero; fewer values than the period yield all zeros.
func (e *EMA) Series(values []float64) []float64 {
	if len(values) < e.period {
		return make([]float64, len(values))
	}

	return talib.Ema(values, e.period)
}

// RawValue returns the latest EMA. Expected parameters: values ([]float64).
func (e *EMA) RawValue(params ...any) (float64, error) {
	if len(params) != 1 {
		return 0, errors.New(errors.ErrCodeMissingParameter, "RawValue expects 1 parameter: values ([]float64)")
	}

	values, ok := params[0].([]float64)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidType, "first parameter must be of type []float64")
	}

	if len(values) < e.period {
		return 0, errors.NewInsufficientDataErrorf(e.period, len(values), "insufficient data for EMA: required %d, got %d", e.period, len(values))
	}

	series := e.Series(values)

	return series[len(series)-1], nil
}
