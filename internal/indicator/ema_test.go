package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type EMATestSuite struct {
	suite.Suite
}

func TestEMASuite(t *testing.T) {
	suite.Run(t, new(EMATestSuite))
}

func (suite *EMATestSuite) TestNewEMA() {
	ema := NewEMA()
	suite.Equal(types.IndicatorTypeEMA, ema.Name())
	suite.Equal(20, ema.(*EMA).period)
}

func (suite *EMATestSuite) TestConfig() {
	ema := NewEMA()

	suite.NoError(ema.Config(5))
	suite.Equal(5, ema.(*EMA).period)

	err := ema.Config()
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	err = ema.Config("5")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidType))

	err = ema.Config(0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *EMATestSuite) TestSeriesOfConstantValues() {
	ema := &EMA{period: 3}

	series := ema.Series([]float64{5, 5, 5, 5, 5})

	suite.Len(series, 5)
	suite.InDelta(5.0, series[2], 1e-9)
	suite.InDelta(5.0, series[4], 1e-9)
}

func (suite *EMATestSuite) TestSeriesShorterThanPeriod() {
	ema := &EMA{period: 10}

	suite.Equal([]float64{0, 0, 0}, ema.Series([]float64{1, 2, 3}))
}

func (suite *EMATestSuite) TestRawValue() {
	ema := &EMA{period: 3}

	// seeded with the average of the first period, then smoothed with k = 0.5
	value, err := ema.RawValue([]float64{1, 2, 3, 4})
	suite.NoError(err)
	suite.InDelta(3.0, value, 1e-9)

	_, err = ema.RawValue([]float64{1, 2})
	suite.True(errors.IsInsufficientDataError(err))
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientData))

	_, err = ema.RawValue("values")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidType))
}
