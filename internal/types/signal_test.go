package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) TestSignalTypeConstants() {
	suite.Equal(SignalType("1buy"), SignalTypeFirstBuy)
	suite.Equal(SignalType("2buy"), SignalTypeSecondBuy)
	suite.Equal(SignalType("3buy"), SignalTypeThirdBuy)
	suite.Equal(SignalType("1sell"), SignalTypeFirstSell)
	suite.Equal(SignalType("2sell"), SignalTypeSecondSell)
	suite.Equal(SignalType("3sell"), SignalTypeThirdSell)
	suite.Equal(SignalType("pz"), SignalTypePlainDivergence)
	suite.Equal(SignalType("qs"), SignalTypeTrendDivergence)
}

func (suite *SignalTestSuite) TestSignalTypeGroups() {
	suite.True(SignalTypeSecondBuy.IsBuy())
	suite.False(SignalTypeSecondBuy.IsSell())
	suite.True(SignalTypeThirdSell.IsSell())
	suite.True(SignalTypeTrendDivergence.IsDivergence())
	suite.False(SignalTypeFirstBuy.IsDivergence())
}

func (suite *SignalTestSuite) TestSignalsFromLines() {
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	lines := []Line{
		{Kind: LineKindStroke, Index: 0},
		{
			Kind:  LineKindStroke,
			Index: 4,
			End:   Fractal{Time: end, Value: 5.5},
			Labels: []BuySellLabel{
				{Type: SignalTypeThirdBuy, PivotType: PivotTypeStandard, PivotIndex: 1, Reason: "below zd"},
			},
			Divergences: []DivergenceFlag{
				{Type: SignalTypePlainDivergence, PivotType: PivotTypeStandard, PivotIndex: 1, Reason: "weaker"},
			},
		},
	}

	signals := SignalsFromLines("BTCUSDT", lines)
	suite.Require().Len(signals, 2)

	suite.Equal(SignalTypeThirdBuy, signals[0].Type)
	suite.Equal("stroke_3buy", signals[0].Name)
	suite.Equal(end, signals[0].Time)
	suite.Equal(5.5, signals[0].Price)
	suite.Equal(4, signals[0].LineIndex)
	suite.Equal("BTCUSDT", signals[0].Symbol)

	suite.Equal(SignalTypePlainDivergence, signals[1].Type)
	suite.Equal("weaker", signals[1].Reason)
}
