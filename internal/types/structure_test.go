package types

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type StructureTestSuite struct {
	suite.Suite
}

func TestStructureSuite(t *testing.T) {
	suite.Run(t, new(StructureTestSuite))
}

func (suite *StructureTestSuite) TestFractalBeyond() {
	top := Fractal{Type: FractalTypeTop, Value: 10}
	suite.True(Fractal{Type: FractalTypeTop, Value: 11}.Beyond(top))
	suite.False(Fractal{Type: FractalTypeTop, Value: 10}.Beyond(top))

	bottom := Fractal{Type: FractalTypeBottom, Value: 5}
	suite.True(Fractal{Type: FractalTypeBottom, Value: 4}.Beyond(bottom))
	suite.False(Fractal{Type: FractalTypeBottom, Value: 6}.Beyond(bottom))
}

func (suite *StructureTestSuite) TestNewLine() {
	bottom := Fractal{Type: FractalTypeBottom, Index: 2, Value: 6}
	top := Fractal{Type: FractalTypeTop, Index: 7, Value: 12}

	up := NewLine(LineKindStroke, 0, bottom, top)
	suite.Equal(DirectionUp, up.Direction)
	suite.Equal(12.0, up.High)
	suite.Equal(6.0, up.Low)
	suite.Equal(-1, up.StartLine)
	suite.False(up.Done)

	down := NewLine(LineKindStroke, 1, top, bottom)
	suite.Equal(DirectionDown, down.Direction)
}

func (suite *StructureTestSuite) TestLineIntersects() {
	line := Line{High: 10, Low: 6}

	suite.True(line.Intersects(8, 9))
	suite.True(line.Intersects(10, 12))
	suite.True(line.Intersects(4, 6))
	suite.False(line.Intersects(10.1, 12))
	suite.False(line.Intersects(3, 5.9))
}

func (suite *StructureTestSuite) TestLineBare() {
	line := Line{
		Labels:      []BuySellLabel{{Type: SignalTypeThirdBuy}},
		Divergences: []DivergenceFlag{{Type: SignalTypePlainDivergence}},
	}

	bare := line.Bare()
	suite.Nil(bare.Labels)
	suite.Nil(bare.Divergences)
	suite.Len(line.Labels, 1)
}

func (suite *StructureTestSuite) TestPivotContains() {
	pivot := Pivot{
		Entry: Line{Index: 3},
		Lines: []Line{{Index: 4}, {Index: 5}, {Index: 6}},
		Exit:  optional.Some(Line{Index: 7}),
	}

	suite.Equal(4, pivot.FirstLineIndex())
	suite.Equal(6, pivot.LastLineIndex())
	suite.True(pivot.Contains(3))
	suite.True(pivot.Contains(6))
	suite.False(pivot.Contains(7))
	suite.False(pivot.Contains(2))
}
