package analyzer

import (
	"sync"
	"testing"

	"github.com/rxtech-lab/argo-structure/internal/analyzer"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/mocks"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AnalyzerV1TestSuite struct {
	suite.Suite
	bars []types.Bar
}

func TestAnalyzerV1Suite(t *testing.T) {
	suite.Run(t, new(AnalyzerV1TestSuite))
}

func (suite *AnalyzerV1TestSuite) SetupSuite() {
	suite.bars = mocks.GenerateBars(42, 600)
}

func (suite *AnalyzerV1TestSuite) newAnalyzer(config Config) *AnalyzerV1 {
	a, err := NewAnalyzerV1(config, nil)
	suite.Require().NoError(err)

	return a
}

func (suite *AnalyzerV1TestSuite) full(bars []types.Bar) *types.Model {
	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(bars)
	suite.Require().NoError(err)

	return a.Model()
}

// requireSameStructure compares everything but the model version.
func (suite *AnalyzerV1TestSuite) requireSameStructure(expected, actual *types.Model) {
	suite.Require().Equal(expected.Bars, actual.Bars)
	suite.Require().Equal(expected.AnalysisBars, actual.AnalysisBars)
	suite.Require().Equal(expected.Fractals, actual.Fractals)
	suite.Require().Equal(expected.Strokes, actual.Strokes)
	suite.Require().Equal(expected.Segments, actual.Segments)
	suite.Require().Equal(expected.StrokePivots, actual.StrokePivots)
	suite.Require().Equal(expected.SegmentPivots, actual.SegmentPivots)
	suite.Require().Equal(expected.Momentum, actual.Momentum)
	suite.Require().Equal(expected.Signals, actual.Signals)
}

func (suite *AnalyzerV1TestSuite) TestNewAnalyzerRejectsInvalidConfig() {
	config := TestConfig()
	config.MACDSlow = config.MACDFast

	_, err := NewAnalyzerV1(config, nil)

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *AnalyzerV1TestSuite) TestEmptyModel() {
	a := suite.newAnalyzer(TestConfig())

	model := a.Model()
	suite.Require().NotNil(model)
	suite.Equal(int64(0), model.Version)
	suite.Equal("TEST", model.Symbol)
	suite.Empty(a.Bars())
	suite.Empty(a.Strokes())
	suite.True(a.PendingPivot(types.LineKindStroke, types.PivotTypeStandard).IsNone())
	suite.Equal([]types.IndicatorType{types.IndicatorTypeMACD}, a.Indicators())
}

func (suite *AnalyzerV1TestSuite) TestEmptyBatchIsNoop() {
	a := suite.newAnalyzer(TestConfig())

	result, err := a.Update(nil)

	suite.Require().NoError(err)
	suite.True(result.Noop)
	suite.Equal(int64(0), result.Version)

	malformed := []types.Bar{{Time: suite.bars[0].Time, High: 1, Low: 2}}
	result, err = a.Update(malformed)

	suite.Require().NoError(err)
	suite.True(result.Noop)
	suite.Empty(a.Bars())
}

func (suite *AnalyzerV1TestSuite) TestUpdateBuildsStructure() {
	a := suite.newAnalyzer(TestConfig())

	result, err := a.Update(suite.bars)

	suite.Require().NoError(err)
	suite.False(result.Noop)
	suite.Equal(0, result.FirstBarIndex)
	suite.Equal(len(suite.bars), result.AppliedBars)
	suite.Equal(0, result.FirstAnalysisBarIndex)
	suite.Equal(int64(1), result.Version)

	suite.Len(a.Bars(), len(suite.bars))
	suite.NotEmpty(a.AnalysisBars())
	suite.NotEmpty(a.Fractals())
	suite.NotEmpty(a.Strokes())
	suite.NotEmpty(a.Segments())
	suite.Len(a.Momentum(), len(a.AnalysisBars()))

	for i := 1; i < len(a.Strokes()); i++ {
		suite.NotEqual(a.Strokes()[i-1].Direction, a.Strokes()[i].Direction)
	}

	for _, kind := range []types.LineKind{types.LineKindStroke, types.LineKindSegment} {
		for _, p := range a.Pivots(kind, types.PivotTypeStandard) {
			suite.Less(p.ZD, p.ZG)
			suite.GreaterOrEqual(len(p.Lines), 3)
			suite.Equal(kind, p.LineKind)
		}
	}
}

func (suite *AnalyzerV1TestSuite) TestIdempotence() {
	first := suite.full(suite.bars)
	second := suite.full(suite.bars)

	suite.Equal(first, second)
}

func (suite *AnalyzerV1TestSuite) TestIncrementalEquivalence() {
	expected := suite.full(suite.bars)

	for _, k := range []int{1, 2, 3, 57, 123, 300, 451, 599} {
		a := suite.newAnalyzer(TestConfig())

		_, err := a.Update(suite.bars[:k])
		suite.Require().NoError(err)
		_, err = a.Update(suite.bars[k:])
		suite.Require().NoError(err)

		suite.requireSameStructure(expected, a.Model())
	}
}

func (suite *AnalyzerV1TestSuite) TestBarByBarEquivalence() {
	bars := suite.bars[:250]
	expected := suite.full(bars)

	a := suite.newAnalyzer(TestConfig())
	for _, b := range bars {
		_, err := a.Update([]types.Bar{b})
		suite.Require().NoError(err)
	}

	suite.requireSameStructure(expected, a.Model())
	suite.Equal(int64(len(bars)), a.Model().Version)
}

func (suite *AnalyzerV1TestSuite) TestOverlappingBatch() {
	expected := suite.full(suite.bars)

	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars[:300])
	suite.Require().NoError(err)

	result, err := a.Update(suite.bars[250:])
	suite.Require().NoError(err)
	suite.Equal(300, result.FirstBarIndex)
	suite.Equal(300, result.AppliedBars)

	suite.requireSameStructure(expected, a.Model())
}

func (suite *AnalyzerV1TestSuite) TestStaleBarsAreIgnored() {
	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	before := a.Model()

	result, err := a.Update(suite.bars[:10])

	suite.Require().NoError(err)
	suite.True(result.Noop)
	suite.Same(before, a.Model())
}

func (suite *AnalyzerV1TestSuite) TestRevisionMatchesCorrectedHistory() {
	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	last := len(suite.bars) - 1
	revised := suite.bars[last]
	revised.Close = revised.Low
	revised.High += 0.5

	result, err := a.Update([]types.Bar{revised})

	suite.Require().NoError(err)
	suite.True(result.Revised)
	suite.Equal(last, result.FirstBarIndex)
	suite.Equal(1, result.AppliedBars)

	corrected := append(append([]types.Bar(nil), suite.bars[:last]...), revised)
	suite.requireSameStructure(suite.full(corrected), a.Model())
}

func (suite *AnalyzerV1TestSuite) TestRevisionWithSameValuesIsNoop() {
	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	result, err := a.Update(suite.bars[len(suite.bars)-1:])

	suite.Require().NoError(err)
	suite.True(result.Noop)
	suite.Equal(int64(1), result.Version)
}

func (suite *AnalyzerV1TestSuite) TestRecompute() {
	expected := suite.full(suite.bars)

	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars[:100])
	suite.Require().NoError(err)

	result, err := a.Recompute(suite.bars)

	suite.Require().NoError(err)
	suite.True(result.FullRecompute)
	suite.Equal(len(suite.bars), result.AppliedBars)
	suite.Equal(int64(2), result.Version)
	suite.requireSameStructure(expected, a.Model())
}

func (suite *AnalyzerV1TestSuite) TestRecomputeWithShorterHistory() {
	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	_, err = a.Recompute(suite.bars[:200])

	suite.Require().NoError(err)
	suite.requireSameStructure(suite.full(suite.bars[:200]), a.Model())
}

func (suite *AnalyzerV1TestSuite) TestCallbacks() {
	a := suite.newAnalyzer(TestConfig())

	var updates []types.UpdateResult

	var recomputes int

	reported := map[int]types.Line{}

	onUpdate := analyzer.OnUpdateCallback(func(result types.UpdateResult) error {
		updates = append(updates, result)

		return nil
	})
	onRecompute := analyzer.OnRecomputeCallback(func(types.UpdateResult) error {
		recomputes++

		return nil
	})
	onStroke := analyzer.OnStrokeFinalizedCallback(func(stroke types.Line) error {
		suite.True(stroke.Done)
		reported[stroke.Index] = stroke

		return nil
	})

	a.SetCallbacks(analyzer.Callbacks{
		OnUpdate:          &onUpdate,
		OnRecompute:       &onRecompute,
		OnStrokeFinalized: &onStroke,
	})

	for i := 0; i < len(suite.bars); i += 20 {
		_, err := a.Update(suite.bars[i:min(i+20, len(suite.bars))])
		suite.Require().NoError(err)
	}

	suite.Len(updates, len(suite.bars)/20)
	suite.Zero(recomputes)

	for _, stroke := range a.Strokes() {
		if !stroke.Done {
			continue
		}

		suite.Require().Contains(reported, stroke.Index)
		suite.Equal(stroke.Bare(), reported[stroke.Index])
	}

	_, err := a.Recompute(suite.bars)
	suite.Require().NoError(err)
	suite.Equal(1, recomputes)
}

func (suite *AnalyzerV1TestSuite) TestCallbackErrorIsReported() {
	a := suite.newAnalyzer(TestConfig())

	onUpdate := analyzer.OnUpdateCallback(func(types.UpdateResult) error {
		return errors.New(errors.ErrCodeUnknown, "listener failed")
	})
	a.SetCallbacks(analyzer.Callbacks{OnUpdate: &onUpdate})

	result, err := a.Update(suite.bars)

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeCallbackFailed))
	suite.Equal(int64(1), result.Version)
	suite.Equal(int64(1), a.Model().Version)
}

func (suite *AnalyzerV1TestSuite) TestSegmentBuilderInjection() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	strokes := a.Strokes()
	segment := types.NewLine(types.LineKindSegment, 0, strokes[0].Start, strokes[2].End)
	segment.StartLine, segment.EndLine = 0, 2

	builder := mocks.NewMockBuilder(ctrl)
	builder.EXPECT().Build(gomock.Any()).Return([]types.Line{segment}).MinTimes(1)

	suite.Require().NoError(a.SetSegmentBuilder(builder))

	suite.Equal([]types.Line{segment}, a.Segments())
	suite.Empty(a.Pivots(types.LineKindSegment, types.PivotTypeStandard))
	suite.Equal(int64(2), a.Model().Version)

	suite.True(errors.HasCode(a.SetSegmentBuilder(nil), errors.ErrCodeMissingParameter))
}

func (suite *AnalyzerV1TestSuite) TestHiddenPendingPivot() {
	config := TestConfig()
	config.ExposePendingPivot = false
	config.StrokePivotTypes = []types.PivotType{types.PivotTypeStandard, types.PivotTypeSegmentInner}

	a := suite.newAnalyzer(config)
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	for _, pivotType := range config.StrokePivotTypes {
		for _, p := range a.Pivots(types.LineKindStroke, pivotType) {
			suite.True(p.Done)
		}

		suite.True(a.PendingPivot(types.LineKindStroke, pivotType).IsNone())
	}
}

func (suite *AnalyzerV1TestSuite) TestSegmentInnerPivotsStayInsideSegments() {
	config := TestConfig()
	config.StrokePivotTypes = []types.PivotType{types.PivotTypeSegmentInner}

	a := suite.newAnalyzer(config)
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	suite.Nil(a.Pivots(types.LineKindStroke, types.PivotTypeStandard))

	for _, p := range a.Pivots(types.LineKindStroke, types.PivotTypeSegmentInner) {
		suite.Equal(types.PivotTypeSegmentInner, p.Type)

		inside := false

		for _, s := range a.Segments() {
			if p.Entry.Index >= s.StartLine && p.LastLineIndex() <= s.EndLine {
				inside = true
			}
		}

		suite.True(inside)
	}
}

func (suite *AnalyzerV1TestSuite) TestSignalsMatchLineAnnotations() {
	a := suite.newAnalyzer(TestConfig())
	_, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	count := 0

	for _, kind := range []types.LineKind{types.LineKindStroke, types.LineKindSegment} {
		for _, l := range a.Model().Lines(kind) {
			count += len(l.Labels) + len(l.Divergences)
		}
	}

	suite.Len(a.Signals(), count)

	for _, s := range a.Signals() {
		line := a.Model().Lines(s.LineKind)[s.LineIndex]
		suite.Equal(line.End.Value, s.Price)
		suite.Equal("TEST", s.Symbol)
	}
}

func (suite *AnalyzerV1TestSuite) TestConcurrentReads() {
	a := suite.newAnalyzer(TestConfig())

	var wg sync.WaitGroup

	done := make(chan struct{})

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-done:
					return
				default:
				}

				model := a.Model()
				for _, p := range model.StrokePivots[types.PivotTypeStandard] {
					_ = p.ZG
				}

				_ = len(a.Strokes())
			}
		}()
	}

	for i := 0; i < len(suite.bars); i += 50 {
		_, err := a.Update(suite.bars[i:min(i+50, len(suite.bars))])
		suite.Require().NoError(err)
	}

	close(done)
	wg.Wait()

	suite.Len(a.Bars(), len(suite.bars))
}
