// Package signal labels lines with buy/sell points and momentum divergences.
package signal

import (
	"fmt"
	"slices"

	"github.com/rxtech-lab/argo-structure/internal/types"
)

// Config controls the classifier.
type Config struct {
	// TrendBand selects which pivot bands must separate two pivots for a trend.
	TrendBand types.BandComparison
}

func DefaultConfig() Config {
	return Config{TrendBand: types.BandComparisonZGZD}
}

type Classifier struct {
	config Config
}

func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// Classify returns copies of the lines carrying their labels and divergence
// flags. Pivot types are visited in a fixed order so that the annotations of
// a line are deterministic.
func (c *Classifier) Classify(lines []types.Line, pivots map[types.PivotType][]types.Pivot, momentum []types.MomentumSnapshot) []types.Line {
	classified := make([]types.Line, len(lines))

	for i, line := range lines {
		line = line.Bare()

		for _, pivotType := range types.AllPivotTypes {
			sequence, ok := pivots[pivotType]
			if !ok {
				continue
			}

			c.annotate(&line, lines, sequence, momentum)
		}

		classified[i] = line
	}

	return classified
}

func (c *Classifier) annotate(line *types.Line, lines []types.Line, pivots []types.Pivot, momentum []types.MomentumSnapshot) {
	k := locate(pivots, line.Index)
	if k < 0 {
		return
	}

	pivot := pivots[k]
	line.Labels = append(line.Labels, label(*line, pivot))

	strength := Strength(*line, momentum)

	if prior, ok := priorInPivot(*line, pivot); ok {
		compare := Strength(prior, momentum)
		if strength < compare {
			line.Divergences = append(line.Divergences, types.DivergenceFlag{
				Type:             types.SignalTypePlainDivergence,
				PivotType:        pivot.Type,
				PivotIndex:       pivot.Index,
				CompareLineIndex: prior.Index,
				Strength:         strength,
				CompareStrength:  compare,
				Reason: fmt.Sprintf("%s %d momentum %.4f weaker than %s %d momentum %.4f inside %s pivot %d",
					line.Kind, line.Index, strength, prior.Kind, prior.Index, compare, pivot.Type, pivot.Index),
			})
		}
	}

	if k == 0 {
		return
	}

	older := pivots[k-1]
	if c.trend(older, pivot) != line.Direction {
		return
	}

	prior, ok := lastBefore(lines, older.FirstLineIndex(), line.Direction)
	if !ok {
		return
	}

	compare := Strength(prior, momentum)
	if strength < compare {
		line.Divergences = append(line.Divergences, types.DivergenceFlag{
			Type:             types.SignalTypeTrendDivergence,
			PivotType:        pivot.Type,
			PivotIndex:       pivot.Index,
			CompareLineIndex: prior.Index,
			Strength:         strength,
			CompareStrength:  compare,
			Reason: fmt.Sprintf("%s %d momentum %.4f weaker than %s %d momentum %.4f before %s pivot %d",
				line.Kind, line.Index, strength, prior.Kind, prior.Index, compare, older.Type, older.Index),
		})
	}
}

// locate returns the most recent pivot whose first core line is at or
// before index, or -1.
func locate(pivots []types.Pivot, index int) int {
	for k := len(pivots) - 1; k >= 0; k-- {
		if pivots[k].FirstLineIndex() <= index {
			return k
		}
	}

	return -1
}

func label(line types.Line, pivot types.Pivot) types.BuySellLabel {
	end := line.End.Value

	var signalType types.SignalType

	var relation string

	switch {
	case line.Direction == types.DirectionDown && end < pivot.ZD:
		signalType, relation = types.SignalTypeThirdBuy, fmt.Sprintf("below zd %.4f", pivot.ZD)
	case line.Direction == types.DirectionDown && end > pivot.ZG:
		signalType, relation = types.SignalTypeFirstBuy, fmt.Sprintf("above zg %.4f", pivot.ZG)
	case line.Direction == types.DirectionDown:
		signalType, relation = types.SignalTypeSecondBuy, fmt.Sprintf("inside [%.4f, %.4f]", pivot.ZD, pivot.ZG)
	case end > pivot.ZG:
		signalType, relation = types.SignalTypeThirdSell, fmt.Sprintf("above zg %.4f", pivot.ZG)
	case end < pivot.ZD:
		signalType, relation = types.SignalTypeFirstSell, fmt.Sprintf("below zd %.4f", pivot.ZD)
	default:
		signalType, relation = types.SignalTypeSecondSell, fmt.Sprintf("inside [%.4f, %.4f]", pivot.ZD, pivot.ZG)
	}

	return types.BuySellLabel{
		Type:       signalType,
		PivotType:  pivot.Type,
		PivotIndex: pivot.Index,
		PivotLevel: pivot.Level,
		Reason: fmt.Sprintf("%s %s %d ends at %.4f %s of %s pivot %d",
			line.Direction, line.Kind, line.Index, end, relation, pivot.Type, pivot.Index),
	}
}

// priorInPivot finds the latest earlier line of the same direction among the
// pivot's entry and core lines.
func priorInPivot(line types.Line, pivot types.Pivot) (types.Line, bool) {
	members := append([]types.Line{pivot.Entry}, pivot.Lines...)

	for i := len(members) - 1; i >= 0; i-- {
		if members[i].Index < line.Index && members[i].Direction == line.Direction {
			return members[i], true
		}
	}

	return types.Line{}, false
}

// lastBefore finds the latest line of the direction with an index below before.
func lastBefore(lines []types.Line, before int, direction types.Direction) (types.Line, bool) {
	i := slices.IndexFunc(lines, func(l types.Line) bool { return l.Index >= before })
	if i < 0 {
		i = len(lines)
	}

	for i--; i >= 0; i-- {
		if lines[i].Direction == direction {
			return lines[i], true
		}
	}

	return types.Line{}, false
}

// trend reports the direction in which newer moved away from older under the
// configured band comparison, or DirectionNone when the bands still overlap.
func (c *Classifier) trend(older, newer types.Pivot) types.Direction {
	switch c.config.TrendBand {
	case types.BandComparisonZGDD:
		if newer.DD > older.ZG {
			return types.DirectionUp
		}

		if newer.GG < older.ZD {
			return types.DirectionDown
		}
	case types.BandComparisonGGDD:
		if newer.DD > older.GG {
			return types.DirectionUp
		}

		if newer.GG < older.DD {
			return types.DirectionDown
		}
	default:
		if newer.ZD > older.ZG {
			return types.DirectionUp
		}

		if newer.ZG < older.ZD {
			return types.DirectionDown
		}
	}

	return types.DirectionNone
}

// Strength is the momentum of a line: the largest positive impulse area over
// its analysis bars for up lines, the magnitude of the most negative one for
// down lines.
func Strength(line types.Line, momentum []types.MomentumSnapshot) float64 {
	from := max(line.Start.Index, 0)
	to := min(line.End.Index, len(momentum)-1)

	best := 0.0

	for i := from; i <= to; i++ {
		area := momentum[i].ImpulseArea
		if line.Direction == types.DirectionDown {
			area = -area
		}

		best = max(best, area)
	}

	return best
}
