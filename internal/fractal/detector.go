// Package fractal finds alternating turning points over analysis bars.
package fractal

import "github.com/rxtech-lab/argo-structure/internal/types"

// conflictDistance is the largest anchor distance at which two candidates
// share a bar of their windows.
const conflictDistance = 2

// Detect scans the analysis bars with a 3-bar window and returns strictly
// alternating fractals. The last fractal is unconfirmed while its window
// still ends at the last analysis bar.
func Detect(bars []types.AnalysisBar) []types.Fractal {
	if len(bars) < 3 {
		return nil
	}

	var fractals []types.Fractal

	for i := 1; i < len(bars)-1; i++ {
		candidate, ok := candidateAt(bars, i)
		if !ok {
			continue
		}

		fractals = accept(fractals, candidate)
	}

	return fractals
}

func candidateAt(bars []types.AnalysisBar, i int) (types.Fractal, bool) {
	left, center, right := bars[i-1], bars[i], bars[i+1]

	var fractalType types.FractalType

	switch {
	case center.High > left.High && center.High > right.High &&
		center.Low > left.Low && center.Low > right.Low:
		fractalType = types.FractalTypeTop
	case center.Low < left.Low && center.Low < right.Low &&
		center.High < left.High && center.High < right.High:
		fractalType = types.FractalTypeBottom
	default:
		return types.Fractal{}, false
	}

	f := types.Fractal{
		Type:      fractalType,
		Index:     center.Index,
		High:      max(left.High, center.High, right.High),
		Low:       min(left.Low, center.Low, right.Low),
		Window:    [3]int{left.Index, center.Index, right.Index},
		Confirmed: i+1 < len(bars)-1,
	}

	f.Value = center.Low
	if fractalType == types.FractalTypeTop {
		f.Value = center.High
	}

	raw := extremumBar(center, fractalType)
	f.BarIndex = raw.Index
	f.Time = raw.Time

	return f, true
}

// extremumBar returns the first constituent holding the analysis bar's extreme.
func extremumBar(ab types.AnalysisBar, fractalType types.FractalType) types.Bar {
	for _, b := range ab.Bars {
		if fractalType == types.FractalTypeTop && b.High == ab.High {
			return b
		}

		if fractalType == types.FractalTypeBottom && b.Low == ab.Low {
			return b
		}
	}

	return ab.Bars[len(ab.Bars)-1]
}

// accept applies the conflict table to a new candidate:
//
//	same type as last          more extreme replaces last, otherwise ignored
//	opposite type, far         appended
//	opposite type, overlapping beyond the previous same-type fractal: drops
//	                           the last one and replaces the previous one,
//	                           otherwise ignored
func accept(fractals []types.Fractal, candidate types.Fractal) []types.Fractal {
	n := len(fractals)
	if n == 0 {
		return append(fractals, candidate)
	}

	last := fractals[n-1]

	if last.Type == candidate.Type {
		if candidate.Beyond(last) {
			fractals[n-1] = candidate
		}

		return fractals
	}

	if candidate.Index-last.Index > conflictDistance {
		return append(fractals, candidate)
	}

	if n >= 2 && candidate.Beyond(fractals[n-2]) {
		fractals = fractals[:n-1]
		fractals[n-2] = candidate
	}

	return fractals
}
