// Package containment resolves containment between adjacent bars.
package containment

import (
	"slices"

	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
)

// Merger turns raw bars into analysis bars free of containment.
type Merger struct {
	bars []types.AnalysisBar
}

func NewMerger() *Merger {
	return &Merger{}
}

// NewMergerFromBars resumes a merger from previously produced analysis bars.
func NewMergerFromBars(bars []types.AnalysisBar) *Merger {
	return &Merger{bars: cloneBars(bars)}
}

// Merge computes the analysis bars of a complete bar history.
func Merge(bars []types.Bar) []types.AnalysisBar {
	m := NewMerger()
	for _, b := range bars {
		m.process(b)
	}

	return m.AnalysisBars()
}

// Len returns the number of analysis bars.
func (m *Merger) Len() int {
	return len(m.bars)
}

// AnalysisBars returns a copy of the merged sequence.
func (m *Merger) AnalysisBars() []types.AnalysisBar {
	return cloneBars(m.bars)
}

// Reset drops all merged state.
func (m *Merger) Reset() {
	m.bars = nil
}

// Update feeds new or revised bars and returns the index of the first
// analysis bar that changed, or -1 if none did. A bar that revises anything
// older than the most recent constituent cannot be replayed and yields
// ErrCodeHistoryUnavailable; the merger is left untouched in that case.
func (m *Merger) Update(bars []types.Bar) (int, error) {
	if err := m.check(bars); err != nil {
		return -1, err
	}

	first := -1
	mark := func(index int) {
		if first == -1 || index < first {
			first = index
		}
	}

	for _, b := range bars {
		if n := len(m.bars); n > 0 && b.Index == m.bars[n-1].LastBarIndex() {
			mark(n - 1)
			mark(m.revise(b))

			continue
		}

		mark(m.process(b))
	}

	return first, nil
}

func (m *Merger) check(bars []types.Bar) error {
	if len(m.bars) == 0 || len(bars) == 0 {
		return nil
	}

	lastIndex := m.bars[len(m.bars)-1].LastBarIndex()
	if bars[0].Index < lastIndex {
		return errors.Newf(errors.ErrCodeHistoryUnavailable, "revision older than merged tail: bar %d", bars[0].Index)
	}

	if bars[0].Index > lastIndex+1 {
		return errors.Newf(errors.ErrCodeHistoryUnavailable, "bar %d skips merged tail at %d", bars[0].Index, lastIndex)
	}

	return nil
}

// revise pops the last analysis bar, replays its older constituents and
// then processes the corrected bar.
func (m *Merger) revise(b types.Bar) int {
	last := m.bars[len(m.bars)-1]
	m.bars = m.bars[:len(m.bars)-1]

	for _, constituent := range last.Bars {
		if constituent.Index < b.Index {
			m.process(constituent)
		}
	}

	return m.process(b)
}

// process adds one bar and returns the index of the analysis bar it landed in.
func (m *Merger) process(b types.Bar) int {
	n := len(m.bars)
	if n == 0 {
		m.bars = append(m.bars, newAnalysisBar(0, b))

		return 0
	}

	prev := &m.bars[n-1]

	if !prev.Overlaps(b.High, b.Low) {
		ab := newAnalysisBar(n, b)
		ab.Gap = true
		m.bars = append(m.bars, ab)

		return n
	}

	if !prev.Contains(b.High, b.Low) {
		m.bars = append(m.bars, newAnalysisBar(n, b))

		return n
	}

	direction := prev.Direction
	// Without two prior bars there is nothing to infer from: the merge stays
	// a none-direction union of both ranges.
	if direction == types.DirectionNone && n >= 2 {
		direction = inferDirection(m.bars[n-2], *prev)
	}

	mergeInto(prev, b, direction)

	return n - 1
}

func newAnalysisBar(index int, b types.Bar) types.AnalysisBar {
	return types.AnalysisBar{
		Index:     index,
		StartTime: b.Time,
		EndTime:   b.Time,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		Bars:      []types.Bar{b},
		Direction: types.DirectionNone,
	}
}

// inferDirection compares the two most recent analysis bars.
func inferDirection(earlier, later types.AnalysisBar) types.Direction {
	switch {
	case earlier.High > later.High:
		return types.DirectionDown
	case earlier.High < later.High:
		return types.DirectionUp
	case earlier.Low > later.Low:
		return types.DirectionDown
	default:
		return types.DirectionUp
	}
}

func mergeInto(ab *types.AnalysisBar, b types.Bar, direction types.Direction) {
	switch direction {
	case types.DirectionUp:
		ab.High = max(ab.High, b.High)
		ab.Low = max(ab.Low, b.Low)
	case types.DirectionDown:
		ab.High = min(ab.High, b.High)
		ab.Low = min(ab.Low, b.Low)
	default:
		ab.High = max(ab.High, b.High)
		ab.Low = min(ab.Low, b.Low)
	}

	ab.Direction = direction
	ab.EndTime = b.Time
	ab.Close = b.Close
	ab.Volume += b.Volume
	ab.Bars = append(ab.Bars, b)
}

func cloneBars(bars []types.AnalysisBar) []types.AnalysisBar {
	out := make([]types.AnalysisBar, len(bars))
	for i, ab := range bars {
		ab.Bars = slices.Clone(ab.Bars)
		out[i] = ab
	}

	return out
}
