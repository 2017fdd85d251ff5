package types

import "github.com/moznion/go-optional"

// Model is the published read-only view of one analysis context.
// A published Model is never mutated; updates publish a new one.
type Model struct {
	Symbol       string             `json:"symbol"`
	Period       string             `json:"period"`
	Version      int64              `json:"version"`
	Bars         []Bar              `json:"bars"`
	AnalysisBars []AnalysisBar      `json:"analysis_bars"`
	Fractals     []Fractal          `json:"fractals"`
	Strokes      []Line             `json:"strokes"`
	Segments     []Line             `json:"segments"`
	Momentum     []MomentumSnapshot `json:"momentum"`
	Signals      []Signal           `json:"signals"`
	// StrokePivots and SegmentPivots hold finalized pivots per pivot type,
	// followed by the pending pivot when it is exposed.
	StrokePivots  map[PivotType][]Pivot `json:"stroke_pivots"`
	SegmentPivots map[PivotType][]Pivot `json:"segment_pivots"`
}

// Lines returns the line sequence of the given kind.
func (m *Model) Lines(kind LineKind) []Line {
	if kind == LineKindSegment {
		return m.Segments
	}

	return m.Strokes
}

// Pivots returns the pivots built over the given line kind with the given type.
func (m *Model) Pivots(kind LineKind, pivotType PivotType) []Pivot {
	if kind == LineKindSegment {
		return m.SegmentPivots[pivotType]
	}

	return m.StrokePivots[pivotType]
}

// PendingPivot returns the trailing pivot of the sequence if it is not done.
func (m *Model) PendingPivot(kind LineKind, pivotType PivotType) optional.Option[Pivot] {
	pivots := m.Pivots(kind, pivotType)
	if len(pivots) == 0 || pivots[len(pivots)-1].Done {
		return optional.None[Pivot]()
	}

	return optional.Some(pivots[len(pivots)-1])
}

// UpdateResult describes what a single update call changed.
type UpdateResult struct {
	// Noop is set when the batch left the model untouched.
	Noop bool `json:"noop"`
	// FirstBarIndex is the first raw bar index written by the update.
	FirstBarIndex int `json:"first_bar_index"`
	// AppliedBars is the number of bars appended or replaced.
	AppliedBars int  `json:"applied_bars"`
	Revised     bool `json:"revised"`
	// FirstAnalysisBarIndex is the first merged bar that changed.
	FirstAnalysisBarIndex int `json:"first_analysis_bar_index"`
	// FullRecompute is set when incremental replay was not possible.
	FullRecompute bool  `json:"full_recompute"`
	Version       int64 `json:"version"`
}
