package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// FractalType distinguishes local tops from local bottoms.
type FractalType string

const (
	FractalTypeTop    FractalType = "top"
	FractalTypeBottom FractalType = "bottom"
)

// Fractal is a 3-bar local extremum over analysis bars.
type Fractal struct {
	Type FractalType `json:"type"`
	// Index is the anchor (center) analysis bar index.
	Index int `json:"index"`
	// BarIndex is the raw bar inside the anchor that holds the extremum.
	BarIndex int       `json:"bar_index"`
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	// High and Low are the extremes over the whole 3-bar window.
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Window    [3]int  `json:"window"`
	Confirmed bool    `json:"confirmed"`
}

// Beyond reports whether f is strictly more extreme than other in f's own
// direction: a higher top or a lower bottom.
func (f Fractal) Beyond(other Fractal) bool {
	if f.Type == FractalTypeTop {
		return f.Value > other.Value
	}

	return f.Value < other.Value
}

// LineKind tells strokes and segments apart.
type LineKind string

const (
	LineKindStroke  LineKind = "stroke"
	LineKindSegment LineKind = "segment"
)

// Line is the shared shape of strokes and segments.
type Line struct {
	Kind      LineKind  `json:"kind"`
	Index     int       `json:"index"`
	Start     Fractal   `json:"start"`
	End       Fractal   `json:"end"`
	Direction Direction `json:"direction"`
	Done      bool      `json:"done"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	// StartLine and EndLine are the child stroke indices of a segment; -1 for strokes.
	StartLine   int              `json:"start_line"`
	EndLine     int              `json:"end_line"`
	Labels      []BuySellLabel   `json:"labels,omitempty"`
	Divergences []DivergenceFlag `json:"divergences,omitempty"`
}

// NewLine connects two fractals. The direction and range follow from the anchors.
func NewLine(kind LineKind, index int, start, end Fractal) Line {
	line := Line{
		Kind:      kind,
		Index:     index,
		Start:     start,
		End:       end,
		Direction: DirectionUp,
		StartLine: -1,
		EndLine:   -1,
	}
	line.Resize()

	if start.Type == FractalTypeTop {
		line.Direction = DirectionDown
	}

	return line
}

// Resize recomputes High/Low from the anchors.
func (l *Line) Resize() {
	l.High = max(l.Start.Value, l.End.Value)
	l.Low = min(l.Start.Value, l.End.Value)
}

// Intersects reports whether the line's range touches the band [zd, zg].
func (l Line) Intersects(zd, zg float64) bool {
	return l.High >= zd && l.Low <= zg
}

// Bare returns a copy without classifier annotations.
func (l Line) Bare() Line {
	l.Labels = nil
	l.Divergences = nil

	return l
}

// PivotType selects the pivot construction rule.
type PivotType string

const (
	// PivotTypeStandard scans the whole line sequence.
	PivotTypeStandard PivotType = "standard"
	// PivotTypeSegmentInner scans the strokes of each segment separately.
	PivotTypeSegmentInner PivotType = "segment_inner"
)

// AllPivotTypes lists every supported pivot type.
var AllPivotTypes = []PivotType{PivotTypeStandard, PivotTypeSegmentInner}

// Pivot is a bounded consolidation zone over at least three core lines.
type Pivot struct {
	Type     PivotType `json:"type"`
	LineKind LineKind  `json:"line_kind"`
	Level    int       `json:"level"`
	Index    int       `json:"index"`
	ZG       float64   `json:"zg"`
	ZD       float64   `json:"zd"`
	GG       float64   `json:"gg"`
	DD       float64   `json:"dd"`
	Entry    Line      `json:"entry"`
	// Lines are the core member lines, in order.
	Lines []Line                `json:"lines"`
	Exit  optional.Option[Line] `json:"exit"`
	Done  bool                  `json:"done"`
}

// FirstLineIndex returns the index of the first core line.
func (p Pivot) FirstLineIndex() int {
	return p.Lines[0].Index
}

// LastLineIndex returns the index of the last core line.
func (p Pivot) LastLineIndex() int {
	return p.Lines[len(p.Lines)-1].Index
}

// Contains reports whether the line with the given index is the entry or a core line.
func (p Pivot) Contains(index int) bool {
	return index == p.Entry.Index || (index >= p.FirstLineIndex() && index <= p.LastLineIndex())
}

// FractalValidity selects how strictly a stroke's end fractal must clear its start.
type FractalValidity string

const (
	// FractalValidityExtremum compares the two extremum values only.
	FractalValidityExtremum FractalValidity = "extremum"
	// FractalValidityWindow also requires clearing the opposite window's extreme.
	FractalValidityWindow FractalValidity = "window"
	// FractalValidityRange requires the two 3-bar windows not to overlap.
	FractalValidityRange FractalValidity = "range"
)

// StrokeSeparation selects the minimum distance between stroke anchors.
type StrokeSeparation string

const (
	// StrokeSeparationStandard needs 4 analysis bars between anchors.
	StrokeSeparationStandard StrokeSeparation = "standard"
	// StrokeSeparationRelaxed needs 3 analysis bars and 4 raw bars.
	StrokeSeparationRelaxed StrokeSeparation = "relaxed"
)

// BandComparison selects which pivot bands decide a trend between two pivots.
type BandComparison string

const (
	BandComparisonZGZD BandComparison = "zg_zd"
	BandComparisonZGDD BandComparison = "zg_dd"
	BandComparisonGGDD BandComparison = "gg_dd"
)
