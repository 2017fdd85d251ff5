// Package stroke connects alternating fractals into directional strokes.
package stroke

import (
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/types"
)

const (
	minSeparation        = 4
	minRelaxedSeparation = 3
)

// Config selects the validity rules of a stroke.
type Config struct {
	Validity   types.FractalValidity
	Separation types.StrokeSeparation
}

// DefaultConfig returns the standard rule set.
func DefaultConfig() Config {
	return Config{
		Validity:   types.FractalValidityExtremum,
		Separation: types.StrokeSeparationStandard,
	}
}

// Checkpoint is the builder state right after one fractal was consumed.
type Checkpoint struct {
	Finalized int                         `json:"finalized"`
	Pending   optional.Option[types.Line] `json:"pending"`
}

// State is the serializable form of a Builder.
type State struct {
	Fractals    []types.Fractal             `json:"fractals"`
	Finalized   []types.Line                `json:"finalized"`
	Pending     optional.Option[types.Line] `json:"pending"`
	Checkpoints []Checkpoint                `json:"checkpoints"`
}

// Result describes the effect of one Update call.
type Result struct {
	// FirstChanged is the first stroke index that differs from the previous
	// output, or -1 when the output did not change.
	FirstChanged int
	// Finalized are the strokes that became final during this update.
	Finalized []types.Line
}

// Builder keeps finalized strokes plus at most one pending stroke. Every
// consumed fractal records a checkpoint so that a changed fractal tail is
// handled by restoring a checkpoint and replaying, which yields the same
// output as building from scratch.
type Builder struct {
	config      Config
	fractals    []types.Fractal
	finalized   []types.Line
	pending     optional.Option[types.Line]
	checkpoints []Checkpoint
}

func NewBuilder(config Config) *Builder {
	return &Builder{config: config}
}

// NewBuilderFromState resumes a builder from an exported state.
func NewBuilderFromState(config Config, state State) *Builder {
	return &Builder{
		config:      config,
		fractals:    slices.Clone(state.Fractals),
		finalized:   slices.Clone(state.Finalized),
		pending:     state.Pending,
		checkpoints: slices.Clone(state.Checkpoints),
	}
}

// Build computes the strokes of a complete fractal sequence.
func Build(config Config, fractals []types.Fractal) []types.Line {
	b := NewBuilder(config)
	b.Update(fractals)

	return b.Strokes()
}

// State exports the builder for a snapshot.
func (b *Builder) State() State {
	return State{
		Fractals:    slices.Clone(b.fractals),
		Finalized:   slices.Clone(b.finalized),
		Pending:     b.pending,
		Checkpoints: slices.Clone(b.checkpoints),
	}
}

// Strokes returns the finalized strokes followed by the pending one, if any.
func (b *Builder) Strokes() []types.Line {
	strokes := make([]types.Line, 0, len(b.finalized)+1)
	strokes = append(strokes, b.finalized...)

	if b.pending.IsSome() {
		strokes = append(strokes, b.pending.Unwrap())
	}

	return strokes
}

// Pending returns the stroke that is still building.
func (b *Builder) Pending() optional.Option[types.Line] {
	return b.pending
}

// Update brings the builder in line with the current fractal sequence.
func (b *Builder) Update(fractals []types.Fractal) Result {
	before := b.Strokes()
	finalizedBefore := len(b.finalized)

	from := b.rollbackPoint(fractals)
	b.restore(from)
	kept := len(b.finalized)

	for _, f := range fractals[from:] {
		b.consume(f)
	}

	for kept < len(b.finalized) && kept < finalizedBefore && sameLine(b.finalized[kept], before[kept]) {
		kept++
	}

	result := Result{
		FirstChanged: firstDifference(before, b.Strokes()),
		Finalized:    slices.Clone(b.finalized[kept:]),
	}

	return result
}

// rollbackPoint returns the position in the fractal sequence to replay from:
// the first changed fractal, or the anchor the open stroke hangs on.
func (b *Builder) rollbackPoint(fractals []types.Fractal) int {
	common := 0
	for common < len(b.fractals) && common < len(fractals) && sameFractal(b.fractals[common], fractals[common]) {
		common++
	}

	anchor := len(b.fractals)

	switch {
	case b.pending.IsSome():
		anchor = b.positionOf(b.pending.Unwrap().Start)
	case len(b.finalized) > 0:
		anchor = b.positionOf(b.finalized[len(b.finalized)-1].End)
	}

	return max(0, min(common, anchor))
}

func (b *Builder) positionOf(f types.Fractal) int {
	for i := len(b.fractals) - 1; i >= 0; i-- {
		if sameFractal(b.fractals[i], f) {
			return i
		}
	}

	return 0
}

// restore truncates the state to what it was after consuming from fractals.
func (b *Builder) restore(from int) {
	b.fractals = b.fractals[:from]
	b.checkpoints = b.checkpoints[:from]

	if from == 0 {
		b.finalized = b.finalized[:0]
		b.pending = optional.None[types.Line]()

		return
	}

	cp := b.checkpoints[from-1]
	b.finalized = b.finalized[:cp.Finalized]
	b.pending = cp.Pending
}

func (b *Builder) consume(f types.Fractal) {
	previous := optional.None[types.Fractal]()
	if len(b.fractals) > 0 {
		previous = optional.Some(b.fractals[len(b.fractals)-1])
	}

	b.fractals = append(b.fractals, f)
	b.step(previous, f)
	b.checkpoints = append(b.checkpoints, Checkpoint{Finalized: len(b.finalized), Pending: b.pending})
}

func (b *Builder) step(previous optional.Option[types.Fractal], f types.Fractal) {
	if b.pending.IsNone() {
		start := previous
		if len(b.finalized) > 0 {
			start = optional.Some(b.finalized[len(b.finalized)-1].End)
		}

		if start.IsSome() && b.valid(start.Unwrap(), f) {
			b.pending = optional.Some(types.NewLine(types.LineKindStroke, len(b.finalized), start.Unwrap(), f))
		}

		return
	}

	pending := b.pending.Unwrap()

	if f.Type == pending.End.Type {
		if f.Beyond(pending.End) {
			pending.End = f
			pending.Resize()
			b.pending = optional.Some(pending)
		}

		return
	}

	if !b.valid(pending.End, f) {
		return
	}

	pending.Done = true
	b.finalized = append(b.finalized, pending)
	b.pending = optional.Some(types.NewLine(types.LineKindStroke, len(b.finalized), pending.End, f))
}

// valid reports whether a stroke may run from start to end.
func (b *Builder) valid(start, end types.Fractal) bool {
	if start.Type == end.Type {
		return false
	}

	return b.separated(start, end) && b.ordered(start, end)
}

func (b *Builder) separated(start, end types.Fractal) bool {
	distance := end.Index - start.Index

	if b.config.Separation == types.StrokeSeparationRelaxed {
		return distance >= minRelaxedSeparation && end.BarIndex-start.BarIndex >= minSeparation
	}

	return distance >= minSeparation
}

func (b *Builder) ordered(start, end types.Fractal) bool {
	up := start.Type == types.FractalTypeBottom

	switch b.config.Validity {
	case types.FractalValidityWindow:
		if up {
			return end.Value > start.High && start.Value < end.Low
		}

		return end.Value < start.Low && start.Value > end.High
	case types.FractalValidityRange:
		if up {
			return end.Low > start.High
		}

		return end.High < start.Low
	default:
		if up {
			return end.Value > start.Value
		}

		return end.Value < start.Value
	}
}

func sameFractal(a, b types.Fractal) bool {
	return a.Type == b.Type && a.Index == b.Index && a.BarIndex == b.BarIndex &&
		a.Time.Equal(b.Time) && a.Value == b.Value && a.High == b.High &&
		a.Low == b.Low && a.Window == b.Window && a.Confirmed == b.Confirmed
}

func sameLine(a, b types.Line) bool {
	return a.Index == b.Index && a.Done == b.Done && a.Direction == b.Direction &&
		sameFractal(a.Start, b.Start) && sameFractal(a.End, b.End)
}

func firstDifference(before, after []types.Line) int {
	for i := 0; i < len(before) && i < len(after); i++ {
		if !sameLine(before[i], after[i]) {
			return i
		}
	}

	if len(before) == len(after) {
		return -1
	}

	return min(len(before), len(after))
}
