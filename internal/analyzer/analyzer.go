// Package analyzer defines the analysis context that owns the structure
// pipeline of one instrument and period.
package analyzer

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/segment"
	"github.com/rxtech-lab/argo-structure/internal/types"
)

// Lifecycle callback types.
// Callbacks run after the new model is published and outside the lock, so
// they may read from the analyzer. A returned error is reported to the caller
// of the update but does not roll the model back.

// OnUpdateCallback is called after every Update that changed the model.
type OnUpdateCallback func(result types.UpdateResult) error

// OnRecomputeCallback is called after an explicit Recompute.
type OnRecomputeCallback func(result types.UpdateResult) error

// OnStrokeFinalizedCallback is called once for every stroke that became final.
type OnStrokeFinalizedCallback func(stroke types.Line) error

// Callbacks holds the lifecycle callbacks.
// All fields are pointers - nil means no callback will be invoked.
type Callbacks struct {
	OnUpdate          *OnUpdateCallback
	OnRecompute       *OnRecomputeCallback
	OnStrokeFinalized *OnStrokeFinalizedCallback
}

//nolint:interfacebloat // Analyzer exposes the full read contract
type Analyzer interface {
	// Update applies an incremental or overlapping batch of bars.
	// Stale bars are ignored and a bar with the latest timestamp revises it.
	Update(bars []types.Bar) (types.UpdateResult, error)
	// Recompute discards all derived state and rebuilds it from the given history.
	Recompute(bars []types.Bar) (types.UpdateResult, error)

	// Model returns the last published model. It must not be modified.
	Model() *types.Model
	Bars() []types.Bar
	AnalysisBars() []types.AnalysisBar
	Fractals() []types.Fractal
	Strokes() []types.Line
	Segments() []types.Line
	Pivots(kind types.LineKind, pivotType types.PivotType) []types.Pivot
	PendingPivot(kind types.LineKind, pivotType types.PivotType) optional.Option[types.Pivot]
	Momentum() []types.MomentumSnapshot
	Signals() []types.Signal

	// ExportState serializes the internal state so that it can be resumed later.
	ExportState() ([]byte, error)
	// RestoreState replaces the internal state with a previously exported one.
	RestoreState(data []byte) error

	// SetSegmentBuilder replaces the segment builder and republishes the model.
	SetSegmentBuilder(builder segment.Builder) error
	SetCallbacks(callbacks Callbacks)

	// GetConfigSchema returns the JSON schema of the configuration.
	GetConfigSchema() (string, error)
}
