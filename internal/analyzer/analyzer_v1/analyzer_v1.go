package analyzer

import (
	"slices"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/analyzer"
	"github.com/rxtech-lab/argo-structure/internal/bar"
	"github.com/rxtech-lab/argo-structure/internal/containment"
	"github.com/rxtech-lab/argo-structure/internal/fractal"
	"github.com/rxtech-lab/argo-structure/internal/indicator"
	"github.com/rxtech-lab/argo-structure/internal/logger"
	"github.com/rxtech-lab/argo-structure/internal/pivot"
	"github.com/rxtech-lab/argo-structure/internal/segment"
	"github.com/rxtech-lab/argo-structure/internal/signal"
	"github.com/rxtech-lab/argo-structure/internal/stroke"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"go.uber.org/zap"
)

// AnalyzerV1 owns the pipeline state of one context. Updates are serialized
// under the write lock; readers only see fully built models.
type AnalyzerV1 struct {
	mu sync.RWMutex

	config            Config
	log               *logger.Logger
	callbacks         analyzer.Callbacks
	indicatorRegistry indicator.IndicatorRegistry
	momentum          indicator.MomentumIndicator
	segmentBuilder    segment.Builder
	classifier        *signal.Classifier

	bars    *bar.Log
	merger  *containment.Merger
	strokes *stroke.Builder

	model *types.Model
}

// NewAnalyzerV1 validates the configuration and creates an empty context.
// A nil logger discards all output.
func NewAnalyzerV1(config Config, log *logger.Logger) (*AnalyzerV1, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	a := &AnalyzerV1{
		config:         config,
		log:            log.Named(config.Symbol, config.Period),
		segmentBuilder: segment.NewFeatureSequenceBuilder(),
	}

	if err := a.initialize(); err != nil {
		return nil, err
	}

	a.log.Debug("Analyzer initialized",
		zap.String("fractal_validity", string(config.FractalValidity)),
		zap.String("stroke_separation", string(config.StrokeSeparation)),
		zap.Bool("expose_pending_pivot", config.ExposePendingPivot),
	)

	return a, nil
}

// initialize creates the components from the current configuration and
// publishes an empty model.
func (a *AnalyzerV1) initialize() error {
	a.indicatorRegistry = indicator.NewIndicatorRegistry()

	macd := indicator.NewMACD()
	if err := macd.Config(a.config.MACDFast, a.config.MACDSlow, a.config.MACDSignal, a.config.MomentumAmplified); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid momentum configuration", err)
	}

	if err := a.indicatorRegistry.RegisterIndicator(macd); err != nil {
		return err
	}

	momentum, err := indicator.GetMomentumIndicator(a.indicatorRegistry, types.IndicatorTypeMACD)
	if err != nil {
		return err
	}

	a.momentum = momentum
	a.classifier = signal.NewClassifier(a.config.signalConfig())
	a.bars = bar.NewLog(a.config.Precision())
	a.merger = containment.NewMerger()
	a.strokes = stroke.NewBuilder(a.config.strokeConfig())
	a.model = a.emptyModel()

	return nil
}

func (a *AnalyzerV1) emptyModel() *types.Model {
	return &types.Model{
		Symbol:        a.config.Symbol,
		Period:        a.config.Period,
		StrokePivots:  map[types.PivotType][]types.Pivot{},
		SegmentPivots: map[types.PivotType][]types.Pivot{},
	}
}

// Update implements analyzer.Analyzer.
func (a *AnalyzerV1) Update(batch []types.Bar) (types.UpdateResult, error) {
	a.mu.Lock()

	delta := a.bars.Apply(batch)
	if delta.Empty() {
		result := types.UpdateResult{
			Noop:                  true,
			FirstBarIndex:         -1,
			FirstAnalysisBarIndex: -1,
			Version:               a.model.Version,
		}
		a.mu.Unlock()

		a.log.Debug("Batch left the model untouched", zap.Int("bars", len(batch)))

		return result, nil
	}

	result := types.UpdateResult{
		FirstBarIndex: delta.FirstIndex,
		AppliedBars:   len(delta.Bars),
		Revised:       delta.Revised,
	}

	first, err := a.merger.Update(delta.Bars)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeHistoryUnavailable) {
			a.mu.Unlock()

			return types.UpdateResult{}, err
		}

		a.log.Debug("Incremental merge unavailable, recomputing", zap.Error(err))

		first = a.rebuild()
		result.FullRecompute = true
	}

	finalized := a.derive()

	result.FirstAnalysisBarIndex = first
	result.Version = a.model.Version
	callbacks := a.callbacks
	a.mu.Unlock()

	a.log.Debug("Model updated",
		zap.Int("first_bar_index", result.FirstBarIndex),
		zap.Int("applied_bars", result.AppliedBars),
		zap.Bool("revised", result.Revised),
		zap.Int("first_analysis_bar_index", result.FirstAnalysisBarIndex),
		zap.Int("finalized_strokes", len(finalized)),
		zap.Int64("version", result.Version),
	)

	if err := notifyFinalized(callbacks, finalized); err != nil {
		return result, err
	}

	if callbacks.OnUpdate != nil {
		if err := (*callbacks.OnUpdate)(result); err != nil {
			return result, errors.Wrap(errors.ErrCodeCallbackFailed, "update callback failed", err)
		}
	}

	return result, nil
}

// Recompute implements analyzer.Analyzer.
func (a *AnalyzerV1) Recompute(history []types.Bar) (types.UpdateResult, error) {
	a.mu.Lock()

	a.bars = bar.NewLog(a.config.Precision())
	delta := a.bars.Apply(history)
	a.strokes = stroke.NewBuilder(a.config.strokeConfig())
	first := a.rebuild()
	finalized := a.derive()

	result := types.UpdateResult{
		FirstBarIndex:         delta.FirstIndex,
		AppliedBars:           len(delta.Bars),
		FirstAnalysisBarIndex: first,
		FullRecompute:         true,
		Version:               a.model.Version,
	}
	callbacks := a.callbacks
	a.mu.Unlock()

	a.log.Debug("Model recomputed",
		zap.Int("bars", result.AppliedBars),
		zap.Int64("version", result.Version),
	)

	if err := notifyFinalized(callbacks, finalized); err != nil {
		return result, err
	}

	if callbacks.OnRecompute != nil {
		if err := (*callbacks.OnRecompute)(result); err != nil {
			return result, errors.Wrap(errors.ErrCodeCallbackFailed, "recompute callback failed", err)
		}
	}

	return result, nil
}

func notifyFinalized(callbacks analyzer.Callbacks, finalized []types.Line) error {
	if callbacks.OnStrokeFinalized == nil {
		return nil
	}

	for _, s := range finalized {
		if err := (*callbacks.OnStrokeFinalized)(s); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "stroke finalized callback failed", err)
		}
	}

	return nil
}

// rebuild merges the whole bar log from scratch. It returns the first
// analysis bar index, or -1 when there are no bars.
func (a *AnalyzerV1) rebuild() int {
	a.merger = containment.NewMerger()
	if a.bars.Len() == 0 {
		return -1
	}

	// the log is contiguous and 0-indexed, so a fresh merger always accepts it
	first, _ := a.merger.Update(a.bars.Bars())

	return first
}

// derive recomputes everything downstream of the merged bars and publishes a
// new model. It returns the strokes finalized by this pass.
func (a *AnalyzerV1) derive() []types.Line {
	analysisBars := a.merger.AnalysisBars()
	fractals := fractal.Detect(analysisBars)
	update := a.strokes.Update(fractals)
	strokes := a.strokes.Strokes()
	segments := a.segmentBuilder.Build(strokes)

	strokePivots := make(map[types.PivotType][]types.Pivot, len(a.config.StrokePivotTypes))
	for _, pivotType := range a.config.StrokePivotTypes {
		builder := pivot.NewBuilder(a.config.pivotConfig(pivotType))

		var result pivot.Result
		if pivotType == types.PivotTypeSegmentInner {
			result = builder.BuildWithin(strokes, segments)
		} else {
			result = builder.Build(strokes)
		}

		strokePivots[pivotType] = a.exposed(result)
	}

	segmentPivots := make(map[types.PivotType][]types.Pivot, len(a.config.SegmentPivotTypes))
	for _, pivotType := range a.config.SegmentPivotTypes {
		result := pivot.NewBuilder(a.config.pivotConfig(pivotType)).Build(segments)
		segmentPivots[pivotType] = a.exposed(result)
	}

	momentum := a.momentum.Calculate(analysisBars)
	strokes = a.classifier.Classify(strokes, strokePivots, momentum)
	segments = a.classifier.Classify(segments, segmentPivots, momentum)

	signals := types.SignalsFromLines(a.config.Symbol, strokes)
	signals = append(signals, types.SignalsFromLines(a.config.Symbol, segments)...)

	a.model = &types.Model{
		Symbol:        a.config.Symbol,
		Period:        a.config.Period,
		Version:       a.model.Version + 1,
		Bars:          a.bars.Bars(),
		AnalysisBars:  analysisBars,
		Fractals:      fractals,
		Strokes:       strokes,
		Segments:      segments,
		Momentum:      momentum,
		Signals:       signals,
		StrokePivots:  strokePivots,
		SegmentPivots: segmentPivots,
	}

	return update.Finalized
}

func (a *AnalyzerV1) exposed(result pivot.Result) []types.Pivot {
	if a.config.ExposePendingPivot {
		return result.All()
	}

	return slices.Clone(result.Pivots)
}

// SetSegmentBuilder implements analyzer.Analyzer.
func (a *AnalyzerV1) SetSegmentBuilder(builder segment.Builder) error {
	if builder == nil {
		return errors.New(errors.ErrCodeMissingParameter, "segment builder is nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.segmentBuilder = builder

	if a.bars.Len() > 0 {
		a.derive()
	}

	return nil
}

// SetCallbacks implements analyzer.Analyzer.
func (a *AnalyzerV1) SetCallbacks(callbacks analyzer.Callbacks) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.callbacks = callbacks
}

// Config returns the active configuration.
func (a *AnalyzerV1) Config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.config
}

// Indicators lists the registered indicators.
func (a *AnalyzerV1) Indicators() []types.IndicatorType {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.indicatorRegistry.ListIndicators()
}

// GetConfigSchema implements analyzer.Analyzer.
func (a *AnalyzerV1) GetConfigSchema() (string, error) {
	return GetConfigSchema()
}

// Model implements analyzer.Analyzer.
func (a *AnalyzerV1) Model() *types.Model {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.model
}

func (a *AnalyzerV1) Bars() []types.Bar {
	return a.Model().Bars
}

func (a *AnalyzerV1) AnalysisBars() []types.AnalysisBar {
	return a.Model().AnalysisBars
}

func (a *AnalyzerV1) Fractals() []types.Fractal {
	return a.Model().Fractals
}

func (a *AnalyzerV1) Strokes() []types.Line {
	return a.Model().Strokes
}

func (a *AnalyzerV1) Segments() []types.Line {
	return a.Model().Segments
}

func (a *AnalyzerV1) Pivots(kind types.LineKind, pivotType types.PivotType) []types.Pivot {
	return a.Model().Pivots(kind, pivotType)
}

func (a *AnalyzerV1) PendingPivot(kind types.LineKind, pivotType types.PivotType) optional.Option[types.Pivot] {
	return a.Model().PendingPivot(kind, pivotType)
}

func (a *AnalyzerV1) Momentum() []types.MomentumSnapshot {
	return a.Model().Momentum
}

func (a *AnalyzerV1) Signals() []types.Signal {
	return a.Model().Signals
}

var _ analyzer.Analyzer = (*AnalyzerV1)(nil)
