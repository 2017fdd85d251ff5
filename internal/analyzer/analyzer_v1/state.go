package analyzer

import (
	"encoding/json"

	"github.com/rxtech-lab/argo-structure/internal/bar"
	"github.com/rxtech-lab/argo-structure/internal/containment"
	"github.com/rxtech-lab/argo-structure/internal/stroke"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/internal/version"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"go.uber.org/zap"
)

// Snapshot is the serialized internal state of an analysis context.
// Everything else is derived from it on restore.
type Snapshot struct {
	// Version is the library version that wrote the snapshot.
	Version      string              `json:"version"`
	Config       Config              `json:"config"`
	ModelVersion int64               `json:"model_version"`
	Bars         []types.Bar         `json:"bars"`
	AnalysisBars []types.AnalysisBar `json:"analysis_bars"`
	Strokes      stroke.State        `json:"strokes"`
}

// ExportState implements analyzer.Analyzer.
func (a *AnalyzerV1) ExportState() ([]byte, error) {
	a.mu.RLock()
	snapshot := Snapshot{
		Version:      version.GetVersion(),
		Config:       a.config,
		ModelVersion: a.model.Version,
		Bars:         a.bars.Bars(),
		AnalysisBars: a.merger.AnalysisBars(),
		Strokes:      a.strokes.State(),
	}
	a.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailed, "failed to marshal snapshot", err)
	}

	a.log.Debug("State exported",
		zap.Int("bars", len(snapshot.Bars)),
		zap.Int64("model_version", snapshot.ModelVersion),
	)

	return data, nil
}

// RestoreState implements analyzer.Analyzer. The snapshot's configuration
// replaces the current one.
func (a *AnalyzerV1) RestoreState(data []byte) error {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return errors.Wrap(errors.ErrCodeSnapshotInvalid, "failed to parse snapshot", err)
	}

	if err := version.CheckSnapshotCompatibility(version.GetVersion(), snapshot.Version); err != nil {
		return err
	}

	if err := snapshot.Config.Validate(); err != nil {
		return err
	}

	if err := snapshot.check(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.config = snapshot.Config
	if err := a.initialize(); err != nil {
		return err
	}

	a.bars = bar.NewLogFromBars(snapshot.Bars, a.config.Precision())
	a.merger = containment.NewMergerFromBars(snapshot.AnalysisBars)
	a.strokes = stroke.NewBuilderFromState(a.config.strokeConfig(), snapshot.Strokes)
	a.model.Version = snapshot.ModelVersion - 1
	a.derive()

	a.log.Debug("State restored",
		zap.String("snapshot_version", snapshot.Version),
		zap.Int("bars", len(snapshot.Bars)),
		zap.Int64("model_version", a.model.Version),
	)

	return nil
}

// check verifies that the bar log and the merged bars describe the same history.
func (s Snapshot) check() error {
	for i, b := range s.Bars {
		if b.Index != i {
			return errors.Newf(errors.ErrCodeSnapshotInvalid, "bar %d has index %d", i, b.Index)
		}
	}

	if len(s.Bars) == 0 {
		if len(s.AnalysisBars) != 0 {
			return errors.New(errors.ErrCodeSnapshotInvalid, "snapshot has analysis bars but no bars")
		}

		return nil
	}

	if len(s.AnalysisBars) == 0 {
		return errors.New(errors.ErrCodeSnapshotInvalid, "snapshot has bars but no analysis bars")
	}

	last := s.AnalysisBars[len(s.AnalysisBars)-1].LastBarIndex()
	if last != len(s.Bars)-1 {
		return errors.Newf(errors.ErrCodeSnapshotInvalid, "analysis bars end at bar %d, log ends at bar %d", last, len(s.Bars)-1)
	}

	return nil
}
