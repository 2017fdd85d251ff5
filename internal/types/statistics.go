package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type LineStats struct {
	Count int `yaml:"count" json:"count"`
	Up    int `yaml:"up" json:"up"`
	Down  int `yaml:"down" json:"down"`
	// Done is the number of lines that can no longer change
	Done int `yaml:"done" json:"done"`
	// Average span of a line in analysis bars
	AvgSpan float64 `yaml:"avg_span" json:"avg_span"`
	// Longest span of a line in analysis bars
	MaxSpan int `yaml:"max_span" json:"max_span"`
}

type StructureStats struct {
	// ID is the run id of the export
	ID           string    `yaml:"id" json:"id"`
	Symbol       string    `yaml:"symbol" json:"symbol"`
	Period       string    `yaml:"period" json:"period"`
	Version      int64     `yaml:"version" json:"version"`
	GeneratedAt  time.Time `yaml:"generated_at" json:"generated_at"`
	Bars         int       `yaml:"bars" json:"bars"`
	AnalysisBars int       `yaml:"analysis_bars" json:"analysis_bars"`
	Fractals     int       `yaml:"fractals" json:"fractals"`
	Strokes      LineStats `yaml:"strokes" json:"strokes"`
	Segments     LineStats `yaml:"segments" json:"segments"`
	// Pivots counts pivots by "line_kind/pivot_type"
	Pivots map[string]int `yaml:"pivots" json:"pivots"`
	// Signals counts signals by type
	Signals map[SignalType]int `yaml:"signals" json:"signals"`
}

func newLineStats(lines []Line) LineStats {
	stats := LineStats{Count: len(lines)}
	total := 0

	for _, line := range lines {
		switch line.Direction {
		case DirectionUp:
			stats.Up++
		case DirectionDown:
			stats.Down++
		}

		if line.Done {
			stats.Done++
		}

		span := line.End.Index - line.Start.Index
		total += span
		stats.MaxSpan = max(stats.MaxSpan, span)
	}

	if len(lines) > 0 {
		stats.AvgSpan = float64(total) / float64(len(lines))
	}

	return stats
}

// NewStructureStats summarizes a model.
func NewStructureStats(runID string, model *Model) StructureStats {
	stats := StructureStats{
		ID:           runID,
		Symbol:       model.Symbol,
		Period:       model.Period,
		Version:      model.Version,
		GeneratedAt:  time.Now().UTC(),
		Bars:         len(model.Bars),
		AnalysisBars: len(model.AnalysisBars),
		Fractals:     len(model.Fractals),
		Strokes:      newLineStats(model.Strokes),
		Segments:     newLineStats(model.Segments),
		Pivots:       map[string]int{},
		Signals:      map[SignalType]int{},
	}

	for _, kind := range []LineKind{LineKindStroke, LineKindSegment} {
		for _, pivotType := range AllPivotTypes {
			if pivots := model.Pivots(kind, pivotType); len(pivots) > 0 {
				stats.Pivots[string(kind)+"/"+string(pivotType)] = len(pivots)
			}
		}
	}

	for _, signal := range model.Signals {
		stats.Signals[signal.Type]++
	}

	return stats
}

func WriteStructureStats(path string, stats StructureStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal structure stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write structure stats to file: %w", err)
	}

	return nil
}

// ReadStructureStats reads structure statistics from a YAML file.
func ReadStructureStats(path string) (StructureStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StructureStats{}, fmt.Errorf("failed to read structure stats file: %w", err)
	}

	var stats StructureStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return StructureStats{}, fmt.Errorf("failed to unmarshal structure stats: %w", err)
	}

	return stats, nil
}
