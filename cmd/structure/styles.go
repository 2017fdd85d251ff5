package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-structure/internal/types"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// LabelStyle for field names.
	LabelStyle = lipgloss.NewStyle().Faint(true).Width(16)

	// SuccessStyle for completion messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

	// BoxStyle wraps a summary block.
	BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// FormatDirection renders a line direction with an arrow.
func FormatDirection(direction types.Direction) string {
	switch direction {
	case types.DirectionUp:
		return "up ▲"
	case types.DirectionDown:
		return "down ▼"
	default:
		return string(direction)
	}
}

func row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), fmt.Sprint(value))
}

// countSignals renders the signal counts in signal type order.
func countSignals(signals []types.Signal) string {
	order := []types.SignalType{
		types.SignalTypeFirstBuy, types.SignalTypeSecondBuy, types.SignalTypeThirdBuy,
		types.SignalTypeFirstSell, types.SignalTypeSecondSell, types.SignalTypeThirdSell,
		types.SignalTypePlainDivergence, types.SignalTypeTrendDivergence,
	}

	counts := map[types.SignalType]int{}
	for _, signal := range signals {
		counts[signal.Type]++
	}

	parts := make([]string, 0, len(order))

	for _, signalType := range order {
		if counts[signalType] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", signalType, counts[signalType]))
		}
	}

	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, " ")
}

func pivotCount(pivots map[types.PivotType][]types.Pivot) int {
	count := 0
	for _, p := range pivots {
		count += len(p)
	}

	return count
}

// RenderSummary renders the model after an update.
func RenderSummary(model *types.Model, result types.UpdateResult) string {
	rows := []string{
		TitleStyle.Render(fmt.Sprintf("%s %s", model.Symbol, model.Period)),
		row("version", model.Version),
		row("bars", len(model.Bars)),
		row("analysis bars", len(model.AnalysisBars)),
		row("fractals", len(model.Fractals)),
		row("strokes", len(model.Strokes)),
		row("segments", len(model.Segments)),
		row("stroke pivots", pivotCount(model.StrokePivots)),
		row("segment pivots", pivotCount(model.SegmentPivots)),
		row("signals", countSignals(model.Signals)),
	}

	if n := len(model.Strokes); n > 0 {
		last := model.Strokes[n-1]
		rows = append(rows, row("last stroke", fmt.Sprintf("%s %.4f → %.4f", FormatDirection(last.Direction), last.Start.Value, last.End.Value)))
	}

	if result.FullRecompute {
		rows = append(rows, row("recomputed", "yes"))
	}

	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// RenderReplay renders the replay counters.
func RenderReplay(finalized, recomputes int) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		row("finalized", finalized),
		row("full recomputes", recomputes),
	)
}

// RenderExport renders where the results went.
func RenderExport(dir, runID string) string {
	return SuccessStyle.Render(fmt.Sprintf("Exported run %s to %s", runID, dir))
}
