// Package pivot detects bounded consolidation zones over a line sequence.
package pivot

import (
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/types"
)

// minLines is the shortest sequence that can hold an entry, three core
// lines and a line after them.
const minLines = 5

// PromotionRule regroups the core of a long pivot into a higher level one.
type PromotionRule struct {
	MinLines  int `yaml:"min_lines" json:"min_lines" mapstructure:"min_lines" validate:"min=3" jsonschema:"title=Minimum Lines,description=Core line count that triggers the rule,minimum=3"`
	GroupSize int `yaml:"group_size" json:"group_size" mapstructure:"group_size" validate:"min=1" jsonschema:"title=Group Size,description=Number of consecutive core lines per group,minimum=1"`
	Levels    int `yaml:"levels" json:"levels" mapstructure:"levels" validate:"min=1" jsonschema:"title=Levels,description=Number of levels added to the pivot,minimum=1"`
}

// DefaultPromotionRules returns the 9/27/81 line thresholds.
func DefaultPromotionRules() []PromotionRule {
	return []PromotionRule{
		{MinLines: 9, GroupSize: 3, Levels: 1},
		{MinLines: 27, GroupSize: 9, Levels: 2},
		{MinLines: 81, GroupSize: 27, Levels: 3},
	}
}

// Config controls how pivots are built.
type Config struct {
	Type      types.PivotType
	Promotion []PromotionRule
	// Expansion merges adjacent done pivots whose outer bands overlap.
	Expansion bool
}

// DefaultConfig returns the standard pivot configuration.
func DefaultConfig() Config {
	return Config{
		Type:      types.PivotTypeStandard,
		Promotion: DefaultPromotionRules(),
		Expansion: true,
	}
}

// Result holds the finalized pivots and the pivot still open at the end of
// the sequence.
type Result struct {
	Pivots  []types.Pivot
	Pending optional.Option[types.Pivot]
}

// All returns the finalized pivots followed by the pending one, if any.
func (r Result) All() []types.Pivot {
	all := slices.Clone(r.Pivots)
	if r.Pending.IsSome() {
		all = append(all, r.Pending.Unwrap())
	}

	return all
}

type Builder struct {
	config Config
}

func NewBuilder(config Config) *Builder {
	return &Builder{config: config}
}

// Build scans the whole line sequence.
func (b *Builder) Build(lines []types.Line) Result {
	pivots, pending := b.scan(lines)
	pivots = b.expand(lines, pivots)

	return index(Result{Pivots: pivots, Pending: pending})
}

// BuildWithin scans the strokes of every segment separately. Pivots inside a
// done segment are done; only the last open segment can hold a pending pivot.
func (b *Builder) BuildWithin(strokes []types.Line, segments []types.Line) Result {
	var result Result

	for _, segment := range segments {
		if segment.StartLine < 0 || segment.EndLine >= len(strokes) || segment.EndLine < segment.StartLine {
			continue
		}

		lines := strokes[segment.StartLine : segment.EndLine+1]
		pivots, pending := b.scan(lines)

		if pending.IsSome() {
			if segment.Done {
				closed := pending.Unwrap()
				closed.Done = true
				pivots = append(pivots, closed)
			} else {
				result.Pending = pending
			}
		}

		result.Pivots = append(result.Pivots, b.expand(lines, pivots)...)
	}

	return index(result)
}

// scan runs the forward, non-overlapping pivot search.
func (b *Builder) scan(lines []types.Line) ([]types.Pivot, optional.Option[types.Pivot]) {
	if len(lines) < minLines {
		return nil, optional.None[types.Pivot]()
	}

	var pivots []types.Pivot

	for i := 0; i+3 < len(lines); {
		entry, first, second, third := lines[i], lines[i+1], lines[i+2], lines[i+3]

		if first.Direction == second.Direction || second.Direction == third.Direction || entry.Direction != second.Direction {
			i++

			continue
		}

		zg := min(first.High, second.High, third.High)
		zd := max(first.Low, second.Low, third.Low)

		if zd >= zg || !entry.Intersects(zd, zg) {
			i++

			continue
		}

		core := []types.Line{first, second, third}
		exit := optional.None[types.Line]()
		j := i + 4

		for j < len(lines) {
			if lines[j].Intersects(zd, zg) {
				core = append(core, lines[j])
				j++

				continue
			}

			if j+1 >= len(lines) {
				break
			}

			// the line after a tentative exit returns into the band
			if lines[j+1].Intersects(zd, zg) {
				core = append(core, lines[j], lines[j+1])
				j += 2

				continue
			}

			exit = optional.Some(lines[j])

			break
		}

		pivot := b.promote(newPivot(b.config.Type, entry, core, zg, zd, exit))

		if exit.IsNone() {
			return pivots, optional.Some(pivot)
		}

		pivots = append(pivots, pivot)
		i = j
	}

	return pivots, optional.None[types.Pivot]()
}

func newPivot(pivotType types.PivotType, entry types.Line, core []types.Line, zg, zd float64, exit optional.Option[types.Line]) types.Pivot {
	gg, dd := outerBand(core)

	return types.Pivot{
		Type:     pivotType,
		LineKind: entry.Kind,
		ZG:       zg,
		ZD:       zd,
		GG:       gg,
		DD:       dd,
		Entry:    entry,
		Lines:    core,
		Exit:     exit,
		Done:     exit.IsSome(),
	}
}

// outerBand returns the extremes over core lines that run in the first core
// line's direction.
func outerBand(core []types.Line) (float64, float64) {
	gg, dd := core[0].High, core[0].Low

	for _, line := range core[1:] {
		if line.Direction != core[0].Direction {
			continue
		}

		gg = max(gg, line.High)
		dd = min(dd, line.Low)
	}

	return gg, dd
}

// promote applies the highest matching promotion rule. A degenerate
// promoted band leaves the pivot at its level.
func (b *Builder) promote(pivot types.Pivot) types.Pivot {
	var rule optional.Option[PromotionRule]

	for _, r := range b.config.Promotion {
		if len(pivot.Lines) >= r.MinLines && len(pivot.Lines) >= 3*r.GroupSize {
			if rule.IsNone() || r.MinLines > rule.Unwrap().MinLines {
				rule = optional.Some(r)
			}
		}
	}

	if rule.IsNone() {
		return pivot
	}

	r := rule.Unwrap()
	highs := make([]float64, 3)
	lows := make([]float64, 3)

	for g := 0; g < 3; g++ {
		group := pivot.Lines[g*r.GroupSize : (g+1)*r.GroupSize]
		highs[g], lows[g] = group[0].High, group[0].Low

		for _, line := range group[1:] {
			highs[g] = max(highs[g], line.High)
			lows[g] = min(lows[g], line.Low)
		}
	}

	zg := slices.Min(highs)
	zd := slices.Max(lows)

	if zd >= zg {
		return pivot
	}

	pivot.Level += r.Levels
	pivot.ZG = zg
	pivot.ZD = zd
	pivot.GG = slices.Max(highs)
	pivot.DD = slices.Min(lows)

	return pivot
}

// expand merges adjacent done pivots whose outer bands overlap. The merged
// pivot spans both and the second one is skipped.
func (b *Builder) expand(lines []types.Line, pivots []types.Pivot) []types.Pivot {
	if !b.config.Expansion || len(pivots) < 2 {
		return pivots
	}

	expanded := make([]types.Pivot, 0, len(pivots))

	for k := 0; k < len(pivots); k++ {
		current := pivots[k]

		if k+1 < len(pivots) && current.Done && pivots[k+1].Done {
			next := pivots[k+1]
			dd := max(current.DD, next.DD)
			gg := min(current.GG, next.GG)

			if dd < gg {
				expanded = append(expanded, merge(lines, current, next, gg, dd))
				k++

				continue
			}
		}

		expanded = append(expanded, current)
	}

	return expanded
}

func merge(lines []types.Line, first, second types.Pivot, zg, zd float64) types.Pivot {
	var core []types.Line

	for _, line := range lines {
		if line.Index >= first.FirstLineIndex() && line.Index <= second.LastLineIndex() {
			core = append(core, line)
		}
	}

	return types.Pivot{
		Type:     first.Type,
		LineKind: first.LineKind,
		Level:    max(first.Level, second.Level) + 1,
		ZG:       zg,
		ZD:       zd,
		GG:       max(first.GG, second.GG),
		DD:       min(first.DD, second.DD),
		Entry:    first.Entry,
		Lines:    core,
		Exit:     second.Exit,
		Done:     true,
	}
}

func index(result Result) Result {
	for i := range result.Pivots {
		result.Pivots[i].Index = i
	}

	if result.Pending.IsSome() {
		pending := result.Pending.Unwrap()
		pending.Index = len(result.Pivots)
		result.Pending = optional.Some(pending)
	}

	return result
}
