package segment

import "github.com/rxtech-lab/argo-structure/internal/types"

// FeatureSequenceBuilder is the default Builder. A segment opens on the
// first three strokes sharing a price range. It runs to its most extreme
// stroke and closes once a later finalized counter stroke moves beyond the
// first counter stroke after that extreme.
type FeatureSequenceBuilder struct{}

func NewFeatureSequenceBuilder() *FeatureSequenceBuilder {
	return &FeatureSequenceBuilder{}
}

func (b *FeatureSequenceBuilder) Build(strokes []types.Line) []types.Line {
	first := openingStroke(strokes)
	if first < 0 {
		return nil
	}

	var segments []types.Line

	start, extreme := first, first
	direction := strokes[first].Direction

	for j := first + 1; j < len(strokes); j++ {
		stroke := strokes[j]

		if stroke.Direction == direction {
			if stroke.End.Beyond(strokes[extreme].End) {
				extreme = j
			}

			continue
		}

		// the opening stroke was a false start: the counter move went past it
		if len(segments) == 0 && extreme == start && stroke.End.Beyond(strokes[start].Start) {
			start, extreme = start+1, j
			direction = stroke.Direction

			continue
		}

		if extreme-start < 2 || j <= extreme+1 || !stroke.Done {
			continue
		}

		if !stroke.End.Beyond(strokes[extreme+1].End) {
			continue
		}

		segments = append(segments, newSegment(len(segments), strokes, start, extreme, true))

		start, extreme = extreme+1, extreme+1
		direction = strokes[start].Direction
		j = start
	}

	return append(segments, newSegment(len(segments), strokes, start, extreme, false))
}

// openingStroke returns the first stroke that starts three strokes sharing a range.
func openingStroke(strokes []types.Line) int {
	for i := 0; i+2 < len(strokes); i++ {
		low := max(strokes[i].Low, strokes[i+1].Low, strokes[i+2].Low)
		high := min(strokes[i].High, strokes[i+1].High, strokes[i+2].High)

		if low < high {
			return i
		}
	}

	return -1
}

func newSegment(index int, strokes []types.Line, start, end int, done bool) types.Line {
	segment := types.NewLine(types.LineKindSegment, index, strokes[start].Start, strokes[end].End)
	segment.StartLine = start
	segment.EndLine = end
	segment.Done = done

	return segment
}
