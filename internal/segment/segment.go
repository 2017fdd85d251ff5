// Package segment groups strokes into higher-level segments.
package segment

import "github.com/rxtech-lab/argo-structure/internal/types"

// Builder turns a stroke sequence into a segment sequence.
//
// Implementations must return segments in order, alternating in direction,
// with every segment but the last marked done. Start and End carry the
// anchor fractals of the first and last strokes, StartLine and EndLine the
// stroke indices they span.
type Builder interface {
	Build(strokes []types.Line) []types.Line
}
