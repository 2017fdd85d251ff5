// Package bar keeps the canonical append-only bar sequence of an analysis context.
package bar

import (
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/shopspring/decimal"
)

// Delta is the part of the log written by one Apply call.
type Delta struct {
	// FirstIndex is the index of the first bar written, -1 when nothing changed.
	FirstIndex int
	// Bars are the written bars with their assigned indices.
	Bars []types.Bar
	// Revised is set when the first written bar replaced the last known bar.
	Revised bool
}

// Empty reports whether the delta changed nothing.
func (d Delta) Empty() bool {
	return len(d.Bars) == 0
}

// Log is the canonical, contiguous, 0-indexed bar sequence.
type Log struct {
	bars      []types.Bar
	precision optional.Option[int32]
}

// NewLog creates an empty log. When precision is set, OHLC prices are rounded
// to that many decimal places before they are stored.
func NewLog(precision optional.Option[int32]) *Log {
	return &Log{precision: precision}
}

// NewLogFromBars creates a log holding the given canonical bars.
func NewLogFromBars(bars []types.Bar, precision optional.Option[int32]) *Log {
	return &Log{bars: slices.Clone(bars), precision: precision}
}

// Len returns the number of bars in the log.
func (l *Log) Len() int {
	return len(l.bars)
}

// Bars returns a copy of the canonical sequence.
func (l *Log) Bars() []types.Bar {
	return slices.Clone(l.bars)
}

// Last returns the most recent bar.
func (l *Log) Last() optional.Option[types.Bar] {
	if len(l.bars) == 0 {
		return optional.None[types.Bar]()
	}

	return optional.Some(l.bars[len(l.bars)-1])
}

// Reset clears the log.
func (l *Log) Reset() {
	l.bars = nil
}

// Apply merges a batch into the log. The batch is sorted by time, duplicate
// timestamps keep the last occurrence and malformed bars are dropped. A bar
// with the last known timestamp replaces it, later bars are appended and
// older bars are ignored.
func (l *Log) Apply(batch []types.Bar) Delta {
	delta := Delta{FirstIndex: -1}

	incoming := l.normalize(batch)
	if len(incoming) == 0 {
		return delta
	}

	for _, b := range incoming {
		if len(l.bars) > 0 {
			last := l.bars[len(l.bars)-1]

			if b.Time.Before(last.Time) {
				continue
			}

			if b.Time.Equal(last.Time) {
				if last.SameValues(b) {
					continue
				}

				b.Index = last.Index
				l.bars[len(l.bars)-1] = b

				if delta.Empty() {
					delta.FirstIndex = b.Index
					delta.Revised = true
				}

				delta.Bars = append(delta.Bars, b)

				continue
			}
		}

		b.Index = len(l.bars)
		l.bars = append(l.bars, b)

		if delta.Empty() {
			delta.FirstIndex = b.Index
		}

		delta.Bars = append(delta.Bars, b)
	}

	return delta
}

func (l *Log) normalize(batch []types.Bar) []types.Bar {
	valid := make([]types.Bar, 0, len(batch))

	for _, b := range batch {
		if !b.IsValid() {
			continue
		}

		valid = append(valid, l.round(b))
	}

	slices.SortStableFunc(valid, func(a, b types.Bar) int {
		return a.Time.Compare(b.Time)
	})

	// last write wins on duplicate timestamps
	deduped := valid[:0]
	for _, b := range valid {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b

			continue
		}

		deduped = append(deduped, b)
	}

	return deduped
}

func (l *Log) round(b types.Bar) types.Bar {
	if l.precision.IsNone() {
		return b
	}

	places := l.precision.Unwrap()
	roundTo := func(v float64) float64 {
		return decimal.NewFromFloat(v).Round(places).InexactFloat64()
	}

	b.Open = roundTo(b.Open)
	b.High = roundTo(b.High)
	b.Low = roundTo(b.Low)
	b.Close = roundTo(b.Close)

	return b
}
