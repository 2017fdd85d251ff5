package types

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
)

// Bar is one OHLCV sample of an instrument/period. Index is the bar's position
// in the append-only bar log and is assigned by the log, not by the caller.
type Bar struct {
	Index        int                      `json:"index" yaml:"index"`
	Time         time.Time                `json:"time" yaml:"time"`
	Open         float64                  `json:"open" yaml:"open"`
	High         float64                  `json:"high" yaml:"high"`
	Low          float64                  `json:"low" yaml:"low"`
	Close        float64                  `json:"close" yaml:"close"`
	Volume       float64                  `json:"volume" yaml:"volume"`
	OpenInterest optional.Option[float64] `json:"open_interest" yaml:"open_interest"`
}

// IsValid reports whether the bar can enter the log.
func (b Bar) IsValid() bool {
	if b.Time.IsZero() {
		return false
	}

	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return b.High >= b.Low
}

// SameValues reports whether two bars carry identical prices and volume.
func (b Bar) SameValues(other Bar) bool {
	if b.Open != other.Open || b.High != other.High || b.Low != other.Low ||
		b.Close != other.Close || b.Volume != other.Volume {
		return false
	}

	if b.OpenInterest.IsSome() != other.OpenInterest.IsSome() {
		return false
	}

	if b.OpenInterest.IsSome() && b.OpenInterest.Unwrap() != other.OpenInterest.Unwrap() {
		return false
	}

	return true
}

// Direction is the direction of a merged bar or a line.
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Opposite returns the reverse direction. DirectionNone has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	default:
		return DirectionNone
	}
}

// AnalysisBar is a bar after containment resolution.
type AnalysisBar struct {
	Index     int       `json:"index"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	// Bars are the raw bars merged into this one, oldest first.
	Bars      []Bar     `json:"bars"`
	Direction Direction `json:"direction"`
	// Gap is set when the bar has no price overlap with its predecessor.
	Gap bool `json:"gap"`
}

// LastBarIndex returns the log index of the most recent constituent bar.
func (a AnalysisBar) LastBarIndex() int {
	if len(a.Bars) == 0 {
		return -1
	}

	return a.Bars[len(a.Bars)-1].Index
}

// Contains reports whether either bar's range contains the other's.
func (a AnalysisBar) Contains(high, low float64) bool {
	return (a.High >= high && a.Low <= low) || (high >= a.High && low <= a.Low)
}

// Overlaps reports whether the price range [low, high] intersects the bar.
func (a AnalysisBar) Overlaps(high, low float64) bool {
	return low <= a.High && high >= a.Low
}
