package types

import "time"

type SignalType string

const (
	// SignalTypeFirstBuy is a down line that ends above the pivot band
	SignalTypeFirstBuy SignalType = "1buy"
	// SignalTypeSecondBuy is a down line that ends inside the pivot band
	SignalTypeSecondBuy SignalType = "2buy"
	// SignalTypeThirdBuy is a down line that ends below the pivot band
	SignalTypeThirdBuy SignalType = "3buy"
	// SignalTypeFirstSell is an up line that ends below the pivot band
	SignalTypeFirstSell SignalType = "1sell"
	// SignalTypeSecondSell is an up line that ends inside the pivot band
	SignalTypeSecondSell SignalType = "2sell"
	// SignalTypeThirdSell is an up line that ends above the pivot band
	SignalTypeThirdSell SignalType = "3sell"
	// SignalTypePlainDivergence compares a line with an earlier line of the same pivot
	SignalTypePlainDivergence SignalType = "pz"
	// SignalTypeTrendDivergence compares a line with a line before the previous pivot
	SignalTypeTrendDivergence SignalType = "qs"
)

// IsBuy reports whether the signal is one of the buy labels.
func (s SignalType) IsBuy() bool {
	return s == SignalTypeFirstBuy || s == SignalTypeSecondBuy || s == SignalTypeThirdBuy
}

// IsSell reports whether the signal is one of the sell labels.
func (s SignalType) IsSell() bool {
	return s == SignalTypeFirstSell || s == SignalTypeSecondSell || s == SignalTypeThirdSell
}

// IsDivergence reports whether the signal is a divergence flag.
func (s SignalType) IsDivergence() bool {
	return s == SignalTypePlainDivergence || s == SignalTypeTrendDivergence
}

// BuySellLabel classifies a line against a pivot.
type BuySellLabel struct {
	Type       SignalType `json:"type"`
	PivotType  PivotType  `json:"pivot_type"`
	PivotIndex int        `json:"pivot_index"`
	PivotLevel int        `json:"pivot_level"`
	Reason     string     `json:"reason"`
}

// DivergenceFlag marks a line whose momentum is weaker than a comparable earlier line.
type DivergenceFlag struct {
	Type             SignalType `json:"type"`
	PivotType        PivotType  `json:"pivot_type"`
	PivotIndex       int        `json:"pivot_index"`
	CompareLineIndex int        `json:"compare_line_index"`
	Strength         float64    `json:"strength"`
	CompareStrength  float64    `json:"compare_strength"`
	Reason           string     `json:"reason"`
}

// Signal is the flattened form of a label or divergence flag.
type Signal struct {
	// Time is the time of the line's end anchor
	Time time.Time `json:"time"`
	// Type is the type of the signal
	Type SignalType `json:"type"`
	// Name is the name of the signal
	Name string `json:"name"`
	// Reason is the reason for the signal
	Reason string `json:"reason"`
	// Price is the line's end value
	Price     float64   `json:"price"`
	LineKind  LineKind  `json:"line_kind"`
	LineIndex int       `json:"line_index"`
	PivotType PivotType `json:"pivot_type"`
	// PivotIndex is the index of the pivot the signal refers to
	PivotIndex int `json:"pivot_index"`
	// Symbol is the symbol of the signal
	Symbol string `json:"symbol"`
}

// SignalsFromLines flattens the annotations of the given lines, in line order.
func SignalsFromLines(symbol string, lines []Line) []Signal {
	var signals []Signal

	for _, line := range lines {
		for _, label := range line.Labels {
			signals = append(signals, Signal{
				Time:       line.End.Time,
				Type:       label.Type,
				Name:       string(line.Kind) + "_" + string(label.Type),
				Reason:     label.Reason,
				Price:      line.End.Value,
				LineKind:   line.Kind,
				LineIndex:  line.Index,
				PivotType:  label.PivotType,
				PivotIndex: label.PivotIndex,
				Symbol:     symbol,
			})
		}

		for _, flag := range line.Divergences {
			signals = append(signals, Signal{
				Time:       line.End.Time,
				Type:       flag.Type,
				Name:       string(line.Kind) + "_" + string(flag.Type),
				Reason:     flag.Reason,
				Price:      line.End.Value,
				LineKind:   line.Kind,
				LineIndex:  line.Index,
				PivotType:  flag.PivotType,
				PivotIndex: flag.PivotIndex,
				Symbol:     symbol,
			})
		}
	}

	return signals
}
