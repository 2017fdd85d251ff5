package marker

import (
	"fmt"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/types"
)

// Marker records chart marks
type Marker interface {
	// Mark records a mark
	Mark(mark types.Mark) error
	// GetMarks returns all the marks in recording order
	GetMarks() ([]types.Mark, error)
}

// Recorder is an in-memory Marker safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	marks []types.Mark
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Mark(mark types.Mark) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.marks = append(r.marks, mark)

	return nil
}

func (r *Recorder) GetMarks() ([]types.Mark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]types.Mark(nil), r.marks...), nil
}

// Reset drops all recorded marks.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.marks = nil
}

// FromSignal renders a signal as a mark at the line's end anchor.
// Buy points are green, sell points red and divergences purple; the shape
// encodes the buy/sell class.
func FromSignal(signal types.Signal) types.Mark {
	mark := types.Mark{
		Time:     signal.Time,
		Price:    signal.Price,
		Title:    string(signal.Type),
		Message:  signal.Reason,
		Category: fmt.Sprintf("%s/%s", signal.LineKind, signal.PivotType),
		Signal:   optional.Some(signal),
	}

	switch {
	case signal.Type.IsBuy():
		mark.Color = types.MarkColorGreen
	case signal.Type.IsSell():
		mark.Color = types.MarkColorRed
	default:
		mark.Color = types.MarkColorPurple
	}

	switch signal.Type {
	case types.SignalTypeFirstBuy, types.SignalTypeFirstSell:
		mark.Shape = types.MarkShapeTriangle
	case types.SignalTypeThirdBuy, types.SignalTypeThirdSell:
		mark.Shape = types.MarkShapeSquare
	default:
		mark.Shape = types.MarkShapeCircle
	}

	return mark
}

// MarkSignals records one mark per signal, stopping at the first failure.
func MarkSignals(marker Marker, signals []types.Signal) error {
	for _, signal := range signals {
		if err := marker.Mark(FromSignal(signal)); err != nil {
			return err
		}
	}

	return nil
}
