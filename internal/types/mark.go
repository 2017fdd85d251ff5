package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type MarkShape string

const (
	MarkShapeCircle   MarkShape = "circle"
	MarkShapeSquare   MarkShape = "square"
	MarkShapeTriangle MarkShape = "triangle"
)

type MarkColor string

const (
	MarkColorRed    MarkColor = "red"
	MarkColorGreen  MarkColor = "green"
	MarkColorBlue   MarkColor = "blue"
	MarkColorYellow MarkColor = "yellow"
	MarkColorPurple MarkColor = "purple"
	MarkColorOrange MarkColor = "orange"
)

// Mark is a chart annotation placed at a line's end anchor.
type Mark struct {
	Time     time.Time               `json:"time"`
	Price    float64                 `json:"price"`
	Color    MarkColor               `json:"color"`
	Shape    MarkShape               `json:"shape"`
	Title    string                  `json:"title"`
	Message  string                  `json:"message"`
	Category string                  `json:"category"`
	Signal   optional.Option[Signal] `json:"signal"`
}
