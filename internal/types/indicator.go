package types

import "time"

type IndicatorType string

const (
	IndicatorTypeMACD IndicatorType = "macd"
	IndicatorTypeEMA  IndicatorType = "ema"
)

// MomentumSnapshot is the MACD state at one analysis bar.
type MomentumSnapshot struct {
	Index     int       `json:"index"`
	Time      time.Time `json:"time"`
	FastEMA   float64   `json:"fast_ema"`
	SlowEMA   float64   `json:"slow_ema"`
	MACD      float64   `json:"macd"`
	Signal    float64   `json:"signal"`
	Histogram float64   `json:"histogram"`
	// ImpulseArea is the running sum of same-sign histogram values.
	ImpulseArea float64 `json:"impulse_area"`
}
