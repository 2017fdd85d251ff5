package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-structure/internal/types"
)

// DataGenerator generates realistic bar sequences for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per bar)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates bars following a geometric Brownian motion model.
// Bars carry their position as Index.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	data := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for normal distribution
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		data[i] = types.Bar{
			Index:  i,
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// GenerateBars is a convenience function producing count bars with default
// settings and a fixed seed.
func GenerateBars(seed int64, count int) []types.Bar {
	config := DefaultConfig()
	config.Count = count

	return NewDataGenerator(seed).Generate(config)
}

// BarsFromRanges builds one bar per high/low pair, one minute apart. Open and
// close sit at the middle of the range.
func BarsFromRanges(highs, lows []float64) []types.Bar {
	start := DefaultConfig().StartTime
	bars := make([]types.Bar, len(highs))

	for i := range highs {
		mid := (highs[i] + lows[i]) / 2
		bars[i] = types.Bar{
			Index:  i,
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   mid,
			High:   highs[i],
			Low:    lows[i],
			Close:  mid,
			Volume: 1,
		}
	}

	return bars
}

// ZigZagBars builds bars that swing between the given pivot prices, moving
// linearly over stepsPerLeg bars per leg. Each bar spans half a step around
// its price so that adjacent bars overlap without containing each other.
func ZigZagBars(pivots []float64, stepsPerLeg int) []types.Bar {
	var highs, lows []float64

	for i := 0; i+1 < len(pivots); i++ {
		from, to := pivots[i], pivots[i+1]
		step := (to - from) / float64(stepsPerLeg)
		half := math.Abs(step) * 0.75

		for s := 0; s < stepsPerLeg; s++ {
			price := from + step*float64(s)
			highs = append(highs, price+half)
			lows = append(lows, price-half)
		}
	}

	if len(pivots) > 0 && len(highs) > 0 {
		last := pivots[len(pivots)-1]
		half := math.Abs(highs[len(highs)-1]-lows[len(lows)-1]) / 2
		highs = append(highs, last+half)
		lows = append(lows, last-half)
	}

	return BarsFromRanges(highs, lows)
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
