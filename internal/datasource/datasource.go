// Package datasource reads bar history from columnar files.
package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/types"
)

type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// Query selects the rows to read. An empty Symbol reads every symbol.
type Query struct {
	Symbol string
	Start  optional.Option[time.Time]
	End    optional.Option[time.Time]
	// Interval resamples the rows into buckets of the given size.
	Interval optional.Option[Interval]
}

// DataSource yields bars in time order. Returned bars are numbered from 0 in
// the order they are yielded.
type DataSource interface {
	// Initialize loads the parquet or CSV file at path.
	Initialize(path string) error
	// ReadAll streams the bars selected by the query.
	ReadAll(query Query) func(yield func(types.Bar, error) bool)
	// GetRange returns the bars selected by the query.
	GetRange(query Query) ([]types.Bar, error)
	// Count returns the number of rows selected by the query, before resampling.
	Count(query Query) (int, error)
	// GetAllSymbols returns the distinct symbols in the file.
	GetAllSymbols() ([]string, error)
	// Close releases the database.
	Close() error
}
