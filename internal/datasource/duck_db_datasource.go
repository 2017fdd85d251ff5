package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-structure/internal/logger"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"go.uber.org/zap"
)

const batchSize = 1000

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource opens a DuckDB database at path (":memory:" for an in-memory one).
// Initialize loads the market data into it.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}

	if _, err := db.Exec(`SET threads=4;`); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to configure database", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		reader = "read_parquet"
	case ".csv":
		reader = "read_csv_auto"
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported data file: %s", path)
	}

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	// CREATE VIEW does not take placeholders
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM %s('%s');
	`, reader, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load %s", path)
	}

	return nil
}

// where builds the filter of a query.
func where(query Query) squirrel.And {
	conditions := squirrel.And{}

	if query.Symbol != "" {
		conditions = append(conditions, squirrel.Eq{"symbol": query.Symbol})
	}

	if query.Start.IsSome() {
		conditions = append(conditions, squirrel.GtOrEq{"time": query.Start.Unwrap()})
	}

	if query.End.IsSome() {
		conditions = append(conditions, squirrel.LtOrEq{"time": query.End.Unwrap()})
	}

	return conditions
}

// buildQuery selects raw rows, or bucketed rows when an interval is set.
func (d *DuckDBDataSource) buildQuery(query Query) (string, []any, error) {
	builder := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("market_data").
		Where(where(query)).
		OrderBy("time ASC")

	if query.Interval.IsSome() {
		minutes, err := getIntervalMinutes(query.Interval.Unwrap())
		if err != nil {
			return "", nil, err
		}

		builder = d.sq.
			Select(
				fmt.Sprintf("time_bucket(INTERVAL '%d minutes', time) AS bucket", minutes),
				"arg_min(open, time) AS open",
				"max(high) AS high",
				"min(low) AS low",
				"arg_max(close, time) AS close",
				"sum(volume) AS volume",
			).
			From("market_data").
			Where(where(query)).
			GroupBy("bucket").
			OrderBy("bucket ASC")
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	return sqlQuery, args, nil
}

// ReadAll implements DataSource with batch processing.
func (d *DuckDBDataSource) ReadAll(query Query) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		d.logger.Debug("Reading bars from DuckDB",
			zap.String("symbol", query.Symbol),
		)

		sqlQuery, args, err := d.buildQuery(query)
		if err != nil {
			yield(types.Bar{}, err)

			return
		}

		stmt, err := d.db.Prepare(sqlQuery)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to prepare query", err))

			return
		}
		defer stmt.Close()

		rows, err := stmt.Query(args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		batch := make([]types.Bar, 0, batchSize)
		index := 0

		flush := func() bool {
			for _, b := range batch {
				if !yield(b, nil) {
					return false
				}
			}

			batch = batch[:0]

			return true
		}

		for rows.Next() {
			b, err := scanBar(rows)
			if err != nil {
				yield(types.Bar{}, err)

				return
			}

			b.Index = index
			index++

			batch = append(batch, b)

			if len(batch) >= batchSize && !flush() {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeReadFailed, "error iterating rows", err))

			return
		}

		flush()
	}
}

// GetRange implements DataSource.
func (d *DuckDBDataSource) GetRange(query Query) ([]types.Bar, error) {
	var result []types.Bar

	for b, err := range d.ReadAll(query) {
		if err != nil {
			return nil, err
		}

		result = append(result, b)
	}

	if len(result) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no bars found for symbol %q", query.Symbol)
	}

	return result, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(query Query) (int, error) {
	sqlQuery, args, err := d.sq.
		Select("COUNT(*)").
		From("market_data").
		Where(where(query)).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var count int
	if err := d.db.QueryRow(sqlQuery, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// GetAllSymbols implements DataSource.
func (d *DuckDBDataSource) GetAllSymbols() ([]string, error) {
	rows, err := d.db.Query("SELECT DISTINCT symbol FROM market_data ORDER BY symbol")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeReadFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailed, "error iterating symbols", err)
	}

	return symbols, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}

func scanBar(rows *sql.Rows) (types.Bar, error) {
	var (
		timestamp                      time.Time
		open, high, low, close, volume float64
	)

	if err := rows.Scan(&timestamp, &open, &high, &low, &close, &volume); err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeReadFailed, "failed to scan row", err)
	}

	return types.Bar{
		Time:   timestamp,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}, nil
}
