package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/logger"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	dataSource DataSource
	tmpDir     string
	baseTime   time.Time
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

type row struct {
	time   time.Time
	symbol string
	open   float64
	high   float64
	low    float64
	close  float64
	volume float64
}

func (suite *DuckDBDataSourceTestSuite) SetupSuite() {
	suite.tmpDir = suite.T().TempDir()
	suite.baseTime = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.dataSource = ds
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	if suite.dataSource != nil {
		suite.dataSource.Close()
	}
}

// rows builds 20 one-minute rows for AAPL and 5 for MSFT, out of order.
func (suite *DuckDBDataSourceTestSuite) rows() []row {
	var rows []row

	for i := 19; i >= 0; i-- {
		rows = append(rows, row{
			time:   suite.baseTime.Add(time.Duration(i) * time.Minute),
			symbol: "AAPL",
			open:   100 + float64(i),
			high:   101 + float64(i),
			low:    99 + float64(i),
			close:  100.5 + float64(i),
			volume: 1000 + float64(i),
		})
	}

	for i := 0; i < 5; i++ {
		rows = append(rows, row{
			time:   suite.baseTime.Add(time.Duration(i) * time.Minute),
			symbol: "MSFT",
			open:   300,
			high:   301,
			low:    299,
			close:  300,
			volume: 10,
		})
	}

	return rows
}

func writeRows(rows []row, path, format string) error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE market_data (
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return err
	}

	for _, r := range rows {
		_, err = db.Exec(`INSERT INTO market_data VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.time, r.symbol, r.open, r.high, r.low, r.close, r.volume)
		if err != nil {
			return err
		}
	}

	_, err = db.Exec(fmt.Sprintf(`COPY market_data TO '%s' (%s)`, path, format))

	return err
}

func (suite *DuckDBDataSourceTestSuite) loadParquet() {
	path := filepath.Join(suite.T().TempDir(), "bars.parquet")
	suite.Require().NoError(writeRows(suite.rows(), path, "FORMAT PARQUET"))
	suite.Require().NoError(suite.dataSource.Initialize(path))
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllOrdersAndNumbersBars() {
	suite.loadParquet()

	bars, err := suite.dataSource.GetRange(Query{Symbol: "AAPL"})

	suite.Require().NoError(err)
	suite.Require().Len(bars, 20)

	for i, b := range bars {
		suite.Equal(i, b.Index)
		suite.True(suite.baseTime.Add(time.Duration(i) * time.Minute).Equal(b.Time))
		suite.Equal(100+float64(i), b.Open)
		suite.Equal(101+float64(i), b.High)
		suite.Equal(99+float64(i), b.Low)
		suite.Equal(1000+float64(i), b.Volume)
		suite.True(b.IsValid())
	}
}

func (suite *DuckDBDataSourceTestSuite) TestTimeRange() {
	suite.loadParquet()

	query := Query{
		Symbol: "AAPL",
		Start:  optional.Some(suite.baseTime.Add(5 * time.Minute)),
		End:    optional.Some(suite.baseTime.Add(9 * time.Minute)),
	}

	bars, err := suite.dataSource.GetRange(query)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 5)
	suite.Equal(105.0, bars[0].Open)
	suite.Equal(0, bars[0].Index)

	count, err := suite.dataSource.Count(query)
	suite.Require().NoError(err)
	suite.Equal(5, count)
}

func (suite *DuckDBDataSourceTestSuite) TestCount() {
	suite.loadParquet()

	all, err := suite.dataSource.Count(Query{})
	suite.Require().NoError(err)
	suite.Equal(25, all)

	msft, err := suite.dataSource.Count(Query{Symbol: "MSFT"})
	suite.Require().NoError(err)
	suite.Equal(5, msft)
}

func (suite *DuckDBDataSourceTestSuite) TestResampling() {
	suite.loadParquet()

	bars, err := suite.dataSource.GetRange(Query{Symbol: "AAPL", Interval: optional.Some(Interval5m)})

	suite.Require().NoError(err)
	suite.Require().Len(bars, 4)

	first := bars[0]
	suite.True(suite.baseTime.Equal(first.Time))
	suite.Equal(100.0, first.Open)
	suite.Equal(105.0, first.High)
	suite.Equal(99.0, first.Low)
	suite.Equal(104.5, first.Close)
	suite.Equal(5010.0, first.Volume)
	suite.Equal(3, bars[3].Index)
}

func (suite *DuckDBDataSourceTestSuite) TestUnsupportedInterval() {
	suite.loadParquet()

	_, err := suite.dataSource.GetRange(Query{Symbol: "AAPL", Interval: optional.Some(Interval("2m"))})

	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *DuckDBDataSourceTestSuite) TestEarlyStop() {
	suite.loadParquet()

	seen := 0

	for _, err := range suite.dataSource.ReadAll(Query{Symbol: "AAPL"}) {
		suite.Require().NoError(err)

		seen++
		if seen == 3 {
			break
		}
	}

	suite.Equal(3, seen)
}

func (suite *DuckDBDataSourceTestSuite) TestNoData() {
	suite.loadParquet()

	_, err := suite.dataSource.GetRange(Query{Symbol: "TSLA"})

	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound))
}

func (suite *DuckDBDataSourceTestSuite) TestGetAllSymbols() {
	suite.loadParquet()

	symbols, err := suite.dataSource.GetAllSymbols()

	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)
}

func (suite *DuckDBDataSourceTestSuite) TestCSV() {
	path := filepath.Join(suite.T().TempDir(), "bars.csv")
	suite.Require().NoError(writeRows(suite.rows(), path, "FORMAT CSV, HEADER"))
	suite.Require().NoError(suite.dataSource.Initialize(path))

	bars, err := suite.dataSource.GetRange(Query{Symbol: "MSFT"})

	suite.Require().NoError(err)
	suite.Len(bars, 5)
	suite.Equal(301.0, bars[0].High)
}

func (suite *DuckDBDataSourceTestSuite) TestUnsupportedFile() {
	err := suite.dataSource.Initialize(filepath.Join(suite.tmpDir, "bars.json"))

	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *DuckDBDataSourceTestSuite) TestMissingFile() {
	err := suite.dataSource.Initialize(filepath.Join(suite.tmpDir, "missing.parquet"))

	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (suite *DuckDBDataSourceTestSuite) TestGetIntervalMinutes() {
	minutes, err := getIntervalMinutes(Interval1h)
	suite.Require().NoError(err)
	suite.Equal(60, minutes)

	minutes, err = getIntervalMinutes(Interval1w)
	suite.Require().NoError(err)
	suite.Equal(10080, minutes)

	_, err = getIntervalMinutes(Interval("1M"))
	suite.Error(err)
}
