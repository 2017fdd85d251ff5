package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/marcboeker/go-duckdb"
	analyzerv1 "github.com/rxtech-lab/argo-structure/internal/analyzer/analyzer_v1"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/mocks"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StructureCmdTestSuite struct {
	suite.Suite
	bars    []types.Bar
	tempDir string
	output  *bytes.Buffer
}

func TestStructureCmdSuite(t *testing.T) {
	suite.Run(t, new(StructureCmdTestSuite))
}

func (suite *StructureCmdTestSuite) SetupSuite() {
	suite.bars = mocks.GenerateBars(5, 600)
}

func (suite *StructureCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	suite.output = &bytes.Buffer{}
}

func (suite *StructureCmdTestSuite) run(args ...string) error {
	app := newApp()
	app.Writer = suite.output
	app.ErrWriter = io.Discard

	return app.Run(context.Background(), append([]string{"structure"}, args...))
}

// writeParquet writes the bars of each symbol to a parquet file.
func (suite *StructureCmdTestSuite) writeParquet(name string, bars map[string][]types.Bar) string {
	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
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
	suite.Require().NoError(err)

	for symbol, series := range bars {
		for _, b := range series {
			_, err = db.Exec(`INSERT INTO market_data VALUES (?, ?, ?, ?, ?, ?, ?)`,
				b.Time, symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
			suite.Require().NoError(err)
		}
	}

	path := filepath.Join(suite.tempDir, name)
	_, err = db.Exec(fmt.Sprintf(`COPY market_data TO '%s' (FORMAT PARQUET)`, path))
	suite.Require().NoError(err)

	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

func (suite *StructureCmdTestSuite) TestAnalyzeExportsParquet() {
	data := suite.writeParquet("bars.parquet", map[string][]types.Bar{"TEST": suite.bars})
	output := filepath.Join(suite.tempDir, "results")

	suite.Require().NoError(suite.run("analyze", "--data", data, "--symbol", "TEST", "--output", output))

	suite.Contains(suite.output.String(), "TEST 1m")
	suite.Contains(suite.output.String(), "Exported run")

	for _, file := range []string{"strokes.parquet", "segments.parquet", "pivots.parquet", "signals.parquet", "marks.parquet"} {
		suite.True(fileExists(filepath.Join(output, file)), file)
	}
}

func (suite *StructureCmdTestSuite) TestAnalyzePicksTheOnlySymbol() {
	data := suite.writeParquet("bars.parquet", map[string][]types.Bar{"ONLY": suite.bars[:200]})

	suite.Require().NoError(suite.run("analyze", "--data", data))

	suite.Contains(suite.output.String(), "ONLY 1m")
}

func (suite *StructureCmdTestSuite) TestAnalyzeNeedsSymbolForSeveralSymbols() {
	data := suite.writeParquet("bars.parquet", map[string][]types.Bar{
		"AAA": suite.bars[:100],
		"BBB": suite.bars[:100],
	})

	err := suite.run("analyze", "--data", data)

	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *StructureCmdTestSuite) TestAnalyzeWithConfigAndInterval() {
	data := suite.writeParquet("bars.parquet", map[string][]types.Bar{"TEST": suite.bars})
	config := filepath.Join(suite.tempDir, "config.yaml")
	suite.Require().NoError(os.WriteFile(config, []byte("symbol: TEST\nfractal_validity: window\n"), 0644))

	suite.Require().NoError(suite.run("--config", config, "analyze", "--data", data, "--interval", "5m"))

	suite.Contains(suite.output.String(), "TEST 5m")
}

func (suite *StructureCmdTestSuite) TestAnalyzeRejectsInvalidConfig() {
	data := suite.writeParquet("bars.parquet", map[string][]types.Bar{"TEST": suite.bars[:50]})
	config := filepath.Join(suite.tempDir, "config.yaml")
	suite.Require().NoError(os.WriteFile(config, []byte("fractal_validity: bogus\n"), 0644))

	err := suite.run("--config", config, "analyze", "--data", data)

	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *StructureCmdTestSuite) TestAnalyzeMissingFile() {
	err := suite.run("analyze", "--data", filepath.Join(suite.tempDir, "missing.parquet"))

	suite.Error(err)
}

func (suite *StructureCmdTestSuite) TestReplayResumesFromSnapshot() {
	first := suite.writeParquet("first.parquet", map[string][]types.Bar{"TEST": suite.bars[:300]})
	all := suite.writeParquet("all.parquet", map[string][]types.Bar{"TEST": suite.bars})
	snapshot := filepath.Join(suite.tempDir, "first.json")
	final := filepath.Join(suite.tempDir, "final.json")

	suite.Require().NoError(suite.run("replay", "--data", first, "--batch", "7", "--state", snapshot))
	suite.Require().NoError(suite.run("replay", "--data", all, "--batch", "50", "--resume", snapshot, "--state", final))
	suite.Contains(suite.output.String(), "finalized")

	data, err := os.ReadFile(final)
	suite.Require().NoError(err)

	restored, err := analyzerv1.NewAnalyzerV1(analyzerv1.TestConfig(), nil)
	suite.Require().NoError(err)
	suite.Require().NoError(restored.RestoreState(data))

	fresh, err := analyzerv1.NewAnalyzerV1(analyzerv1.TestConfig(), nil)
	suite.Require().NoError(err)
	_, err = fresh.Update(suite.bars)
	suite.Require().NoError(err)

	suite.Require().Len(restored.Bars(), len(suite.bars))
	suite.Require().Len(restored.Strokes(), len(fresh.Strokes()))

	for i, stroke := range fresh.Strokes() {
		got := restored.Strokes()[i]
		suite.Equal(stroke.Direction, got.Direction)
		suite.Equal(stroke.Start.Index, got.Start.Index)
		suite.Equal(stroke.End.Index, got.End.Index)
		suite.Equal(stroke.End.Value, got.End.Value)
	}
}

func (suite *StructureCmdTestSuite) TestReplayBatchLargerThanData() {
	data := suite.writeParquet("bars.parquet", map[string][]types.Bar{"TEST": suite.bars[:120]})
	snapshot := filepath.Join(suite.tempDir, "state.json")

	suite.Require().NoError(suite.run("replay", "--data", data, "--batch", "1000", "--state", snapshot))

	content, err := os.ReadFile(snapshot)
	suite.Require().NoError(err)

	restored, err := analyzerv1.NewAnalyzerV1(analyzerv1.TestConfig(), nil)
	suite.Require().NoError(err)
	suite.Require().NoError(restored.RestoreState(content))
	suite.Len(restored.Bars(), 120)
}

func (suite *StructureCmdTestSuite) TestReplayRejectsBadBatch() {
	data := suite.writeParquet("bars.parquet", map[string][]types.Bar{"TEST": suite.bars[:50]})

	err := suite.run("replay", "--data", data, "--batch", "0")

	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *StructureCmdTestSuite) TestSchema() {
	dir := filepath.Join(suite.tempDir, "config")

	suite.Require().NoError(suite.run("schema", "--output", dir))

	schema, err := os.ReadFile(filepath.Join(dir, schemaName))
	suite.Require().NoError(err)
	suite.Contains(string(schema), "stroke_separation")

	sample, err := os.ReadFile(filepath.Join(dir, sampleConfigName))
	suite.Require().NoError(err)
	suite.Contains(string(sample), "# yaml-language-server: $schema="+schemaName)

	config, err := analyzerv1.ConfigFromYAML(sample)
	suite.Require().NoError(err)
	suite.Equal(analyzerv1.EmptyConfig(), config)
}

func (suite *StructureCmdTestSuite) TestSchemaKeepsExistingSample() {
	dir := filepath.Join(suite.tempDir, "config")
	suite.Require().NoError(os.MkdirAll(dir, 0755))

	samplePath := filepath.Join(dir, sampleConfigName)
	suite.Require().NoError(os.WriteFile(samplePath, []byte("symbol: KEEP\n"), 0644))

	suite.Require().NoError(suite.run("schema", "--output", dir))

	sample, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("symbol: KEEP\n", string(sample))
}

func (suite *StructureCmdTestSuite) TestRenderSummary() {
	a, err := analyzerv1.NewAnalyzerV1(analyzerv1.TestConfig(), nil)
	suite.Require().NoError(err)

	result, err := a.Update(suite.bars)
	suite.Require().NoError(err)

	summary := RenderSummary(a.Model(), result)
	suite.Contains(summary, "TEST 1m")
	suite.Contains(summary, "strokes")
	suite.Contains(summary, "last stroke")

	suite.Equal("up ▲", FormatDirection(types.DirectionUp))
	suite.Equal("down ▼", FormatDirection(types.DirectionDown))
	suite.Equal("none", countSignals(nil))
}
