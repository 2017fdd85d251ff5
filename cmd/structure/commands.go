package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/analyzer"
	analyzerv1 "github.com/rxtech-lab/argo-structure/internal/analyzer/analyzer_v1"
	"github.com/rxtech-lab/argo-structure/internal/datasource"
	"github.com/rxtech-lab/argo-structure/internal/logger"
	"github.com/rxtech-lab/argo-structure/internal/marker"
	"github.com/rxtech-lab/argo-structure/internal/server"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/internal/writer"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	schemaName       = "structure-config.json"
	sampleConfigName = "structure-config.yaml"
)

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}

	return os.Stderr
}

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	log, err := logger.NewLogger(cmd.Bool("debug"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// loadConfig reads the YAML config, if any, and applies the symbol and
// interval flags on top.
func loadConfig(cmd *cli.Command) (analyzerv1.Config, error) {
	config := analyzerv1.EmptyConfig()

	if path := cmd.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, errors.Wrapf(errors.ErrCodeReadFailed, err, "failed to read config %s", path)
		}

		config, err = analyzerv1.ConfigFromYAML(data)
		if err != nil {
			return config, err
		}
	}

	if symbol := cmd.String("symbol"); symbol != "" {
		config.Symbol = symbol
	}

	if interval := cmd.String("interval"); interval != "" {
		config.Period = interval
	}

	if config.Period == "" {
		config.Period = string(datasource.Interval1m)
	}

	return config, nil
}

// loadBars reads the bars of the configured symbol. When no symbol is
// configured the file must hold exactly one.
func loadBars(cmd *cli.Command, config *analyzerv1.Config, log *logger.Logger) ([]types.Bar, error) {
	source, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return nil, err
	}

	if config.Symbol == "" {
		symbols, err := source.GetAllSymbols()
		if err != nil {
			return nil, err
		}

		if len(symbols) != 1 {
			return nil, errors.Newf(errors.ErrCodeMissingParameter, "file holds %d symbols, pick one with --symbol", len(symbols))
		}

		config.Symbol = symbols[0]
	}

	query := datasource.Query{Symbol: config.Symbol}

	if cmd.IsSet("start") {
		query.Start = optional.Some(cmd.Timestamp("start"))
	}

	if cmd.IsSet("end") {
		query.End = optional.Some(cmd.Timestamp("end"))
	}

	if interval := cmd.String("interval"); interval != "" && interval != string(datasource.Interval1m) {
		query.Interval = optional.Some(datasource.Interval(interval))
	}

	return source.GetRange(query)
}

// prepare builds the analyzer and loads the bars it should see.
func prepare(cmd *cli.Command) (*analyzerv1.AnalyzerV1, []types.Bar, *logger.Logger, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	config, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	bars, err := loadBars(cmd, &config, log)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := analyzerv1.NewAnalyzerV1(config, log)
	if err != nil {
		return nil, nil, nil, err
	}

	log.Debug("Loaded bars",
		zap.String("symbol", config.Symbol),
		zap.String("period", config.Period),
		zap.Int("bars", len(bars)),
	)

	return a, bars, log, nil
}

func export(model *types.Model, dir string, log *logger.Logger) (string, error) {
	w, err := writer.NewResultWriter(dir, log)
	if err != nil {
		return "", err
	}
	defer w.Close()

	if err := w.WriteModel(model); err != nil {
		return "", err
	}

	if err := marker.MarkSignals(w, model.Signals); err != nil {
		return "", err
	}

	if err := w.Flush(); err != nil {
		return "", err
	}

	return w.RunID(), nil
}

func analyzeAction(_ context.Context, cmd *cli.Command) error {
	a, bars, log, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	result, err := a.Update(bars)
	if err != nil {
		return err
	}

	model := a.Model()
	fmt.Fprintln(stdout(cmd), RenderSummary(model, result))

	if output := cmd.String("output"); output != "" {
		runID, err := export(model, output, log)
		if err != nil {
			return err
		}

		fmt.Fprintln(stdout(cmd), RenderExport(output, runID))
	}

	return nil
}

func replayAction(_ context.Context, cmd *cli.Command) error {
	a, bars, log, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if path := cmd.String("resume"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeReadFailed, err, "failed to read snapshot %s", path)
		}

		if err := a.RestoreState(data); err != nil {
			return err
		}
	}

	if cmd.Int("batch") < 1 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "batch must be positive, got %d", cmd.Int("batch"))
	}

	batch := int(cmd.Int("batch"))

	finalized, recomputes := 0, 0

	onStroke := analyzer.OnStrokeFinalizedCallback(func(types.Line) error {
		finalized++

		return nil
	})
	onUpdate := analyzer.OnUpdateCallback(func(result types.UpdateResult) error {
		if result.FullRecompute {
			recomputes++
		}

		return nil
	})
	a.SetCallbacks(analyzer.Callbacks{OnUpdate: &onUpdate, OnStrokeFinalized: &onStroke})

	progress := progressbar.NewOptions(len(bars),
		progressbar.OptionSetWriter(stderr(cmd)),
		progressbar.OptionSetDescription(fmt.Sprintf("Replaying %s", filepath.Base(cmd.String("data")))),
		progressbar.OptionShowCount(),
	)

	var result types.UpdateResult

	for start := 0; start < len(bars); start += batch {
		end := min(start+batch, len(bars))

		result, err = a.Update(bars[start:end])
		if err != nil {
			return err
		}

		_ = progress.Add(end - start)
	}

	_ = progress.Finish()
	fmt.Fprintln(stderr(cmd))

	log.Debug("Replay finished",
		zap.Int("finalized_strokes", finalized),
		zap.Int("full_recomputes", recomputes),
	)

	model := a.Model()
	fmt.Fprintln(stdout(cmd), RenderSummary(model, result))
	fmt.Fprintln(stdout(cmd), RenderReplay(finalized, recomputes))

	if path := cmd.String("state"); path != "" {
		state, err := a.ExportState()
		if err != nil {
			return err
		}

		if err := os.WriteFile(path, state, 0644); err != nil {
			return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to write snapshot %s", path)
		}
	}

	if output := cmd.String("output"); output != "" {
		runID, err := export(model, output, log)
		if err != nil {
			return err
		}

		fmt.Fprintln(stdout(cmd), RenderExport(output, runID))
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("output")

	schema, err := analyzerv1.GetConfigSchema()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create directory", err)
	}

	schemaPath := filepath.Join(dir, schemaName)
	if err := os.WriteFile(schemaPath, []byte(schema), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write schema", err)
	}

	fmt.Fprintln(stdout(cmd), SuccessStyle.Render("Schema written to "+schemaPath))

	samplePath := filepath.Join(dir, sampleConfigName)
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	sample, err := yaml.Marshal(analyzerv1.EmptyConfig())
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to marshal sample config", err)
	}

	sample = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), sample...)

	if err := os.WriteFile(samplePath, sample, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write sample config", err)
	}

	fmt.Fprintln(stdout(cmd), SuccessStyle.Render("Sample config written to "+samplePath))

	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, bars, log, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if _, err := a.Update(bars); err != nil {
		return err
	}

	s := server.NewServer(a, log)
	if err := s.Start(cmd.String("address")); err != nil {
		return err
	}

	fmt.Fprintln(stdout(cmd), SuccessStyle.Render("Listening on http://"+s.Address()+"/api/v1"))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.Stop(shutdown)
}
