// Package writer exports analysis results to parquet files.
package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/logger"
	"github.com/rxtech-lab/argo-structure/internal/marker"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"go.uber.org/zap"
)

type Table string

const (
	TableLines   Table = "lines"
	TablePivots  Table = "pivots"
	TableSignals Table = "signals"
	TableMarks   Table = "marks"
)

// StatsFile holds the summary of the last staged model.
const StatsFile = "stats.yaml"

// exports maps each output file to the rows it holds.
var exports = []struct {
	file  string
	query string
}{
	{"strokes.parquet", "SELECT * FROM lines WHERE kind = 'stroke' ORDER BY run_id, idx"},
	{"segments.parquet", "SELECT * FROM lines WHERE kind = 'segment' ORDER BY run_id, idx"},
	{"pivots.parquet", "SELECT * FROM pivots ORDER BY run_id, line_kind, pivot_type, idx"},
	{"signals.parquet", "SELECT * FROM signals ORDER BY run_id, seq"},
	{"marks.parquet", "SELECT * FROM marks ORDER BY seq"},
}

// ResultWriter stages models and marks in an in-memory DuckDB and copies them
// to parquet files on Flush. It implements marker.Marker.
type ResultWriter struct {
	db        *sql.DB
	logger    *logger.Logger
	sq        squirrel.StatementBuilderType
	outputDir string
	runID     string
	// stats summarizes the last staged model
	stats optional.Option[types.StructureStats]
	mu    sync.Mutex
}

// NewResultWriter creates a writer for one run. Files are written to outputDir.
func NewResultWriter(outputDir string, log *logger.Logger) (*ResultWriter, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeWriteFailed, "failed to connect to database", err)
	}

	w := &ResultWriter{
		db:        db,
		logger:    log,
		sq:        squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		outputDir: outputDir,
		runID:     uuid.New().String(),
	}

	if err := w.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return w, nil
}

// RunID identifies the rows written by this writer.
func (w *ResultWriter) RunID() string {
	return w.runID
}

// OutputDir returns the directory Flush writes to.
func (w *ResultWriter) OutputDir() string {
	return w.outputDir
}

// WriteModel stages the lines, pivots and signals of a model. Rows staged by
// an earlier call are replaced.
func (w *ResultWriter) WriteModel(model *types.Model) error {
	if model == nil {
		return errors.New(errors.ErrCodeMissingParameter, "model is nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeWriteFailed, "writer is closed")
	}

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to begin transaction", err)
	}

	if err := w.writeModel(tx, model); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to commit model", err)
	}

	w.stats = optional.Some(types.NewStructureStats(w.runID, model))

	w.logger.Debug("Staged model",
		zap.String("run_id", w.runID),
		zap.Int64("version", model.Version),
		zap.Int("strokes", len(model.Strokes)),
		zap.Int("segments", len(model.Segments)),
	)

	return nil
}

func (w *ResultWriter) writeModel(tx *sql.Tx, model *types.Model) error {
	for _, table := range []Table{TableLines, TablePivots, TableSignals} {
		_, err := w.sq.Delete(string(table)).Where(squirrel.Eq{"run_id": w.runID}).RunWith(tx).Exec()
		if err != nil {
			return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to clear %s", table)
		}
	}

	for _, lines := range [][]types.Line{model.Strokes, model.Segments} {
		for _, line := range lines {
			if err := w.insertLine(tx, model, line); err != nil {
				return err
			}
		}
	}

	for _, kind := range []types.LineKind{types.LineKindStroke, types.LineKindSegment} {
		for _, pivotType := range types.AllPivotTypes {
			for _, pivot := range model.Pivots(kind, pivotType) {
				if err := w.insertPivot(tx, model, pivot); err != nil {
					return err
				}
			}
		}
	}

	for i, signal := range model.Signals {
		_, err := w.sq.
			Insert(string(TableSignals)).
			Columns(
				"run_id", "seq", "symbol", "time", "type", "name", "reason", "price",
				"line_kind", "line_index", "pivot_type", "pivot_index",
			).
			Values(
				w.runID, i, signal.Symbol, signal.Time, string(signal.Type), signal.Name, signal.Reason, signal.Price,
				string(signal.LineKind), signal.LineIndex, string(signal.PivotType), signal.PivotIndex,
			).
			RunWith(tx).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeWriteFailed, "failed to insert signal", err)
		}
	}

	return nil
}

func (w *ResultWriter) insertLine(tx *sql.Tx, model *types.Model, line types.Line) error {
	labels := make([]string, 0, len(line.Labels)+len(line.Divergences))

	for _, label := range line.Labels {
		labels = append(labels, string(label.Type))
	}

	for _, flag := range line.Divergences {
		labels = append(labels, string(flag.Type))
	}

	_, err := w.sq.
		Insert(string(TableLines)).
		Columns(
			"run_id", "symbol", "period", "kind", "idx", "direction", "done",
			"start_time", "start_value", "end_time", "end_value", "high", "low",
			"start_line", "end_line", "labels",
		).
		Values(
			w.runID, model.Symbol, model.Period, string(line.Kind), line.Index, string(line.Direction), line.Done,
			line.Start.Time, line.Start.Value, line.End.Time, line.End.Value, line.High, line.Low,
			line.StartLine, line.EndLine, strings.Join(labels, ","),
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to insert %s %d", line.Kind, line.Index)
	}

	return nil
}

func (w *ResultWriter) insertPivot(tx *sql.Tx, model *types.Model, pivot types.Pivot) error {
	var exit any

	if pivot.Exit.IsSome() {
		exit = pivot.Exit.Unwrap().Index
	}

	_, err := w.sq.
		Insert(string(TablePivots)).
		Columns(
			"run_id", "symbol", "period", "line_kind", "pivot_type", "level", "idx",
			"zg", "zd", "gg", "dd", "entry_line", "first_line", "last_line", "exit_line", "done",
		).
		Values(
			w.runID, model.Symbol, model.Period, string(pivot.LineKind), string(pivot.Type), pivot.Level, pivot.Index,
			pivot.ZG, pivot.ZD, pivot.GG, pivot.DD, pivot.Entry.Index, pivot.FirstLineIndex(), pivot.LastLineIndex(), exit, pivot.Done,
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to insert pivot %d", pivot.Index)
	}

	return nil
}

// Mark implements marker.Marker.
func (w *ResultWriter) Mark(mark types.Mark) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeWriteFailed, "writer is closed")
	}

	var nextID int

	if err := w.db.QueryRow("SELECT nextval('mark_seq')").Scan(&nextID); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to get next mark sequence", err)
	}

	var signalType, signalName, lineKind, pivotType string

	lineIndex, pivotIndex := -1, -1

	if mark.Signal.IsSome() {
		signal := mark.Signal.Unwrap()
		signalType = string(signal.Type)
		signalName = signal.Name
		lineKind = string(signal.LineKind)
		lineIndex = signal.LineIndex
		pivotType = string(signal.PivotType)
		pivotIndex = signal.PivotIndex
	}

	_, err := w.sq.
		Insert(string(TableMarks)).
		Columns(
			"id", "seq", "run_id", "time", "price", "color", "shape", "title", "message", "category",
			"signal_type", "signal_name", "line_kind", "line_index", "pivot_type", "pivot_index",
		).
		Values(
			uuid.New().String(), nextID, w.runID, mark.Time, mark.Price, string(mark.Color), string(mark.Shape),
			mark.Title, mark.Message, mark.Category,
			signalType, signalName, lineKind, lineIndex, pivotType, pivotIndex,
		).
		RunWith(w.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to insert mark", err)
	}

	return nil
}

// GetMarks implements marker.Marker. Signals are restored without symbol or reason.
func (w *ResultWriter) GetMarks() ([]types.Mark, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil, errors.New(errors.ErrCodeReadFailed, "writer is closed")
	}

	rows, err := w.sq.
		Select(
			"time", "price", "color", "shape", "title", "message", "category",
			"signal_type", "signal_name", "line_kind", "line_index", "pivot_type", "pivot_index",
		).
		From(string(TableMarks)).
		Where(squirrel.Eq{"run_id": w.runID}).
		OrderBy("seq ASC").
		RunWith(w.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailed, "failed to query marks", err)
	}
	defer rows.Close()

	var marks []types.Mark

	for rows.Next() {
		var (
			mark                                 types.Mark
			color, shape, signalType, signalName string
			lineKind, pivotType                  string
			lineIndex, pivotIndex                int
			timestamp                            time.Time
		)

		err := rows.Scan(
			&timestamp, &mark.Price, &color, &shape, &mark.Title, &mark.Message, &mark.Category,
			&signalType, &signalName, &lineKind, &lineIndex, &pivotType, &pivotIndex,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeReadFailed, "failed to scan mark", err)
		}

		mark.Time = timestamp.UTC()
		mark.Color = types.MarkColor(color)
		mark.Shape = types.MarkShape(shape)

		if signalType != "" {
			mark.Signal = optional.Some(types.Signal{
				Time:       mark.Time,
				Type:       types.SignalType(signalType),
				Name:       signalName,
				Price:      mark.Price,
				LineKind:   types.LineKind(lineKind),
				LineIndex:  lineIndex,
				PivotType:  types.PivotType(pivotType),
				PivotIndex: pivotIndex,
			})
		}

		marks = append(marks, mark)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailed, "error iterating marks", err)
	}

	return marks, nil
}

// Count returns the number of rows staged in a table for this run.
func (w *ResultWriter) Count(table Table) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodeReadFailed, "writer is closed")
	}

	var count int

	err := w.sq.
		Select("COUNT(*)").
		From(string(table)).
		Where(squirrel.Eq{"run_id": w.runID}).
		RunWith(w.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeReadFailed, err, "failed to count %s", table)
	}

	return count, nil
}

// Flush copies every staged table to its parquet file in the output directory.
func (w *ResultWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeExportFailed, "writer is closed")
	}

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to create output directory", err)
	}

	for _, export := range exports {
		path := filepath.Join(w.outputDir, export.file)

		_, err := w.db.Exec(fmt.Sprintf(`COPY (%s) TO '%s' (FORMAT PARQUET)`,
			export.query, strings.ReplaceAll(path, "'", "''")))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeExportFailed, err, "failed to export %s", export.file)
		}
	}

	if w.stats.IsSome() {
		if err := types.WriteStructureStats(filepath.Join(w.outputDir, StatsFile), w.stats.Unwrap()); err != nil {
			return errors.Wrap(errors.ErrCodeExportFailed, "failed to export stats", err)
		}
	}

	w.logger.Info("Exported results to parquet",
		zap.String("run_id", w.runID),
		zap.String("output", w.outputDir),
	)

	return nil
}

// Close releases the database.
func (w *ResultWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil
	}

	err := w.db.Close()
	w.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to close database", err)
	}

	return nil
}

func (w *ResultWriter) initialize() error {
	_, err := w.db.Exec(`CREATE SEQUENCE IF NOT EXISTS mark_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create sequence", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS lines (
			run_id TEXT,
			symbol TEXT,
			period TEXT,
			kind TEXT,
			idx INTEGER,
			direction TEXT,
			done BOOLEAN,
			start_time TIMESTAMP,
			start_value DOUBLE,
			end_time TIMESTAMP,
			end_value DOUBLE,
			high DOUBLE,
			low DOUBLE,
			start_line INTEGER,
			end_line INTEGER,
			labels TEXT
		);

		CREATE TABLE IF NOT EXISTS pivots (
			run_id TEXT,
			symbol TEXT,
			period TEXT,
			line_kind TEXT,
			pivot_type TEXT,
			level INTEGER,
			idx INTEGER,
			zg DOUBLE,
			zd DOUBLE,
			gg DOUBLE,
			dd DOUBLE,
			entry_line INTEGER,
			first_line INTEGER,
			last_line INTEGER,
			exit_line INTEGER,
			done BOOLEAN
		);

		CREATE TABLE IF NOT EXISTS signals (
			run_id TEXT,
			seq INTEGER,
			symbol TEXT,
			time TIMESTAMP,
			type TEXT,
			name TEXT,
			reason TEXT,
			price DOUBLE,
			line_kind TEXT,
			line_index INTEGER,
			pivot_type TEXT,
			pivot_index INTEGER
		);

		CREATE TABLE IF NOT EXISTS marks (
			id TEXT PRIMARY KEY,
			seq INTEGER,
			run_id TEXT,
			time TIMESTAMP,
			price DOUBLE,
			color TEXT,
			shape TEXT,
			title TEXT,
			message TEXT,
			category TEXT,
			signal_type TEXT,
			signal_name TEXT,
			line_kind TEXT,
			line_index INTEGER,
			pivot_type TEXT,
			pivot_index INTEGER
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create tables", err)
	}

	return nil
}

var _ marker.Marker = (*ResultWriter)(nil)
