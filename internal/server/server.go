// Package server exposes one analysis context over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-structure/internal/analyzer"
	"github.com/rxtech-lab/argo-structure/internal/logger"
	"github.com/rxtech-lab/argo-structure/internal/marker"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// Server serves the read contract of an analyzer. Update and recompute
// requests go through the analyzer's own lock.
type Server struct {
	analyzer   analyzer.Analyzer
	logger     *logger.Logger
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Summary is a compact view of the published model.
type Summary struct {
	Symbol       string `json:"symbol"`
	Period       string `json:"period"`
	Version      int64  `json:"version"`
	Bars         int    `json:"bars"`
	AnalysisBars int    `json:"analysis_bars"`
	Fractals     int    `json:"fractals"`
	Strokes      int    `json:"strokes"`
	Segments     int    `json:"segments"`
	Signals      int    `json:"signals"`
}

func NewServer(a analyzer.Analyzer, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Server{
		analyzer: a,
		logger:   log,
		router:   mux.NewRouter(),
	}

	routes := []struct {
		path    string
		method  string
		handler http.HandlerFunc
	}{
		{"/summary", http.MethodGet, s.handleSummary},
		{"/model", http.MethodGet, s.handleModel},
		{"/bars", http.MethodGet, s.handleBars},
		{"/bars", http.MethodPost, s.handleUpdate},
		{"/recompute", http.MethodPost, s.handleRecompute},
		{"/analysis-bars", http.MethodGet, s.handleAnalysisBars},
		{"/fractals", http.MethodGet, s.handleFractals},
		{"/strokes", http.MethodGet, s.handleLines(types.LineKindStroke)},
		{"/segments", http.MethodGet, s.handleLines(types.LineKindSegment)},
		{"/pivots/{kind}/{type}", http.MethodGet, s.handlePivots},
		{"/pivots/{kind}/{type}/pending", http.MethodGet, s.handlePendingPivot},
		{"/momentum", http.MethodGet, s.handleMomentum},
		{"/signals", http.MethodGet, s.handleSignals},
		{"/marks", http.MethodGet, s.handleMarks},
		{"/schema", http.MethodGet, s.handleSchema},
		{"/state", http.MethodGet, s.handleState},
	}

	// Routes live on the root router so a method mismatch answers 405.
	for _, r := range routes {
		s.router.HandleFunc(apiPrefix+r.path, r.handler).Methods(r.method)
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background.
// If address is empty or ":0", a random available port is used.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("Serving analysis", zap.String("address", s.Address()))

	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	model := s.analyzer.Model()

	writeJSON(w, http.StatusOK, Summary{
		Symbol:       model.Symbol,
		Period:       model.Period,
		Version:      model.Version,
		Bars:         len(model.Bars),
		AnalysisBars: len(model.AnalysisBars),
		Fractals:     len(model.Fractals),
		Strokes:      len(model.Strokes),
		Segments:     len(model.Segments),
		Signals:      len(model.Signals),
	})
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Model())
}

// handleBars handles GET /bars?from=&to= with inclusive raw bar indices.
func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	bars := s.analyzer.Model().Bars

	from, to, err := indexRange(r, len(bars))
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, bars[from:to])
}

func (s *Server) handleAnalysisBars(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Model().AnalysisBars)
}

func (s *Server) handleFractals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Model().Fractals)
}

func (s *Server) handleLines(kind types.LineKind) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.analyzer.Model().Lines(kind))
	}
}

func (s *Server) handlePivots(w http.ResponseWriter, r *http.Request) {
	kind, pivotType, err := pivotSelector(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, s.analyzer.Model().Pivots(kind, pivotType))
}

func (s *Server) handlePendingPivot(w http.ResponseWriter, r *http.Request) {
	kind, pivotType, err := pivotSelector(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	pending := s.analyzer.Model().PendingPivot(kind, pivotType)
	if pending.IsNone() {
		s.writeError(w, errors.Newf(errors.ErrCodeDataNotFound, "no pending %s pivot over %s lines", pivotType, kind))

		return
	}

	writeJSON(w, http.StatusOK, pending.Unwrap())
}

func (s *Server) handleMomentum(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Model().Momentum)
}

// handleSignals handles GET /signals?type= filtered by signal type.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	signals := s.analyzer.Model().Signals

	if signalType := r.URL.Query().Get("type"); signalType != "" {
		filtered := make([]types.Signal, 0, len(signals))

		for _, signal := range signals {
			if string(signal.Type) == signalType {
				filtered = append(filtered, signal)
			}
		}

		signals = filtered
	}

	writeJSON(w, http.StatusOK, signals)
}

func (s *Server) handleMarks(w http.ResponseWriter, _ *http.Request) {
	recorder := marker.NewRecorder()

	if err := marker.MarkSignals(recorder, s.analyzer.Model().Signals); err != nil {
		s.writeError(w, err)

		return
	}

	marks, err := recorder.GetMarks()
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, marks)
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	schema, err := s.analyzer.GetConfigSchema()
	if err != nil {
		s.writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(schema))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state, err := s.analyzer.ExportState()
	if err != nil {
		s.writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(state)
}

// handleUpdate handles POST /bars with a JSON array of bars.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	bars, err := decodeBars(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	result, err := s.analyzer.Update(bars)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.logger.Debug("Applied bars over HTTP",
		zap.Int("bars", len(bars)),
		zap.Int64("version", result.Version),
		zap.Bool("noop", result.Noop),
	)

	writeJSON(w, http.StatusOK, result)
}

// handleRecompute handles POST /recompute with the full bar history.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	bars, err := decodeBars(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	result, err := s.analyzer.Recompute(bars)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, result)
}

func decodeBars(r *http.Request) ([]types.Bar, error) {
	var bars []types.Bar

	if err := json.NewDecoder(r.Body).Decode(&bars); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, "invalid bar batch", err)
	}

	return bars, nil
}

func pivotSelector(r *http.Request) (types.LineKind, types.PivotType, error) {
	vars := mux.Vars(r)

	kind := types.LineKind(vars["kind"])
	if kind != types.LineKindStroke && kind != types.LineKindSegment {
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "unknown line kind: %s", kind)
	}

	pivotType := types.PivotType(vars["type"])
	if !slices.Contains(types.AllPivotTypes, pivotType) {
		return "", "", errors.Newf(errors.ErrCodeInvalidPivotType, "unknown pivot type: %s", pivotType)
	}

	return kind, pivotType, nil
}

// indexRange parses the optional from/to query parameters into slice bounds.
func indexRange(r *http.Request, length int) (int, int, error) {
	from, to := 0, length

	if value := r.URL.Query().Get("from"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid from: %s", value)
		}

		from = min(parsed, length)
	}

	if value := r.URL.Query().Get("to"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid to: %s", value)
		}

		to = min(parsed+1, length)
	}

	if from > to {
		return 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "from %d is after to %d", from, to-1)
	}

	return from, to, nil
}

func statusOf(code errors.ErrorCode) int {
	switch {
	case code == errors.ErrCodeDataNotFound || code == errors.ErrCodeNoDataFound:
		return http.StatusNotFound
	case code == errors.ErrCodeHistoryUnavailable:
		return http.StatusConflict
	case code == errors.ErrCodeParseFailed:
		return http.StatusBadRequest
	case code >= 100 && code < 200:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusOf(code)

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}

	writeJSON(w, status, ErrorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
