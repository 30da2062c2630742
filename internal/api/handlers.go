package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/trading"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/internal/version"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func (s *Server) engineFor(w http.ResponseWriter, r *http.Request) (engine.SignalEngine, bool) {
	name := types.StrategyName(mux.Vars(r)["engine"])

	e, err := s.system.Engine(name)
	if err != nil {
		writeError(w, err)

		return nil, false
	}

	return e, true
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to read request body", err)
	}

	return data, nil
}

func intQuery(r *http.Request, key string, fallback, limit int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "%s must be a positive integer", key)
	}

	return min(v, limit), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.GetVersion()})
}

func (s *Server) handlePairs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Pairs())
}

func (s *Server) handleSuggestPair(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pair := strategy.Pair{
		AssetA: strings.ToUpper(q.Get("asset_a")),
		AssetB: strings.ToUpper(q.Get("asset_b")),
	}

	interval := q.Get("interval")
	if interval == "" {
		interval = defaultSuggestPeriod
	}

	limit, err := intQuery(r, "limit", defaultSuggestLimit, maxHistoryLimit)
	if err != nil {
		writeError(w, err)

		return
	}

	suggestion, err := s.system.SuggestPair(r.Context(), pair, interval, limit)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}

func (s *Server) statuses(ctx context.Context) []types.EngineStatus {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	engines := s.system.Engines()
	out := make([]types.EngineStatus, 0, len(engines))

	for _, e := range engines {
		out = append(out, e.Status(ctx))
	}

	return out
}

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.statuses(r.Context()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, e.Status(ctx))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, e.Config())
}

// handlePutConfig replaces the config. Missing fields take their defaults.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, err)

		return
	}

	s.applyConfig(w, e, data)
}

// handlePatchConfig merges the body over the active config.
func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, err)

		return
	}

	merged, err := mergeJSON(e.Config(), data)
	if err != nil {
		writeError(w, err)

		return
	}

	s.applyConfig(w, e, merged)
}

func mergeJSON(current any, patch []byte) ([]byte, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to encode active config", err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to decode active config", err)
	}

	changes := map[string]any{}
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "config patch must be a JSON object", err)
	}

	for k, v := range changes {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to encode merged config", err)
	}

	return merged, nil
}

func (s *Server) applyConfig(w http.ResponseWriter, e engine.SignalEngine, data []byte) {
	cfg, err := strategy.ParseConfig(e.Name(), data)
	if err != nil {
		writeError(w, err)

		return
	}

	if err := e.SetConfig(cfg); err != nil {
		writeError(w, err)

		return
	}

	s.log.Info("Engine config updated", zap.String("engine", string(e.Name())))
	writeJSON(w, http.StatusOK, e.Config())
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	name := types.StrategyName(mux.Vars(r)["engine"])

	schema, err := strategy.GetConfigSchema(name)
	if err != nil {
		writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(schema))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	if err := e.Start(s.baseCtx); err != nil {
		writeError(w, err)

		return
	}

	s.log.Info("Engine started over API", zap.String("engine", string(e.Name())))
	writeJSON(w, http.StatusAccepted, e.Status(r.Context()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	if err := e.Stop(); err != nil {
		writeError(w, err)

		return
	}

	s.log.Info("Engine stopped over API", zap.String("engine", string(e.Name())))
	writeJSON(w, http.StatusOK, e.Status(r.Context()))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	decision, err := e.Preview(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleManualTrade(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var req engine.ManualTradeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid manual trade request", err))

		return
	}

	decision, err := e.ManualTrade(r.Context(), req)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	pos, err := e.SyncFromBalances(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	if err := e.Reset(); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, e.Status(r.Context()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	limit, err := intQuery(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		writeError(w, err)

		return
	}

	history, err := e.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, e.Stats())
}

// handleStream sends the current status of every engine, then live events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	statuses := s.statuses(r.Context())
	initial := make([]trading.Event, 0, len(statuses))

	for _, status := range statuses {
		initial = append(initial, trading.Event{
			Type:    trading.EventStatus,
			Engine:  status.Engine,
			Time:    time.Now(),
			Payload: status,
		})
	}

	s.hub.serve(w, r, initial)
}
