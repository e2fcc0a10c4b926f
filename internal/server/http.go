// Package server exposes the engine over HTTP/JSON for operators, bots,
// and dashboards, plus a small gRPC endpoint for health probing.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stablecore/internal/core"
	"stablecore/internal/observability"
	"stablecore/internal/protocol"
	"stablecore/internal/state"
)

// HTTPServer serves the engine's operations as a JSON API.
type HTTPServer struct {
	engine *core.Engine
	health *observability.HealthChecker
	srv    *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(addr string, engine *core.Engine, health *observability.HealthChecker) *HTTPServer {
	s := &HTTPServer{
		engine: engine,
		health: health,
		log:    observability.NewLogger("http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", health.LivenessHandler)
	r.Get("/readyz", health.ReadinessHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/config", s.handleInitConfig)
		r.Patch("/config", s.handleUpdateConfig)
		r.Get("/config", s.handleGetConfig)

		r.Route("/positions/{owner}", func(r chi.Router) {
			r.Get("/", s.handleGetPosition)
			r.Post("/deposit", s.handleDeposit)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/liquidate", s.handleLiquidate)
			r.Post("/health-factor", s.handleHealthFactor)
		})
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// quoteRequest is the wire form of an oracle quote: the raw verified blob,
// base64-encoded, plus the current slot the caller observed.
type quoteRequest struct {
	Quote       string `json:"quote"`
	CurrentSlot uint64 `json:"current_slot"`
}

func (q quoteRequest) decode() (core.Quote, error) {
	data, err := base64.StdEncoding.DecodeString(q.Quote)
	if err != nil {
		return core.Quote{}, protocol.ErrInvalidQuoteFormat
	}
	return core.Quote{Data: data, Slot: q.CurrentSlot}, nil
}

type initConfigRequest struct {
	Authority               string `json:"authority"`
	MinLtvBps               uint16 `json:"min_ltv_bps"`
	LiquidationThresholdBps uint16 `json:"liquidation_threshold_bps"`
	LiquidationBonusBps     uint16 `json:"liquidation_bonus_bps"`
}

func (s *HTTPServer) handleInitConfig(w http.ResponseWriter, r *http.Request) {
	var req initConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	authority, err := uuid.Parse(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid authority id")
		return
	}

	cfg, err := s.engine.InitializeConfig(r.Context(), authority, req.MinLtvBps, req.LiquidationThresholdBps, req.LiquidationBonusBps)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, configResponse(cfg))
}

type updateConfigRequest struct {
	Caller                  string  `json:"caller"`
	MinLtvBps               *uint16 `json:"min_ltv_bps,omitempty"`
	LiquidationThresholdBps *uint16 `json:"liquidation_threshold_bps,omitempty"`
	LiquidationBonusBps     *uint16 `json:"liquidation_bonus_bps,omitempty"`
}

func (s *HTTPServer) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	caller, err := uuid.Parse(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid caller id")
		return
	}

	cfg, err := s.engine.UpdateConfig(r.Context(), caller, state.ConfigUpdate{
		MinLoanToValueBps:       req.MinLtvBps,
		LiquidationThresholdBps: req.LiquidationThresholdBps,
		LiquidationBonusBps:     req.LiquidationBonusBps,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse(cfg))
}

func (s *HTTPServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.engine.Config()
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "config not initialized")
		return
	}
	writeJSON(w, http.StatusOK, configResponse(cfg))
}

func configResponse(cfg state.Config) map[string]any {
	return map[string]any{
		"authority":                 cfg.Authority.String(),
		"min_ltv_bps":               cfg.MinLoanToValueBps,
		"liquidation_threshold_bps": cfg.LiquidationThresholdBps,
		"liquidation_bonus_bps":     cfg.LiquidationBonusBps,
	}
}

type depositRequest struct {
	CollateralAmount uint64 `json:"collateral_amount"`
	MintAmount       uint64 `json:"mint_amount"`
	quoteRequest
}

func (s *HTTPServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	quote, err := req.decode()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	res, err := s.engine.Deposit(r.Context(), owner, req.CollateralAmount, req.MintAmount, quote)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":          res.Owner.String(),
		"new_collateral": res.NewCollateral,
		"new_debt":       res.NewDebt,
		"health_factor":  res.HealthFactor.String(),
	})
}

type withdrawRequest struct {
	CollateralAmount uint64 `json:"collateral_amount"`
	BurnAmount       uint64 `json:"burn_amount"`
	quoteRequest
}

func (s *HTTPServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	quote, err := req.decode()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	res, err := s.engine.Withdraw(r.Context(), owner, req.CollateralAmount, req.BurnAmount, quote)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":          res.Owner.String(),
		"new_collateral": res.NewCollateral,
		"new_debt":       res.NewDebt,
		"health_factor":  res.HealthFactor.String(),
	})
}

type liquidateRequest struct {
	Liquidator string `json:"liquidator"`
	BurnAmount uint64 `json:"burn_amount"`
	quoteRequest
}

func (s *HTTPServer) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	var req liquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	liquidator, err := uuid.Parse(req.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid liquidator id")
		return
	}
	quote, err := req.decode()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	res, err := s.engine.Liquidate(r.Context(), liquidator, owner, req.BurnAmount, quote)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":                res.Owner.String(),
		"liquidator":           res.Liquidator.String(),
		"debt_burned":          res.DebtBurned,
		"collateral_seized":    res.CollateralSeized,
		"health_factor_before": res.HealthFactorBefore.String(),
		"health_factor_after":  res.HealthFactorAfter.String(),
	})
}

func (s *HTTPServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	pos, found := s.engine.Position(owner)
	if !found {
		writeError(w, http.StatusNotFound, "NotFound", "position not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":         pos.Owner.String(),
		"amount_minted": pos.AmountMinted,
		"has_debt":      pos.HasDebt(),
		"version":       pos.Version,
	})
}

// handleHealthFactor computes the health factor against a caller-supplied
// quote. POST because the quote blob doesn't fit a query string.
func (s *HTTPServer) handleHealthFactor(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	quote, err := req.decode()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	hf, err := s.engine.PositionHealth(r.Context(), owner, quote)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":         owner.String(),
		"health_factor": hf.String(),
	})
}

func ownerParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	owner, err := uuid.Parse(chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid owner id")
		return uuid.UUID{}, false
	}
	return owner, true
}

// writeEngineError maps the error taxonomy onto HTTP statuses. Validation
// and gate failures are the caller's problem; anything outside the taxonomy
// is ours.
func (s *HTTPServer) writeEngineError(w http.ResponseWriter, err error) {
	kind := protocol.Kind(err)

	var status int
	switch kind {
	case "Unauthorized":
		status = http.StatusForbidden
	case "BelowMinimumHealthFactor", "AboveLiquidationThreshold", "RentBelowMinimumAfterWithdrawal":
		status = http.StatusConflict
	case "Internal":
		status = http.StatusInternalServerError
		s.log.Error().Err(err).Msg("operation failed")
	default:
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, kind, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]string{"error": kind, "message": msg})
}
