// Package core implements the three position state transitions — deposit,
// withdraw, liquidate — plus the config lifecycle. Every mutating operation
// follows the same shape: build the tentative post-state with checked
// arithmetic, validate an oracle quote, gate on the health factor, and only
// then commit and instruct the external collaborators to move value. Any
// failing check aborts before a collaborator is touched, so a failed
// operation leaves the position and all balances untouched.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stablecore/internal/event"
	"stablecore/internal/observability"
	"stablecore/internal/oracle"
	"stablecore/internal/protocol"
	"stablecore/internal/smath"
	"stablecore/internal/state"
)

// Quote carries one raw oracle quote blob plus the trusted current slot the
// caller observed when submitting the operation.
type Quote struct {
	Data []byte
	Slot uint64
}

// Engine composes the config store, position set, quote verifier, and the
// external collaborators into the protocol's operations. Concurrent calls
// against the same position are serialized internally; different positions
// proceed in parallel.
type Engine struct {
	configs   *state.ConfigStore
	positions *state.PositionManager
	verifier  *oracle.QuoteVerifier
	custody   CollateralCustody
	token     DebtToken
	sink      EventSink
	recorder  Recorder
	metrics   *observability.Metrics
	log       zerolog.Logger
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithEventSink wires outbound event publishing.
func WithEventSink(sink EventSink) EngineOption {
	return func(e *Engine) { e.sink = sink }
}

// WithRecorder wires durable snapshot writes.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the default component logger.
func WithLogger(log zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func NewEngine(
	configs *state.ConfigStore,
	positions *state.PositionManager,
	verifier *oracle.QuoteVerifier,
	custody CollateralCustody,
	token DebtToken,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		configs:   configs,
		positions: positions,
		verifier:  verifier,
		custody:   custody,
		token:     token,
		log:       observability.NewLogger("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DepositResult reports the committed post-state of a deposit.
type DepositResult struct {
	Owner         uuid.UUID
	NewCollateral uint64
	NewDebt       uint64
	HealthFactor  decimal.Decimal
}

// Deposit adds collateral to the owner's vault and optionally mints debt
// against it. The tentative post-state must clear the minimum LTV gate.
func (e *Engine) Deposit(ctx context.Context, owner uuid.UUID, collateralDelta, debtDelta uint64, quote Quote) (DepositResult, error) {
	start := time.Now()

	res, err := e.deposit(ctx, owner, collateralDelta, debtDelta, quote)
	e.observe("deposit", start, err)
	if err != nil {
		return DepositResult{}, err
	}

	e.log.Info().
		Str("owner", owner.String()).
		Uint64("collateral_delta", collateralDelta).
		Uint64("debt_minted", debtDelta).
		Str("health_factor", res.HealthFactor.String()).
		Msg("deposit committed")

	return res, nil
}

func (e *Engine) deposit(ctx context.Context, owner uuid.UUID, collateralDelta, debtDelta uint64, quote Quote) (DepositResult, error) {
	cfg, ok := e.configs.Snapshot()
	if !ok {
		return DepositResult{}, fmt.Errorf("config not initialized")
	}
	if collateralDelta == 0 {
		return DepositResult{}, protocol.ErrInvalidCollateralAmount
	}

	lock := e.positions.LockOwner(owner)
	lock.Lock()
	defer lock.Unlock()

	pos := e.positions.FindOrCreate(owner)

	balance, err := e.custody.Balance(ctx, owner)
	if err != nil {
		return DepositResult{}, fmt.Errorf("read vault balance: %w", err)
	}

	newCollateral, err := smath.Add(balance, collateralDelta)
	if err != nil {
		return DepositResult{}, err
	}
	newDebt, err := smath.Add(pos.AmountMinted, debtDelta)
	if err != nil {
		return DepositResult{}, err
	}

	price, err := e.verifyQuote(quote)
	if err != nil {
		return DepositResult{}, err
	}

	hf, err := state.HealthFactor(newCollateral, newDebt, price)
	if err != nil {
		return DepositResult{}, err
	}
	if err := e.requireHealthy(hf, cfg.MinLoanToValueBps); err != nil {
		return DepositResult{}, err
	}

	if err := e.custody.Deposit(ctx, owner, collateralDelta); err != nil {
		return DepositResult{}, fmt.Errorf("move collateral in: %w", err)
	}
	if debtDelta > 0 {
		if err := e.token.Mint(ctx, owner, debtDelta); err != nil {
			return DepositResult{}, fmt.Errorf("mint debt: %w", err)
		}
	}

	committed := e.positions.Commit(owner, newDebt)

	e.commitPosition(ctx, committed)
	e.publish(ctx, &event.CollateralDeposited{
		OperationID:     uuid.New(),
		Owner:           owner,
		CollateralDelta: collateralDelta,
		DebtMinted:      debtDelta,
		NewCollateral:   newCollateral,
		NewDebt:         newDebt,
		HealthFactor:    hf.String(),
		Timestamp:       time.Now().UnixMicro(),
	})
	e.observeHealthFactor("deposit", hf)

	return DepositResult{
		Owner:         owner,
		NewCollateral: newCollateral,
		NewDebt:       newDebt,
		HealthFactor:  hf,
	}, nil
}

// WithdrawResult reports the committed post-state of a withdrawal.
type WithdrawResult struct {
	Owner         uuid.UUID
	NewCollateral uint64
	NewDebt       uint64
	HealthFactor  decimal.Decimal
}

// Withdraw removes collateral from the owner's vault and optionally burns
// debt. The tentative post-state must clear the minimum LTV gate and the
// remaining vault balance must stay at or above the custody reserve floor.
func (e *Engine) Withdraw(ctx context.Context, owner uuid.UUID, collateralDelta, debtDelta uint64, quote Quote) (WithdrawResult, error) {
	start := time.Now()

	res, err := e.withdraw(ctx, owner, collateralDelta, debtDelta, quote)
	e.observe("withdraw", start, err)
	if err != nil {
		return WithdrawResult{}, err
	}

	e.log.Info().
		Str("owner", owner.String()).
		Uint64("collateral_delta", collateralDelta).
		Uint64("debt_burned", debtDelta).
		Str("health_factor", res.HealthFactor.String()).
		Msg("withdrawal committed")

	return res, nil
}

func (e *Engine) withdraw(ctx context.Context, owner uuid.UUID, collateralDelta, debtDelta uint64, quote Quote) (WithdrawResult, error) {
	cfg, ok := e.configs.Snapshot()
	if !ok {
		return WithdrawResult{}, fmt.Errorf("config not initialized")
	}

	lock := e.positions.LockOwner(owner)
	lock.Lock()
	defer lock.Unlock()

	pos := e.positions.Get(owner)
	if pos == nil {
		return WithdrawResult{}, fmt.Errorf("no position for owner %s", owner)
	}

	balance, err := e.custody.Balance(ctx, owner)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("read vault balance: %w", err)
	}

	// Underflow here means the caller asked for more than they hold.
	newCollateral, err := smath.Sub(balance, collateralDelta)
	if err != nil {
		return WithdrawResult{}, err
	}
	newDebt, err := smath.Sub(pos.AmountMinted, debtDelta)
	if err != nil {
		return WithdrawResult{}, err
	}

	price, err := e.verifyQuote(quote)
	if err != nil {
		return WithdrawResult{}, err
	}

	hf, err := state.HealthFactor(newCollateral, newDebt, price)
	if err != nil {
		return WithdrawResult{}, err
	}
	if err := e.requireHealthy(hf, cfg.MinLoanToValueBps); err != nil {
		return WithdrawResult{}, err
	}

	if newCollateral < e.custody.MinimumReserve() {
		return WithdrawResult{}, protocol.ErrRentBelowMinimumAfterWithdrawal
	}

	if err := e.custody.Withdraw(ctx, owner, owner, collateralDelta); err != nil {
		return WithdrawResult{}, fmt.Errorf("move collateral out: %w", err)
	}
	if debtDelta > 0 {
		if err := e.token.Burn(ctx, owner, debtDelta); err != nil {
			return WithdrawResult{}, fmt.Errorf("burn debt: %w", err)
		}
	}

	committed := e.positions.Commit(owner, newDebt)

	e.commitPosition(ctx, committed)
	e.publish(ctx, &event.CollateralWithdrawn{
		OperationID:     uuid.New(),
		Owner:           owner,
		CollateralDelta: collateralDelta,
		DebtBurned:      debtDelta,
		NewCollateral:   newCollateral,
		NewDebt:         newDebt,
		HealthFactor:    hf.String(),
		Timestamp:       time.Now().UnixMicro(),
	})
	e.observeHealthFactor("withdraw", hf)

	return WithdrawResult{
		Owner:         owner,
		NewCollateral: newCollateral,
		NewDebt:       newDebt,
		HealthFactor:  hf,
	}, nil
}

// LiquidationResult reports the committed settlement of a liquidation.
type LiquidationResult struct {
	Owner              uuid.UUID
	Liquidator         uuid.UUID
	CollateralSeized   uint64
	DebtBurned         uint64
	NewCollateral      uint64
	NewDebt            uint64
	HealthFactorBefore decimal.Decimal
	HealthFactorAfter  decimal.Decimal
}

// Liquidate lets a third party repay amountToBurn of an under-collateralized
// position's debt in exchange for the equivalent collateral plus the
// configured bonus. The position must be strictly below the liquidation
// threshold before, and at or above the minimum LTV after — a single call
// may not overshoot.
func (e *Engine) Liquidate(ctx context.Context, liquidator, owner uuid.UUID, amountToBurn uint64, quote Quote) (LiquidationResult, error) {
	start := time.Now()

	res, err := e.liquidate(ctx, liquidator, owner, amountToBurn, quote)
	e.observe("liquidate", start, err)
	if err != nil {
		return LiquidationResult{}, err
	}

	e.log.Info().
		Str("owner", owner.String()).
		Str("liquidator", liquidator.String()).
		Uint64("debt_burned", amountToBurn).
		Uint64("collateral_seized", res.CollateralSeized).
		Str("health_factor_before", res.HealthFactorBefore.String()).
		Str("health_factor_after", res.HealthFactorAfter.String()).
		Msg("liquidation committed")

	return res, nil
}

func (e *Engine) liquidate(ctx context.Context, liquidator, owner uuid.UUID, amountToBurn uint64, quote Quote) (LiquidationResult, error) {
	cfg, ok := e.configs.Snapshot()
	if !ok {
		return LiquidationResult{}, fmt.Errorf("config not initialized")
	}

	lock := e.positions.LockOwner(owner)
	lock.Lock()
	defer lock.Unlock()

	pos := e.positions.Get(owner)
	if pos == nil {
		return LiquidationResult{}, fmt.Errorf("no position for owner %s", owner)
	}

	balance, err := e.custody.Balance(ctx, owner)
	if err != nil {
		return LiquidationResult{}, fmt.Errorf("read vault balance: %w", err)
	}

	price, err := e.verifyQuote(quote)
	if err != nil {
		return LiquidationResult{}, err
	}

	hfBefore, err := state.HealthFactor(balance, pos.AmountMinted, price)
	if err != nil {
		return LiquidationResult{}, err
	}
	threshold := smath.BpsToDecimal(cfg.LiquidationThresholdBps)
	if hfBefore.GreaterThanOrEqual(threshold) {
		return LiquidationResult{}, fmt.Errorf("health factor %s at threshold %s: %w",
			hfBefore, threshold, protocol.ErrAboveLiquidationThreshold)
	}

	// Price the seized collateral: base claim plus the liquidator bonus.
	baseCollateral, err := state.DebtToCollateralUnits(amountToBurn, price)
	if err != nil {
		return LiquidationResult{}, err
	}
	bonusFraction := smath.BpsToDecimal(cfg.LiquidationBonusBps)
	amountToLiquidate, err := smath.DecToUint64(baseCollateral.Add(baseCollateral.Mul(bonusFraction)))
	if err != nil {
		return LiquidationResult{}, err
	}

	// Underflow here means the liquidator tried to seize or repay more
	// than exists.
	newCollateral, err := smath.Sub(balance, amountToLiquidate)
	if err != nil {
		return LiquidationResult{}, err
	}
	newDebt, err := smath.Sub(pos.AmountMinted, amountToBurn)
	if err != nil {
		return LiquidationResult{}, err
	}

	hfAfter, err := state.HealthFactor(newCollateral, newDebt, price)
	if err != nil {
		return LiquidationResult{}, err
	}
	if err := e.requireHealthy(hfAfter, cfg.MinLoanToValueBps); err != nil {
		return LiquidationResult{}, err
	}

	if err := e.custody.Withdraw(ctx, owner, liquidator, amountToLiquidate); err != nil {
		return LiquidationResult{}, fmt.Errorf("move seized collateral: %w", err)
	}
	if err := e.token.Burn(ctx, liquidator, amountToBurn); err != nil {
		return LiquidationResult{}, fmt.Errorf("burn repaid debt: %w", err)
	}

	committed := e.positions.Commit(owner, newDebt)

	e.commitPosition(ctx, committed)
	e.publish(ctx, &event.PositionLiquidated{
		OperationID:        uuid.New(),
		Owner:              owner,
		Liquidator:         liquidator,
		DebtBurned:         amountToBurn,
		CollateralSeized:   amountToLiquidate,
		NewCollateral:      newCollateral,
		NewDebt:            newDebt,
		HealthFactorBefore: hfBefore.String(),
		HealthFactorAfter:  hfAfter.String(),
		Timestamp:          time.Now().UnixMicro(),
	})
	e.observeHealthFactor("liquidate", hfAfter)
	if e.metrics != nil {
		e.metrics.LiquidationsTotal.Inc()
		e.metrics.CollateralSeizedTotal.Add(float64(amountToLiquidate))
		e.metrics.DebtBurnedTotal.Add(float64(amountToBurn))
	}

	return LiquidationResult{
		Owner:              owner,
		Liquidator:         liquidator,
		CollateralSeized:   amountToLiquidate,
		DebtBurned:         amountToBurn,
		NewCollateral:      newCollateral,
		NewDebt:            newDebt,
		HealthFactorBefore: hfBefore,
		HealthFactorAfter:  hfAfter,
	}, nil
}

// InitializeConfig creates the protocol config record.
func (e *Engine) InitializeConfig(ctx context.Context, authority uuid.UUID, minLtvBps, liquidationThresholdBps, liquidationBonusBps uint16) (state.Config, error) {
	cfg, err := e.configs.Initialize(authority, minLtvBps, liquidationThresholdBps, liquidationBonusBps)
	if err != nil {
		return state.Config{}, err
	}

	e.commitConfig(ctx, cfg)
	e.publish(ctx, &event.ConfigInitialized{
		Authority:               cfg.Authority,
		MinLoanToValueBps:       cfg.MinLoanToValueBps,
		LiquidationThresholdBps: cfg.LiquidationThresholdBps,
		LiquidationBonusBps:     cfg.LiquidationBonusBps,
		Timestamp:               time.Now().UnixMicro(),
	})

	e.log.Info().
		Str("authority", cfg.Authority.String()).
		Uint16("min_ltv_bps", cfg.MinLoanToValueBps).
		Uint16("liquidation_threshold_bps", cfg.LiquidationThresholdBps).
		Uint16("liquidation_bonus_bps", cfg.LiquidationBonusBps).
		Msg("config initialized")

	return cfg, nil
}

// UpdateConfig applies a partial parameter change on behalf of caller.
func (e *Engine) UpdateConfig(ctx context.Context, caller uuid.UUID, upd state.ConfigUpdate) (state.Config, error) {
	cfg, err := e.configs.Update(caller, upd)
	if err != nil {
		return state.Config{}, err
	}

	e.commitConfig(ctx, cfg)
	e.publish(ctx, &event.ConfigUpdated{
		UpdateID:                uuid.New(),
		MinLoanToValueBps:       cfg.MinLoanToValueBps,
		LiquidationThresholdBps: cfg.LiquidationThresholdBps,
		LiquidationBonusBps:     cfg.LiquidationBonusBps,
		Timestamp:               time.Now().UnixMicro(),
	})

	e.log.Info().
		Uint16("min_ltv_bps", cfg.MinLoanToValueBps).
		Uint16("liquidation_threshold_bps", cfg.LiquidationThresholdBps).
		Uint16("liquidation_bonus_bps", cfg.LiquidationBonusBps).
		Msg("config updated")

	return cfg, nil
}

// Position returns a copy of the owner's position, if any.
func (e *Engine) Position(owner uuid.UUID) (state.Position, bool) {
	return e.positions.Snapshot(owner)
}

// Config returns the current config snapshot, if initialized.
func (e *Engine) Config() (state.Config, bool) {
	return e.configs.Snapshot()
}

// PositionHealth computes the live health factor of a position against a
// caller-supplied quote, without mutating anything.
func (e *Engine) PositionHealth(ctx context.Context, owner uuid.UUID, quote Quote) (decimal.Decimal, error) {
	pos, ok := e.positions.Snapshot(owner)
	if !ok {
		return decimal.Zero, fmt.Errorf("no position for owner %s", owner)
	}

	balance, err := e.custody.Balance(ctx, owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read vault balance: %w", err)
	}
	price, err := e.verifyQuote(quote)
	if err != nil {
		return decimal.Zero, err
	}

	return state.HealthFactor(balance, pos.AmountMinted, price)
}

func (e *Engine) verifyQuote(quote Quote) (decimal.Decimal, error) {
	price, err := e.verifier.Verify(quote.Data, quote.Slot)
	if err != nil {
		if e.metrics != nil {
			e.metrics.QuoteRejections.WithLabelValues(protocol.Kind(err)).Inc()
		}
		return decimal.Zero, err
	}
	return price, nil
}

func (e *Engine) requireHealthy(hf decimal.Decimal, minLtvBps uint16) error {
	minLtv := smath.BpsToDecimal(minLtvBps)
	if hf.LessThan(minLtv) {
		return fmt.Errorf("health factor %s below minimum %s: %w",
			hf, minLtv, protocol.ErrBelowMinimumHealthFactor)
	}
	return nil
}

func (e *Engine) commitPosition(ctx context.Context, pos state.Position) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.SavePosition(ctx, pos); err != nil {
		if e.metrics != nil {
			e.metrics.PersistErrors.Inc()
		}
		e.log.Error().Err(err).Str("owner", pos.Owner.String()).Msg("persist position")
	}
}

func (e *Engine) commitConfig(ctx context.Context, cfg state.Config) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.SaveConfig(ctx, cfg); err != nil {
		if e.metrics != nil {
			e.metrics.PersistErrors.Inc()
		}
		e.log.Error().Err(err).Msg("persist config")
	}
}

func (e *Engine) publish(ctx context.Context, evt event.Event) {
	if e.recorder != nil {
		if err := e.recorder.RecordEvent(ctx, evt); err != nil {
			if e.metrics != nil {
				e.metrics.PersistErrors.Inc()
			}
			e.log.Error().Err(err).Str("event_type", evt.EventType().String()).Msg("record event")
		}
	}
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, evt); err != nil {
		if e.metrics != nil {
			e.metrics.PublishErrors.Inc()
		}
		e.log.Warn().Err(err).Str("event_type", evt.EventType().String()).Msg("outbound publish failed")
	}
}

func (e *Engine) observe(op string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = protocol.Kind(err)
	}
	e.metrics.OperationsTotal.WithLabelValues(op, result).Inc()
	e.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		e.metrics.PositionsTracked.Set(float64(e.positions.Count()))
		e.metrics.DebtOutstanding.Set(float64(e.positions.TotalDebt()))
	}
}

func (e *Engine) observeHealthFactor(op string, hf decimal.Decimal) {
	if e.metrics == nil || hf.Equal(state.MaxHealthFactor) {
		return
	}
	f, _ := hf.Float64()
	e.metrics.HealthFactor.WithLabelValues(op).Observe(f)
}
