// Package event defines the typed events emitted after every committed
// state transition. Events are published outbound and recorded for audit;
// they are never an input to the risk logic itself.
package event

import (
	"fmt"

	"github.com/google/uuid"
)

// EventType discriminator for event payloads.
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeConfigInitialized
	EventTypeConfigUpdated
	EventTypeCollateralDeposited
	EventTypeCollateralWithdrawn
	EventTypePositionLiquidated
)

func (et EventType) String() string {
	switch et {
	case EventTypeConfigInitialized:
		return "ConfigInitialized"
	case EventTypeConfigUpdated:
		return "ConfigUpdated"
	case EventTypeCollateralDeposited:
		return "CollateralDeposited"
	case EventTypeCollateralWithdrawn:
		return "CollateralWithdrawn"
	case EventTypePositionLiquidated:
		return "PositionLiquidated"
	default:
		return "Unknown"
	}
}

// Event is the interface all event payloads implement.
type Event interface {
	// IdempotencyKey returns the stable dedup key for downstream consumers.
	IdempotencyKey() string

	// EventType returns the discriminator.
	EventType() EventType
}

// ConfigInitialized is emitted once, when the protocol config is created.
type ConfigInitialized struct {
	Authority               uuid.UUID `json:"authority"`
	MinLoanToValueBps       uint16    `json:"min_loan_to_value_bps"`
	LiquidationThresholdBps uint16    `json:"liquidation_threshold_bps"`
	LiquidationBonusBps     uint16    `json:"liquidation_bonus_bps"`
	Timestamp               int64     `json:"timestamp"`
}

func (e *ConfigInitialized) IdempotencyKey() string {
	return fmt.Sprintf("config_init:%s", e.Authority)
}

func (e *ConfigInitialized) EventType() EventType {
	return EventTypeConfigInitialized
}

// ConfigUpdated is emitted after an authority-approved parameter change.
type ConfigUpdated struct {
	UpdateID                uuid.UUID `json:"update_id"`
	MinLoanToValueBps       uint16    `json:"min_loan_to_value_bps"`
	LiquidationThresholdBps uint16    `json:"liquidation_threshold_bps"`
	LiquidationBonusBps     uint16    `json:"liquidation_bonus_bps"`
	Timestamp               int64     `json:"timestamp"`
}

func (e *ConfigUpdated) IdempotencyKey() string {
	return e.UpdateID.String()
}

func (e *ConfigUpdated) EventType() EventType {
	return EventTypeConfigUpdated
}

// CollateralDeposited is emitted after a committed deposit (and mint).
type CollateralDeposited struct {
	OperationID     uuid.UUID `json:"operation_id"`
	Owner           uuid.UUID `json:"owner"`
	CollateralDelta uint64    `json:"collateral_delta"`
	DebtMinted      uint64    `json:"debt_minted"`
	NewCollateral   uint64    `json:"new_collateral"`
	NewDebt         uint64    `json:"new_debt"`
	HealthFactor    string    `json:"health_factor"`
	Timestamp       int64     `json:"timestamp"`
}

func (e *CollateralDeposited) IdempotencyKey() string {
	return e.OperationID.String()
}

func (e *CollateralDeposited) EventType() EventType {
	return EventTypeCollateralDeposited
}

// CollateralWithdrawn is emitted after a committed withdrawal (and burn).
type CollateralWithdrawn struct {
	OperationID     uuid.UUID `json:"operation_id"`
	Owner           uuid.UUID `json:"owner"`
	CollateralDelta uint64    `json:"collateral_delta"`
	DebtBurned      uint64    `json:"debt_burned"`
	NewCollateral   uint64    `json:"new_collateral"`
	NewDebt         uint64    `json:"new_debt"`
	HealthFactor    string    `json:"health_factor"`
	Timestamp       int64     `json:"timestamp"`
}

func (e *CollateralWithdrawn) IdempotencyKey() string {
	return e.OperationID.String()
}

func (e *CollateralWithdrawn) EventType() EventType {
	return EventTypeCollateralWithdrawn
}

// PositionLiquidated is emitted after a committed liquidation settlement.
type PositionLiquidated struct {
	OperationID        uuid.UUID `json:"operation_id"`
	Owner              uuid.UUID `json:"owner"`
	Liquidator         uuid.UUID `json:"liquidator"`
	DebtBurned         uint64    `json:"debt_burned"`
	CollateralSeized   uint64    `json:"collateral_seized"`
	NewCollateral      uint64    `json:"new_collateral"`
	NewDebt            uint64    `json:"new_debt"`
	HealthFactorBefore string    `json:"health_factor_before"`
	HealthFactorAfter  string    `json:"health_factor_after"`
	Timestamp          int64     `json:"timestamp"`
}

func (e *PositionLiquidated) IdempotencyKey() string {
	return e.OperationID.String()
}

func (e *PositionLiquidated) EventType() EventType {
	return EventTypePositionLiquidated
}
