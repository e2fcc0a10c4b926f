package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"stablecore/internal/event"
	"stablecore/internal/state"
)

// Store persists protocol state to Postgres. It implements core.Recorder
// and also supports loading the full state back at startup so the engine
// resumes where it left off.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SavePosition upserts a single position row keyed by owner.
func (s *Store) SavePosition(ctx context.Context, pos state.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (owner_id, amount_minted, derivation_tag, vault_tag, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE SET
			amount_minted = EXCLUDED.amount_minted,
			version       = EXCLUDED.version,
			updated_at    = now()`,
		pos.Owner, int64(pos.AmountMinted), int16(pos.DerivationTag), int16(pos.VaultTag), pos.Version)
	if err != nil {
		return fmt.Errorf("save position %s: %w", pos.Owner, err)
	}
	return nil
}

// SaveConfig upserts the singleton config row. The protocol has exactly
// one active configuration, so the row id is fixed.
func (s *Store) SaveConfig(ctx context.Context, cfg state.Config) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO protocol_config
			(id, authority, min_ltv_bps, liquidation_threshold_bps, liquidation_bonus_bps, derivation_tag, mint_tag)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			authority                 = EXCLUDED.authority,
			min_ltv_bps               = EXCLUDED.min_ltv_bps,
			liquidation_threshold_bps = EXCLUDED.liquidation_threshold_bps,
			liquidation_bonus_bps     = EXCLUDED.liquidation_bonus_bps,
			updated_at                = now()`,
		cfg.Authority, int32(cfg.MinLoanToValueBps), int32(cfg.LiquidationThresholdBps),
		int32(cfg.LiquidationBonusBps), int16(cfg.DerivationTag), int16(cfg.MintTag))
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// RecordEvent appends one audit row per emitted event. The idempotency key
// is the primary key, so a retried operation cannot double-record.
func (s *Store) RecordEvent(ctx context.Context, evt event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (idempotency_key, event_type, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		evt.IdempotencyKey(), evt.EventType().String(), payload)
	if err != nil {
		return fmt.Errorf("record event %s: %w", evt.IdempotencyKey(), err)
	}
	return nil
}

// LoadConfig reads the singleton config row. Returns (nil, nil) when the
// protocol has never been initialized.
func (s *Store) LoadConfig(ctx context.Context) (*state.Config, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT authority, min_ltv_bps, liquidation_threshold_bps, liquidation_bonus_bps, derivation_tag, mint_tag
		FROM protocol_config WHERE id = 1`)

	var (
		cfg                      state.Config
		minLtv, threshold, bonus int32
		derivTag, mintTag        int16
	)
	err := row.Scan(&cfg.Authority, &minLtv, &threshold, &bonus, &derivTag, &mintTag)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.MinLoanToValueBps = uint16(minLtv)
	cfg.LiquidationThresholdBps = uint16(threshold)
	cfg.LiquidationBonusBps = uint16(bonus)
	cfg.DerivationTag = byte(derivTag)
	cfg.MintTag = byte(mintTag)
	return &cfg, nil
}

// LoadPositions reads every persisted position.
func (s *Store) LoadPositions(ctx context.Context) ([]state.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, amount_minted, derivation_tag, vault_tag, version
		FROM positions ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	var positions []state.Position
	for rows.Next() {
		var (
			pos                state.Position
			owner              uuid.UUID
			minted             int64
			derivTag, vaultTag int16
		)
		if err := rows.Scan(&owner, &minted, &derivTag, &vaultTag, &pos.Version); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		pos.Owner = owner
		pos.AmountMinted = uint64(minted)
		pos.DerivationTag = byte(derivTag)
		pos.VaultTag = byte(vaultTag)
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}
