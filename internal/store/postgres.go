package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/b9b4ymiN/botwallet/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
//
// Expected schema:
//
//	CREATE TABLE positions (
//	    wallet           TEXT NOT NULL,
//	    instrument       TEXT NOT NULL,
//	    qty              NUMERIC NOT NULL,
//	    cost_usd         NUMERIC NOT NULL,
//	    avg_entry_usd    NUMERIC NOT NULL,
//	    realized_pnl_usd NUMERIC NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (wallet, instrument)
//	);
//	CREATE TABLE applied_signatures (
//	    wallet     TEXT NOT NULL,
//	    instrument TEXT NOT NULL,
//	    signature  TEXT NOT NULL,
//	    PRIMARY KEY (wallet, instrument, signature)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetPosition(ctx context.Context, wallet, instrument string) (*model.Position, error) {
	var p model.Position
	var qty, costUsd, avgEntry, realized string

	err := s.pool.QueryRow(ctx,
		`SELECT qty::TEXT, cost_usd::TEXT, avg_entry_usd::TEXT, realized_pnl_usd::TEXT, updated_at
		 FROM positions WHERE wallet = $1 AND instrument = $2`,
		wallet, instrument).
		Scan(&qty, &costUsd, &avgEntry, &realized, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s/%s: %w", wallet, instrument, err)
	}

	p.Qty, _ = decimal.NewFromString(qty)
	p.CostUsd, _ = decimal.NewFromString(costUsd)
	p.AvgEntryUsd, _ = decimal.NewFromString(avgEntry)
	p.RealizedPnlUsd, _ = decimal.NewFromString(realized)

	return &p, nil
}

func (s *PostgresStore) SetPosition(ctx context.Context, wallet, instrument string, pos model.Position) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (wallet, instrument, qty, cost_usd, avg_entry_usd, realized_pnl_usd, updated_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)
		 ON CONFLICT (wallet, instrument) DO UPDATE SET
		     qty = EXCLUDED.qty,
		     cost_usd = EXCLUDED.cost_usd,
		     avg_entry_usd = EXCLUDED.avg_entry_usd,
		     realized_pnl_usd = EXCLUDED.realized_pnl_usd,
		     updated_at = EXCLUDED.updated_at`,
		wallet, instrument,
		pos.Qty.String(), pos.CostUsd.String(),
		pos.AvgEntryUsd.String(), pos.RealizedPnlUsd.String(),
		pos.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set position %s/%s: %w", wallet, instrument, err)
	}
	return nil
}

func (s *PostgresStore) ListPositions(ctx context.Context, wallet string) (map[string]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT instrument, qty::TEXT, cost_usd::TEXT, avg_entry_usd::TEXT, realized_pnl_usd::TEXT, updated_at
		 FROM positions WHERE wallet = $1 ORDER BY instrument`, wallet)
	if err != nil {
		return nil, fmt.Errorf("list positions %s: %w", wallet, err)
	}
	defer rows.Close()

	positions := make(map[string]model.Position)
	for rows.Next() {
		var instrument, qty, costUsd, avgEntry, realized string
		var p model.Position
		if err := rows.Scan(&instrument, &qty, &costUsd, &avgEntry, &realized, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Qty, _ = decimal.NewFromString(qty)
		p.CostUsd, _ = decimal.NewFromString(costUsd)
		p.AvgEntryUsd, _ = decimal.NewFromString(avgEntry)
		p.RealizedPnlUsd, _ = decimal.NewFromString(realized)
		positions[instrument] = p
	}
	return positions, rows.Err()
}

func (s *PostgresStore) SeenSignature(ctx context.Context, wallet, instrument, signature string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM applied_signatures
		     WHERE wallet = $1 AND instrument = $2 AND signature = $3)`,
		wallet, instrument, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("seen signature %s/%s: %w", wallet, instrument, err)
	}
	return exists, nil
}

func (s *PostgresStore) MarkSignature(ctx context.Context, wallet, instrument, signature string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO applied_signatures (wallet, instrument, signature)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		wallet, instrument, signature)
	if err != nil {
		return fmt.Errorf("mark signature %s/%s: %w", wallet, instrument, err)
	}
	return nil
}
