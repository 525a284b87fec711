package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallet_accounts (
        origin         TEXT NOT NULL,
        network        TEXT NOT NULL,
        account_id     TEXT NOT NULL DEFAULT '',
        evm_address    TEXT NOT NULL DEFAULT '',
        private_key    TEXT NOT NULL,
        public_key     TEXT NOT NULL,
        curve          TEXT NOT NULL,
        hbar_balance   TEXT NOT NULL DEFAULT '0',
        token_balances JSONB NOT NULL DEFAULT '{}',
        balance_as_of  TIMESTAMPTZ,
        updated_at     TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (origin, network)
    )`,
	`CREATE TABLE IF NOT EXISTS swaps (
        schedule_id     TEXT PRIMARY KEY,
        network         TEXT NOT NULL,
        requester       TEXT NOT NULL,
        responder       TEXT NOT NULL,
        requester_leg   JSONB NOT NULL,
        responder_leg   JSONB NOT NULL,
        status          TEXT NOT NULL,
        scheduled_tx_id TEXT NOT NULL DEFAULT '',
        created_at      TIMESTAMPTZ NOT NULL,
        expires_at      TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS swaps_open_idx ON swaps (status, requester, responder)`,
}

// EnsureSchema creates the tables the repositories use when missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
