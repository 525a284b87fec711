package swap

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
)

// Repository persists swap records.
type Repository interface {
	Create(ctx context.Context, s Swap) error
	Get(ctx context.Context, scheduleID string) (Swap, error)
	UpdateStatus(ctx context.Context, scheduleID string, status Status, scheduledTxID string) error
	ListOpen(ctx context.Context, account string) ([]Swap, error)
}

// PostgresRepository stores swaps in PostgreSQL. Legs are kept as JSONB.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed swap repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const swapColumns = `schedule_id, network, requester, responder, requester_leg, responder_leg,
        status, scheduled_tx_id, created_at, expires_at`

// Create inserts a swap record.
func (r *PostgresRepository) Create(ctx context.Context, s Swap) error {
	requesterLeg, err := json.Marshal(s.RequesterLeg)
	if err != nil {
		return err
	}
	responderLeg, err := json.Marshal(s.ResponderLeg)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO swaps (`+swapColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ScheduleID, s.Network, s.Requester, s.Responder, requesterLeg, responderLeg,
		string(s.Status), s.ScheduledTransactionID, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	return err
}

// Get fetches a swap by schedule id.
func (r *PostgresRepository) Get(ctx context.Context, scheduleID string) (Swap, error) {
	row := r.db.QueryRow(ctx, `SELECT `+swapColumns+` FROM swaps WHERE schedule_id = $1`, scheduleID)
	s, err := scanSwap(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Swap{}, ErrNotFound
	}
	return s, err
}

// UpdateStatus moves a swap to status, recording the executed transaction
// id when one is given.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, scheduleID string, status Status, scheduledTxID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE swaps SET status = $1,
        scheduled_tx_id = COALESCE(NULLIF($2, ''), scheduled_tx_id) WHERE schedule_id = $3`,
		string(status), scheduledTxID, scheduleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOpen returns swaps involving account that still wait for a signature.
func (r *PostgresRepository) ListOpen(ctx context.Context, account string) ([]Swap, error) {
	rows, err := r.db.Query(ctx, `SELECT `+swapColumns+` FROM swaps
        WHERE status IN ($1, $2) AND (requester = $3 OR responder = $3)
        ORDER BY created_at`, string(StatusCreated), string(StatusAcknowledged), account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSwap(row pgx.Row) (Swap, error) {
	var (
		s                          Swap
		status                     string
		requesterLeg, responderLeg []byte
		createdAt, expiresAt       time.Time
	)
	if err := row.Scan(&s.ScheduleID, &s.Network, &s.Requester, &s.Responder, &requesterLeg, &responderLeg,
		&status, &s.ScheduledTransactionID, &createdAt, &expiresAt); err != nil {
		return Swap{}, err
	}
	var legs [2]ledger.Transfer
	if err := json.Unmarshal(requesterLeg, &legs[0]); err != nil {
		return Swap{}, err
	}
	if err := json.Unmarshal(responderLeg, &legs[1]); err != nil {
		return Swap{}, err
	}
	s.RequesterLeg, s.ResponderLeg = legs[0], legs[1]
	s.Status = Status(status)
	s.CreatedAt = createdAt.UTC()
	s.ExpiresAt = expiresAt.UTC()
	return s, nil
}
