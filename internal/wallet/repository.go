package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
)

// Repository persists account state. Private keys arrive already sealed.
type Repository interface {
	Get(ctx context.Context, origin, network string) (Account, error)
	Save(ctx context.Context, acct Account) error
}

// PostgresRepository stores account state in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save upserts the state of one origin on one network.
func (r *PostgresRepository) Save(ctx context.Context, acct Account) error {
	tokens, err := json.Marshal(acct.Balance.Tokens)
	if err != nil {
		return err
	}
	var asOf *time.Time
	if !acct.Balance.AsOf.IsZero() {
		t := acct.Balance.AsOf.UTC()
		asOf = &t
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallet_accounts (origin, network, account_id, evm_address,
        private_key, public_key, curve, hbar_balance, token_balances, balance_as_of, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (origin, network) DO UPDATE SET account_id = EXCLUDED.account_id,
        evm_address = EXCLUDED.evm_address, private_key = EXCLUDED.private_key,
        public_key = EXCLUDED.public_key, curve = EXCLUDED.curve, hbar_balance = EXCLUDED.hbar_balance,
        token_balances = EXCLUDED.token_balances, balance_as_of = EXCLUDED.balance_as_of,
        updated_at = EXCLUDED.updated_at`,
		acct.Origin, acct.Network, acct.AccountID, acct.EVMAddress,
		acct.KeyStore.PrivateKey, acct.KeyStore.PublicKey, string(acct.KeyStore.Curve),
		acct.Balance.Hbars.String(), tokens, asOf, acct.UpdatedAt.UTC())
	return err
}

// Get fetches the state of one origin on one network.
func (r *PostgresRepository) Get(ctx context.Context, origin, network string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT account_id, evm_address, private_key, public_key, curve,
        hbar_balance, token_balances, balance_as_of, updated_at
        FROM wallet_accounts WHERE origin = $1 AND network = $2`, origin, network)
	var (
		acct      = Account{Origin: origin, Network: network}
		curve     string
		hbars     string
		tokens    []byte
		asOf      *time.Time
		updatedAt time.Time
	)
	err := row.Scan(&acct.AccountID, &acct.EVMAddress, &acct.KeyStore.PrivateKey, &acct.KeyStore.PublicKey,
		&curve, &hbars, &tokens, &asOf, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	acct.KeyStore.Curve = ledger.Curve(curve)
	if acct.Balance.Hbars, err = decimal.NewFromString(hbars); err != nil {
		return Account{}, err
	}
	if len(tokens) > 0 {
		if err := json.Unmarshal(tokens, &acct.Balance.Tokens); err != nil {
			return Account{}, err
		}
	}
	if asOf != nil {
		acct.Balance.AsOf = asOf.UTC()
	}
	acct.UpdatedAt = updatedAt.UTC()
	return acct, nil
}
