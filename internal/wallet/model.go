package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
)

var ErrNotFound = errors.New("account state not found")

// KeyStore holds the account key pair. PrivateKey is sealed whenever the
// keystore is at rest.
type KeyStore struct {
	PrivateKey string       `json:"-"`
	PublicKey  string       `json:"publicKey"`
	Curve      ledger.Curve `json:"curve"`
}

// Key returns the signing key.
func (k KeyStore) Key() ledger.Key {
	return ledger.Key{PrivateKey: k.PrivateKey, Curve: k.Curve}
}

// Balance is the last balance snapshot seen for the account.
type Balance struct {
	Hbars  decimal.Decimal                `json:"hbars"`
	Tokens map[string]mirror.TokenBalance `json:"tokens"`
	AsOf   time.Time                      `json:"asOf"`
}

// Stale reports whether the snapshot is older than maxAge or was never
// taken.
func (b Balance) Stale(now time.Time, maxAge time.Duration) bool {
	return b.AsOf.IsZero() || now.Sub(b.AsOf) > maxAge
}

// Account is the wallet state kept per origin and network.
type Account struct {
	Origin     string    `json:"origin"`
	Network    string    `json:"network"`
	AccountID  string    `json:"accountId"`
	EVMAddress string    `json:"evmAddress"`
	KeyStore   KeyStore  `json:"keyStore"`
	Balance    Balance   `json:"balance"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
