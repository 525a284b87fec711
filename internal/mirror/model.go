package mirror

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the mirror node has no such entity.
var ErrNotFound = errors.New("mirror: not found")

// Token is token metadata as served by the mirror node.
type Token struct {
	TokenID           string `json:"token_id"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Decimals          int32  `json:"decimals"`
	TotalSupply       string `json:"total_supply"`
	MaxSupply         string `json:"max_supply"`
	TreasuryAccountID string `json:"treasury_account_id"`
	Type              string `json:"type"`
}

// IsNFT reports whether the token is non-fungible.
func (t Token) IsNFT() bool {
	return t.Type == "NON_FUNGIBLE_UNIQUE"
}

// TokenBalance is a balance in human units together with its precision.
type TokenBalance struct {
	Balance  decimal.Decimal `json:"balance"`
	Decimals int32           `json:"decimals"`
}

// AccountInfo is the subset of account data the wallet relies on.
type AccountInfo struct {
	AccountID  string                  `json:"account_id"`
	EVMAddress string                  `json:"evm_address"`
	Hbars      decimal.Decimal         `json:"hbars"`
	Tokens     map[string]TokenBalance `json:"tokens"`
}

// Source answers metadata and balance queries for one network.
type Source interface {
	Token(ctx context.Context, tokenID string) (Token, error)
	Account(ctx context.Context, idOrAddress string) (AccountInfo, error)
	// ResolveAccount returns the account id behind an id or EVM address
	// without loading balances.
	ResolveAccount(ctx context.Context, idOrAddress string) (string, error)
}
