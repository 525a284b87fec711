package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetClass distinguishes the native coin from ledger-native tokens.
type AssetClass string

const (
	AssetHbar  AssetClass = "HBAR"
	AssetToken AssetClass = "TOKEN"
	AssetNFT   AssetClass = "NFT"
)

const (
	// NativeAssetKey groups native coin movements in per-asset maps.
	NativeAssetKey = "HBAR"
	// HbarDecimals is the number of tinybar digits in one hbar.
	HbarDecimals int32 = 8
)

// Curve identifies the signature scheme of a key.
type Curve string

const (
	CurveED25519 Curve = "ED25519"
	CurveECDSA   Curve = "ECDSA_SECP256K1"
)

// Key is a private key in the ledger's string encoding.
type Key struct {
	PrivateKey string
	Curve      Curve
}

// Transfer is one requested movement of value. Amount is in human-readable
// units until Decimals is resolved and the transfer is compiled.
type Transfer struct {
	Class  AssetClass      `json:"assetType"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	// AssetID is the token id, or tokenId/serial for NFTs.
	AssetID string `json:"assetId,omitempty"`
	// From is the delegating owner for allowance-based transfers.
	From     string `json:"from,omitempty"`
	Decimals *int32 `json:"decimals,omitempty"`
}

// AssetKey returns the key the transfer is grouped under for fee purposes.
func (t *Transfer) AssetKey() (string, error) {
	switch t.Class {
	case AssetHbar:
		return NativeAssetKey, nil
	case AssetToken:
		if t.AssetID == "" {
			return "", fmt.Errorf("token transfer to %s has no asset id", t.To)
		}
		return t.AssetID, nil
	case AssetNFT:
		tokenID, _, err := ParseNftID(t.AssetID)
		if err != nil {
			return "", err
		}
		return tokenID, nil
	default:
		return "", fmt.Errorf("unknown asset class %q", t.Class)
	}
}

// Delegated reports whether the transfer spends an owner's allowance.
func (t *Transfer) Delegated() bool {
	return t.From != ""
}

var entityIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-z]{5})?$`)

// ValidEntityID reports whether s has the shard.realm.num form, with an
// optional checksum suffix.
func ValidEntityID(s string) bool {
	return entityIDPattern.MatchString(s)
}

// ParseNftID splits a tokenId/serial composite key.
func ParseNftID(id string) (string, int64, error) {
	tokenID, serialStr, ok := strings.Cut(id, "/")
	if !ok || tokenID == "" || serialStr == "" {
		return "", 0, fmt.Errorf("nft id %q must have the form tokenId/serial", id)
	}
	serial, err := strconv.ParseInt(serialStr, 10, 64)
	if err != nil || serial <= 0 {
		return "", 0, fmt.Errorf("nft id %q has an invalid serial", id)
	}
	return tokenID, serial, nil
}

// ErrAmountOverflow marks an amount whose smallest-unit value does not fit
// in an int64.
var ErrAmountOverflow = errors.New("amount exceeds the ledger's range")

// ToSmallestUnit converts a human amount into the asset's smallest unit,
// truncating digits the asset cannot represent.
func ToSmallestUnit(amount decimal.Decimal, decimals int32) (int64, error) {
	units := amount.Shift(decimals).Truncate(0)
	if !units.BigInt().IsInt64() {
		return 0, fmt.Errorf("%s with %d decimals: %w", amount, decimals, ErrAmountOverflow)
	}
	return units.IntPart(), nil
}

// FromSmallestUnit converts smallest units back into a human amount.
func FromSmallestUnit(units int64, decimals int32) decimal.Decimal {
	return decimal.New(units, -decimals)
}

// HbarLine is a native coin credit (positive) or debit (negative) in tinybars.
type HbarLine struct {
	AccountID string
	Amount    int64
	Approved  bool
}

// TokenLine is a fungible token credit or debit in the token's smallest unit.
type TokenLine struct {
	TokenID   string
	AccountID string
	Amount    int64
	Decimals  uint32
	Approved  bool
}

// NftLine moves one serial from sender to receiver.
type NftLine struct {
	TokenID  string
	Serial   int64
	Sender   string
	Receiver string
	Approved bool
}
