package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

const (
	// costPrecision matches the tinybar resolution of ledger costs.
	costPrecision int32 = 8
	// feePrecision is the rounding applied to per-transfer service fees.
	feePrecision int32 = 2
)

var (
	hundred      = decimal.NewFromInt(100)
	two          = decimal.NewFromInt(2)
	safetyMargin = decimal.RequireFromString("1.05")
)

// Fees is the result of pricing a paid query or transaction.
type Fees struct {
	ServiceFee decimal.Decimal
	MaxCost    decimal.Decimal
}

// CalculateFees adds the service cut to a ledger cost and derives the
// maximum the caller should be willing to pay, with a 5% margin for
// exchange-rate drift between estimation and execution.
func CalculateFees(baseCost, percentageCut decimal.Decimal) (Fees, error) {
	if baseCost.IsNegative() {
		return Fees{}, xerrors.Precondition("calculate fees", "base cost must not be negative")
	}
	if err := validatePercentage(percentageCut); err != nil {
		return Fees{}, err
	}
	serviceFee := baseCost.Mul(percentageCut).Div(hundred)
	maxCost := baseCost.Add(serviceFee).Mul(safetyMargin)
	return Fees{
		ServiceFee: serviceFee.Round(costPrecision),
		MaxCost:    maxCost.Round(costPrecision),
	}, nil
}

func validatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return xerrors.Precondition("service fee", fmt.Sprintf("percentage %s is outside 0..100", pct))
	}
	return nil
}

// ServiceFee is the operator's cut and where it is collected.
type ServiceFee struct {
	Percentage decimal.Decimal
	Collector  string
}

// Validate checks the percentage range and that a positive cut has a
// collector to go to.
func (s ServiceFee) Validate() error {
	if err := validatePercentage(s.Percentage); err != nil {
		return err
	}
	if s.Percentage.IsPositive() && s.Collector == "" {
		return xerrors.Precondition("service fee", "a positive service fee needs a collector account")
	}
	return nil
}

// ByAsset accumulates service fees per asset key in human-readable units.
type ByAsset map[string]decimal.Decimal

// Get returns the accumulated fee for key, zero if it was never seen.
func (b ByAsset) Get(key string) decimal.Decimal {
	if v, ok := b[key]; ok {
		return v
	}
	return decimal.Zero
}

func (b ByAsset) add(key string, fee decimal.Decimal) {
	b[key] = b.Get(key).Add(fee)
}

// Normalize charges the service fee against every transfer in place and
// returns what was taken, grouped by asset. Each fee is rounded once and
// the same rounded value is both subtracted and accumulated, so the total
// removed per asset equals the accumulator exactly.
func Normalize(transfers []*ledger.Transfer, fee ServiceFee) (ByAsset, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	out := make(ByAsset, len(transfers))
	for i, t := range transfers {
		key, err := keyFor(i, t)
		if err != nil {
			return nil, err
		}
		charge := transferFee(t, fee.Percentage, false)
		t.Amount = t.Amount.Sub(charge)
		out.add(key, charge)
	}
	return out, nil
}

// LegFee is the service fee charged against one swap leg.
type LegFee struct {
	AssetKey string
	Fee      decimal.Decimal
}

// NormalizeSwap is Normalize for the two legs of a swap: each leg is
// charged half the regular fee. Fees are returned per leg because each is
// funded by that leg's sender.
func NormalizeSwap(legs []*ledger.Transfer, fee ServiceFee) ([]LegFee, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	out := make([]LegFee, 0, len(legs))
	for i, t := range legs {
		key, err := keyFor(i, t)
		if err != nil {
			return nil, err
		}
		charge := transferFee(t, fee.Percentage, true)
		t.Amount = t.Amount.Sub(charge)
		out = append(out, LegFee{AssetKey: key, Fee: charge})
	}
	return out, nil
}

func keyFor(i int, t *ledger.Transfer) (string, error) {
	if t == nil {
		return "", xerrors.Precondition("normalize transfers", fmt.Sprintf("transfer %d is missing", i))
	}
	if t.Amount.IsNegative() {
		return "", xerrors.Precondition("normalize transfers", fmt.Sprintf("transfer %d has a negative amount", i))
	}
	key, err := t.AssetKey()
	if err != nil {
		return "", xerrors.Precondition("normalize transfers", err.Error())
	}
	return key, nil
}

// transferFee is zero for NFTs: a serial cannot be split. Tokens with fewer
// resolved decimals than feePrecision round the fee to their own precision,
// so the fee is a whole number of smallest units.
func transferFee(t *ledger.Transfer, pct decimal.Decimal, halved bool) decimal.Decimal {
	if t.Class == ledger.AssetNFT || !pct.IsPositive() {
		return decimal.Zero
	}
	charge := t.Amount.Mul(pct).Div(hundred)
	if halved {
		charge = charge.Div(two)
	}
	places := feePrecision
	if t.Class == ledger.AssetToken && t.Decimals != nil && *t.Decimals < places {
		places = *t.Decimals
	}
	return charge.Round(places)
}
