package fees

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func int32p(v int32) *int32 { return &v }

func TestCalculateFees(t *testing.T) {
	cases := []struct {
		name       string
		base, pct  string
		serviceFee string
		maxCost    string
	}{
		{"round numbers", "100", "10", "10", "115.5"},
		{"fractional cost", "50.25", "15", "7.5375", "60.676875"},
		{"zero cost", "0", "10", "0", "0"},
		{"zero cut", "0.00012345", "0", "0", "0.00012962"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateFees(d(tc.base), d(tc.pct))
			require.NoError(t, err)
			require.True(t, got.ServiceFee.Equal(d(tc.serviceFee)), "service fee %s", got.ServiceFee)
			require.True(t, got.MaxCost.Equal(d(tc.maxCost)), "max cost %s", got.MaxCost)
		})
	}
}

func TestCalculateFeesIsDeterministic(t *testing.T) {
	a, err := CalculateFees(d("0.123456789"), d("33.3"))
	require.NoError(t, err)
	b, err := CalculateFees(d("0.123456789"), d("33.3"))
	require.NoError(t, err)
	require.Equal(t, a.ServiceFee.String(), b.ServiceFee.String())
	require.Equal(t, a.MaxCost.String(), b.MaxCost.String())
	require.LessOrEqual(t, -a.MaxCost.Exponent(), int32(8))
}

func TestCalculateFeesRejectsOutOfRangeInput(t *testing.T) {
	_, err := CalculateFees(d("1"), d("100.01"))
	require.True(t, errors.Is(err, xerrors.ErrPrecondition))

	_, err = CalculateFees(d("-1"), d("5"))
	require.True(t, errors.Is(err, xerrors.ErrPrecondition))
}

func TestNormalizeSingleHbarTransfer(t *testing.T) {
	transfers := []*ledger.Transfer{{Class: ledger.AssetHbar, To: "0.0.1002", Amount: d("100")}}

	byAsset, err := Normalize(transfers, ServiceFee{Percentage: d("5"), Collector: "0.0.98"})
	require.NoError(t, err)
	require.True(t, transfers[0].Amount.Equal(d("95")))
	require.True(t, byAsset.Get(ledger.NativeAssetKey).Equal(d("5")))
}

func TestNormalizeConservesValuePerAsset(t *testing.T) {
	transfers := []*ledger.Transfer{
		{Class: ledger.AssetHbar, To: "0.0.1", Amount: d("12.345")},
		{Class: ledger.AssetHbar, To: "0.0.2", Amount: d("0.07")},
		{Class: ledger.AssetToken, To: "0.0.3", AssetID: "0.0.5001", Amount: d("999.99"), Decimals: int32p(2)},
		{Class: ledger.AssetToken, To: "0.0.4", AssetID: "0.0.5001", Amount: d("0.01"), Decimals: int32p(2)},
		{Class: ledger.AssetNFT, To: "0.0.5", AssetID: "0.0.6001/7", Amount: d("1"), Decimals: int32p(0)},
	}
	original := make(map[string]decimal.Decimal)
	for _, tr := range transfers {
		key, _ := tr.AssetKey()
		original[key] = original[key].Add(tr.Amount)
	}

	byAsset, err := Normalize(transfers, ServiceFee{Percentage: d("2.5"), Collector: "0.0.98"})
	require.NoError(t, err)

	after := make(map[string]decimal.Decimal)
	for _, tr := range transfers {
		key, _ := tr.AssetKey()
		after[key] = after[key].Add(tr.Amount)
	}
	for key, before := range original {
		require.True(t, before.Sub(after[key]).Equal(byAsset.Get(key)), "asset %s", key)
	}
	require.True(t, byAsset.Get("0.0.6001").IsZero(), "nfts are never charged")
	_, seen := byAsset["0.0.6001"]
	require.True(t, seen, "nft asset key must still be established")
}

func TestNormalizeZeroPercentIsNoop(t *testing.T) {
	transfers := []*ledger.Transfer{
		{Class: ledger.AssetHbar, To: "0.0.1", Amount: d("3.14159265")},
		{Class: ledger.AssetToken, To: "0.0.2", AssetID: "0.0.5001", Amount: d("0")},
	}
	byAsset, err := Normalize(transfers, ServiceFee{Percentage: decimal.Zero})
	require.NoError(t, err)
	require.True(t, transfers[0].Amount.Equal(d("3.14159265")))
	require.Len(t, byAsset, 2)
	for key, fee := range byAsset {
		require.True(t, fee.IsZero(), "asset %s", key)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	_, err := Normalize([]*ledger.Transfer{{Class: ledger.AssetToken, To: "0.0.2"}}, ServiceFee{})
	require.True(t, errors.Is(err, xerrors.ErrPrecondition))

	_, err = Normalize([]*ledger.Transfer{{Class: ledger.AssetHbar, To: "0.0.2", Amount: d("-1")}}, ServiceFee{})
	require.True(t, errors.Is(err, xerrors.ErrPrecondition))

	_, err = Normalize(nil, ServiceFee{Percentage: d("1")})
	require.True(t, errors.Is(err, xerrors.ErrPrecondition), "positive fee without collector")
}

func TestNormalizeSwapHalvesFeePerLeg(t *testing.T) {
	legs := []*ledger.Transfer{
		{Class: ledger.AssetHbar, To: "0.0.2", Amount: d("100")},
		{Class: ledger.AssetToken, To: "0.0.1", AssetID: "0.0.5001", Amount: d("40"), Decimals: int32p(2)},
	}
	got, err := NormalizeSwap(legs, ServiceFee{Percentage: d("5"), Collector: "0.0.98"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, ledger.NativeAssetKey, got[0].AssetKey)
	require.True(t, got[0].Fee.Equal(d("2.5")))
	require.True(t, got[1].Fee.Equal(d("1")))
	require.True(t, legs[0].Amount.Equal(d("97.5")))
	require.True(t, legs[1].Amount.Equal(d("39")))
}

func TestNormalizeRoundsToTokenPrecision(t *testing.T) {
	transfers := []*ledger.Transfer{
		{Class: ledger.AssetToken, To: "0.0.2", AssetID: "0.0.5002", Amount: d("10"), Decimals: int32p(0)},
		{Class: ledger.AssetToken, To: "0.0.3", AssetID: "0.0.5003", Amount: d("10.5"), Decimals: int32p(1)},
		{Class: ledger.AssetHbar, To: "0.0.4", Amount: d("10.5")},
	}
	byAsset, err := Normalize(transfers, ServiceFee{Percentage: d("5"), Collector: "0.0.98"})
	require.NoError(t, err)

	require.True(t, byAsset.Get("0.0.5002").Equal(d("1")), "got %s", byAsset.Get("0.0.5002"))
	require.True(t, transfers[0].Amount.Equal(d("9")))
	require.True(t, byAsset.Get("0.0.5003").Equal(d("0.5")), "got %s", byAsset.Get("0.0.5003"))
	require.True(t, transfers[1].Amount.Equal(d("10")))
	require.True(t, byAsset.Get(ledger.NativeAssetKey).Equal(d("0.53")), "got %s", byAsset.Get(ledger.NativeAssetKey))
}
