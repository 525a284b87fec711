package receipt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
)

func strp(s string) *string { return &s }

func TestNormalizeSparseReceipt(t *testing.T) {
	got := Normalize(ledger.RawReceipt{Status: "SUCCESS", AccountID: strp("0.0.1234")})

	require.Equal(t, "SUCCESS", got.Status)
	require.Equal(t, "0.0.1234", got.AccountID)
	require.Equal(t, "", got.TokenID)
	require.Equal(t, "", got.TopicSequenceNumber)
	require.Equal(t, ExchangeRate{}, got.ExchangeRate)
	require.NotNil(t, got.SerialNumbers)
	require.Empty(t, got.SerialNumbers)

	// every field is present and none is null once serialized
	data, err := json.Marshal(got)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Len(t, fields, 15)
	for name, v := range fields {
		require.NotNil(t, v, "field %s", name)
	}
}

func TestNormalizeZeroValuesNeverPanic(t *testing.T) {
	require.NotPanics(t, func() {
		_ = Normalize(ledger.RawReceipt{})
		_ = NormalizeRecord(ledger.RawRecord{})
		_ = NormalizeAccountInfo(ledger.RawAccountInfo{})
	})

	rec := NormalizeRecord(ledger.RawRecord{})
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NotContains(t, string(data), "null")
}

func TestNormalizeConvertsNumbersAndBytes(t *testing.T) {
	seq := uint64(18446744073709551615)
	version := uint64(3)
	expiry := time.Unix(1700000000, 5).UTC()
	got := Normalize(ledger.RawReceipt{
		Status:                  "SUCCESS",
		TopicSequenceNumber:     &seq,
		TopicRunningHash:        []byte{0xAB, 0x01},
		TopicRunningHashVersion: &version,
		SerialNumbers:           []int64{1, 2},
		ExchangeRate:            &ledger.RawExchangeRate{HbarEquiv: 30000, CentEquiv: 150000, ExpirationTime: &expiry},
	})

	require.Equal(t, "18446744073709551615", got.TopicSequenceNumber)
	require.Equal(t, "ab01", got.TopicRunningHash)
	require.Equal(t, "3", got.TopicRunningHashVersion)
	require.Equal(t, []string{"1", "2"}, got.SerialNumbers)
	require.Equal(t, "30000", got.ExchangeRate.HbarEquiv)
	require.Equal(t, "1700000000.000000005", got.ExchangeRate.ExpirationTime)
}

func TestNormalizeRecord(t *testing.T) {
	ts := time.Unix(1700000001, 250).UTC()
	fee := int64(84000)
	gas := uint64(21000)
	rec := NormalizeRecord(ledger.RawRecord{
		Receipt:            ledger.RawReceipt{Status: "SUCCESS"},
		TransactionHash:    []byte{0xDE, 0xAD},
		ConsensusTimestamp: &ts,
		TransactionID:      strp("0.0.1001@1700000000.000000001"),
		TransactionFee:     &fee,
		Transfers:          []ledger.RawTransfer{{AccountID: "0.0.1001", Amount: -5}, {AccountID: "0.0.98", Amount: 5}},
		TokenTransfers: map[string][]ledger.RawTransfer{
			"0.0.5001": {{AccountID: "0.0.1001", Amount: -1, Approved: true}},
		},
		NftTransfers: map[string][]ledger.RawNftTransfer{
			"0.0.6001": {{Sender: "0.0.1001", Receiver: "0.0.1002", Serial: 7}},
		},
		ContractResult: &ledger.RawContractResult{Result: []byte{0x01}, GasUsed: &gas},
	})

	require.Equal(t, "dead", rec.TransactionHash)
	require.Equal(t, "1700000001.000000250", rec.ConsensusTimestamp)
	require.Equal(t, "84000", rec.TransactionFee)
	require.Equal(t, "-5", rec.Transfers[0].Amount)
	require.True(t, rec.TokenTransfers["0.0.5001"][0].IsApproved)
	require.Equal(t, "7", rec.NftTransfers["0.0.6001"][0].Serial)
	require.Equal(t, "01", rec.ContractFunctionResult.Result)
	require.Equal(t, "21000", rec.ContractFunctionResult.GasUsed)
	require.Equal(t, "", rec.ContractFunctionResult.ContractID)
	require.Equal(t, []string{"0.0.5001", "0.0.6001"}, rec.Tokens())
}

func TestNormalizeAccountInfo(t *testing.T) {
	node := int64(3)
	info := NormalizeAccountInfo(ledger.RawAccountInfo{AccountID: "0.0.1002", Balance: 150000000, StakedNodeID: &node})

	require.Equal(t, "150000000", info.Balance)
	require.Equal(t, "3", info.StakedNodeID)
	require.Equal(t, "", info.StakedAccountID)
	require.Equal(t, "", info.Key)
}
