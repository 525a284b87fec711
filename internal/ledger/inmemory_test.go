package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
)

var (
	aliceKey = Key{PrivateKey: "alice-priv", Curve: CurveED25519}
	bobKey   = Key{PrivateKey: "bob-priv", Curve: CurveECDSA}
)

func newTestLedger(t *testing.T) *InMemory {
	t.Helper()
	l := NewInMemory("testnet")
	l.CreateAccount("0.0.1001", aliceKey, "alice-pub", "", decimal.NewFromInt(100))
	l.CreateAccount("0.0.1002", bobKey, "bob-pub", "0x00000000000000000000000000000000000003ea", decimal.NewFromInt(10))
	l.CreateAccount("0.0.98", Key{PrivateKey: "collector"}, "", "", decimal.Zero)
	l.CreateToken("0.0.5001", "Gold", "GLD", 2, TokenFungible, "0.0.1001", 100_000)
	return l
}

func clientFor(t *testing.T, l *InMemory, id string, key Key) Client {
	t.Helper()
	c, err := l.ClientFor(context.Background(), "testnet", id, key)
	if err != nil {
		t.Fatalf("client for %s: %v", id, err)
	}
	return c
}

func TestInMemoryTransferMovesBalances(t *testing.T) {
	l := newTestLedger(t)
	c := clientFor(t, l, "0.0.1001", aliceKey)
	ctx := context.Background()

	resp, err := c.Submit(ctx, &TransferTx{Hbar: []HbarLine{
		{AccountID: "0.0.1001", Amount: -500_000_000},
		{AccountID: "0.0.1002", Amount: 500_000_000},
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	receipt, err := c.Receipt(ctx, resp)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", receipt.Status)
	}
	if got := l.HbarBalance("0.0.1002"); got != 1_500_000_000 {
		t.Fatalf("expected 15 hbar for bob, got %d tinybars", got)
	}
	record, err := c.Record(ctx, resp)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(record.Transfers) != 2 || record.TransactionID == nil {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestInMemoryRejectsUnbalancedTransfer(t *testing.T) {
	l := newTestLedger(t)
	c := clientFor(t, l, "0.0.1001", aliceKey)

	_, err := c.Submit(context.Background(), &TransferTx{Hbar: []HbarLine{
		{AccountID: "0.0.1001", Amount: -10},
		{AccountID: "0.0.1002", Amount: 9},
	}})
	se, ok := AsStatusError(err)
	if !ok || se.Stage != StagePrecheck || se.Status != "INVALID_ACCOUNT_AMOUNTS" {
		t.Fatalf("expected precheck rejection, got %v", err)
	}
}

func TestInMemoryInsufficientBalanceFailsInReceipt(t *testing.T) {
	l := newTestLedger(t)
	c := clientFor(t, l, "0.0.1002", bobKey)
	ctx := context.Background()

	resp, err := c.Submit(ctx, &TransferTx{Hbar: []HbarLine{
		{AccountID: "0.0.1002", Amount: -50_00000000},
		{AccountID: "0.0.1001", Amount: 50_00000000},
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err = c.Receipt(ctx, resp)
	se, ok := AsStatusError(err)
	if !ok || se.Stage != StageReceipt || se.Status != "INSUFFICIENT_ACCOUNT_BALANCE" {
		t.Fatalf("expected receipt failure, got %v", err)
	}
	if l.HbarBalance("0.0.1002") != 10_00000000 {
		t.Fatalf("failed transfer must not move value")
	}
}

func TestInMemoryApprovedTransferConsumesAllowance(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	owner := clientFor(t, l, "0.0.1001", aliceKey)
	spender := clientFor(t, l, "0.0.1002", bobKey)

	if _, err := owner.Submit(ctx, &AllowanceTx{Class: AssetHbar, Owner: "0.0.1001", Spender: "0.0.1002", Amount: 300}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	resp, err := spender.Submit(ctx, &TransferTx{Hbar: []HbarLine{
		{AccountID: "0.0.1001", Amount: -200, Approved: true},
		{AccountID: "0.0.1002", Amount: 200},
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := spender.Receipt(ctx, resp); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if got := l.Allowance("0.0.1001", "0.0.1002", NativeAssetKey); got != 100 {
		t.Fatalf("expected 100 remaining allowance, got %d", got)
	}

	resp, err = spender.Submit(ctx, &TransferTx{Hbar: []HbarLine{
		{AccountID: "0.0.1001", Amount: -200, Approved: true},
		{AccountID: "0.0.1002", Amount: 200},
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := spender.Receipt(ctx, resp); err == nil {
		t.Fatalf("expected allowance overdraw to fail")
	}
}

func TestInMemoryUnsignedDebitIsRejected(t *testing.T) {
	l := newTestLedger(t)
	c := clientFor(t, l, "0.0.1002", bobKey)
	ctx := context.Background()

	resp, err := c.Submit(ctx, &TransferTx{Hbar: []HbarLine{
		{AccountID: "0.0.1001", Amount: -1},
		{AccountID: "0.0.1002", Amount: 1},
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err = c.Receipt(ctx, resp)
	if se, ok := AsStatusError(err); !ok || se.Status != "INVALID_SIGNATURE" {
		t.Fatalf("expected signature failure, got %v", err)
	}
}

func TestInMemoryScheduleExecutesWhenAllDebitorsSign(t *testing.T) {
	l := newTestLedger(t)
	l.SeedToken("0.0.1002", "0.0.5001", 0)
	ctx := context.Background()
	alice := clientFor(t, l, "0.0.1001", aliceKey)
	bob := clientFor(t, l, "0.0.1002", bobKey)

	inner := &TransferTx{
		Hbar: []HbarLine{
			{AccountID: "0.0.1002", Amount: -100},
			{AccountID: "0.0.1001", Amount: 100},
		},
		Tokens: []TokenLine{
			{TokenID: "0.0.5001", AccountID: "0.0.1001", Amount: -250, Decimals: 2},
			{TokenID: "0.0.5001", AccountID: "0.0.1002", Amount: 250, Decimals: 2},
		},
	}
	resp, err := alice.Submit(ctx, &ScheduleCreateTx{Inner: inner, PayerAccountID: "0.0.1001", ExpiresAt: time.Now().Add(time.Hour)}, aliceKey)
	if err != nil {
		t.Fatalf("schedule create: %v", err)
	}
	created, err := alice.Receipt(ctx, resp)
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	if created.ScheduleID == nil || created.ScheduledTransactionID != nil {
		t.Fatalf("expected pending schedule, got %+v", created)
	}

	resp, err = bob.Submit(ctx, &ScheduleSignTx{ScheduleID: *created.ScheduleID}, bobKey)
	if err != nil {
		t.Fatalf("schedule sign: %v", err)
	}
	signed, err := bob.Receipt(ctx, resp)
	if err != nil {
		t.Fatalf("sign receipt: %v", err)
	}
	if signed.ScheduledTransactionID == nil {
		t.Fatalf("expected schedule to execute")
	}
	if l.TokenBalance("0.0.1002", "0.0.5001") != 250 {
		t.Fatalf("expected bob to receive tokens")
	}

	resp, err = bob.Submit(ctx, &ScheduleSignTx{ScheduleID: *created.ScheduleID})
	if err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if _, err := bob.Receipt(ctx, resp); err == nil {
		t.Fatalf("expected already executed failure")
	}
}

func TestInMemoryTokenMintAndTopicSubmit(t *testing.T) {
	l := newTestLedger(t)
	c := clientFor(t, l, "0.0.1001", aliceKey)
	ctx := context.Background()

	resp, err := c.Submit(ctx, &TokenCreateTx{Name: "Art", Symbol: "ART", Type: TokenNonFungible, TreasuryAccountID: "0.0.1001", SupplyType: SupplyFinite, MaxSupply: 1})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	created, err := c.Receipt(ctx, resp)
	if err != nil || created.TokenID == nil {
		t.Fatalf("create receipt: %+v %v", created, err)
	}

	resp, _ = c.Submit(ctx, &TokenActionTx{Op: KindTokenMint, TokenID: *created.TokenID, Metadata: [][]byte{[]byte("ipfs://a")}})
	minted, err := c.Receipt(ctx, resp)
	if err != nil || len(minted.SerialNumbers) != 1 || minted.SerialNumbers[0] != 1 {
		t.Fatalf("mint receipt: %+v %v", minted, err)
	}
	resp, _ = c.Submit(ctx, &TokenActionTx{Op: KindTokenMint, TokenID: *created.TokenID, Metadata: [][]byte{[]byte("ipfs://b")}})
	if _, err := c.Receipt(ctx, resp); err == nil {
		t.Fatalf("expected max supply failure")
	}

	resp, _ = c.Submit(ctx, &TopicTx{Op: KindTopicCreate, Memo: "news"})
	topic, err := c.Receipt(ctx, resp)
	if err != nil || topic.TopicID == nil {
		t.Fatalf("topic receipt: %+v %v", topic, err)
	}
	resp, _ = c.Submit(ctx, &TopicMessageTx{TopicID: *topic.TopicID, Message: []byte("hello")})
	msg, err := c.Receipt(ctx, resp)
	if err != nil || msg.TopicSequenceNumber == nil || *msg.TopicSequenceNumber != 1 || len(msg.TopicRunningHash) != 48 {
		t.Fatalf("message receipt: %+v %v", msg, err)
	}
}

func TestInMemoryAccountInfoChargesOperator(t *testing.T) {
	l := newTestLedger(t)
	c := clientFor(t, l, "0.0.1001", aliceKey)
	ctx := context.Background()

	cost, err := c.AccountInfoCost(ctx, "0.0.1002")
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	before := l.HbarBalance("0.0.1001")
	info, err := c.AccountInfo(ctx, "0.0.1002", cost)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Key == nil || *info.Key != "bob-pub" || info.ContractAccountID == nil {
		t.Fatalf("unexpected info %+v", info)
	}
	if costUnits, _ := ToSmallestUnit(cost, HbarDecimals); before-l.HbarBalance("0.0.1001") != costUnits {
		t.Fatalf("expected query cost to be charged")
	}
	if _, err := c.AccountInfo(ctx, "0.0.1002", decimal.Zero); err == nil {
		t.Fatalf("expected max payment failure")
	}
}

func TestInMemoryActsAsMirrorSource(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	var src mirror.Source = l
	info, err := src.Account(ctx, "0.0.1001")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !info.Hbars.Equal(decimal.NewFromInt(100)) || !info.Tokens["0.0.5001"].Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected balances %+v", info)
	}
	byAddress, err := src.Account(ctx, "0x00000000000000000000000000000000000003ea")
	if err != nil || byAddress.AccountID != "0.0.1002" {
		t.Fatalf("lookup by evm address: %+v %v", byAddress, err)
	}
	if _, err := src.Token(ctx, "0.0.404"); !errors.Is(err, mirror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryFactoryRejectsWrongKey(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.ClientFor(context.Background(), "testnet", "0.0.1001", bobKey); err == nil {
		t.Fatalf("expected key mismatch")
	}
	if _, err := l.ClientFor(context.Background(), "testnet", "0.0.7", aliceKey); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected unknown account, got %v", err)
	}
}
