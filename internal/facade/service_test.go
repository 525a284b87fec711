package facade

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/command"
	"github.com/hedera-wallet/hedera_wallet/internal/fees"
	"github.com/hedera-wallet/hedera_wallet/internal/host"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
	"github.com/hedera-wallet/hedera_wallet/internal/notification"
	"github.com/hedera-wallet/hedera_wallet/internal/swap"
	"github.com/hedera-wallet/hedera_wallet/internal/wallet"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

const (
	testSecret  = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	aliceOrigin = "https://alice.example"
	bobOrigin   = "https://bob.example"
	bobEVM      = "0x00000000000000000000000000000000000003ea"
)

var (
	aliceKey = ledger.Key{PrivateKey: "alice-priv", Curve: ledger.CurveED25519}
	bobKey   = ledger.Key{PrivateKey: "bob-priv", Curve: ledger.CurveED25519}
)

// recorder answers every prompt with answer and keeps what it was shown.
type recorder struct {
	mu      sync.Mutex
	answer  bool
	prompts []host.Prompt
}

func (r *recorder) Confirm(_ context.Context, p host.Prompt) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
	return r.answer, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

type fixture struct {
	ledger  *ledger.InMemory
	wallets *wallet.Service
	dialog  *recorder
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	l := ledger.NewInMemory("testnet")
	l.CreateAccount("0.0.1001", aliceKey, "alice-pub", "", decimal.NewFromInt(100))
	l.CreateAccount("0.0.1002", bobKey, "bob-pub", bobEVM, decimal.NewFromInt(10))
	l.CreateAccount("0.0.98", ledger.Key{PrivateKey: "collector"}, "", "", decimal.Zero)
	l.CreateToken("0.0.5001", "Gold", "GLD", 2, ledger.TokenFungible, "0.0.1002", 100_000)
	l.SeedToken("0.0.1001", "0.0.5001", 0)
	l.SeedToken("0.0.98", "0.0.5001", 0)

	mirrors := mirror.NewRegistry()
	mirrors.Register("testnet", l)

	sealer, err := wallet.NewSealer(testSecret)
	require.NoError(t, err)
	wallets := wallet.NewService(wallet.NewMemoryRepository(), sealer, zap.NewNop())
	for _, in := range []wallet.SaveInput{
		{Origin: aliceOrigin, Network: "testnet", AccountID: "0.0.1001", PrivateKey: aliceKey.PrivateKey, PublicKey: "alice-pub", Curve: ledger.CurveED25519},
		{Origin: bobOrigin, Network: "testnet", AccountID: "0.0.1002", PrivateKey: bobKey.PrivateKey, PublicKey: "bob-pub", Curve: ledger.CurveED25519},
	} {
		_, err := wallets.Save(ctx, in)
		require.NoError(t, err)
	}

	fee := fees.ServiceFee{Percentage: decimal.NewFromInt(5), Collector: "0.0.98"}
	executor := command.NewExecutor(zap.NewNop())
	dialog := &recorder{answer: true}
	svc := NewService(Deps{
		Clients:       l,
		Mirrors:       mirrors,
		Wallets:       wallets,
		Dialog:        dialog,
		Notifier:      notification.NewLoggerNotifier(zap.NewNop()),
		Executor:      executor,
		Swaps:         swap.NewScheduler(swap.NewMemoryRepository(), executor, fee, time.Hour, zap.NewNop()),
		Fee:           fee,
		BalanceMaxAge: time.Minute,
		Logger:        zap.NewNop(),
	})
	return &fixture{ledger: l, wallets: wallets, dialog: dialog, service: svc}
}

var alice = RequestContext{Origin: aliceOrigin, Network: "testnet"}

func TestTransferCryptoChargesServiceFee(t *testing.T) {
	f := newFixture(t)
	out, err := f.service.TransferCrypto(context.Background(), alice, &TransferCryptoParams{
		Transfers: []TransferParam{{AssetType: ledger.AssetHbar, To: bobEVM, Amount: decimal.NewFromInt(10)}},
		Memo:      "rent",
	})
	require.NoError(t, err)
	res, ok := out.(command.Result)
	require.True(t, ok)
	require.Equal(t, ledger.StatusSuccess, res.Receipt.Status)

	require.Equal(t, int64(9_000_000_000), f.ledger.HbarBalance("0.0.1001"))
	require.Equal(t, int64(1_950_000_000), f.ledger.HbarBalance("0.0.1002"))
	require.Equal(t, int64(50_000_000), f.ledger.HbarBalance("0.0.98"))

	require.Equal(t, 1, f.dialog.count())
	shown := f.dialog.prompts[0].Content.String()
	require.Contains(t, shown, "9.5 HBAR to 0.0.1002")
	require.Contains(t, shown, "Service fee: 0.5 HBAR")
	require.NotContains(t, shown, "Warning")
}

func TestRejectedOperationNeverReachesLedger(t *testing.T) {
	f := newFixture(t)
	f.dialog.answer = false
	_, err := f.service.TransferCrypto(context.Background(), alice, &TransferCryptoParams{
		Transfers: []TransferParam{{AssetType: ledger.AssetHbar, To: "0.0.1002", Amount: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, xerrors.ErrUserRejected)
	require.Equal(t, 0, f.ledger.Submissions())
	require.Equal(t, int64(10_000_000_000), f.ledger.HbarBalance("0.0.1001"))
}

func TestPreconditionFailsBeforeDialog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.TransferCrypto(ctx, alice, &TransferCryptoParams{
		Transfers: []TransferParam{{AssetType: ledger.AssetToken, To: "0.0.1002", Amount: decimal.NewFromInt(1), AssetID: "0.0.9999"}},
	})
	require.ErrorIs(t, err, xerrors.ErrPrecondition)

	_, err = f.service.TransferCrypto(ctx, RequestContext{Origin: "https://unknown.example", Network: "testnet"}, &TransferCryptoParams{})
	require.ErrorIs(t, err, xerrors.ErrPrecondition)

	_, err = f.service.TransferCrypto(ctx, RequestContext{Origin: aliceOrigin, Network: "mainnet"}, &TransferCryptoParams{})
	require.ErrorIs(t, err, xerrors.ErrPrecondition)

	require.Equal(t, 0, f.dialog.count())
	require.Equal(t, 0, f.ledger.Submissions())
}

func TestInsufficientBalanceIsWarnedAndLedgerDecides(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.TransferCrypto(context.Background(), alice, &TransferCryptoParams{
		Transfers: []TransferParam{{AssetType: ledger.AssetHbar, To: "0.0.1002", Amount: decimal.NewFromInt(500)}},
	})
	require.ErrorIs(t, err, xerrors.ErrLedgerRejection)
	require.Equal(t, 1, f.dialog.count())
	require.Contains(t, f.dialog.prompts[0].Content.String(), "insufficient HBAR balance")
}

func TestDeleteAccountClearsStoredAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.DeleteAccount(ctx, alice, &command.DeleteAccount{TransferAccountID: "0.0.1002"})
	require.NoError(t, err)
	require.True(t, f.ledger.IsDeleted("0.0.1001"))

	acct, err := f.wallets.Get(ctx, aliceOrigin, "testnet")
	require.NoError(t, err)
	require.Empty(t, acct.AccountID)
	require.Equal(t, aliceKey.PrivateKey, acct.KeyStore.PrivateKey)

	_, err = f.service.UnstakeHbar(ctx, alice, &command.UnstakeHbar{})
	require.ErrorIs(t, err, xerrors.ErrPrecondition)
}

func TestGetAccountInfoPaysForQuery(t *testing.T) {
	f := newFixture(t)
	out, err := f.service.GetAccountInfo(context.Background(), alice, &AccountInfoParams{AccountID: bobEVM})
	require.NoError(t, err)

	info, ok := out.(AccountInfoResult)
	require.True(t, ok)
	require.Equal(t, "0.0.1002", info.AccountInfo.AccountID)
	require.Equal(t, "0.0001", info.QueryCost.String())
	// 5% of the query cost rounds to zero, so no fee transfer follows
	require.Nil(t, info.FeeTransfer)
	require.Equal(t, int64(10_000_000_000-10_000), f.ledger.HbarBalance("0.0.1001"))
	require.Contains(t, f.dialog.prompts[0].Content.String(), "Maximum cost")
}

func TestSwapAcrossOrigins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.service.InitiateSwap(ctx, alice, &InitiateSwapParams{
		Responder:     "0.0.1002",
		RequesterGive: SwapLeg{AssetType: ledger.AssetHbar, Amount: decimal.NewFromInt(10)},
		ResponderGive: SwapLeg{AssetType: ledger.AssetToken, Amount: decimal.NewFromInt(40), AssetID: "0.0.5001"},
	})
	require.NoError(t, err)
	proposed := out.(SwapResult)
	require.Equal(t, swap.StatusCreated, proposed.Status)
	require.Equal(t, int64(10_000_000_000), f.ledger.HbarBalance("0.0.1001"))

	bob := RequestContext{Origin: bobOrigin, Network: "testnet"}
	out, err = f.service.CompleteSwap(ctx, bob, &CompleteSwapParams{ScheduleID: proposed.ScheduleID})
	require.NoError(t, err)
	done := out.(SwapResult)
	require.Equal(t, swap.StatusExecuted, done.Status)

	require.Equal(t, int64(9_000_000_000), f.ledger.HbarBalance("0.0.1001"))
	require.Equal(t, int64(1_975_000_000), f.ledger.HbarBalance("0.0.1002"))
	require.Equal(t, int64(3900), f.ledger.TokenBalance("0.0.1001", "0.0.5001"))
	require.Equal(t, int64(100), f.ledger.TokenBalance("0.0.98", "0.0.5001"))
	require.Equal(t, int64(25_000_000), f.ledger.HbarBalance("0.0.98"))

	_, err = f.service.CompleteSwap(ctx, alice, &CompleteSwapParams{ScheduleID: proposed.ScheduleID})
	require.ErrorIs(t, err, xerrors.ErrPrecondition)
}

func TestTokenRequestsResolveDecimals(t *testing.T) {
	f := newFixture(t)
	bob := RequestContext{Origin: bobOrigin, Network: "testnet"}
	_, err := f.service.MintToken(context.Background(), bob, &command.SupplyChange{
		AssetType: ledger.AssetToken,
		TokenID:   "0.0.5001",
		Amount:    decimal.RequireFromString("1.5"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(100_000+150), f.ledger.TokenBalance("0.0.1002", "0.0.5001"))
}

func TestHandlerMapsErrorKinds(t *testing.T) {
	f := newFixture(t)
	f.dialog.answer = false
	app := fiber.New()
	h := NewHandler(f.service, func(c *fiber.Ctx) string { return c.Get("X-Origin") }, "testnet")
	app.Post("/rpc/:method", h.Call)

	call := func(method, body string) (int, string) {
		req := httptest.NewRequest("POST", "/rpc/"+method, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Origin", aliceOrigin)
		resp, err := app.Test(req)
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(raw)
	}

	status, body := call("transferCrypto", `{"transfers":[{"assetType":"HBAR","to":"0.0.1002","amount":"1"}]}`)
	require.Equal(t, fiber.StatusForbidden, status)
	require.Contains(t, body, `"kind":"user_rejected"`)

	status, _ = call("transferCrypto", `{"transfers":`)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call("noSuchMethod", `{}`)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestPendingSwapsListsOpenSwaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := RequestContext{Origin: bobOrigin, Network: "testnet"}

	_, err := f.service.InitiateSwap(ctx, alice, &InitiateSwapParams{
		Responder:     bobEVM,
		RequesterGive: SwapLeg{AssetType: ledger.AssetHbar, Amount: decimal.NewFromInt(1)},
		ResponderGive: SwapLeg{AssetType: ledger.AssetToken, Amount: decimal.NewFromInt(1), AssetID: "0.0.5001"},
	})
	require.NoError(t, err)

	pending, err := f.service.PendingSwaps(ctx, bob)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "0.0.1001", pending[0].Requester)
	require.Equal(t, "0.0.1002", pending[0].Responder)

	f.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	pending, err = f.service.PendingSwaps(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, pending)
}
