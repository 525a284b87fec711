package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hedera-wallet/hedera_wallet/internal/command"
	"github.com/hedera-wallet/hedera_wallet/internal/fees"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

var (
	aliceKey = ledger.Key{PrivateKey: "alice-priv", Curve: ledger.CurveED25519}
	bobKey   = ledger.Key{PrivateKey: "bob-priv", Curve: ledger.CurveED25519}
)

type fixture struct {
	ledger    *ledger.InMemory
	alice     ledger.Client
	bob       ledger.Client
	scheduler *Scheduler
	repo      Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	l := ledger.NewInMemory("testnet")
	l.CreateAccount("0.0.1001", aliceKey, "alice-pub", "", decimal.NewFromInt(200))
	l.CreateAccount("0.0.1002", bobKey, "bob-pub", "", decimal.NewFromInt(10))
	l.CreateAccount("0.0.98", ledger.Key{PrivateKey: "collector"}, "", "", decimal.Zero)
	l.CreateToken("0.0.5001", "Gold", "GLD", 2, ledger.TokenFungible, "0.0.1002", 100_000)
	l.SeedToken("0.0.1001", "0.0.5001", 0)
	l.SeedToken("0.0.98", "0.0.5001", 0)

	ctx := context.Background()
	alice, err := l.ClientFor(ctx, "testnet", "0.0.1001", aliceKey)
	require.NoError(t, err)
	bob, err := l.ClientFor(ctx, "testnet", "0.0.1002", bobKey)
	require.NoError(t, err)

	repo := NewMemoryRepository()
	fee := fees.ServiceFee{Percentage: decimal.NewFromInt(5), Collector: "0.0.98"}
	s := NewScheduler(repo, command.NewExecutor(zap.NewNop()), fee, time.Hour, zap.NewNop())
	return fixture{ledger: l, alice: alice, bob: bob, scheduler: s, repo: repo}
}

func two() *int32 { d := int32(2); return &d }

func swapInput() CreateInput {
	return CreateInput{
		Responder:    "0.0.1002",
		RequesterLeg: &ledger.Transfer{Class: ledger.AssetHbar, To: "0.0.1002", Amount: decimal.NewFromInt(100)},
		ResponderLeg: &ledger.Transfer{Class: ledger.AssetToken, To: "0.0.1001", Amount: decimal.NewFromInt(40), AssetID: "0.0.5001", Decimals: two()},
	}
}

func TestSwapExecutesOnAcknowledge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.scheduler.Prepare("0.0.1001", aliceKey, swapInput())
	require.NoError(t, err)
	require.Equal(t, "2.5", plan.Fees[0].Fee.String())
	require.Equal(t, "1", plan.Fees[1].Fee.String())

	created, _, err := f.scheduler.Create(ctx, f.alice, plan)
	require.NoError(t, err)
	require.Equal(t, StatusCreated, created.Status)
	require.Equal(t, int64(20_000_000_000), f.ledger.HbarBalance("0.0.1001"))

	pending, err := f.scheduler.Pending(ctx, "0.0.1002")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	done, res, err := f.scheduler.Acknowledge(ctx, f.bob, created.ScheduleID, bobKey)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, done.Status)
	require.NotEmpty(t, res.Receipt.ScheduledTransactionID)

	require.Equal(t, int64(20_000_000_000-10_000_000_000), f.ledger.HbarBalance("0.0.1001"))
	require.Equal(t, int64(1_000_000_000+9_750_000_000), f.ledger.HbarBalance("0.0.1002"))
	require.Equal(t, int64(3900), f.ledger.TokenBalance("0.0.1001", "0.0.5001"))
	require.Equal(t, int64(250_000_000), f.ledger.HbarBalance("0.0.98"))
	require.Equal(t, int64(100), f.ledger.TokenBalance("0.0.98", "0.0.5001"))

	stored, err := f.repo.Get(ctx, created.ScheduleID)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, stored.Status)

	_, _, err = f.scheduler.Acknowledge(ctx, f.bob, created.ScheduleID, bobKey)
	require.ErrorIs(t, err, xerrors.ErrPrecondition)
}

func TestSwapExpiresWithoutLedgerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.scheduler.Prepare("0.0.1001", aliceKey, swapInput())
	require.NoError(t, err)
	created, _, err := f.scheduler.Create(ctx, f.alice, plan)
	require.NoError(t, err)
	submitted := f.ledger.Submissions()

	f.scheduler.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, err = f.scheduler.Acknowledge(ctx, f.bob, created.ScheduleID, bobKey)
	require.ErrorIs(t, err, xerrors.ErrPrecondition)
	require.Equal(t, submitted, f.ledger.Submissions())

	stored, err := f.repo.Get(ctx, created.ScheduleID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, stored.Status)
}

func TestSwapRejectsWrongResponder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.scheduler.Prepare("0.0.1001", aliceKey, swapInput())
	require.NoError(t, err)
	created, _, err := f.scheduler.Create(ctx, f.alice, plan)
	require.NoError(t, err)

	_, _, err = f.scheduler.Acknowledge(ctx, f.alice, created.ScheduleID, aliceKey)
	require.ErrorIs(t, err, xerrors.ErrPrecondition)
}

func TestSwapCreateNeedsPreparedPlan(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.scheduler.Create(context.Background(), f.alice, Plan{})
	require.ErrorIs(t, err, xerrors.ErrPrecondition)
}

type failingUpdates struct {
	Repository
}

func (failingUpdates) UpdateStatus(context.Context, string, Status, string) error {
	return errors.New("connection refused")
}

func TestSwapLedgerExpiryLogsLostStatusUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	s := NewScheduler(failingUpdates{f.repo}, command.NewExecutor(zap.NewNop()), f.scheduler.fee, time.Hour, zap.New(core))

	plan, err := s.Prepare("0.0.1001", aliceKey, swapInput())
	require.NoError(t, err)
	created, _, err := s.Create(ctx, f.alice, plan)
	require.NoError(t, err)

	f.ledger.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, _, err = s.Acknowledge(ctx, f.bob, created.ScheduleID, bobKey)
	require.ErrorIs(t, err, xerrors.ErrLedgerRejection)

	entries := logs.FilterMessage("mark swap expired").All()
	require.Len(t, entries, 1)
	require.Equal(t, created.ScheduleID, entries[0].ContextMap()["schedule_id"])
	require.Equal(t, "connection refused", entries[0].ContextMap()["error"])
}
