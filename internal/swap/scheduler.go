package swap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/command"
	"github.com/hedera-wallet/hedera_wallet/internal/fees"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// Scheduler creates and completes atomic swaps. Both legs travel in one
// scheduled transfer so they settle together or not at all.
type Scheduler struct {
	repo     Repository
	executor *command.Executor
	fee      fees.ServiceFee
	lifetime time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler builds a scheduler charging fee on every swap leg.
func NewScheduler(repo Repository, executor *command.Executor, fee fees.ServiceFee, lifetime time.Duration, logger *zap.Logger) *Scheduler {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Scheduler{
		repo:     repo,
		executor: executor,
		fee:      fee,
		lifetime: lifetime,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInput describes a swap proposed by the client's operator.
type CreateInput struct {
	Responder    string
	RequesterLeg *ledger.Transfer
	ResponderLeg *ledger.Transfer
	Memo         string
}

// Plan is a compiled swap ready for confirmation.
type Plan struct {
	Command   command.Command
	Fees      []fees.LegFee
	ExpiresAt time.Time
	input     CreateInput
	requester string
}

// Prepare compiles the swap without touching the ledger, so the caller can
// show the exact lines and fees before anything is signed.
func (s *Scheduler) Prepare(requester string, senderKey ledger.Key, in CreateInput) (Plan, error) {
	const op = "initiateSwap"
	legFees, err := fees.NormalizeSwap([]*ledger.Transfer{in.RequesterLeg, in.ResponderLeg}, s.fee)
	if err != nil {
		return Plan{}, xerrors.WithOp(op, err)
	}
	inner, err := command.CompileSwap(command.SwapInput{
		Requester:    requester,
		Responder:    in.Responder,
		RequesterLeg: in.RequesterLeg,
		ResponderLeg: in.ResponderLeg,
		LegFees:      legFees,
		FeeCollector: s.fee.Collector,
		Memo:         in.Memo,
	})
	if err != nil {
		return Plan{}, xerrors.WithOp(op, err)
	}
	expiresAt := s.now().Add(s.lifetime).UTC()
	return Plan{
		Command: command.Command{
			Op: op,
			Tx: &ledger.ScheduleCreateTx{
				Inner:          inner,
				Memo:           in.Memo,
				PayerAccountID: requester,
				ExpiresAt:      expiresAt,
			},
			Signers: []ledger.Key{senderKey},
		},
		Fees:      legFees,
		ExpiresAt: expiresAt,
		input:     in,
		requester: requester,
	}, nil
}

// Create submits a prepared swap and stores it as created.
func (s *Scheduler) Create(ctx context.Context, client ledger.Client, plan Plan) (Swap, command.Result, error) {
	if plan.Command.Tx == nil {
		return Swap{}, command.Result{}, xerrors.Precondition("initiateSwap", "swap was not prepared")
	}
	result, err := s.executor.Run(ctx, client, plan.Command)
	if err != nil {
		return Swap{}, command.Result{}, err
	}
	if result.Receipt.ScheduleID == "" {
		return Swap{}, result, xerrors.ResultUnknown("initiateSwap", errors.New("receipt carries no schedule id"))
	}

	record := Swap{
		ScheduleID:   result.Receipt.ScheduleID,
		Network:      client.Network(),
		Requester:    plan.requester,
		Responder:    plan.input.Responder,
		RequesterLeg: *plan.input.RequesterLeg,
		ResponderLeg: *plan.input.ResponderLeg,
		Status:       StatusCreated,
		CreatedAt:    s.now().UTC(),
		ExpiresAt:    plan.ExpiresAt,
	}
	if result.Receipt.ScheduledTransactionID != "" {
		record.Status = StatusExecuted
		record.ScheduledTransactionID = result.Receipt.ScheduledTransactionID
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// the schedule exists on the ledger even though the record was lost
		s.logger.Error("store swap record",
			zap.String("schedule_id", record.ScheduleID),
			zap.Error(err))
		return record, result, xerrors.Unavailable("initiateSwap", "swap record could not be stored", err)
	}
	s.logger.Info("swap created",
		zap.String("schedule_id", record.ScheduleID),
		zap.String("requester", record.Requester),
		zap.String("responder", record.Responder))
	return record, result, nil
}

// Lookup returns an open swap the client's operator may sign, marking it
// expired when its window has closed.
func (s *Scheduler) Lookup(ctx context.Context, scheduleID, responder string) (Swap, error) {
	const op = "completeSwap"
	if !ledger.ValidEntityID(scheduleID) {
		return Swap{}, xerrors.Precondition(op, "schedule id is invalid")
	}
	record, err := s.repo.Get(ctx, scheduleID)
	if errors.Is(err, ErrNotFound) {
		return Swap{}, xerrors.Precondition(op, "unknown swap "+scheduleID)
	}
	if err != nil {
		return Swap{}, xerrors.Unavailable(op, "load swap", err)
	}
	if record.Responder != responder {
		return Swap{}, xerrors.Precondition(op, "swap is addressed to another account")
	}
	if !record.Open() {
		return Swap{}, xerrors.Precondition(op, "swap is already "+string(record.Status))
	}
	if record.Expired(s.now()) {
		if err := s.repo.UpdateStatus(ctx, scheduleID, StatusExpired, ""); err != nil {
			s.logger.Warn("mark swap expired", zap.String("schedule_id", scheduleID), zap.Error(err))
		}
		return Swap{}, xerrors.Precondition(op, "swap expired at "+record.ExpiresAt.Format(time.RFC3339))
	}
	return record, nil
}

// Acknowledge adds the responder's signature. The ledger executes the
// transfer once every debited account has signed.
func (s *Scheduler) Acknowledge(ctx context.Context, client ledger.Client, scheduleID string, receiverKey ledger.Key) (Swap, command.Result, error) {
	record, err := s.Lookup(ctx, scheduleID, client.OperatorAccountID())
	if err != nil {
		return Swap{}, command.Result{}, err
	}

	result, err := s.executor.Run(ctx, client, command.Command{
		Op:      "completeSwap",
		Tx:      &ledger.ScheduleSignTx{ScheduleID: scheduleID},
		Signers: []ledger.Key{receiverKey},
	})
	if err != nil {
		var xe *xerrors.Error
		if errors.As(err, &xe) && xe.Status == "INVALID_SCHEDULE_ID" {
			if uerr := s.repo.UpdateStatus(ctx, scheduleID, StatusExpired, ""); uerr != nil {
				s.logger.Warn("mark swap expired", zap.String("schedule_id", scheduleID), zap.Error(uerr))
			}
		}
		return Swap{}, command.Result{}, err
	}

	record.Status = StatusAcknowledged
	if txID := result.Receipt.ScheduledTransactionID; txID != "" {
		record.Status = StatusExecuted
		record.ScheduledTransactionID = txID
	}
	if err := s.repo.UpdateStatus(ctx, scheduleID, record.Status, record.ScheduledTransactionID); err != nil {
		s.logger.Error("update swap record", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
	s.logger.Info("swap acknowledged",
		zap.String("schedule_id", scheduleID),
		zap.String("status", string(record.Status)))
	return record, result, nil
}

// Pending lists open swaps involving account.
func (s *Scheduler) Pending(ctx context.Context, account string) ([]Swap, error) {
	return s.repo.ListOpen(ctx, account)
}
