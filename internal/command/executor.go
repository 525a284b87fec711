package command

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/receipt"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// Command is a compiled operation ready for submission.
type Command struct {
	// Op names the operation in errors and logs.
	Op      string
	Tx      ledger.Transaction
	Signers []ledger.Key
	// WithRecord fetches the full record instead of the receipt.
	WithRecord bool
}

// Result is the normalized outcome of one execution. Record is set only for
// commands compiled WithRecord.
type Result struct {
	TransactionID string            `json:"transactionId"`
	Receipt       receipt.TxReceipt `json:"receipt"`
	Record        *receipt.TxRecord `json:"record,omitempty"`
}

// Executor submits commands and fetches their results. It never retries: a
// resubmission after an ambiguous failure could apply the operation twice.
type Executor struct {
	logger *zap.Logger
}

func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run submits cmd through client and waits for its receipt or record.
func (e *Executor) Run(ctx context.Context, client ledger.Client, cmd Command) (Result, error) {
	if cmd.Tx == nil {
		return Result{}, xerrors.Precondition(cmd.Op, "nothing to submit")
	}

	resp, err := client.Submit(ctx, cmd.Tx, cmd.Signers...)
	if err != nil {
		e.logger.Warn("transaction submission failed",
			zap.String("op", cmd.Op),
			zap.String("operator", client.OperatorAccountID()),
			zap.Error(err))
		return Result{}, classifySubmit(cmd.Op, err)
	}

	result := Result{TransactionID: resp.TransactionID}
	if cmd.WithRecord {
		raw, err := client.Record(ctx, resp)
		if err != nil {
			return Result{}, e.classifyResult(cmd.Op, resp, err)
		}
		rec := receipt.NormalizeRecord(raw)
		result.Record = &rec
		result.Receipt = rec.Receipt
	} else {
		raw, err := client.Receipt(ctx, resp)
		if err != nil {
			return Result{}, e.classifyResult(cmd.Op, resp, err)
		}
		result.Receipt = receipt.Normalize(raw)
	}

	e.logger.Info("transaction executed",
		zap.String("op", cmd.Op),
		zap.String("transaction_id", resp.TransactionID),
		zap.String("status", result.Receipt.Status))
	return result, nil
}

func classifySubmit(op string, err error) error {
	var xe *xerrors.Error
	if errors.As(err, &xe) {
		return xerrors.WithOp(op, err)
	}
	if se, ok := ledger.AsStatusError(err); ok {
		return xerrors.Rejected(op, se.Status, err)
	}
	return xerrors.Unavailable(op, "ledger did not accept the submission", err)
}

// classifyResult separates a definite rejection from a lost result: once
// the ledger accepted the submission, only a receipt or record status says
// what happened. Any other failure, a rejected receipt query included,
// means the operation may or may not have applied.
func (e *Executor) classifyResult(op string, resp ledger.Response, err error) error {
	if se, ok := ledger.AsStatusError(err); ok && (se.Stage == ledger.StageReceipt || se.Stage == ledger.StageRecord) {
		e.logger.Warn("transaction rejected",
			zap.String("op", op),
			zap.String("transaction_id", resp.TransactionID),
			zap.String("status", se.Status))
		return xerrors.Rejected(op, se.Status, err)
	}
	e.logger.Error("transaction result unknown",
		zap.String("op", op),
		zap.String("transaction_id", resp.TransactionID),
		zap.Error(err))
	return xerrors.ResultUnknown(op, err)
}
