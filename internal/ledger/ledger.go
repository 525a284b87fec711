package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StatusSuccess is the status the ledger reports for an applied transaction.
const StatusSuccess = "SUCCESS"

// Stages a StatusError can come from. Only receipt and record statuses
// describe the outcome of the transaction itself.
const (
	StagePrecheck = "precheck"
	StageReceipt  = "receipt"
	StageRecord   = "record"
)

// StatusError reports a ledger status other than SUCCESS, either at
// precheck (the node refused the submission) or in the receipt.
type StatusError struct {
	// Stage is StagePrecheck, StageReceipt or StageRecord.
	Stage         string
	Status        string
	TransactionID string
}

func (e *StatusError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("%s status %s", e.Stage, e.Status)
	}
	return fmt.Sprintf("%s status %s for %s", e.Stage, e.Status, e.TransactionID)
}

// AsStatusError unwraps a *StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Response identifies a submitted transaction.
type Response struct {
	TransactionID string
	NodeID        string
	Hash          []byte
	// native holds the backend's own response handle.
	native any
}

// Client is the contract every ledger backend satisfies. Submit freezes
// the transaction against the client context, applies the extra signatures
// and executes it; the operator signature is always implied.
type Client interface {
	Network() string
	OperatorAccountID() string
	OperatorPublicKey() string
	Submit(ctx context.Context, tx Transaction, signers ...Key) (Response, error)
	Receipt(ctx context.Context, resp Response) (RawReceipt, error)
	Record(ctx context.Context, resp Response) (RawRecord, error)
	AccountInfoCost(ctx context.Context, accountID string) (decimal.Decimal, error)
	AccountInfo(ctx context.Context, accountID string, maxPayment decimal.Decimal) (RawAccountInfo, error)
	Close() error
}

// ClientFactory builds a client whose operator is the given account.
type ClientFactory interface {
	ClientFor(ctx context.Context, network, accountID string, key Key) (Client, error)
}

// RawReceipt is the sparse receipt shape: nil means the ledger did not set it.
type RawReceipt struct {
	Status                  string
	AccountID               *string
	FileID                  *string
	ContractID              *string
	TopicID                 *string
	TokenID                 *string
	ScheduleID              *string
	ScheduledTransactionID  *string
	ExchangeRate            *RawExchangeRate
	TopicSequenceNumber     *uint64
	TopicRunningHash        []byte
	TopicRunningHashVersion *uint64
	TotalSupply             *uint64
	SerialNumbers           []int64
	NodeID                  *uint64
}

type RawExchangeRate struct {
	HbarEquiv      int32
	CentEquiv      int32
	ExpirationTime *time.Time
}

// RawTransfer is one account movement inside a record.
type RawTransfer struct {
	AccountID string
	Amount    int64
	Approved  bool
}

type RawNftTransfer struct {
	Sender   string
	Receiver string
	Serial   int64
	Approved bool
}

type RawContractResult struct {
	ContractID *string
	Result     []byte
	Error      *string
	GasUsed    *uint64
}

// RawRecord is the sparse record shape.
type RawRecord struct {
	Receipt                  RawReceipt
	TransactionHash          []byte
	ConsensusTimestamp       *time.Time
	TransactionID            *string
	Memo                     *string
	TransactionFee           *int64
	Transfers                []RawTransfer
	TokenTransfers           map[string][]RawTransfer
	NftTransfers             map[string][]RawNftTransfer
	ContractResult           *RawContractResult
	ScheduleRef              *string
	ParentConsensusTimestamp *time.Time
}

// RawAccountInfo is the sparse account info query result.
type RawAccountInfo struct {
	AccountID         string
	ContractAccountID *string
	Key               *string
	Balance           int64
	Memo              *string
	IsDeleted         bool
	ExpirationTime    *time.Time
	OwnedNfts         *int64
	StakedNodeID      *int64
	StakedAccountID   *string
}
