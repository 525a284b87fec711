package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags a transaction descriptor.
type Kind string

const (
	KindTransfer         Kind = "transfer"
	KindScheduleCreate   Kind = "scheduleCreate"
	KindScheduleSign     Kind = "scheduleSign"
	KindAllowanceApprove Kind = "allowanceApprove"
	KindAllowanceDelete  Kind = "allowanceDelete"
	KindAccountDelete    Kind = "accountDelete"
	KindAccountStake     Kind = "accountStake"
	KindTokenAssociate   Kind = "tokenAssociate"
	KindTokenDissociate  Kind = "tokenDissociate"
	KindTokenCreate      Kind = "tokenCreate"
	KindTokenUpdate      Kind = "tokenUpdate"
	KindTokenDelete      Kind = "tokenDelete"
	KindTokenMint        Kind = "tokenMint"
	KindTokenBurn        Kind = "tokenBurn"
	KindTokenWipe        Kind = "tokenWipe"
	KindTokenPause       Kind = "tokenPause"
	KindTokenUnpause     Kind = "tokenUnpause"
	KindTokenFreeze      Kind = "tokenFreeze"
	KindTokenUnfreeze    Kind = "tokenUnfreeze"
	KindTokenGrantKYC    Kind = "tokenGrantKyc"
	KindTokenRevokeKYC   Kind = "tokenRevokeKyc"
	KindTopicCreate      Kind = "topicCreate"
	KindTopicUpdate      Kind = "topicUpdate"
	KindTopicDelete      Kind = "topicDelete"
	KindTopicSubmit      Kind = "topicSubmit"
	KindContractCreate   Kind = "contractCreate"
	KindContractUpdate   Kind = "contractUpdate"
	KindContractDelete   Kind = "contractDelete"
	KindContractCall     Kind = "contractCall"
)

// Transaction is an immutable description of one ledger operation. Clients
// turn it into the SDK's builder calls in a single step.
type Transaction interface {
	Kind() Kind
}

// TransferTx is a multi-line transfer; every asset's lines net to zero.
type TransferTx struct {
	Memo string
	// MaxFee is denominated in hbar.
	MaxFee *decimal.Decimal
	Hbar   []HbarLine
	Tokens []TokenLine
	Nfts   []NftLine
}

func (*TransferTx) Kind() Kind { return KindTransfer }

// ScheduleCreateTx wraps a transfer so it executes once all debited
// accounts have signed.
type ScheduleCreateTx struct {
	Inner          *TransferTx
	Memo           string
	PayerAccountID string
	ExpiresAt      time.Time
	WaitForExpiry  bool
}

func (*ScheduleCreateTx) Kind() Kind { return KindScheduleCreate }

type ScheduleSignTx struct {
	ScheduleID string
}

func (*ScheduleSignTx) Kind() Kind { return KindScheduleSign }

// AllowanceTx approves or removes a spender's allowance. Amount is in the
// asset's smallest unit; zero removes a hbar/token allowance.
type AllowanceTx struct {
	Delete     bool
	Class      AssetClass
	Owner      string
	Spender    string
	TokenID    string
	Amount     int64
	Serials    []int64
	AllSerials bool
}

func (tx *AllowanceTx) Kind() Kind {
	if tx.Delete {
		return KindAllowanceDelete
	}
	return KindAllowanceApprove
}

type AccountDeleteTx struct {
	AccountID         string
	TransferAccountID string
}

func (*AccountDeleteTx) Kind() Kind { return KindAccountDelete }

// AccountStakeTx stakes to a node or an account; with neither set it clears
// any existing stake.
type AccountStakeTx struct {
	AccountID       string
	NodeID          *int64
	StakedAccountID string
	DeclineReward   bool
}

func (*AccountStakeTx) Kind() Kind { return KindAccountStake }

type TokenAssociationTx struct {
	AccountID  string
	TokenIDs   []string
	Dissociate bool
}

func (tx *TokenAssociationTx) Kind() Kind {
	if tx.Dissociate {
		return KindTokenDissociate
	}
	return KindTokenAssociate
}

// TokenType mirrors the ledger token type names.
type TokenType string

const (
	TokenFungible    TokenType = "FUNGIBLE_COMMON"
	TokenNonFungible TokenType = "NON_FUNGIBLE_UNIQUE"
)

// SupplyType mirrors the ledger supply type names.
type SupplyType string

const (
	SupplyInfinite SupplyType = "INFINITE"
	SupplyFinite   SupplyType = "FINITE"
)

// TokenKeys holds public keys in string form; empty means unset.
type TokenKeys struct {
	Admin       string
	KYC         string
	Freeze      string
	Wipe        string
	Supply      string
	Pause       string
	FeeSchedule string
}

type TokenCreateTx struct {
	Name               string
	Symbol             string
	Memo               string
	Type               TokenType
	Decimals           uint32
	InitialSupply      uint64
	SupplyType         SupplyType
	MaxSupply          int64
	TreasuryAccountID  string
	AutoRenewAccountID string
	FreezeDefault      bool
	Keys               TokenKeys
}

func (*TokenCreateTx) Kind() Kind { return KindTokenCreate }

type TokenUpdateTx struct {
	TokenID           string
	Name              string
	Symbol            string
	Memo              string
	TreasuryAccountID string
	Keys              TokenKeys
}

func (*TokenUpdateTx) Kind() Kind { return KindTokenUpdate }

// TokenActionTx covers the single-token operations that differ only in
// which fields the ledger reads: delete, mint, burn, wipe, pause, unpause,
// freeze, unfreeze, grant and revoke KYC.
type TokenActionTx struct {
	Op        Kind
	TokenID   string
	AccountID string
	Amount    uint64
	Serials   []int64
	Metadata  [][]byte
}

func (tx *TokenActionTx) Kind() Kind { return tx.Op }

// TopicTx creates, updates or deletes a consensus topic.
type TopicTx struct {
	Op                 Kind
	TopicID            string
	Memo               string
	AdminKey           string
	SubmitKey          string
	AutoRenewAccountID string
}

func (tx *TopicTx) Kind() Kind { return tx.Op }

type TopicMessageTx struct {
	TopicID string
	Message []byte
}

func (*TopicMessageTx) Kind() Kind { return KindTopicSubmit }

// ContractTx creates, updates or deletes a smart contract.
type ContractTx struct {
	Op                Kind
	ContractID        string
	BytecodeFileID    string
	Bytecode          []byte
	Gas               uint64
	InitialBalance    int64
	ConstructorParams []byte
	AdminKey          string
	Memo              string
	TransferAccountID string
}

func (tx *ContractTx) Kind() Kind { return tx.Op }

// ContractCallTx executes a contract function with ABI-encoded params.
type ContractCallTx struct {
	ContractID string
	Gas        uint64
	// Payable is in tinybars.
	Payable int64
	Params  []byte
}

func (*ContractCallTx) Kind() Kind { return KindContractCall }
