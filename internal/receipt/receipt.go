// Package receipt turns the ledger's sparse receipts and records into fixed
// shapes. Absent identifiers become "", absent composites become empty
// values, integers become decimal strings and bytes become lowercase hex.
package receipt

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
)

type ExchangeRate struct {
	HbarEquiv      string `json:"hbars"`
	CentEquiv      string `json:"cents"`
	ExpirationTime string `json:"expirationTime"`
}

// TxReceipt is the normalized receipt. Integer fields are strings so values
// beyond 2^53 survive JSON consumers.
type TxReceipt struct {
	Status                  string       `json:"status"`
	AccountID               string       `json:"accountId"`
	FileID                  string       `json:"fileId"`
	ContractID              string       `json:"contractId"`
	TopicID                 string       `json:"topicId"`
	TokenID                 string       `json:"tokenId"`
	ScheduleID              string       `json:"scheduleId"`
	ScheduledTransactionID  string       `json:"scheduledTransactionId"`
	ExchangeRate            ExchangeRate `json:"exchangeRate"`
	TopicSequenceNumber     string       `json:"topicSequenceNumber"`
	TopicRunningHash        string       `json:"topicRunningHash"`
	TopicRunningHashVersion string       `json:"topicRunningHashVersion"`
	TotalSupply             string       `json:"totalSupply"`
	SerialNumbers           []string     `json:"serials"`
	NodeID                  string       `json:"nodeId"`
}

// Transfer amounts are in the asset's smallest unit.
type Transfer struct {
	AccountID  string `json:"accountId"`
	Amount     string `json:"amount"`
	IsApproved bool   `json:"isApproved"`
}

type NftTransfer struct {
	Sender     string `json:"sender"`
	Receiver   string `json:"receiver"`
	Serial     string `json:"serial"`
	IsApproved bool   `json:"isApproved"`
}

type ContractResult struct {
	ContractID string `json:"contractId"`
	Result     string `json:"result"`
	Error      string `json:"errorMessage"`
	GasUsed    string `json:"gasUsed"`
}

type TxRecord struct {
	Receipt                  TxReceipt                `json:"receipt"`
	TransactionHash          string                   `json:"transactionHash"`
	ConsensusTimestamp       string                   `json:"consensusTimestamp"`
	TransactionID            string                   `json:"transactionId"`
	Memo                     string                   `json:"transactionMemo"`
	TransactionFee           string                   `json:"transactionFee"`
	Transfers                []Transfer               `json:"transfers"`
	TokenTransfers           map[string][]Transfer    `json:"tokenTransfers"`
	NftTransfers             map[string][]NftTransfer `json:"nftTransfers"`
	ContractFunctionResult   ContractResult           `json:"contractFunctionResult"`
	ScheduleRef              string                   `json:"scheduleRef"`
	ParentConsensusTimestamp string                   `json:"parentConsensusTimestamp"`
}

type AccountInfo struct {
	AccountID         string `json:"accountId"`
	ContractAccountID string `json:"contractAccountId"`
	Key               string `json:"key"`
	Balance           string `json:"balance"`
	Memo              string `json:"accountMemo"`
	IsDeleted         bool   `json:"isDeleted"`
	ExpirationTime    string `json:"expirationTime"`
	OwnedNfts         string `json:"ownedNfts"`
	StakedNodeID      string `json:"stakedNodeId"`
	StakedAccountID   string `json:"stakedAccountId"`
}

// Normalize never fails; a zero RawReceipt yields a receipt of empty values.
func Normalize(raw ledger.RawReceipt) TxReceipt {
	out := TxReceipt{
		Status:                  raw.Status,
		AccountID:               str(raw.AccountID),
		FileID:                  str(raw.FileID),
		ContractID:              str(raw.ContractID),
		TopicID:                 str(raw.TopicID),
		TokenID:                 str(raw.TokenID),
		ScheduleID:              str(raw.ScheduleID),
		ScheduledTransactionID:  str(raw.ScheduledTransactionID),
		TopicSequenceNumber:     u64(raw.TopicSequenceNumber),
		TopicRunningHash:        hex.EncodeToString(raw.TopicRunningHash),
		TopicRunningHashVersion: u64(raw.TopicRunningHashVersion),
		TotalSupply:             u64(raw.TotalSupply),
		SerialNumbers:           make([]string, 0, len(raw.SerialNumbers)),
		NodeID:                  u64(raw.NodeID),
	}
	if raw.ExchangeRate != nil {
		out.ExchangeRate = ExchangeRate{
			HbarEquiv:      strconv.FormatInt(int64(raw.ExchangeRate.HbarEquiv), 10),
			CentEquiv:      strconv.FormatInt(int64(raw.ExchangeRate.CentEquiv), 10),
			ExpirationTime: timestamp(raw.ExchangeRate.ExpirationTime),
		}
	}
	for _, s := range raw.SerialNumbers {
		out.SerialNumbers = append(out.SerialNumbers, strconv.FormatInt(s, 10))
	}
	return out
}

// NormalizeRecord never fails; map keys of token and NFT transfers are kept,
// lines within each key keep ledger order.
func NormalizeRecord(raw ledger.RawRecord) TxRecord {
	out := TxRecord{
		Receipt:                  Normalize(raw.Receipt),
		TransactionHash:          hex.EncodeToString(raw.TransactionHash),
		ConsensusTimestamp:       timestamp(raw.ConsensusTimestamp),
		TransactionID:            str(raw.TransactionID),
		Memo:                     str(raw.Memo),
		TransactionFee:           i64(raw.TransactionFee),
		Transfers:                convertTransfers(raw.Transfers),
		TokenTransfers:           make(map[string][]Transfer, len(raw.TokenTransfers)),
		NftTransfers:             make(map[string][]NftTransfer, len(raw.NftTransfers)),
		ScheduleRef:              str(raw.ScheduleRef),
		ParentConsensusTimestamp: timestamp(raw.ParentConsensusTimestamp),
	}
	for token, lines := range raw.TokenTransfers {
		out.TokenTransfers[token] = convertTransfers(lines)
	}
	for token, lines := range raw.NftTransfers {
		converted := make([]NftTransfer, 0, len(lines))
		for _, l := range lines {
			converted = append(converted, NftTransfer{
				Sender:     l.Sender,
				Receiver:   l.Receiver,
				Serial:     strconv.FormatInt(l.Serial, 10),
				IsApproved: l.Approved,
			})
		}
		out.NftTransfers[token] = converted
	}
	if cr := raw.ContractResult; cr != nil {
		out.ContractFunctionResult = ContractResult{
			ContractID: str(cr.ContractID),
			Result:     hex.EncodeToString(cr.Result),
			Error:      str(cr.Error),
			GasUsed:    u64(cr.GasUsed),
		}
	}
	return out
}

// NormalizeAccountInfo shapes a paid account info query result; the hbar
// balance is reported in tinybars.
func NormalizeAccountInfo(raw ledger.RawAccountInfo) AccountInfo {
	return AccountInfo{
		AccountID:         raw.AccountID,
		ContractAccountID: str(raw.ContractAccountID),
		Key:               str(raw.Key),
		Balance:           strconv.FormatInt(raw.Balance, 10),
		Memo:              str(raw.Memo),
		IsDeleted:         raw.IsDeleted,
		ExpirationTime:    timestamp(raw.ExpirationTime),
		OwnedNfts:         i64(raw.OwnedNfts),
		StakedNodeID:      i64(raw.StakedNodeID),
		StakedAccountID:   str(raw.StakedAccountID),
	}
}

// Tokens lists the token ids touched by a record, sorted.
func (r TxRecord) Tokens() []string {
	ids := make([]string, 0, len(r.TokenTransfers)+len(r.NftTransfers))
	for id := range r.TokenTransfers {
		ids = append(ids, id)
	}
	for id := range r.NftTransfers {
		if _, dup := r.TokenTransfers[id]; !dup {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func convertTransfers(lines []ledger.RawTransfer) []Transfer {
	out := make([]Transfer, 0, len(lines))
	for _, l := range lines {
		out = append(out, Transfer{
			AccountID:  l.AccountID,
			Amount:     strconv.FormatInt(l.Amount, 10),
			IsApproved: l.Approved,
		})
	}
	return out
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func u64(p *uint64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatUint(*p, 10)
}

func i64(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

// timestamp renders the ledger's seconds.nanoseconds form.
func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}
