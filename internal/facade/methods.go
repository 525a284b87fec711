package facade

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/command"
	"github.com/hedera-wallet/hedera_wallet/internal/fees"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/receipt"
	"github.com/hedera-wallet/hedera_wallet/internal/swap"
	"github.com/hedera-wallet/hedera_wallet/internal/wallet"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// TransferParam is one requested movement as a dapp sends it. AssetID is a
// token id, or tokenId/serial for NFTs. From makes it an allowance spend.
type TransferParam struct {
	AssetType ledger.AssetClass `json:"assetType"`
	To        string            `json:"to"`
	Amount    decimal.Decimal   `json:"amount"`
	AssetID   string            `json:"assetId,omitempty"`
	From      string            `json:"from,omitempty"`
}

func (p TransferParam) transfer() *ledger.Transfer {
	class := p.AssetType
	if class == "" {
		class = ledger.AssetHbar
	}
	return &ledger.Transfer{Class: class, To: p.To, Amount: p.Amount, AssetID: p.AssetID, From: p.From}
}

type TransferCryptoParams struct {
	Transfers []TransferParam  `json:"transfers"`
	Memo      string           `json:"memo,omitempty"`
	MaxFee    *decimal.Decimal `json:"maxFee,omitempty"`
}

// TransferCrypto sends hbar, tokens and NFTs in one atomic transfer,
// charging the service fee against each fungible transfer.
func (s *Service) TransferCrypto(ctx context.Context, rc RequestContext, params *TransferCryptoParams) (any, error) {
	const op = "transferCrypto"
	return s.run(ctx, op, rc, func(ctx context.Context, ss *session) (*plan, error) {
		if len(params.Transfers) == 0 {
			return nil, xerrors.Precondition(op, "at least one transfer is required")
		}
		transfers := make([]*ledger.Transfer, len(params.Transfers))
		for i, p := range params.Transfers {
			transfers[i] = p.transfer()
		}
		if err := resolveTransfers(ctx, ss, op, transfers); err != nil {
			return nil, err
		}
		byAsset, err := fees.Normalize(transfers, s.fee)
		if err != nil {
			return nil, err
		}
		tx, err := command.CompileTransfer(command.TransferInput{
			Transfers:    transfers,
			Memo:         params.Memo,
			MaxFee:       params.MaxFee,
			Fees:         byAsset,
			FeeCollector: s.fee.Collector,
			Operator:     ss.operator.AccountID,
		})
		if err != nil {
			return nil, err
		}

		var fields []command.Field
		for i, t := range transfers {
			fields = append(fields, command.Field{Label: "Transfer " + strconv.Itoa(i+1), Value: describeTransfer(t)})
		}
		for _, key := range sortedKeys(byAsset) {
			if fee := byAsset[key]; fee.IsPositive() {
				fields = append(fields, command.Field{Label: "Service fee", Value: fee.String() + " " + key})
			}
		}
		if params.Memo != "" {
			fields = append(fields, command.Field{Label: "Memo", Value: params.Memo})
		}
		if params.MaxFee != nil {
			fields = append(fields, command.Field{Label: "Max transaction fee", Value: params.MaxFee.String() + " HBAR"})
		}
		return &plan{
			title:    "Transfer",
			fields:   fields,
			warnings: s.balanceWarnings(ctx, ss, operatorSpend(transfers, byAsset)),
			cmd:      command.Command{Op: op, Tx: tx},
		}, nil
	})
}

func describeTransfer(t *ledger.Transfer) string {
	out := describeLeg(t) + " to " + t.To
	if t.Delegated() {
		out += " from " + t.From + " (allowance)"
	}
	return out
}

type AccountInfoParams struct {
	AccountID string `json:"accountId,omitempty"`
}

// AccountInfoResult is a paid account query and the service fee transfer
// that followed it.
type AccountInfoResult struct {
	AccountInfo receipt.AccountInfo `json:"accountInfo"`
	QueryCost   decimal.Decimal     `json:"queryCost"`
	ServiceFee  decimal.Decimal     `json:"serviceFee"`
	FeeTransfer *command.Result     `json:"feeTransfer,omitempty"`
}

// GetAccountInfo runs the paid account info query. The user confirms the
// quoted cost and service fee first.
func (s *Service) GetAccountInfo(ctx context.Context, rc RequestContext, params *AccountInfoParams) (any, error) {
	const op = "getAccountInfo"
	return s.run(ctx, op, rc, func(ctx context.Context, ss *session) (*plan, error) {
		target := params.AccountID
		if target == "" {
			target = ss.operator.AccountID
		}
		target, err := resolveAccount(ctx, ss, op, target)
		if err != nil {
			return nil, err
		}
		if !ledger.ValidEntityID(target) {
			return nil, xerrors.Precondition(op, fmt.Sprintf("account id %q is invalid", target))
		}
		cost, err := ss.client.AccountInfoCost(ctx, target)
		if err != nil {
			return nil, classifyQuery(op, err)
		}
		quote, err := fees.CalculateFees(cost, s.fee.Percentage)
		if err != nil {
			return nil, err
		}

		fields := []command.Field{
			{Label: "Account", Value: target},
			{Label: "Query cost", Value: cost.String() + " HBAR"},
		}
		spend := map[string]decimal.Decimal{ledger.NativeAssetKey: quote.MaxCost}
		if quote.ServiceFee.IsPositive() {
			fields = append(fields, command.Field{Label: "Service fee", Value: quote.ServiceFee.String() + " HBAR"})
		}
		fields = append(fields, command.Field{Label: "Maximum cost", Value: quote.MaxCost.String() + " HBAR"})

		return &plan{
			title:    "Account info query",
			fields:   fields,
			warnings: s.balanceWarnings(ctx, ss, spend),
			execute: func(ctx context.Context) (any, error) {
				raw, err := ss.client.AccountInfo(ctx, target, quote.MaxCost)
				if err != nil {
					return nil, classifyQuery(op, err)
				}
				out := AccountInfoResult{
					AccountInfo: receipt.NormalizeAccountInfo(raw),
					QueryCost:   cost,
					ServiceFee:  quote.ServiceFee,
				}
				if !quote.ServiceFee.IsPositive() {
					return out, nil
				}
				res, err := s.chargeServiceFee(ctx, ss, quote.ServiceFee)
				if err != nil {
					// the query was paid and answered; the fee is not worth failing it
					s.logger.Error("service fee transfer failed",
						zap.String("op", op),
						zap.String("account_id", ss.operator.AccountID),
						zap.Error(err))
					return out, nil
				}
				out.FeeTransfer = &res
				return out, nil
			},
		}, nil
	})
}

func (s *Service) chargeServiceFee(ctx context.Context, ss *session, fee decimal.Decimal) (command.Result, error) {
	tx, err := command.CompileTransfer(command.TransferInput{
		Transfers: []*ledger.Transfer{{Class: ledger.AssetHbar, To: s.fee.Collector, Amount: fee}},
		Operator:  ss.operator.AccountID,
	})
	if err != nil {
		return command.Result{}, err
	}
	return s.executor.Run(ctx, ss.client, command.Command{Op: "serviceFee", Tx: tx})
}

// classifyQuery maps a failed paid query: a status means the ledger
// refused it, anything else means it could not be reached.
func classifyQuery(op string, err error) error {
	if se, ok := ledger.AsStatusError(err); ok {
		return xerrors.Rejected(op, se.Status, err)
	}
	return xerrors.Unavailable(op, "account info query", err)
}

// single runs a single-purpose request.
func (s *Service) single(ctx context.Context, op, title string, rc RequestContext, req command.Request, after func(ctx context.Context, ss *session) error) (any, error) {
	return s.run(ctx, op, rc, func(ctx context.Context, ss *session) (*plan, error) {
		if err := resolveDecimals(ctx, ss, op, req); err != nil {
			return nil, err
		}
		cmd, err := req.Compile(ss.operator)
		if err != nil {
			return nil, err
		}
		p := &plan{title: title, fields: req.Summary(), cmd: cmd}
		if after != nil {
			p.after = func(ctx context.Context, _ any) error { return after(ctx, ss) }
		}
		return p, nil
	})
}

func (s *Service) ApproveAllowance(ctx context.Context, rc RequestContext, req *command.ApproveAllowance) (any, error) {
	return s.single(ctx, "approveAllowance", "Approve allowance", rc, req, nil)
}

func (s *Service) DeleteAllowance(ctx context.Context, rc RequestContext, req *command.DeleteAllowance) (any, error) {
	return s.single(ctx, "deleteAllowance", "Delete allowance", rc, req, nil)
}

// DeleteAccount deletes the operator account; the stored account id and
// balance are cleared once the ledger confirms.
func (s *Service) DeleteAccount(ctx context.Context, rc RequestContext, req *command.DeleteAccount) (any, error) {
	return s.single(ctx, "deleteAccount", "Delete account", rc, req, func(ctx context.Context, ss *session) error {
		return s.wallets.ClearAfterDelete(ctx, ss.rc.Origin, ss.rc.Network)
	})
}

func (s *Service) StakeHbar(ctx context.Context, rc RequestContext, req *command.StakeHbar) (any, error) {
	return s.single(ctx, "stakeHbar", "Stake HBAR", rc, req, nil)
}

func (s *Service) UnstakeHbar(ctx context.Context, rc RequestContext, req *command.UnstakeHbar) (any, error) {
	return s.single(ctx, "unstakeHbar", "Unstake HBAR", rc, req, nil)
}

func (s *Service) AssociateTokens(ctx context.Context, rc RequestContext, req *command.TokenAssociation) (any, error) {
	req.Dissociate = false
	return s.single(ctx, "associateTokens", "Associate tokens", rc, req, nil)
}

func (s *Service) DissociateTokens(ctx context.Context, rc RequestContext, req *command.TokenAssociation) (any, error) {
	req.Dissociate = true
	return s.single(ctx, "dissociateTokens", "Dissociate tokens", rc, req, nil)
}

func (s *Service) CreateToken(ctx context.Context, rc RequestContext, req *command.CreateToken) (any, error) {
	return s.single(ctx, "createToken", "Create token", rc, req, nil)
}

func (s *Service) UpdateToken(ctx context.Context, rc RequestContext, req *command.UpdateToken) (any, error) {
	return s.single(ctx, "updateToken", "Update token", rc, req, nil)
}

func (s *Service) tokenAction(ctx context.Context, rc RequestContext, req *command.TokenAction, action ledger.Kind, op, title string) (any, error) {
	req.Action = action
	return s.single(ctx, op, title, rc, req, nil)
}

func (s *Service) DeleteToken(ctx context.Context, rc RequestContext, req *command.TokenAction) (any, error) {
	return s.tokenAction(ctx, rc, req, ledger.KindTokenDelete, "deleteToken", "Delete token")
}

func (s *Service) PauseToken(ctx context.Context, rc RequestContext, req *command.TokenAction) (any, error) {
	return s.tokenAction(ctx, rc, req, ledger.KindTokenPause, "pauseToken", "Pause token")
}

func (s *Service) UnpauseToken(ctx context.Context, rc RequestContext, req *command.TokenAction) (any, error) {
	return s.tokenAction(ctx, rc, req, ledger.KindTokenUnpause, "unpauseToken", "Unpause token")
}

func (s *Service) supplyChange(ctx context.Context, rc RequestContext, req *command.SupplyChange, action ledger.Kind, op, title string) (any, error) {
	req.Action = action
	return s.single(ctx, op, title, rc, req, nil)
}

func (s *Service) MintToken(ctx context.Context, rc RequestContext, req *command.SupplyChange) (any, error) {
	return s.supplyChange(ctx, rc, req, ledger.KindTokenMint, "mintToken", "Mint token")
}

func (s *Service) BurnToken(ctx context.Context, rc RequestContext, req *command.SupplyChange) (any, error) {
	return s.supplyChange(ctx, rc, req, ledger.KindTokenBurn, "burnToken", "Burn token")
}

func (s *Service) WipeToken(ctx context.Context, rc RequestContext, req *command.SupplyChange) (any, error) {
	return s.supplyChange(ctx, rc, req, ledger.KindTokenWipe, "wipeToken", "Wipe token")
}

func (s *Service) tokenAccountAction(ctx context.Context, rc RequestContext, req *command.TokenAccountAction, action ledger.Kind, op, title string) (any, error) {
	req.Action = action
	return s.single(ctx, op, title, rc, req, nil)
}

func (s *Service) FreezeAccount(ctx context.Context, rc RequestContext, req *command.TokenAccountAction) (any, error) {
	return s.tokenAccountAction(ctx, rc, req, ledger.KindTokenFreeze, "freezeAccount", "Freeze account")
}

func (s *Service) UnfreezeAccount(ctx context.Context, rc RequestContext, req *command.TokenAccountAction) (any, error) {
	return s.tokenAccountAction(ctx, rc, req, ledger.KindTokenUnfreeze, "unfreezeAccount", "Unfreeze account")
}

func (s *Service) EnableKYC(ctx context.Context, rc RequestContext, req *command.TokenAccountAction) (any, error) {
	return s.tokenAccountAction(ctx, rc, req, ledger.KindTokenGrantKYC, "enableKYC", "Grant KYC")
}

func (s *Service) DisableKYC(ctx context.Context, rc RequestContext, req *command.TokenAccountAction) (any, error) {
	return s.tokenAccountAction(ctx, rc, req, ledger.KindTokenRevokeKYC, "disableKYC", "Revoke KYC")
}

func (s *Service) topic(ctx context.Context, rc RequestContext, req *command.Topic, action ledger.Kind, op, title string) (any, error) {
	req.Action = action
	return s.single(ctx, op, title, rc, req, nil)
}

func (s *Service) CreateTopic(ctx context.Context, rc RequestContext, req *command.Topic) (any, error) {
	return s.topic(ctx, rc, req, ledger.KindTopicCreate, "createTopic", "Create topic")
}

func (s *Service) UpdateTopic(ctx context.Context, rc RequestContext, req *command.Topic) (any, error) {
	return s.topic(ctx, rc, req, ledger.KindTopicUpdate, "updateTopic", "Update topic")
}

func (s *Service) DeleteTopic(ctx context.Context, rc RequestContext, req *command.Topic) (any, error) {
	return s.topic(ctx, rc, req, ledger.KindTopicDelete, "deleteTopic", "Delete topic")
}

func (s *Service) SubmitMessage(ctx context.Context, rc RequestContext, req *command.SubmitMessage) (any, error) {
	return s.single(ctx, "submitMessage", "Submit topic message", rc, req, nil)
}

func (s *Service) contract(ctx context.Context, rc RequestContext, req *command.Contract, action ledger.Kind, op, title string) (any, error) {
	req.Action = action
	return s.single(ctx, op, title, rc, req, nil)
}

func (s *Service) CreateSmartContract(ctx context.Context, rc RequestContext, req *command.Contract) (any, error) {
	return s.contract(ctx, rc, req, ledger.KindContractCreate, "createSmartContract", "Create smart contract")
}

func (s *Service) UpdateSmartContract(ctx context.Context, rc RequestContext, req *command.Contract) (any, error) {
	return s.contract(ctx, rc, req, ledger.KindContractUpdate, "updateSmartContract", "Update smart contract")
}

func (s *Service) DeleteSmartContract(ctx context.Context, rc RequestContext, req *command.Contract) (any, error) {
	return s.contract(ctx, rc, req, ledger.KindContractDelete, "deleteSmartContract", "Delete smart contract")
}

func (s *Service) CallSmartContract(ctx context.Context, rc RequestContext, req *command.CallContract) (any, error) {
	return s.single(ctx, "callSmartContract", "Call smart contract", rc, req, nil)
}

// SwapLeg is what one party gives in a swap.
type SwapLeg struct {
	AssetType ledger.AssetClass `json:"assetType"`
	Amount    decimal.Decimal   `json:"amount"`
	AssetID   string            `json:"assetId,omitempty"`
}

type InitiateSwapParams struct {
	Responder     string  `json:"responderAccountId"`
	RequesterGive SwapLeg `json:"requesterTransfer"`
	ResponderGive SwapLeg `json:"responderTransfer"`
	Memo          string  `json:"memo,omitempty"`
}

// SwapResult reports the swap record next to the ledger result.
type SwapResult struct {
	ScheduleID             string         `json:"scheduleId"`
	Status                 swap.Status    `json:"status"`
	ExpiresAt              string         `json:"expiresAt"`
	ScheduledTransactionID string         `json:"scheduledTransactionId"`
	Result                 command.Result `json:"result"`
}

func newSwapResult(sw swap.Swap, res command.Result) SwapResult {
	return SwapResult{
		ScheduleID:             sw.ScheduleID,
		Status:                 sw.Status,
		ExpiresAt:              sw.ExpiresAt.Format(time.RFC3339),
		ScheduledTransactionID: sw.ScheduledTransactionID,
		Result:                 res,
	}
}

// InitiateSwap schedules both legs of a swap with the requester's
// signature. The responder completes it with CompleteSwap.
func (s *Service) InitiateSwap(ctx context.Context, rc RequestContext, params *InitiateSwapParams) (any, error) {
	const op = "initiateSwap"
	return s.run(ctx, op, rc, func(ctx context.Context, ss *session) (*plan, error) {
		responder, err := resolveAccount(ctx, ss, op, params.Responder)
		if err != nil {
			return nil, err
		}
		requesterLeg := TransferParam{AssetType: params.RequesterGive.AssetType, To: responder, Amount: params.RequesterGive.Amount, AssetID: params.RequesterGive.AssetID}.transfer()
		responderLeg := TransferParam{AssetType: params.ResponderGive.AssetType, To: ss.operator.AccountID, Amount: params.ResponderGive.Amount, AssetID: params.ResponderGive.AssetID}.transfer()
		if err := resolveTransfers(ctx, ss, op, []*ledger.Transfer{requesterLeg, responderLeg}); err != nil {
			return nil, err
		}
		offered := describeLeg(requesterLeg)

		prepared, err := s.swaps.Prepare(ss.operator.AccountID, ss.operator.Key, swap.CreateInput{
			Responder:    responder,
			RequesterLeg: requesterLeg,
			ResponderLeg: responderLeg,
			Memo:         params.Memo,
		})
		if err != nil {
			return nil, err
		}

		// Prepare left both legs net of their service fee.
		fields := []command.Field{
			{Label: "Counterparty", Value: responder},
			{Label: "You send", Value: offered},
			{Label: "Counterparty receives", Value: describeLeg(requesterLeg)},
			{Label: "You receive", Value: describeLeg(responderLeg)},
		}
		for i, who := range []string{"Your service fee", "Counterparty service fee"} {
			if fee := prepared.Fees[i]; fee.Fee.IsPositive() {
				fields = append(fields, command.Field{Label: who, Value: fee.Fee.String() + " " + fee.AssetKey})
			}
		}
		fields = append(fields, command.Field{Label: "Expires", Value: prepared.ExpiresAt.Format("2006-01-02 15:04:05 MST")})

		spend := map[string]decimal.Decimal{}
		if requesterLeg.Class != ledger.AssetNFT {
			key, _ := requesterLeg.AssetKey()
			spend[key] = requesterLeg.Amount.Add(prepared.Fees[0].Fee)
		}
		return &plan{
			title:    "Propose swap",
			fields:   fields,
			warnings: s.balanceWarnings(ctx, ss, spend),
			execute: func(ctx context.Context) (any, error) {
				sw, res, err := s.swaps.Create(ctx, ss.client, prepared)
				if err != nil {
					return nil, err
				}
				return newSwapResult(sw, res), nil
			},
		}, nil
	})
}

// describeLeg renders what a transfer moves.
func describeLeg(t *ledger.Transfer) string {
	switch t.Class {
	case ledger.AssetHbar:
		return t.Amount.String() + " HBAR"
	case ledger.AssetToken:
		return t.Amount.String() + " of " + t.AssetID
	default:
		return "NFT " + t.AssetID
	}
}

type CompleteSwapParams struct {
	ScheduleID string `json:"scheduleId"`
}

// CompleteSwap adds the responder's signature to a scheduled swap. An
// expired swap fails before anything is shown or signed.
func (s *Service) CompleteSwap(ctx context.Context, rc RequestContext, params *CompleteSwapParams) (any, error) {
	const op = "completeSwap"
	return s.run(ctx, op, rc, func(ctx context.Context, ss *session) (*plan, error) {
		record, err := s.swaps.Lookup(ctx, params.ScheduleID, ss.operator.AccountID)
		if err != nil {
			return nil, err
		}
		// stored legs are net of the service fee
		fields := []command.Field{
			{Label: "Schedule", Value: record.ScheduleID},
			{Label: "Counterparty", Value: record.Requester},
			{Label: "Counterparty receives", Value: describeLeg(&record.ResponderLeg)},
			{Label: "You receive", Value: describeLeg(&record.RequesterLeg)},
			{Label: "Expires", Value: record.ExpiresAt.Format("2006-01-02 15:04:05 MST")},
		}
		return &plan{
			title:  "Complete swap",
			fields: fields,
			execute: func(ctx context.Context) (any, error) {
				sw, res, err := s.swaps.Acknowledge(ctx, ss.client, record.ScheduleID, ss.operator.Key)
				if err != nil {
					return nil, err
				}
				return newSwapResult(sw, res), nil
			},
		}, nil
	})
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PendingSwaps lists the open swaps of the caller's account. Reading them
// needs no confirmation.
func (s *Service) PendingSwaps(ctx context.Context, rc RequestContext) ([]swap.Swap, error) {
	const op = "pendingSwaps"
	acct, err := s.wallets.Get(ctx, rc.Origin, rc.Network)
	if errors.Is(err, wallet.ErrNotFound) || (err == nil && acct.AccountID == "") {
		return nil, xerrors.Precondition(op, "no account is configured for this origin on "+rc.Network)
	}
	if err != nil {
		return nil, xerrors.Unavailable(op, "account state", err)
	}
	swaps, err := s.swaps.Pending(ctx, acct.AccountID)
	if err != nil {
		return nil, xerrors.Unavailable(op, "load swaps", err)
	}
	out := swaps[:0]
	for _, sw := range swaps {
		if sw.Network == rc.Network && !sw.Expired(s.now()) {
			out = append(out, sw)
		}
	}
	return out, nil
}
