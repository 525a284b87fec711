package ledger

import (
	"context"
	"errors"
	"fmt"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// HederaFactory builds SDK clients against the public networks.
type HederaFactory struct {
	logger *zap.Logger
}

func NewHederaFactory(logger *zap.Logger) *HederaFactory {
	return &HederaFactory{logger: logger}
}

// ClientFor implements ClientFactory.
func (f *HederaFactory) ClientFor(_ context.Context, network, accountID string, key Key) (Client, error) {
	sdk, err := hedera.ClientForName(network)
	if err != nil {
		return nil, fmt.Errorf("client for %s: %w", network, err)
	}
	operator, err := hedera.AccountIDFromString(accountID)
	if err != nil {
		_ = sdk.Close()
		return nil, fmt.Errorf("operator account %q: %w", accountID, err)
	}
	priv, err := parsePrivateKey(key)
	if err != nil {
		_ = sdk.Close()
		return nil, err
	}
	sdk.SetOperator(operator, priv)
	return &hederaClient{
		sdk:       sdk,
		network:   network,
		operator:  accountID,
		publicKey: priv.PublicKey().String(),
		logger:    f.logger.With(zap.String("network", network), zap.String("operator", accountID)),
	}, nil
}

type hederaClient struct {
	sdk       *hedera.Client
	network   string
	operator  string
	publicKey string
	logger    *zap.Logger
}

func (c *hederaClient) Network() string           { return c.network }
func (c *hederaClient) OperatorAccountID() string { return c.operator }
func (c *hederaClient) OperatorPublicKey() string { return c.publicKey }
func (c *hederaClient) Close() error              { return c.sdk.Close() }

type sdkTransaction[T any] interface {
	FreezeWith(client *hedera.Client) (T, error)
	Sign(key hedera.PrivateKey) T
	Execute(client *hedera.Client) (hedera.TransactionResponse, error)
}

// submit freezes tx against the client, adds the extra signatures and
// executes it.
func submit[T sdkTransaction[T]](c *hederaClient, tx T, signers []hedera.PrivateKey) (Response, error) {
	frozen, err := tx.FreezeWith(c.sdk)
	if err != nil {
		return Response{}, translateError(err)
	}
	for _, key := range signers {
		frozen = frozen.Sign(key)
	}
	resp, err := frozen.Execute(c.sdk)
	if err != nil {
		return Response{}, translateError(err)
	}
	return Response{
		TransactionID: resp.TransactionID.String(),
		NodeID:        resp.NodeID.String(),
		Hash:          resp.Hash,
		native:        resp,
	}, nil
}

func (c *hederaClient) Submit(ctx context.Context, tx Transaction, signers ...Key) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	keys := make([]hedera.PrivateKey, 0, len(signers))
	for _, s := range signers {
		k, err := parsePrivateKey(s)
		if err != nil {
			return Response{}, err
		}
		keys = append(keys, k)
	}

	c.logger.Debug("submitting transaction", zap.String("kind", string(tx.Kind())))

	switch t := tx.(type) {
	case *TransferTx:
		built, err := buildTransfer(t)
		if err != nil {
			return Response{}, err
		}
		return submit(c, built, keys)
	case *ScheduleCreateTx:
		return c.submitScheduleCreate(t, keys)
	case *ScheduleSignTx:
		id, err := hedera.ScheduleIDFromString(t.ScheduleID)
		if err != nil {
			return Response{}, invalidID("schedule", t.ScheduleID, err)
		}
		return submit(c, hedera.NewScheduleSignTransaction().SetScheduleID(id), keys)
	case *AllowanceTx:
		return c.submitAllowance(t, keys)
	case *AccountDeleteTx:
		id, err := accountID(t.AccountID)
		if err != nil {
			return Response{}, err
		}
		beneficiary, err := accountID(t.TransferAccountID)
		if err != nil {
			return Response{}, err
		}
		return submit(c, hedera.NewAccountDeleteTransaction().SetAccountID(id).SetTransferAccountID(beneficiary), keys)
	case *AccountStakeTx:
		return c.submitStake(t, keys)
	case *TokenAssociationTx:
		id, err := accountID(t.AccountID)
		if err != nil {
			return Response{}, err
		}
		tokenIDs, err := tokenIDs(t.TokenIDs)
		if err != nil {
			return Response{}, err
		}
		if t.Dissociate {
			return submit(c, hedera.NewTokenDissociateTransaction().SetAccountID(id).SetTokenIDs(tokenIDs...), keys)
		}
		return submit(c, hedera.NewTokenAssociateTransaction().SetAccountID(id).SetTokenIDs(tokenIDs...), keys)
	case *TokenCreateTx:
		return c.submitTokenCreate(t, keys)
	case *TokenUpdateTx:
		return c.submitTokenUpdate(t, keys)
	case *TokenActionTx:
		return c.submitTokenAction(t, keys)
	case *TopicTx:
		return c.submitTopic(t, keys)
	case *TopicMessageTx:
		id, err := hedera.TopicIDFromString(t.TopicID)
		if err != nil {
			return Response{}, invalidID("topic", t.TopicID, err)
		}
		return submit(c, hedera.NewTopicMessageSubmitTransaction().SetTopicID(id).SetMessage(t.Message), keys)
	case *ContractTx:
		return c.submitContract(t, keys)
	case *ContractCallTx:
		id, err := hedera.ContractIDFromString(t.ContractID)
		if err != nil {
			return Response{}, invalidID("contract", t.ContractID, err)
		}
		call := hedera.NewContractExecuteTransaction().
			SetContractID(id).
			SetGas(t.Gas).
			SetFunctionParameters(t.Params)
		if t.Payable > 0 {
			call.SetPayableAmount(hedera.HbarFromTinybar(t.Payable))
		}
		return submit(c, call, keys)
	default:
		return Response{}, xerrors.Precondition("submit", fmt.Sprintf("unsupported transaction kind %q", tx.Kind()))
	}
}

func buildTransfer(t *TransferTx) (*hedera.TransferTransaction, error) {
	tx := hedera.NewTransferTransaction()
	if t.Memo != "" {
		tx.SetTransactionMemo(t.Memo)
	}
	if t.MaxFee != nil {
		maxFee, err := ToSmallestUnit(*t.MaxFee, HbarDecimals)
		if err != nil {
			return nil, err
		}
		tx.SetMaxTransactionFee(hedera.HbarFromTinybar(maxFee))
	}
	for _, line := range t.Hbar {
		id, err := accountID(line.AccountID)
		if err != nil {
			return nil, err
		}
		if line.Approved {
			tx.AddApprovedHbarTransfer(id, hedera.HbarFromTinybar(line.Amount), true)
		} else {
			tx.AddHbarTransfer(id, hedera.HbarFromTinybar(line.Amount))
		}
	}
	for _, line := range t.Tokens {
		token, err := hedera.TokenIDFromString(line.TokenID)
		if err != nil {
			return nil, invalidID("token", line.TokenID, err)
		}
		id, err := accountID(line.AccountID)
		if err != nil {
			return nil, err
		}
		if line.Approved {
			tx.AddApprovedTokenTransferWithDecimals(token, id, line.Amount, line.Decimals, true)
		} else {
			tx.AddTokenTransferWithDecimals(token, id, line.Amount, line.Decimals)
		}
	}
	for _, line := range t.Nfts {
		token, err := hedera.TokenIDFromString(line.TokenID)
		if err != nil {
			return nil, invalidID("token", line.TokenID, err)
		}
		sender, err := accountID(line.Sender)
		if err != nil {
			return nil, err
		}
		receiver, err := accountID(line.Receiver)
		if err != nil {
			return nil, err
		}
		nft := hedera.NftID{TokenID: token, SerialNumber: line.Serial}
		if line.Approved {
			tx.AddApprovedNftTransfer(nft, sender, receiver, true)
		} else {
			tx.AddNftTransfer(nft, sender, receiver)
		}
	}
	return tx, nil
}

func (c *hederaClient) submitScheduleCreate(t *ScheduleCreateTx, keys []hedera.PrivateKey) (Response, error) {
	inner, err := buildTransfer(t.Inner)
	if err != nil {
		return Response{}, err
	}
	tx, err := hedera.NewScheduleCreateTransaction().SetScheduledTransaction(inner)
	if err != nil {
		return Response{}, xerrors.Precondition("submit", "cannot schedule transfer: "+err.Error())
	}
	if t.Memo != "" {
		tx.SetScheduleMemo(t.Memo)
	}
	if t.PayerAccountID != "" {
		payer, err := accountID(t.PayerAccountID)
		if err != nil {
			return Response{}, err
		}
		tx.SetPayerAccountID(payer)
	}
	if !t.ExpiresAt.IsZero() {
		tx.SetExpirationTime(t.ExpiresAt)
		tx.SetWaitForExpiry(t.WaitForExpiry)
	}
	return submit(c, tx, keys)
}

func (c *hederaClient) submitAllowance(t *AllowanceTx, keys []hedera.PrivateKey) (Response, error) {
	owner, err := accountID(t.Owner)
	if err != nil {
		return Response{}, err
	}
	spender, err := accountID(t.Spender)
	if err != nil {
		return Response{}, err
	}

	if t.Class == AssetHbar {
		amount := hedera.HbarFromTinybar(t.Amount)
		if t.Delete {
			amount = hedera.HbarFromTinybar(0)
		}
		return submit(c, hedera.NewAccountAllowanceApproveTransaction().ApproveHbarAllowance(owner, spender, amount), keys)
	}

	token, err := hedera.TokenIDFromString(t.TokenID)
	if err != nil {
		return Response{}, invalidID("token", t.TokenID, err)
	}
	if t.Class == AssetToken {
		amount := t.Amount
		if t.Delete {
			amount = 0
		}
		return submit(c, hedera.NewAccountAllowanceApproveTransaction().ApproveTokenAllowance(token, owner, spender, amount), keys)
	}

	if t.Delete {
		if t.AllSerials || len(t.Serials) == 0 {
			return submit(c, hedera.NewAccountAllowanceApproveTransaction().DeleteTokenNftAllowanceAllSerials(token, owner, spender), keys)
		}
		tx := hedera.NewAccountAllowanceDeleteTransaction()
		for _, serial := range t.Serials {
			tx.DeleteAllTokenNftAllowances(hedera.NftID{TokenID: token, SerialNumber: serial}, &owner)
		}
		return submit(c, tx, keys)
	}

	tx := hedera.NewAccountAllowanceApproveTransaction()
	if t.AllSerials {
		tx.ApproveTokenNftAllowanceAllSerials(token, owner, spender)
	} else {
		for _, serial := range t.Serials {
			tx.ApproveTokenNftAllowance(hedera.NftID{TokenID: token, SerialNumber: serial}, owner, spender)
		}
	}
	return submit(c, tx, keys)
}

func (c *hederaClient) submitStake(t *AccountStakeTx, keys []hedera.PrivateKey) (Response, error) {
	id, err := accountID(t.AccountID)
	if err != nil {
		return Response{}, err
	}
	tx := hedera.NewAccountUpdateTransaction().SetAccountID(id).SetDeclineStakingReward(t.DeclineReward)
	switch {
	case t.NodeID != nil:
		tx.SetStakedNodeID(*t.NodeID)
	case t.StakedAccountID != "":
		staked, err := accountID(t.StakedAccountID)
		if err != nil {
			return Response{}, err
		}
		tx.SetStakedAccountID(staked)
	default:
		tx.ClearStakedNodeID()
		tx.ClearStakedAccountID()
	}
	return submit(c, tx, keys)
}

func (c *hederaClient) submitTokenCreate(t *TokenCreateTx, keys []hedera.PrivateKey) (Response, error) {
	treasury, err := accountID(t.TreasuryAccountID)
	if err != nil {
		return Response{}, err
	}
	tx := hedera.NewTokenCreateTransaction().
		SetTokenName(t.Name).
		SetTokenSymbol(t.Symbol).
		SetTokenMemo(t.Memo).
		SetTreasuryAccountID(treasury).
		SetFreezeDefault(t.FreezeDefault)
	if t.Type == TokenNonFungible {
		tx.SetTokenType(hedera.TokenTypeNonFungibleUnique)
	} else {
		tx.SetTokenType(hedera.TokenTypeFungibleCommon).
			SetDecimals(uint(t.Decimals)).
			SetInitialSupply(t.InitialSupply)
	}
	if t.SupplyType == SupplyFinite {
		tx.SetSupplyType(hedera.TokenSupplyTypeFinite).SetMaxSupply(t.MaxSupply)
	} else {
		tx.SetSupplyType(hedera.TokenSupplyTypeInfinite)
	}
	if t.AutoRenewAccountID != "" {
		renew, err := accountID(t.AutoRenewAccountID)
		if err != nil {
			return Response{}, err
		}
		tx.SetAutoRenewAccount(renew)
	}
	err = applyTokenKeys(t.Keys, tokenKeySetters{
		admin:       func(k hedera.Key) { tx.SetAdminKey(k) },
		kyc:         func(k hedera.Key) { tx.SetKycKey(k) },
		freeze:      func(k hedera.Key) { tx.SetFreezeKey(k) },
		wipe:        func(k hedera.Key) { tx.SetWipeKey(k) },
		supply:      func(k hedera.Key) { tx.SetSupplyKey(k) },
		pause:       func(k hedera.Key) { tx.SetPauseKey(k) },
		feeSchedule: func(k hedera.Key) { tx.SetFeeScheduleKey(k) },
	})
	if err != nil {
		return Response{}, err
	}
	return submit(c, tx, keys)
}

func (c *hederaClient) submitTokenUpdate(t *TokenUpdateTx, keys []hedera.PrivateKey) (Response, error) {
	token, err := hedera.TokenIDFromString(t.TokenID)
	if err != nil {
		return Response{}, invalidID("token", t.TokenID, err)
	}
	tx := hedera.NewTokenUpdateTransaction().SetTokenID(token)
	if t.Name != "" {
		tx.SetTokenName(t.Name)
	}
	if t.Symbol != "" {
		tx.SetTokenSymbol(t.Symbol)
	}
	if t.Memo != "" {
		tx.SetTokenMemo(t.Memo)
	}
	if t.TreasuryAccountID != "" {
		treasury, err := accountID(t.TreasuryAccountID)
		if err != nil {
			return Response{}, err
		}
		tx.SetTreasuryAccountID(treasury)
	}
	err = applyTokenKeys(t.Keys, tokenKeySetters{
		admin:       func(k hedera.Key) { tx.SetAdminKey(k) },
		kyc:         func(k hedera.Key) { tx.SetKycKey(k) },
		freeze:      func(k hedera.Key) { tx.SetFreezeKey(k) },
		wipe:        func(k hedera.Key) { tx.SetWipeKey(k) },
		supply:      func(k hedera.Key) { tx.SetSupplyKey(k) },
		pause:       func(k hedera.Key) { tx.SetPauseKey(k) },
		feeSchedule: func(k hedera.Key) { tx.SetFeeScheduleKey(k) },
	})
	if err != nil {
		return Response{}, err
	}
	return submit(c, tx, keys)
}

func (c *hederaClient) submitTokenAction(t *TokenActionTx, keys []hedera.PrivateKey) (Response, error) {
	token, err := hedera.TokenIDFromString(t.TokenID)
	if err != nil {
		return Response{}, invalidID("token", t.TokenID, err)
	}
	var account hedera.AccountID
	if t.AccountID != "" {
		if account, err = accountID(t.AccountID); err != nil {
			return Response{}, err
		}
	}

	switch t.Op {
	case KindTokenDelete:
		return submit(c, hedera.NewTokenDeleteTransaction().SetTokenID(token), keys)
	case KindTokenMint:
		tx := hedera.NewTokenMintTransaction().SetTokenID(token)
		if len(t.Metadata) > 0 {
			tx.SetMetadatas(t.Metadata)
		} else {
			tx.SetAmount(t.Amount)
		}
		return submit(c, tx, keys)
	case KindTokenBurn:
		tx := hedera.NewTokenBurnTransaction().SetTokenID(token)
		if len(t.Serials) > 0 {
			tx.SetSerialNumbers(t.Serials)
		} else {
			tx.SetAmount(t.Amount)
		}
		return submit(c, tx, keys)
	case KindTokenWipe:
		tx := hedera.NewTokenWipeTransaction().SetTokenID(token).SetAccountID(account)
		if len(t.Serials) > 0 {
			tx.SetSerialNumbers(t.Serials)
		} else {
			tx.SetAmount(t.Amount)
		}
		return submit(c, tx, keys)
	case KindTokenPause:
		return submit(c, hedera.NewTokenPauseTransaction().SetTokenID(token), keys)
	case KindTokenUnpause:
		return submit(c, hedera.NewTokenUnpauseTransaction().SetTokenID(token), keys)
	case KindTokenFreeze:
		return submit(c, hedera.NewTokenFreezeTransaction().SetTokenID(token).SetAccountID(account), keys)
	case KindTokenUnfreeze:
		return submit(c, hedera.NewTokenUnfreezeTransaction().SetTokenID(token).SetAccountID(account), keys)
	case KindTokenGrantKYC:
		return submit(c, hedera.NewTokenGrantKycTransaction().SetTokenID(token).SetAccountID(account), keys)
	case KindTokenRevokeKYC:
		return submit(c, hedera.NewTokenRevokeKycTransaction().SetTokenID(token).SetAccountID(account), keys)
	default:
		return Response{}, xerrors.Precondition("submit", fmt.Sprintf("unsupported token operation %q", t.Op))
	}
}

func (c *hederaClient) submitTopic(t *TopicTx, keys []hedera.PrivateKey) (Response, error) {
	var admin, submitKey hedera.Key
	if t.AdminKey != "" {
		k, err := hedera.PublicKeyFromString(t.AdminKey)
		if err != nil {
			return Response{}, invalidID("admin key", t.AdminKey, err)
		}
		admin = k
	}
	if t.SubmitKey != "" {
		k, err := hedera.PublicKeyFromString(t.SubmitKey)
		if err != nil {
			return Response{}, invalidID("submit key", t.SubmitKey, err)
		}
		submitKey = k
	}

	if t.Op == KindTopicCreate {
		tx := hedera.NewTopicCreateTransaction().SetTopicMemo(t.Memo)
		if admin != nil {
			tx.SetAdminKey(admin)
		}
		if submitKey != nil {
			tx.SetSubmitKey(submitKey)
		}
		if t.AutoRenewAccountID != "" {
			renew, err := accountID(t.AutoRenewAccountID)
			if err != nil {
				return Response{}, err
			}
			tx.SetAutoRenewAccountID(renew)
		}
		return submit(c, tx, keys)
	}

	topic, err := hedera.TopicIDFromString(t.TopicID)
	if err != nil {
		return Response{}, invalidID("topic", t.TopicID, err)
	}
	if t.Op == KindTopicDelete {
		return submit(c, hedera.NewTopicDeleteTransaction().SetTopicID(topic), keys)
	}
	tx := hedera.NewTopicUpdateTransaction().SetTopicID(topic)
	if t.Memo != "" {
		tx.SetTopicMemo(t.Memo)
	}
	if admin != nil {
		tx.SetAdminKey(admin)
	}
	if submitKey != nil {
		tx.SetSubmitKey(submitKey)
	}
	if t.AutoRenewAccountID != "" {
		renew, err := accountID(t.AutoRenewAccountID)
		if err != nil {
			return Response{}, err
		}
		tx.SetAutoRenewAccountID(renew)
	}
	return submit(c, tx, keys)
}

func (c *hederaClient) submitContract(t *ContractTx, keys []hedera.PrivateKey) (Response, error) {
	var admin hedera.Key
	if t.AdminKey != "" {
		k, err := hedera.PublicKeyFromString(t.AdminKey)
		if err != nil {
			return Response{}, invalidID("admin key", t.AdminKey, err)
		}
		admin = k
	}

	switch t.Op {
	case KindContractCreate:
		tx := hedera.NewContractCreateTransaction().SetGas(t.Gas).SetContractMemo(t.Memo)
		if t.BytecodeFileID != "" {
			file, err := hedera.FileIDFromString(t.BytecodeFileID)
			if err != nil {
				return Response{}, invalidID("file", t.BytecodeFileID, err)
			}
			tx.SetBytecodeFileID(file)
		} else {
			tx.SetBytecode(t.Bytecode)
		}
		if t.InitialBalance > 0 {
			tx.SetInitialBalance(hedera.HbarFromTinybar(t.InitialBalance))
		}
		if len(t.ConstructorParams) > 0 {
			tx.SetConstructorParametersRaw(t.ConstructorParams)
		}
		if admin != nil {
			tx.SetAdminKey(admin)
		}
		return submit(c, tx, keys)
	case KindContractUpdate, KindContractDelete:
		id, err := hedera.ContractIDFromString(t.ContractID)
		if err != nil {
			return Response{}, invalidID("contract", t.ContractID, err)
		}
		if t.Op == KindContractDelete {
			tx := hedera.NewContractDeleteTransaction().SetContractID(id)
			if t.TransferAccountID != "" {
				beneficiary, err := accountID(t.TransferAccountID)
				if err != nil {
					return Response{}, err
				}
				tx.SetTransferAccountID(beneficiary)
			}
			return submit(c, tx, keys)
		}
		tx := hedera.NewContractUpdateTransaction().SetContractID(id)
		if t.Memo != "" {
			tx.SetContractMemo(t.Memo)
		}
		if admin != nil {
			tx.SetAdminKey(admin)
		}
		return submit(c, tx, keys)
	default:
		return Response{}, xerrors.Precondition("submit", fmt.Sprintf("unsupported contract operation %q", t.Op))
	}
}

func (c *hederaClient) Receipt(ctx context.Context, resp Response) (RawReceipt, error) {
	native, err := nativeResponse(ctx, resp)
	if err != nil {
		return RawReceipt{}, err
	}
	receipt, err := native.GetReceipt(c.sdk)
	if err != nil {
		return RawReceipt{}, translateError(err)
	}
	return convertReceipt(receipt), nil
}

func (c *hederaClient) Record(ctx context.Context, resp Response) (RawRecord, error) {
	native, err := nativeResponse(ctx, resp)
	if err != nil {
		return RawRecord{}, err
	}
	record, err := native.GetRecord(c.sdk)
	if err != nil {
		return RawRecord{}, translateError(err)
	}
	return convertRecord(record), nil
}

func (c *hederaClient) AccountInfoCost(ctx context.Context, id string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	account, err := accountID(id)
	if err != nil {
		return decimal.Zero, err
	}
	cost, err := hedera.NewAccountInfoQuery().SetAccountID(account).GetCost(c.sdk)
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return FromSmallestUnit(cost.AsTinybar(), HbarDecimals), nil
}

func (c *hederaClient) AccountInfo(ctx context.Context, id string, maxPayment decimal.Decimal) (RawAccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return RawAccountInfo{}, err
	}
	account, err := accountID(id)
	if err != nil {
		return RawAccountInfo{}, err
	}
	maxTinybars, err := ToSmallestUnit(maxPayment, HbarDecimals)
	if err != nil {
		return RawAccountInfo{}, err
	}
	info, err := hedera.NewAccountInfoQuery().
		SetAccountID(account).
		SetMaxQueryPayment(hedera.HbarFromTinybar(maxTinybars)).
		Execute(c.sdk)
	if err != nil {
		return RawAccountInfo{}, translateError(err)
	}

	out := RawAccountInfo{
		AccountID: info.AccountID.String(),
		Balance:   info.Balance.AsTinybar(),
		IsDeleted: info.IsDeleted,
	}
	if info.ContractAccountID != "" {
		v := info.ContractAccountID
		out.ContractAccountID = &v
	}
	if info.Key != nil {
		v := info.Key.String()
		out.Key = &v
	}
	if info.AccountMemo != "" {
		v := info.AccountMemo
		out.Memo = &v
	}
	if !info.ExpirationTime.IsZero() {
		v := info.ExpirationTime
		out.ExpirationTime = &v
	}
	owned := info.OwnedNfts
	out.OwnedNfts = &owned
	if info.StakingInfo != nil {
		out.StakedNodeID = info.StakingInfo.StakedNodeID
		if info.StakingInfo.StakedAccountID != nil {
			v := info.StakingInfo.StakedAccountID.String()
			out.StakedAccountID = &v
		}
	}
	return out, nil
}

func nativeResponse(ctx context.Context, resp Response) (hedera.TransactionResponse, error) {
	if err := ctx.Err(); err != nil {
		return hedera.TransactionResponse{}, err
	}
	native, ok := resp.native.(hedera.TransactionResponse)
	if !ok {
		return hedera.TransactionResponse{}, fmt.Errorf("response %s was not produced by this client", resp.TransactionID)
	}
	return native, nil
}

func convertReceipt(r hedera.TransactionReceipt) RawReceipt {
	out := RawReceipt{
		Status:        r.Status.String(),
		SerialNumbers: r.SerialNumbers,
	}
	if r.AccountID != nil {
		v := r.AccountID.String()
		out.AccountID = &v
	}
	if r.FileID != nil {
		v := r.FileID.String()
		out.FileID = &v
	}
	if r.ContractID != nil {
		v := r.ContractID.String()
		out.ContractID = &v
	}
	if r.TopicID != nil {
		v := r.TopicID.String()
		out.TopicID = &v
	}
	if r.TokenID != nil {
		v := r.TokenID.String()
		out.TokenID = &v
	}
	if r.ScheduleID != nil {
		v := r.ScheduleID.String()
		out.ScheduleID = &v
	}
	if r.ScheduledTransactionID != nil {
		v := r.ScheduledTransactionID.String()
		out.ScheduledTransactionID = &v
	}
	if r.ExchangeRate != nil {
		out.ExchangeRate = &RawExchangeRate{HbarEquiv: r.ExchangeRate.Hbars}
	}
	if r.TopicSequenceNumber != 0 {
		v := r.TopicSequenceNumber
		out.TopicSequenceNumber = &v
	}
	if len(r.TopicRunningHash) > 0 {
		out.TopicRunningHash = r.TopicRunningHash
		v := r.TopicRunningHashVersion
		out.TopicRunningHashVersion = &v
	}
	if r.TotalSupply != 0 {
		v := r.TotalSupply
		out.TotalSupply = &v
	}
	if r.NodeID != 0 {
		v := r.NodeID
		out.NodeID = &v
	}
	return out
}

func convertRecord(r hedera.TransactionRecord) RawRecord {
	out := RawRecord{
		Receipt:         convertReceipt(r.Receipt),
		TransactionHash: r.TransactionHash,
	}
	if !r.ConsensusTimestamp.IsZero() {
		v := r.ConsensusTimestamp
		out.ConsensusTimestamp = &v
	}
	txID := r.TransactionID.String()
	out.TransactionID = &txID
	if r.TransactionMemo != "" {
		v := r.TransactionMemo
		out.Memo = &v
	}
	fee := r.TransactionFee.AsTinybar()
	out.TransactionFee = &fee
	for _, t := range r.Transfers {
		out.Transfers = append(out.Transfers, RawTransfer{
			AccountID: t.AccountID.String(),
			Amount:    t.Amount.AsTinybar(),
			Approved:  t.IsApproved,
		})
	}
	if len(r.TokenTransfers) > 0 {
		out.TokenTransfers = make(map[string][]RawTransfer, len(r.TokenTransfers))
		for token, lines := range r.TokenTransfers {
			for _, t := range lines {
				out.TokenTransfers[token.String()] = append(out.TokenTransfers[token.String()], RawTransfer{
					AccountID: t.AccountID.String(),
					Amount:    t.Amount,
					Approved:  t.IsApproved,
				})
			}
		}
	}
	if len(r.NftTransfers) > 0 {
		out.NftTransfers = make(map[string][]RawNftTransfer, len(r.NftTransfers))
		for token, lines := range r.NftTransfers {
			for _, t := range lines {
				out.NftTransfers[token.String()] = append(out.NftTransfers[token.String()], RawNftTransfer{
					Sender:   t.SenderAccountID.String(),
					Receiver: t.ReceiverAccountID.String(),
					Serial:   t.SerialNumber,
					Approved: t.IsApproved,
				})
			}
		}
	}
	if r.CallResult != nil {
		res := &RawContractResult{Result: r.CallResult.ContractCallResult}
		if r.CallResult.ContractID != nil {
			v := r.CallResult.ContractID.String()
			res.ContractID = &v
		}
		if r.CallResult.ErrorMessage != "" {
			v := r.CallResult.ErrorMessage
			res.Error = &v
		}
		gas := r.CallResult.GasUsed
		res.GasUsed = &gas
		out.ContractResult = res
	}
	if r.ScheduleRef != nil {
		v := r.ScheduleRef.String()
		out.ScheduleRef = &v
	}
	if !r.ParentConsensusTimestamp.IsZero() {
		v := r.ParentConsensusTimestamp
		out.ParentConsensusTimestamp = &v
	}
	return out
}

// translateError maps SDK status errors onto StatusError and leaves
// everything else untouched.
func translateError(err error) error {
	var pre hedera.ErrHederaPreCheckStatus
	if errors.As(err, &pre) {
		return &StatusError{Stage: StagePrecheck, Status: pre.Status.String(), TransactionID: pre.TxID.String()}
	}
	var rec hedera.ErrHederaReceiptStatus
	if errors.As(err, &rec) {
		return &StatusError{Stage: StageReceipt, Status: rec.Status.String(), TransactionID: rec.TxID.String()}
	}
	var record hedera.ErrHederaRecordStatus
	if errors.As(err, &record) {
		return &StatusError{Stage: StageRecord, Status: record.Status.String(), TransactionID: record.TxID.String()}
	}
	return err
}

func parsePrivateKey(k Key) (hedera.PrivateKey, error) {
	var (
		priv hedera.PrivateKey
		err  error
	)
	switch k.Curve {
	case CurveECDSA:
		priv, err = hedera.PrivateKeyFromStringECDSA(k.PrivateKey)
	case CurveED25519, "":
		priv, err = hedera.PrivateKeyFromStringEd25519(k.PrivateKey)
	default:
		return hedera.PrivateKey{}, xerrors.Precondition("key", fmt.Sprintf("unsupported curve %q", k.Curve))
	}
	if err != nil {
		return hedera.PrivateKey{}, xerrors.Precondition("key", "malformed private key")
	}
	return priv, nil
}

func accountID(s string) (hedera.AccountID, error) {
	id, err := hedera.AccountIDFromString(s)
	if err != nil {
		return hedera.AccountID{}, invalidID("account", s, err)
	}
	return id, nil
}

func tokenIDs(ids []string) ([]hedera.TokenID, error) {
	out := make([]hedera.TokenID, 0, len(ids))
	for _, s := range ids {
		id, err := hedera.TokenIDFromString(s)
		if err != nil {
			return nil, invalidID("token", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func invalidID(what, value string, err error) error {
	return xerrors.Precondition("submit", fmt.Sprintf("invalid %s id %q: %v", what, value, err))
}

type tokenKeySetters struct {
	admin, kyc, freeze, wipe, supply, pause, feeSchedule func(hedera.Key)
}

func applyTokenKeys(keys TokenKeys, set tokenKeySetters) error {
	pairs := []struct {
		value string
		set   func(hedera.Key)
	}{
		{keys.Admin, set.admin},
		{keys.KYC, set.kyc},
		{keys.Freeze, set.freeze},
		{keys.Wipe, set.wipe},
		{keys.Supply, set.supply},
		{keys.Pause, set.pause},
		{keys.FeeSchedule, set.feeSchedule},
	}
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		k, err := hedera.PublicKeyFromString(p.value)
		if err != nil {
			return invalidID("token key", p.value, err)
		}
		p.set(k)
	}
	return nil
}
