package command

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/fees"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// maxMemoBytes is the ledger's transaction memo limit.
const maxMemoBytes = 100

// TransferInput is a normalized transfer list ready for compilation.
type TransferInput struct {
	Transfers    []*ledger.Transfer
	Memo         string
	MaxFee       *decimal.Decimal
	Fees         fees.ByAsset
	FeeCollector string
	Operator     string
}

// CompileTransfer builds one atomic transfer: a credit per transfer, the
// offsetting debit from the operator (or an approved debit from the
// delegating owner) and a collector credit per asset with a positive fee.
func CompileTransfer(in TransferInput) (*ledger.TransferTx, error) {
	const op = "compile transfer"
	if in.Operator == "" {
		return nil, xerrors.Precondition(op, "operator account is required")
	}
	if len(in.Transfers) == 0 {
		return nil, xerrors.Precondition(op, "at least one transfer is required")
	}
	if err := checkMemo(op, in.Memo); err != nil {
		return nil, err
	}
	if in.MaxFee != nil {
		if in.MaxFee.IsNegative() {
			return nil, xerrors.Precondition(op, "max transaction fee must not be negative")
		}
		if _, err := ledger.ToSmallestUnit(*in.MaxFee, ledger.HbarDecimals); err != nil {
			return nil, xerrors.Precondition(op, "max transaction fee: "+err.Error())
		}
	}

	b := newBook()
	for i, t := range in.Transfers {
		if t == nil {
			return nil, xerrors.Precondition(op, fmt.Sprintf("transfer %d is missing", i))
		}
		debitor, approved := in.Operator, false
		if t.Delegated() {
			debitor, approved = t.From, true
		}
		if err := b.addTransfer(t, debitor, approved); err != nil {
			return nil, xerrors.Precondition(op, fmt.Sprintf("transfer %d: %v", i, err))
		}
	}

	keys := make([]string, 0, len(in.Fees))
	for key := range in.Fees {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := b.addFee(key, in.Fees[key], in.FeeCollector, in.Operator); err != nil {
			return nil, xerrors.Precondition(op, err.Error())
		}
	}

	tx := b.build(in.Memo, in.MaxFee)
	if len(tx.Hbar) == 0 && len(tx.Tokens) == 0 && len(tx.Nfts) == 0 {
		return nil, xerrors.Precondition(op, "every transfer amount is zero")
	}
	if err := VerifyBalanced(tx); err != nil {
		return nil, xerrors.Precondition(op, err.Error())
	}
	return tx, nil
}

// SwapInput describes both legs of an atomic swap. RequesterLeg moves value
// from Requester to its To account; ResponderLeg from Responder.
type SwapInput struct {
	Requester    string
	Responder    string
	RequesterLeg *ledger.Transfer
	ResponderLeg *ledger.Transfer
	// LegFees align with [RequesterLeg, ResponderLeg].
	LegFees      []fees.LegFee
	FeeCollector string
	Memo         string
}

// CompileSwap bundles both legs and their fees into one transfer so the swap
// settles atomically. Each leg's fee is paid by that leg's sender.
func CompileSwap(in SwapInput) (*ledger.TransferTx, error) {
	const op = "compile swap"
	if in.Requester == "" || in.Responder == "" {
		return nil, xerrors.Precondition(op, "both swap parties are required")
	}
	if in.Requester == in.Responder {
		return nil, xerrors.Precondition(op, "a swap needs two distinct parties")
	}
	if in.RequesterLeg == nil || in.ResponderLeg == nil {
		return nil, xerrors.Precondition(op, "both swap legs are required")
	}
	if err := checkMemo(op, in.Memo); err != nil {
		return nil, err
	}

	b := newBook()
	legs := []struct {
		sender string
		leg    *ledger.Transfer
	}{
		{in.Requester, in.RequesterLeg},
		{in.Responder, in.ResponderLeg},
	}
	for i, l := range legs {
		if err := b.addTransfer(l.leg, l.sender, false); err != nil {
			return nil, xerrors.Precondition(op, fmt.Sprintf("leg %d: %v", i, err))
		}
	}
	for i, lf := range in.LegFees {
		if i >= len(legs) {
			break
		}
		if err := b.addFee(lf.AssetKey, lf.Fee, in.FeeCollector, legs[i].sender); err != nil {
			return nil, xerrors.Precondition(op, err.Error())
		}
	}

	tx := b.build(in.Memo, nil)
	if err := VerifyBalanced(tx); err != nil {
		return nil, xerrors.Precondition(op, err.Error())
	}
	return tx, nil
}

// VerifyBalanced checks that hbar and every token net to zero.
func VerifyBalanced(tx *ledger.TransferTx) error {
	var hbar int64
	for _, l := range tx.Hbar {
		hbar += l.Amount
	}
	if hbar != 0 {
		return fmt.Errorf("hbar lines net to %d tinybars", hbar)
	}
	tokens := make(map[string]int64)
	for _, l := range tx.Tokens {
		tokens[l.TokenID] += l.Amount
	}
	for id, sum := range tokens {
		if sum != 0 {
			return fmt.Errorf("token %s lines net to %d", id, sum)
		}
	}
	return nil
}

func checkMemo(op, memo string) error {
	if len(memo) > maxMemoBytes {
		return xerrors.Precondition(op, fmt.Sprintf("memo exceeds %d bytes", maxMemoBytes))
	}
	return nil
}

type hbarKey struct {
	account  string
	approved bool
}

type tokenKey struct {
	token    string
	account  string
	approved bool
}

// book accumulates lines in first-seen order, merging repeated
// (asset, account, approved) entries.
type book struct {
	hbar       map[hbarKey]int64
	hbarOrder  []hbarKey
	tokens     map[tokenKey]int64
	tokenOrder []tokenKey
	decimals   map[string]int32
	nfts       []ledger.NftLine
	nftSeen    map[string]bool
}

func newBook() *book {
	return &book{
		hbar:     make(map[hbarKey]int64),
		tokens:   make(map[tokenKey]int64),
		decimals: map[string]int32{ledger.NativeAssetKey: ledger.HbarDecimals},
		nftSeen:  make(map[string]bool),
	}
}

func (b *book) hbarLine(account string, amount int64, approved bool) error {
	k := hbarKey{account, approved}
	sum, err := addUnits(b.hbar[k], amount)
	if err != nil {
		return err
	}
	if _, ok := b.hbar[k]; !ok {
		b.hbarOrder = append(b.hbarOrder, k)
	}
	b.hbar[k] = sum
	return nil
}

func (b *book) tokenLine(token, account string, amount int64, approved bool) error {
	k := tokenKey{token, account, approved}
	sum, err := addUnits(b.tokens[k], amount)
	if err != nil {
		return err
	}
	if _, ok := b.tokens[k]; !ok {
		b.tokenOrder = append(b.tokenOrder, k)
	}
	b.tokens[k] = sum
	return nil
}

// addUnits adds n to sum, failing instead of wrapping around.
func addUnits(sum, n int64) (int64, error) {
	r := sum + n
	if (n > 0 && r < sum) || (n < 0 && r > sum) {
		return 0, ledger.ErrAmountOverflow
	}
	return r, nil
}

// credit adds a credit to and the matching debit from one pair of lines.
func (b *book) credit(token, to, from string, units int64, approved bool) error {
	if token == ledger.NativeAssetKey {
		if err := b.hbarLine(to, units, false); err != nil {
			return err
		}
		return b.hbarLine(from, -units, approved)
	}
	if err := b.tokenLine(token, to, units, false); err != nil {
		return err
	}
	return b.tokenLine(token, from, -units, approved)
}

func (b *book) addTransfer(t *ledger.Transfer, debitor string, approved bool) error {
	if t.To == "" {
		return fmt.Errorf("destination account is required")
	}
	if !ledger.ValidEntityID(t.To) {
		return fmt.Errorf("destination %q is not an account id", t.To)
	}
	if !ledger.ValidEntityID(debitor) {
		return fmt.Errorf("debit account %q is not an account id", debitor)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("amount %s is negative", t.Amount)
	}

	switch t.Class {
	case ledger.AssetHbar:
		units, err := ledger.ToSmallestUnit(t.Amount, ledger.HbarDecimals)
		if err != nil || units == 0 {
			return err
		}
		return b.credit(ledger.NativeAssetKey, t.To, debitor, units, approved)
	case ledger.AssetToken:
		if !ledger.ValidEntityID(t.AssetID) {
			return fmt.Errorf("token id %q is invalid", t.AssetID)
		}
		dec, err := b.resolveDecimals(t.AssetID, t.Decimals)
		if err != nil {
			return err
		}
		units, err := ledger.ToSmallestUnit(t.Amount, dec)
		if err != nil || units == 0 {
			return err
		}
		return b.credit(t.AssetID, t.To, debitor, units, approved)
	case ledger.AssetNFT:
		tokenID, serial, err := ledger.ParseNftID(t.AssetID)
		if err != nil {
			return err
		}
		if !ledger.ValidEntityID(tokenID) {
			return fmt.Errorf("token id %q is invalid", tokenID)
		}
		if t.Decimals == nil {
			return fmt.Errorf("decimals for %s are unresolved", tokenID)
		}
		if b.nftSeen[t.AssetID] {
			return fmt.Errorf("nft %s is transferred twice", t.AssetID)
		}
		b.nftSeen[t.AssetID] = true
		b.nfts = append(b.nfts, ledger.NftLine{
			TokenID:  tokenID,
			Serial:   serial,
			Sender:   debitor,
			Receiver: t.To,
			Approved: approved,
		})
	default:
		return fmt.Errorf("unknown asset class %q", t.Class)
	}
	return nil
}

func (b *book) resolveDecimals(tokenID string, dec *int32) (int32, error) {
	if dec == nil {
		return 0, fmt.Errorf("decimals for %s are unresolved", tokenID)
	}
	if *dec < 0 {
		return 0, fmt.Errorf("decimals for %s are invalid: %d", tokenID, *dec)
	}
	if known, ok := b.decimals[tokenID]; ok && known != *dec {
		return 0, fmt.Errorf("conflicting decimals for %s: %d and %d", tokenID, known, *dec)
	}
	b.decimals[tokenID] = *dec
	return *dec, nil
}

func (b *book) addFee(key string, fee decimal.Decimal, collector, payer string) error {
	if !fee.IsPositive() {
		return nil
	}
	if collector == "" {
		return fmt.Errorf("fee for %s has no collector account", key)
	}
	dec, ok := b.decimals[key]
	if !ok {
		return fmt.Errorf("fee for %s cannot be charged: not a fungible asset in this transfer", key)
	}
	units, err := ledger.ToSmallestUnit(fee, dec)
	if err != nil {
		return fmt.Errorf("fee for %s: %w", key, err)
	}
	if units == 0 {
		return nil
	}
	return b.credit(key, collector, payer, units, false)
}

func (b *book) build(memo string, maxFee *decimal.Decimal) *ledger.TransferTx {
	tx := &ledger.TransferTx{Memo: memo, MaxFee: maxFee, Nfts: b.nfts}
	for _, k := range b.hbarOrder {
		if amount := b.hbar[k]; amount != 0 {
			tx.Hbar = append(tx.Hbar, ledger.HbarLine{AccountID: k.account, Amount: amount, Approved: k.approved})
		}
	}
	for _, k := range b.tokenOrder {
		if amount := b.tokens[k]; amount != 0 {
			tx.Tokens = append(tx.Tokens, ledger.TokenLine{
				TokenID:   k.token,
				AccountID: k.account,
				Amount:    amount,
				Decimals:  uint32(b.decimals[k.token]),
				Approved:  k.approved,
			})
		}
	}
	return tx
}
