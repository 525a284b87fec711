package command

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/contract"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

const (
	maxNameBytes        = 100
	maxMetadataBytes    = 100
	maxMessageBytes     = 20 * 1024
	defaultContractGas  = 100_000
	maxTokenAssociation = 10
)

// Operator is the signing account of the connected client.
type Operator struct {
	AccountID string
	PublicKey string
	Key       ledger.Key
}

// Field is one labeled line of a confirmation summary.
type Field struct {
	Label string
	Value string
}

// Request is a single-purpose operation with typed parameters.
type Request interface {
	Compile(op Operator) (Command, error)
	Summary() []Field
}

// DecimalsResolver is implemented by requests whose amount is denominated in
// a token that needs its decimals looked up before compiling.
type DecimalsResolver interface {
	TokenNeedingDecimals() string
	ResolveDecimals(decimals int32)
}

func requireID(op, what, id string) error {
	if id == "" {
		return xerrors.Precondition(op, what+" is required")
	}
	if !ledger.ValidEntityID(id) {
		return xerrors.Precondition(op, fmt.Sprintf("%s %q is not a valid entity id", what, id))
	}
	return nil
}

func units(op string, amount decimal.Decimal, decimals *int32, tokenID string) (int64, error) {
	if decimals == nil {
		return 0, xerrors.Precondition(op, fmt.Sprintf("decimals for %s are unresolved", tokenID))
	}
	if !amount.IsPositive() {
		return 0, xerrors.Precondition(op, "amount must be positive")
	}
	u, err := ledger.ToSmallestUnit(amount, *decimals)
	if err != nil {
		return 0, xerrors.Precondition(op, err.Error())
	}
	if u <= 0 {
		return 0, xerrors.Precondition(op, fmt.Sprintf("amount %s is below the smallest unit of %s", amount, tokenID))
	}
	return u, nil
}

func serialList(serials []int64) string {
	parts := make([]string, len(serials))
	for i, s := range serials {
		parts[i] = strconv.FormatInt(s, 10)
	}
	return strings.Join(parts, ", ")
}

// ApproveAllowance lets a spender move the operator's assets.
type ApproveAllowance struct {
	AssetType  ledger.AssetClass `json:"assetType"`
	TokenID    string            `json:"tokenId,omitempty"`
	Spender    string            `json:"spenderAccountId"`
	Amount     decimal.Decimal   `json:"amount"`
	Serials    []int64           `json:"serialNumbers,omitempty"`
	AllSerials bool              `json:"allSerials,omitempty"`
	Decimals   *int32            `json:"-"`
}

func (r *ApproveAllowance) TokenNeedingDecimals() string {
	if r.AssetType == ledger.AssetToken && r.Decimals == nil {
		return r.TokenID
	}
	return ""
}

func (r *ApproveAllowance) ResolveDecimals(d int32) { r.Decimals = &d }

func (r *ApproveAllowance) Compile(op Operator) (Command, error) {
	const name = "approveAllowance"
	if err := requireID(name, "spender account", r.Spender); err != nil {
		return Command{}, err
	}
	if r.Spender == op.AccountID {
		return Command{}, xerrors.Precondition(name, "an account cannot approve itself")
	}
	tx := &ledger.AllowanceTx{Class: r.AssetType, Owner: op.AccountID, Spender: r.Spender}
	switch r.AssetType {
	case ledger.AssetHbar:
		hbars := ledger.HbarDecimals
		amount, err := units(name, r.Amount, &hbars, ledger.NativeAssetKey)
		if err != nil {
			return Command{}, err
		}
		tx.Amount = amount
	case ledger.AssetToken:
		if err := requireID(name, "token", r.TokenID); err != nil {
			return Command{}, err
		}
		amount, err := units(name, r.Amount, r.Decimals, r.TokenID)
		if err != nil {
			return Command{}, err
		}
		tx.TokenID, tx.Amount = r.TokenID, amount
	case ledger.AssetNFT:
		if err := requireID(name, "token", r.TokenID); err != nil {
			return Command{}, err
		}
		if !r.AllSerials && len(r.Serials) == 0 {
			return Command{}, xerrors.Precondition(name, "serial numbers or allSerials are required for nfts")
		}
		tx.TokenID, tx.Serials, tx.AllSerials = r.TokenID, r.Serials, r.AllSerials
	default:
		return Command{}, xerrors.Precondition(name, fmt.Sprintf("unknown asset type %q", r.AssetType))
	}
	return Command{Op: name, Tx: tx}, nil
}

func (r *ApproveAllowance) Summary() []Field {
	fields := []Field{{"Asset type", string(r.AssetType)}, {"Spender", r.Spender}}
	if r.TokenID != "" {
		fields = append(fields, Field{"Token", r.TokenID})
	}
	switch {
	case r.AssetType != ledger.AssetNFT:
		fields = append(fields, Field{"Amount", r.Amount.String()})
	case r.AllSerials:
		fields = append(fields, Field{"Serials", "all"})
	default:
		fields = append(fields, Field{"Serials", serialList(r.Serials)})
	}
	return fields
}

// DeleteAllowance removes a previously granted allowance.
type DeleteAllowance struct {
	AssetType  ledger.AssetClass `json:"assetType"`
	TokenID    string            `json:"tokenId,omitempty"`
	Spender    string            `json:"spenderAccountId,omitempty"`
	Serials    []int64           `json:"serialNumbers,omitempty"`
	AllSerials bool              `json:"allSerials,omitempty"`
}

func (r *DeleteAllowance) Compile(op Operator) (Command, error) {
	const name = "deleteAllowance"
	tx := &ledger.AllowanceTx{Delete: true, Class: r.AssetType, Owner: op.AccountID, Spender: r.Spender}
	switch r.AssetType {
	case ledger.AssetHbar, ledger.AssetToken:
		if err := requireID(name, "spender account", r.Spender); err != nil {
			return Command{}, err
		}
	case ledger.AssetNFT:
		if !r.AllSerials && len(r.Serials) == 0 {
			return Command{}, xerrors.Precondition(name, "serial numbers or allSerials are required for nfts")
		}
		if r.AllSerials {
			if err := requireID(name, "spender account", r.Spender); err != nil {
				return Command{}, err
			}
		}
		tx.Serials, tx.AllSerials = r.Serials, r.AllSerials
	default:
		return Command{}, xerrors.Precondition(name, fmt.Sprintf("unknown asset type %q", r.AssetType))
	}
	if r.AssetType != ledger.AssetHbar {
		if err := requireID(name, "token", r.TokenID); err != nil {
			return Command{}, err
		}
		tx.TokenID = r.TokenID
	}
	return Command{Op: name, Tx: tx}, nil
}

func (r *DeleteAllowance) Summary() []Field {
	fields := []Field{{"Asset type", string(r.AssetType)}}
	if r.Spender != "" {
		fields = append(fields, Field{"Spender", r.Spender})
	}
	if r.TokenID != "" {
		fields = append(fields, Field{"Token", r.TokenID})
	}
	if len(r.Serials) > 0 {
		fields = append(fields, Field{"Serials", serialList(r.Serials)})
	}
	return fields
}

// DeleteAccount removes the operator account, sweeping its hbars to
// TransferAccountID.
type DeleteAccount struct {
	TransferAccountID string `json:"transferAccountId"`
}

func (r *DeleteAccount) Compile(op Operator) (Command, error) {
	const name = "deleteAccount"
	if err := requireID(name, "transfer account", r.TransferAccountID); err != nil {
		return Command{}, err
	}
	if r.TransferAccountID == op.AccountID {
		return Command{}, xerrors.Precondition(name, "transfer account must differ from the deleted account")
	}
	return Command{Op: name, Tx: &ledger.AccountDeleteTx{AccountID: op.AccountID, TransferAccountID: r.TransferAccountID}}, nil
}

func (r *DeleteAccount) Summary() []Field {
	return []Field{{"Remaining balance goes to", r.TransferAccountID}}
}

// StakeHbar stakes the operator account to a node or another account.
type StakeHbar struct {
	NodeID    *int64 `json:"nodeId,omitempty"`
	AccountID string `json:"accountId,omitempty"`
}

func (r *StakeHbar) Compile(op Operator) (Command, error) {
	const name = "stakeHbar"
	if (r.NodeID == nil) == (r.AccountID == "") {
		return Command{}, xerrors.Precondition(name, "exactly one of nodeId or accountId is required")
	}
	tx := &ledger.AccountStakeTx{AccountID: op.AccountID, NodeID: r.NodeID}
	if r.AccountID != "" {
		if err := requireID(name, "staked account", r.AccountID); err != nil {
			return Command{}, err
		}
		tx.StakedAccountID = r.AccountID
	}
	if r.NodeID != nil && *r.NodeID < 0 {
		return Command{}, xerrors.Precondition(name, "node id must not be negative")
	}
	return Command{Op: name, Tx: tx}, nil
}

func (r *StakeHbar) Summary() []Field {
	if r.NodeID != nil {
		return []Field{{"Stake to node", strconv.FormatInt(*r.NodeID, 10)}}
	}
	return []Field{{"Stake to account", r.AccountID}}
}

type UnstakeHbar struct{}

func (r *UnstakeHbar) Compile(op Operator) (Command, error) {
	return Command{Op: "unstakeHbar", Tx: &ledger.AccountStakeTx{AccountID: op.AccountID}}, nil
}

func (r *UnstakeHbar) Summary() []Field {
	return []Field{{"Action", "Stop staking"}}
}

// TokenAssociation associates or dissociates the operator with tokens.
type TokenAssociation struct {
	Dissociate bool     `json:"-"`
	TokenIDs   []string `json:"tokenIds"`
}

func (r *TokenAssociation) Compile(op Operator) (Command, error) {
	name := "associateTokens"
	if r.Dissociate {
		name = "dissociateTokens"
	}
	if len(r.TokenIDs) == 0 {
		return Command{}, xerrors.Precondition(name, "at least one token id is required")
	}
	if len(r.TokenIDs) > maxTokenAssociation {
		return Command{}, xerrors.Precondition(name, fmt.Sprintf("at most %d tokens per transaction", maxTokenAssociation))
	}
	seen := make(map[string]bool, len(r.TokenIDs))
	for _, id := range r.TokenIDs {
		if err := requireID(name, "token", id); err != nil {
			return Command{}, err
		}
		if seen[id] {
			return Command{}, xerrors.Precondition(name, fmt.Sprintf("token %s listed twice", id))
		}
		seen[id] = true
	}
	return Command{Op: name, Tx: &ledger.TokenAssociationTx{
		AccountID:  op.AccountID,
		TokenIDs:   r.TokenIDs,
		Dissociate: r.Dissociate,
	}}, nil
}

func (r *TokenAssociation) Summary() []Field {
	return []Field{{"Tokens", strings.Join(r.TokenIDs, ", ")}}
}

// CreateToken creates a fungible or non-fungible token with the operator as
// treasury and admin.
type CreateToken struct {
	AssetType            ledger.AssetClass `json:"assetType"`
	Name                 string            `json:"name"`
	Symbol               string            `json:"symbol"`
	Memo                 string            `json:"tokenMemo,omitempty"`
	Decimals             uint32            `json:"decimals"`
	InitialSupply        decimal.Decimal   `json:"initialSupply"`
	SupplyType           ledger.SupplyType `json:"supplyType"`
	MaxSupply            decimal.Decimal   `json:"maxSupply"`
	FreezeDefault        bool              `json:"freezeDefault,omitempty"`
	KycPublicKey         string            `json:"kycPublicKey,omitempty"`
	FreezePublicKey      string            `json:"freezePublicKey,omitempty"`
	PausePublicKey       string            `json:"pausePublicKey,omitempty"`
	WipePublicKey        string            `json:"wipePublicKey,omitempty"`
	SupplyPublicKey      string            `json:"supplyPublicKey,omitempty"`
	FeeSchedulePublicKey string            `json:"feeSchedulePublicKey,omitempty"`
}

func (r *CreateToken) Compile(op Operator) (Command, error) {
	const name = "createToken"
	if r.Name == "" || len(r.Name) > maxNameBytes {
		return Command{}, xerrors.Precondition(name, "name must be 1-100 bytes")
	}
	if r.Symbol == "" || len(r.Symbol) > maxNameBytes {
		return Command{}, xerrors.Precondition(name, "symbol must be 1-100 bytes")
	}
	if err := checkMemo(name, r.Memo); err != nil {
		return Command{}, err
	}
	if r.InitialSupply.IsNegative() || r.MaxSupply.IsNegative() {
		return Command{}, xerrors.Precondition(name, "supplies must not be negative")
	}

	tx := &ledger.TokenCreateTx{
		Name:              r.Name,
		Symbol:            r.Symbol,
		Memo:              r.Memo,
		TreasuryAccountID: op.AccountID,
		FreezeDefault:     r.FreezeDefault,
		SupplyType:        ledger.SupplyInfinite,
		Keys: ledger.TokenKeys{
			Admin:       op.PublicKey,
			KYC:         r.KycPublicKey,
			Freeze:      r.FreezePublicKey,
			Wipe:        r.WipePublicKey,
			Supply:      r.SupplyPublicKey,
			Pause:       r.PausePublicKey,
			FeeSchedule: r.FeeSchedulePublicKey,
		},
	}
	decimals := int32(r.Decimals)
	switch r.AssetType {
	case ledger.AssetToken:
		tx.Type = ledger.TokenFungible
		tx.Decimals = r.Decimals
		initial, err := ledger.ToSmallestUnit(r.InitialSupply, decimals)
		if err != nil {
			return Command{}, xerrors.Precondition(name, "initial supply: "+err.Error())
		}
		tx.InitialSupply = uint64(initial)
	case ledger.AssetNFT:
		if r.Decimals != 0 || !r.InitialSupply.IsZero() {
			return Command{}, xerrors.Precondition(name, "nfts have no decimals and no initial supply")
		}
		tx.Type = ledger.TokenNonFungible
		if tx.Keys.Supply == "" {
			tx.Keys.Supply = op.PublicKey
		}
	default:
		return Command{}, xerrors.Precondition(name, fmt.Sprintf("unknown asset type %q", r.AssetType))
	}

	if r.SupplyType == ledger.SupplyFinite {
		maxUnits, err := ledger.ToSmallestUnit(r.MaxSupply, decimals)
		if err != nil {
			return Command{}, xerrors.Precondition(name, "max supply: "+err.Error())
		}
		if maxUnits <= 0 {
			return Command{}, xerrors.Precondition(name, "a finite supply needs a positive max supply")
		}
		if int64(tx.InitialSupply) > maxUnits {
			return Command{}, xerrors.Precondition(name, "initial supply exceeds max supply")
		}
		tx.SupplyType, tx.MaxSupply = ledger.SupplyFinite, maxUnits
	}
	return Command{Op: name, Tx: tx, Signers: []ledger.Key{op.Key}}, nil
}

func (r *CreateToken) Summary() []Field {
	fields := []Field{
		{"Asset type", string(r.AssetType)},
		{"Name", r.Name},
		{"Symbol", r.Symbol},
	}
	if r.AssetType == ledger.AssetToken {
		fields = append(fields,
			Field{"Decimals", strconv.FormatUint(uint64(r.Decimals), 10)},
			Field{"Initial supply", r.InitialSupply.String()})
	}
	supply := string(ledger.SupplyInfinite)
	if r.SupplyType == ledger.SupplyFinite {
		supply = string(ledger.SupplyFinite) + " (max " + r.MaxSupply.String() + ")"
	}
	return append(fields, Field{"Supply type", supply})
}

// UpdateToken changes token properties; the admin key signs.
type UpdateToken struct {
	TokenID              string `json:"tokenId"`
	Name                 string `json:"name,omitempty"`
	Symbol               string `json:"symbol,omitempty"`
	Memo                 string `json:"tokenMemo,omitempty"`
	TreasuryAccountID    string `json:"treasuryAccountId,omitempty"`
	AdminPublicKey       string `json:"adminPublicKey,omitempty"`
	KycPublicKey         string `json:"kycPublicKey,omitempty"`
	FreezePublicKey      string `json:"freezePublicKey,omitempty"`
	PausePublicKey       string `json:"pausePublicKey,omitempty"`
	WipePublicKey        string `json:"wipePublicKey,omitempty"`
	SupplyPublicKey      string `json:"supplyPublicKey,omitempty"`
	FeeSchedulePublicKey string `json:"feeSchedulePublicKey,omitempty"`
}

func (r *UpdateToken) Compile(op Operator) (Command, error) {
	const name = "updateToken"
	if err := requireID(name, "token", r.TokenID); err != nil {
		return Command{}, err
	}
	if r.TreasuryAccountID != "" {
		if err := requireID(name, "treasury account", r.TreasuryAccountID); err != nil {
			return Command{}, err
		}
	}
	if len(r.Name) > maxNameBytes || len(r.Symbol) > maxNameBytes {
		return Command{}, xerrors.Precondition(name, "name and symbol must be at most 100 bytes")
	}
	if err := checkMemo(name, r.Memo); err != nil {
		return Command{}, err
	}
	return Command{Op: name, Signers: []ledger.Key{op.Key}, Tx: &ledger.TokenUpdateTx{
		TokenID:           r.TokenID,
		Name:              r.Name,
		Symbol:            r.Symbol,
		Memo:              r.Memo,
		TreasuryAccountID: r.TreasuryAccountID,
		Keys: ledger.TokenKeys{
			Admin:       r.AdminPublicKey,
			KYC:         r.KycPublicKey,
			Freeze:      r.FreezePublicKey,
			Wipe:        r.WipePublicKey,
			Supply:      r.SupplyPublicKey,
			Pause:       r.PausePublicKey,
			FeeSchedule: r.FeeSchedulePublicKey,
		},
	}}, nil
}

func (r *UpdateToken) Summary() []Field {
	fields := []Field{{"Token", r.TokenID}}
	for _, f := range []Field{{"Name", r.Name}, {"Symbol", r.Symbol}, {"Memo", r.Memo}, {"Treasury", r.TreasuryAccountID}} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// TokenAction covers delete, pause and unpause, which only name the token.
type TokenAction struct {
	Action  ledger.Kind `json:"-"`
	TokenID string      `json:"tokenId"`
}

var tokenActionNames = map[ledger.Kind]string{
	ledger.KindTokenDelete:  "deleteToken",
	ledger.KindTokenPause:   "pauseToken",
	ledger.KindTokenUnpause: "unpauseToken",
}

func (r *TokenAction) Compile(Operator) (Command, error) {
	name, ok := tokenActionNames[r.Action]
	if !ok {
		return Command{}, xerrors.Precondition("tokenAction", fmt.Sprintf("unsupported action %q", r.Action))
	}
	if err := requireID(name, "token", r.TokenID); err != nil {
		return Command{}, err
	}
	return Command{Op: name, Tx: &ledger.TokenActionTx{Op: r.Action, TokenID: r.TokenID}}, nil
}

func (r *TokenAction) Summary() []Field {
	return []Field{{"Token", r.TokenID}}
}

// TokenAccountAction covers freeze, unfreeze and KYC grant or revoke of one
// account for one token.
type TokenAccountAction struct {
	Action    ledger.Kind `json:"-"`
	TokenID   string      `json:"tokenId"`
	AccountID string      `json:"accountId"`
}

var tokenAccountActionNames = map[ledger.Kind]string{
	ledger.KindTokenFreeze:    "freezeAccount",
	ledger.KindTokenUnfreeze:  "unfreezeAccount",
	ledger.KindTokenGrantKYC:  "enableKYC",
	ledger.KindTokenRevokeKYC: "disableKYC",
}

func (r *TokenAccountAction) Compile(Operator) (Command, error) {
	name, ok := tokenAccountActionNames[r.Action]
	if !ok {
		return Command{}, xerrors.Precondition("tokenAccountAction", fmt.Sprintf("unsupported action %q", r.Action))
	}
	if err := requireID(name, "token", r.TokenID); err != nil {
		return Command{}, err
	}
	if err := requireID(name, "account", r.AccountID); err != nil {
		return Command{}, err
	}
	return Command{Op: name, Tx: &ledger.TokenActionTx{Op: r.Action, TokenID: r.TokenID, AccountID: r.AccountID}}, nil
}

func (r *TokenAccountAction) Summary() []Field {
	return []Field{{"Token", r.TokenID}, {"Account", r.AccountID}}
}

// SupplyChange covers mint, burn and wipe. Fungible tokens use Amount,
// NFTs use Metadata (mint) or Serials (burn, wipe).
type SupplyChange struct {
	Action    ledger.Kind       `json:"-"`
	AssetType ledger.AssetClass `json:"assetType"`
	TokenID   string            `json:"tokenId"`
	AccountID string            `json:"accountId,omitempty"`
	Amount    decimal.Decimal   `json:"amount"`
	Metadata  []string          `json:"metadata,omitempty"`
	Serials   []int64           `json:"serialNumbers,omitempty"`
	Decimals  *int32            `json:"-"`
}

var supplyChangeNames = map[ledger.Kind]string{
	ledger.KindTokenMint: "mintToken",
	ledger.KindTokenBurn: "burnToken",
	ledger.KindTokenWipe: "wipeToken",
}

func (r *SupplyChange) TokenNeedingDecimals() string {
	if r.AssetType == ledger.AssetToken && r.Decimals == nil {
		return r.TokenID
	}
	return ""
}

func (r *SupplyChange) ResolveDecimals(d int32) { r.Decimals = &d }

func (r *SupplyChange) Compile(Operator) (Command, error) {
	name, ok := supplyChangeNames[r.Action]
	if !ok {
		return Command{}, xerrors.Precondition("supplyChange", fmt.Sprintf("unsupported action %q", r.Action))
	}
	if err := requireID(name, "token", r.TokenID); err != nil {
		return Command{}, err
	}
	tx := &ledger.TokenActionTx{Op: r.Action, TokenID: r.TokenID}
	if r.Action == ledger.KindTokenWipe {
		if err := requireID(name, "account", r.AccountID); err != nil {
			return Command{}, err
		}
		tx.AccountID = r.AccountID
	}

	switch r.AssetType {
	case ledger.AssetToken:
		amount, err := units(name, r.Amount, r.Decimals, r.TokenID)
		if err != nil {
			return Command{}, err
		}
		tx.Amount = uint64(amount)
	case ledger.AssetNFT:
		if r.Action == ledger.KindTokenMint {
			if len(r.Metadata) == 0 {
				return Command{}, xerrors.Precondition(name, "metadata is required to mint nfts")
			}
			for i, m := range r.Metadata {
				if len(m) > maxMetadataBytes {
					return Command{}, xerrors.Precondition(name, fmt.Sprintf("metadata %d exceeds %d bytes", i, maxMetadataBytes))
				}
				tx.Metadata = append(tx.Metadata, []byte(m))
			}
			break
		}
		if len(r.Serials) == 0 {
			return Command{}, xerrors.Precondition(name, "serial numbers are required for nfts")
		}
		for _, s := range r.Serials {
			if s <= 0 {
				return Command{}, xerrors.Precondition(name, fmt.Sprintf("invalid serial %d", s))
			}
		}
		tx.Serials = r.Serials
	default:
		return Command{}, xerrors.Precondition(name, fmt.Sprintf("unknown asset type %q", r.AssetType))
	}
	return Command{Op: name, Tx: tx}, nil
}

func (r *SupplyChange) Summary() []Field {
	fields := []Field{{"Asset type", string(r.AssetType)}, {"Token", r.TokenID}}
	if r.AccountID != "" {
		fields = append(fields, Field{"Account", r.AccountID})
	}
	switch {
	case r.AssetType == ledger.AssetToken:
		fields = append(fields, Field{"Amount", r.Amount.String()})
	case len(r.Metadata) > 0:
		fields = append(fields, Field{"NFTs to mint", strconv.Itoa(len(r.Metadata))})
	default:
		fields = append(fields, Field{"Serials", serialList(r.Serials)})
	}
	return fields
}

// Topic covers topic create, update and delete.
type Topic struct {
	Action             ledger.Kind `json:"-"`
	TopicID            string      `json:"topicId,omitempty"`
	Memo               string      `json:"memo,omitempty"`
	AdminKey           string      `json:"adminKey,omitempty"`
	SubmitKey          string      `json:"submitKey,omitempty"`
	AutoRenewAccountID string      `json:"autoRenewAccountId,omitempty"`
}

var topicNames = map[ledger.Kind]string{
	ledger.KindTopicCreate: "createTopic",
	ledger.KindTopicUpdate: "updateTopic",
	ledger.KindTopicDelete: "deleteTopic",
}

func (r *Topic) Compile(op Operator) (Command, error) {
	name, ok := topicNames[r.Action]
	if !ok {
		return Command{}, xerrors.Precondition("topic", fmt.Sprintf("unsupported action %q", r.Action))
	}
	if r.Action != ledger.KindTopicCreate {
		if err := requireID(name, "topic", r.TopicID); err != nil {
			return Command{}, err
		}
	}
	if r.AutoRenewAccountID != "" {
		if err := requireID(name, "auto renew account", r.AutoRenewAccountID); err != nil {
			return Command{}, err
		}
	}
	if err := checkMemo(name, r.Memo); err != nil {
		return Command{}, err
	}
	cmd := Command{Op: name, Tx: &ledger.TopicTx{
		Op:                 r.Action,
		TopicID:            r.TopicID,
		Memo:               r.Memo,
		AdminKey:           r.AdminKey,
		SubmitKey:          r.SubmitKey,
		AutoRenewAccountID: r.AutoRenewAccountID,
	}}
	if r.Action == ledger.KindTopicUpdate {
		cmd.Signers = []ledger.Key{op.Key}
	}
	return cmd, nil
}

func (r *Topic) Summary() []Field {
	var fields []Field
	if r.TopicID != "" {
		fields = append(fields, Field{"Topic", r.TopicID})
	}
	if r.Memo != "" {
		fields = append(fields, Field{"Memo", r.Memo})
	}
	if r.SubmitKey != "" {
		fields = append(fields, Field{"Submit key", r.SubmitKey})
	}
	return fields
}

// SubmitMessage publishes a message to a consensus topic.
type SubmitMessage struct {
	TopicID string `json:"topicId"`
	Message string `json:"message"`
}

func (r *SubmitMessage) Compile(Operator) (Command, error) {
	const name = "submitMessage"
	if err := requireID(name, "topic", r.TopicID); err != nil {
		return Command{}, err
	}
	if r.Message == "" {
		return Command{}, xerrors.Precondition(name, "message must not be empty")
	}
	if len(r.Message) > maxMessageBytes {
		return Command{}, xerrors.Precondition(name, fmt.Sprintf("message exceeds %d bytes", maxMessageBytes))
	}
	return Command{Op: name, Tx: &ledger.TopicMessageTx{TopicID: r.TopicID, Message: []byte(r.Message)}}, nil
}

func (r *SubmitMessage) Summary() []Field {
	return []Field{{"Topic", r.TopicID}, {"Message", r.Message}}
}

// Contract covers contract create, update and delete.
type Contract struct {
	Action            ledger.Kind      `json:"-"`
	ContractID        string           `json:"contractId,omitempty"`
	BytecodeFileID    string           `json:"bytecodeFileId,omitempty"`
	Bytecode          string           `json:"bytecode,omitempty"`
	Gas               uint64           `json:"gas,omitempty"`
	InitialBalance    decimal.Decimal  `json:"initialBalance"`
	ConstructorParams []contract.Param `json:"constructorParams,omitempty"`
	AdminKey          string           `json:"adminKey,omitempty"`
	Memo              string           `json:"contractMemo,omitempty"`
	TransferAccountID string           `json:"transferAccountId,omitempty"`
}

var contractNames = map[ledger.Kind]string{
	ledger.KindContractCreate: "createSmartContract",
	ledger.KindContractUpdate: "updateSmartContract",
	ledger.KindContractDelete: "deleteSmartContract",
}

func (r *Contract) Compile(op Operator) (Command, error) {
	name, ok := contractNames[r.Action]
	if !ok {
		return Command{}, xerrors.Precondition("contract", fmt.Sprintf("unsupported action %q", r.Action))
	}
	if err := checkMemo(name, r.Memo); err != nil {
		return Command{}, err
	}
	tx := &ledger.ContractTx{Op: r.Action, AdminKey: r.AdminKey, Memo: r.Memo}

	if r.Action == ledger.KindContractCreate {
		if (r.BytecodeFileID == "") == (r.Bytecode == "") {
			return Command{}, xerrors.Precondition(name, "exactly one of bytecodeFileId or bytecode is required")
		}
		if r.BytecodeFileID != "" {
			if err := requireID(name, "bytecode file", r.BytecodeFileID); err != nil {
				return Command{}, err
			}
			tx.BytecodeFileID = r.BytecodeFileID
		} else {
			code, err := hex.DecodeString(strings.TrimPrefix(r.Bytecode, "0x"))
			if err != nil {
				return Command{}, xerrors.Precondition(name, "bytecode is not valid hex")
			}
			tx.Bytecode = code
		}
		tx.Gas = r.Gas
		if tx.Gas == 0 {
			tx.Gas = defaultContractGas
		}
		if r.InitialBalance.IsNegative() {
			return Command{}, xerrors.Precondition(name, "initial balance must not be negative")
		}
		balance, err := ledger.ToSmallestUnit(r.InitialBalance, ledger.HbarDecimals)
		if err != nil {
			return Command{}, xerrors.Precondition(name, "initial balance: "+err.Error())
		}
		tx.InitialBalance = balance
		if len(r.ConstructorParams) > 0 {
			params, err := contract.EncodeArgs(r.ConstructorParams)
			if err != nil {
				return Command{}, xerrors.Precondition(name, "constructor params: "+err.Error())
			}
			tx.ConstructorParams = params
		}
		return Command{Op: name, Tx: tx}, nil
	}

	if err := requireID(name, "contract", r.ContractID); err != nil {
		return Command{}, err
	}
	tx.ContractID = r.ContractID
	if r.Action == ledger.KindContractDelete {
		tx.TransferAccountID = r.TransferAccountID
		if tx.TransferAccountID == "" {
			tx.TransferAccountID = op.AccountID
		}
		if err := requireID(name, "transfer account", tx.TransferAccountID); err != nil {
			return Command{}, err
		}
	}
	return Command{Op: name, Tx: tx, Signers: []ledger.Key{op.Key}}, nil
}

func (r *Contract) Summary() []Field {
	var fields []Field
	if r.ContractID != "" {
		fields = append(fields, Field{"Contract", r.ContractID})
	}
	if r.Action == ledger.KindContractCreate {
		fields = append(fields, Field{"Gas", strconv.FormatUint(r.Gas, 10)})
		if r.InitialBalance.IsPositive() {
			fields = append(fields, Field{"Initial balance", r.InitialBalance.String() + " HBAR"})
		}
	}
	if r.Memo != "" {
		fields = append(fields, Field{"Memo", r.Memo})
	}
	return fields
}

// CallContract executes a contract function; the record is fetched so the
// caller gets the function result.
type CallContract struct {
	ContractID   string           `json:"contractId"`
	Gas          uint64           `json:"gas"`
	FunctionName string           `json:"functionName"`
	Params       []contract.Param `json:"params,omitempty"`
	Payable      decimal.Decimal  `json:"payableAmount"`
}

func (r *CallContract) Compile(Operator) (Command, error) {
	const name = "callSmartContract"
	if err := requireID(name, "contract", r.ContractID); err != nil {
		return Command{}, err
	}
	if r.Payable.IsNegative() {
		return Command{}, xerrors.Precondition(name, "payable amount must not be negative")
	}
	params, err := contract.EncodeCall(r.FunctionName, r.Params)
	if err != nil {
		return Command{}, xerrors.Precondition(name, err.Error())
	}
	payable, err := ledger.ToSmallestUnit(r.Payable, ledger.HbarDecimals)
	if err != nil {
		return Command{}, xerrors.Precondition(name, "payable amount: "+err.Error())
	}
	gas := r.Gas
	if gas == 0 {
		gas = defaultContractGas
	}
	return Command{Op: name, WithRecord: true, Tx: &ledger.ContractCallTx{
		ContractID: r.ContractID,
		Gas:        gas,
		Payable:    payable,
		Params:     params,
	}}, nil
}

func (r *CallContract) Summary() []Field {
	fields := []Field{
		{"Contract", r.ContractID},
		{"Function", r.FunctionName},
		{"Gas", strconv.FormatUint(r.Gas, 10)},
	}
	if r.Payable.IsPositive() {
		fields = append(fields, Field{"Payable", r.Payable.String() + " HBAR"})
	}
	return fields
}
