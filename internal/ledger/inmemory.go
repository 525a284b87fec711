package ledger

import (
	"context"
	"crypto/sha512"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
)

// ErrUnknownAccount is returned by the in-memory factory for accounts it
// has never seen.
var ErrUnknownAccount = errors.New("unknown account")

// accountInfoCost is what the in-memory ledger charges for an account info
// query, in tinybars.
const accountInfoCost = 10_000

type memAccount struct {
	id            string
	key           Key
	publicKey     string
	evmAddress    string
	hbar          int64
	tokens        map[string]int64
	associated    map[string]bool
	deleted       bool
	stakedNode    *int64
	stakedAccount string
}

type memToken struct {
	id         string
	name       string
	symbol     string
	memo       string
	decimals   int32
	typ        TokenType
	supplyType SupplyType
	supply     int64
	maxSupply  int64
	treasury   string
	paused     bool
	deleted    bool
	frozen     map[string]bool
	owners     map[int64]string
	nextSerial int64
}

type memSchedule struct {
	id            string
	inner         *TransferTx
	payer         string
	signers       map[string]bool
	expiresAt     time.Time
	executed      bool
	scheduledTxID string
}

type memTopic struct {
	memo        string
	seq         uint64
	runningHash []byte
	deleted     bool
}

type allowanceKey struct {
	owner   string
	spender string
	asset   string
}

// InMemory is a process-local ledger used for development and tests. It
// enforces the rules the orchestration layer depends on: balanced transfer
// lists, balances, allowances, signatures and schedule execution.
type InMemory struct {
	mu            sync.Mutex
	network       string
	accounts      map[string]*memAccount
	tokens        map[string]*memToken
	allowances    map[allowanceKey]int64
	nftAllowances map[allowanceKey]bool
	schedules     map[string]*memSchedule
	topics        map[string]*memTopic
	contracts     map[string]bool
	results       map[string]RawRecord
	nextEntity    int64
	txCounter     int64
	submissions   int
	failReceipts  bool
	receiptQuery  string
	now           func() time.Time
}

// NewInMemory creates an empty ledger for network.
func NewInMemory(network string) *InMemory {
	return &InMemory{
		network:       network,
		accounts:      make(map[string]*memAccount),
		tokens:        make(map[string]*memToken),
		allowances:    make(map[allowanceKey]int64),
		nftAllowances: make(map[allowanceKey]bool),
		schedules:     make(map[string]*memSchedule),
		topics:        make(map[string]*memTopic),
		contracts:     make(map[string]bool),
		results:       make(map[string]RawRecord),
		nextEntity:    9000,
		now:           time.Now,
	}
}

// SetClock overrides the time source.
func (l *InMemory) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// FailReceipts makes every later receipt or record fetch fail without a
// status, simulating a lost connection after submission.
func (l *InMemory) FailReceipts(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failReceipts = fail
}

// FailReceiptQueries makes every later receipt or record fetch fail at
// precheck with status, as a busy node answers the query. An empty status
// turns it off.
func (l *InMemory) FailReceiptQueries(status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.receiptQuery = status
}

// Submissions counts Submit calls, accepted or not.
func (l *InMemory) Submissions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submissions
}

// CreateAccount registers an account funded with hbars. It panics when hbars
// is out of range.
func (l *InMemory) CreateAccount(id string, key Key, publicKey, evmAddress string, hbars decimal.Decimal) {
	tinybars, err := ToSmallestUnit(hbars, HbarDecimals)
	if err != nil {
		panic(err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[id] = &memAccount{
		id:         id,
		key:        key,
		publicKey:  publicKey,
		evmAddress: evmAddress,
		hbar:       tinybars,
		tokens:     make(map[string]int64),
		associated: make(map[string]bool),
	}
}

// CreateToken registers a token whose whole supply sits with treasury.
func (l *InMemory) CreateToken(id, name, symbol string, decimals int32, typ TokenType, treasury string, supply int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[id] = &memToken{
		id:         id,
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		typ:        typ,
		supplyType: SupplyInfinite,
		treasury:   treasury,
		frozen:     make(map[string]bool),
		owners:     make(map[int64]string),
		nextSerial: 1,
	}
	if acct, ok := l.accounts[treasury]; ok {
		acct.associated[id] = true
		if typ == TokenFungible {
			acct.tokens[id] = supply
			l.tokens[id].supply = supply
		}
	}
}

// SeedToken associates accountID with a token and sets its balance.
func (l *InMemory) SeedToken(accountID, tokenID string, units int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.accounts[accountID]
	acct.associated[tokenID] = true
	acct.tokens[tokenID] = units
}

// SeedNft hands serial of an NFT token to accountID.
func (l *InMemory) SeedNft(accountID, tokenID string, serial int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.accounts[accountID]
	acct.associated[tokenID] = true
	acct.tokens[tokenID]++
	tok := l.tokens[tokenID]
	tok.owners[serial] = accountID
	tok.supply++
	if serial >= tok.nextSerial {
		tok.nextSerial = serial + 1
	}
}

// HbarBalance returns an account balance in tinybars.
func (l *InMemory) HbarBalance(accountID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[accountID]; ok {
		return acct.hbar
	}
	return 0
}

// TokenBalance returns an account balance in the token's smallest unit.
func (l *InMemory) TokenBalance(accountID, tokenID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[accountID]; ok {
		return acct.tokens[tokenID]
	}
	return 0
}

// NftOwner returns the current owner of a serial.
func (l *InMemory) NftOwner(tokenID string, serial int64) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok, ok := l.tokens[tokenID]; ok {
		return tok.owners[serial]
	}
	return ""
}

// Allowance returns the remaining allowance for asset ("HBAR" or a token id).
func (l *InMemory) Allowance(owner, spender, asset string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[allowanceKey{owner, spender, asset}]
}

// IsDeleted reports whether accountID was deleted.
func (l *InMemory) IsDeleted(accountID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[accountID]
	return ok && acct.deleted
}

// ClientFor implements ClientFactory; the key must match the account's key.
func (l *InMemory) ClientFor(_ context.Context, network, accountID string, key Key) (Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if network != l.network {
		return nil, fmt.Errorf("in-memory ledger serves %s, not %s", l.network, network)
	}
	acct, ok := l.accounts[accountID]
	if !ok || acct.deleted {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	if acct.key.PrivateKey != key.PrivateKey {
		return nil, fmt.Errorf("key does not belong to account %s", accountID)
	}
	return &memClient{ledger: l, operator: accountID, publicKey: acct.publicKey}, nil
}

// Token implements mirror.Source.
func (l *InMemory) Token(_ context.Context, tokenID string) (mirror.Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tok, ok := l.tokens[tokenID]
	if !ok {
		return mirror.Token{}, mirror.ErrNotFound
	}
	return mirror.Token{
		TokenID:           tok.id,
		Name:              tok.name,
		Symbol:            tok.symbol,
		Decimals:          tok.decimals,
		TotalSupply:       fmt.Sprint(tok.supply),
		MaxSupply:         fmt.Sprint(tok.maxSupply),
		TreasuryAccountID: tok.treasury,
		Type:              string(tok.typ),
	}, nil
}

// ResolveAccount implements mirror.Source.
func (l *InMemory) ResolveAccount(_ context.Context, idOrAddress string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.lookup(idOrAddress)
	if !ok {
		return "", mirror.ErrNotFound
	}
	return acct.id, nil
}

// lookup finds a live account by id or EVM address.
func (l *InMemory) lookup(idOrAddress string) (*memAccount, bool) {
	acct, ok := l.accounts[idOrAddress]
	if !ok {
		for _, a := range l.accounts {
			if a.evmAddress != "" && a.evmAddress == idOrAddress {
				acct, ok = a, true
				break
			}
		}
	}
	if !ok || acct.deleted {
		return nil, false
	}
	return acct, true
}

// Account implements mirror.Source.
func (l *InMemory) Account(_ context.Context, idOrAddress string) (mirror.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.lookup(idOrAddress)
	if !ok {
		return mirror.AccountInfo{}, mirror.ErrNotFound
	}
	info := mirror.AccountInfo{
		AccountID:  acct.id,
		EVMAddress: acct.evmAddress,
		Hbars:      FromSmallestUnit(acct.hbar, HbarDecimals),
		Tokens:     make(map[string]mirror.TokenBalance, len(acct.associated)),
	}
	for tokenID := range acct.associated {
		decimals := int32(0)
		if tok, ok := l.tokens[tokenID]; ok {
			decimals = tok.decimals
		}
		info.Tokens[tokenID] = mirror.TokenBalance{
			Balance:  FromSmallestUnit(acct.tokens[tokenID], decimals),
			Decimals: decimals,
		}
	}
	return info, nil
}

func (l *InMemory) newEntityID() string {
	l.nextEntity++
	return fmt.Sprintf("0.0.%d", l.nextEntity)
}

func (l *InMemory) newTransactionID(operator string) string {
	l.txCounter++
	now := l.now()
	return fmt.Sprintf("%s@%d.%09d", operator, now.Unix(), int64(now.Nanosecond())+l.txCounter)
}

// signedBy reports whether accountID authorized the transaction, either as
// the operator or through one of the extra signatures.
func (l *InMemory) signedBy(accountID, operator string, signers []Key) bool {
	if accountID == operator {
		return true
	}
	acct, ok := l.accounts[accountID]
	if !ok {
		return false
	}
	for _, k := range signers {
		if k.PrivateKey != "" && k.PrivateKey == acct.key.PrivateKey {
			return true
		}
	}
	return false
}

func (l *InMemory) live(accountID string) (*memAccount, bool) {
	acct, ok := l.accounts[accountID]
	if !ok || acct.deleted {
		return nil, false
	}
	return acct, true
}

func precheck(status, txID string) error {
	return &StatusError{Stage: StagePrecheck, Status: status, TransactionID: txID}
}

// validateTransfer checks the structural rules the ledger enforces before
// accepting a transfer: every asset's lines must net to zero.
func validateTransfer(tx *TransferTx) string {
	var hbarSum int64
	for _, line := range tx.Hbar {
		hbarSum += line.Amount
	}
	if hbarSum != 0 {
		return "INVALID_ACCOUNT_AMOUNTS"
	}
	tokenSums := make(map[string]int64)
	for _, line := range tx.Tokens {
		tokenSums[line.TokenID] += line.Amount
	}
	for _, sum := range tokenSums {
		if sum != 0 {
			return "TRANSFERS_NOT_ZERO_SUM_FOR_TOKEN"
		}
	}
	if len(tx.Hbar) == 0 && len(tx.Tokens) == 0 && len(tx.Nfts) == 0 {
		return "EMPTY_TRANSACTION_BODY"
	}
	return ""
}

// applyTransfer checks balances, allowances and signatures, then moves
// value. Nothing is mutated unless every line is valid.
func (l *InMemory) applyTransfer(tx *TransferTx, operator string, signers []Key, record *RawRecord) string {
	hbarDelta := make(map[string]int64)
	type tokenAcct struct{ token, account string }
	tokenDelta := make(map[tokenAcct]int64)
	allowanceUse := make(map[allowanceKey]int64)

	for _, line := range tx.Hbar {
		if _, ok := l.live(line.AccountID); !ok {
			return "INVALID_ACCOUNT_ID"
		}
		if line.Amount < 0 {
			if line.Approved {
				allowanceUse[allowanceKey{line.AccountID, operator, NativeAssetKey}] += -line.Amount
			} else if !l.signedBy(line.AccountID, operator, signers) {
				return "INVALID_SIGNATURE"
			}
		}
		hbarDelta[line.AccountID] += line.Amount
	}
	for _, line := range tx.Tokens {
		tok, ok := l.tokens[line.TokenID]
		if !ok || tok.deleted {
			return "INVALID_TOKEN_ID"
		}
		if tok.paused {
			return "TOKEN_IS_PAUSED"
		}
		acct, ok := l.live(line.AccountID)
		if !ok {
			return "INVALID_ACCOUNT_ID"
		}
		if !acct.associated[line.TokenID] {
			return "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT"
		}
		if tok.frozen[line.AccountID] {
			return "ACCOUNT_FROZEN_FOR_TOKEN"
		}
		if line.Amount < 0 {
			if line.Approved {
				allowanceUse[allowanceKey{line.AccountID, operator, line.TokenID}] += -line.Amount
			} else if !l.signedBy(line.AccountID, operator, signers) {
				return "INVALID_SIGNATURE"
			}
		}
		tokenDelta[tokenAcct{line.TokenID, line.AccountID}] += line.Amount
	}
	for _, line := range tx.Nfts {
		tok, ok := l.tokens[line.TokenID]
		if !ok || tok.deleted || tok.typ != TokenNonFungible {
			return "INVALID_TOKEN_ID"
		}
		if tok.paused {
			return "TOKEN_IS_PAUSED"
		}
		if tok.owners[line.Serial] != line.Sender {
			return "SENDER_DOES_NOT_OWN_NFT_SERIAL_NO"
		}
		receiver, ok := l.live(line.Receiver)
		if !ok {
			return "INVALID_ACCOUNT_ID"
		}
		if !receiver.associated[line.TokenID] {
			return "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT"
		}
		if line.Approved {
			if !l.nftAllowances[allowanceKey{line.Sender, operator, line.TokenID}] {
				return "SPENDER_DOES_NOT_HAVE_ALLOWANCE"
			}
		} else if !l.signedBy(line.Sender, operator, signers) {
			return "INVALID_SIGNATURE"
		}
	}

	for key, used := range allowanceUse {
		if l.allowances[key] < used {
			return "SPENDER_DOES_NOT_HAVE_ALLOWANCE"
		}
	}
	for id, delta := range hbarDelta {
		if l.accounts[id].hbar+delta < 0 {
			return "INSUFFICIENT_ACCOUNT_BALANCE"
		}
	}
	for key, delta := range tokenDelta {
		if l.accounts[key.account].tokens[key.token]+delta < 0 {
			return "INSUFFICIENT_TOKEN_BALANCE"
		}
	}

	for key, used := range allowanceUse {
		l.allowances[key] -= used
	}
	for id, delta := range hbarDelta {
		l.accounts[id].hbar += delta
	}
	for key, delta := range tokenDelta {
		l.accounts[key.account].tokens[key.token] += delta
	}
	for _, line := range tx.Nfts {
		tok := l.tokens[line.TokenID]
		tok.owners[line.Serial] = line.Receiver
		l.accounts[line.Sender].tokens[line.TokenID]--
		l.accounts[line.Receiver].tokens[line.TokenID]++
	}

	if record != nil {
		for _, line := range tx.Hbar {
			record.Transfers = append(record.Transfers, RawTransfer{AccountID: line.AccountID, Amount: line.Amount, Approved: line.Approved})
		}
		for _, line := range tx.Tokens {
			if record.TokenTransfers == nil {
				record.TokenTransfers = make(map[string][]RawTransfer)
			}
			record.TokenTransfers[line.TokenID] = append(record.TokenTransfers[line.TokenID],
				RawTransfer{AccountID: line.AccountID, Amount: line.Amount, Approved: line.Approved})
		}
		for _, line := range tx.Nfts {
			if record.NftTransfers == nil {
				record.NftTransfers = make(map[string][]RawNftTransfer)
			}
			record.NftTransfers[line.TokenID] = append(record.NftTransfers[line.TokenID],
				RawNftTransfer{Sender: line.Sender, Receiver: line.Receiver, Serial: line.Serial, Approved: line.Approved})
		}
	}
	return ""
}

func (l *InMemory) submit(operator string, tx Transaction, signers []Key) (Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions++

	txID := l.newTransactionID(operator)
	now := l.now()
	record := RawRecord{
		TransactionID:      &txID,
		ConsensusTimestamp: &now,
	}
	hash := sha512.Sum384([]byte(txID))
	record.TransactionHash = hash[:]

	if _, ok := l.live(operator); !ok {
		return Response{}, precheck("PAYER_ACCOUNT_NOT_FOUND", txID)
	}

	status, err := l.apply(operator, tx, signers, &record)
	if err != nil {
		return Response{}, err
	}
	record.Receipt.Status = status
	l.results[txID] = record
	return Response{TransactionID: txID, NodeID: "0.0.3", Hash: record.TransactionHash}, nil
}

// apply dispatches on the transaction kind. A returned error is a precheck
// failure; otherwise the returned status lands in the receipt.
func (l *InMemory) apply(operator string, tx Transaction, signers []Key, record *RawRecord) (string, error) {
	txID := *record.TransactionID
	switch t := tx.(type) {
	case *TransferTx:
		if status := validateTransfer(t); status != "" {
			return "", precheck(status, txID)
		}
		if t.Memo != "" {
			memo := t.Memo
			record.Memo = &memo
		}
		if status := l.applyTransfer(t, operator, signers, record); status != "" {
			return status, nil
		}
		return StatusSuccess, nil

	case *ScheduleCreateTx:
		if t.Inner == nil {
			return "", precheck("INVALID_TRANSACTION", txID)
		}
		if status := validateTransfer(t.Inner); status != "" {
			return "", precheck(status, txID)
		}
		sched := &memSchedule{
			id:        l.newEntityID(),
			inner:     t.Inner,
			payer:     t.PayerAccountID,
			signers:   map[string]bool{operator: true},
			expiresAt: t.ExpiresAt,
		}
		for _, id := range debitedAccounts(t.Inner) {
			if l.signedBy(id, operator, signers) {
				sched.signers[id] = true
			}
		}
		l.schedules[sched.id] = sched
		scheduleID := sched.id
		record.Receipt.ScheduleID = &scheduleID
		l.maybeExecute(sched, operator, record)
		return StatusSuccess, nil

	case *ScheduleSignTx:
		sched, ok := l.schedules[t.ScheduleID]
		if !ok {
			return "INVALID_SCHEDULE_ID", nil
		}
		if !sched.expiresAt.IsZero() && l.now().After(sched.expiresAt) {
			delete(l.schedules, t.ScheduleID)
			return "INVALID_SCHEDULE_ID", nil
		}
		if sched.executed {
			return "SCHEDULE_ALREADY_EXECUTED", nil
		}
		sched.signers[operator] = true
		for _, id := range debitedAccounts(sched.inner) {
			if l.signedBy(id, operator, signers) {
				sched.signers[id] = true
			}
		}
		if status := l.maybeExecute(sched, operator, record); status != "" {
			return status, nil
		}
		return StatusSuccess, nil

	case *AllowanceTx:
		if !l.signedBy(t.Owner, operator, signers) {
			return "", precheck("INVALID_SIGNATURE", txID)
		}
		if _, ok := l.live(t.Spender); !ok {
			return "INVALID_ALLOWANCE_SPENDER_ID", nil
		}
		switch t.Class {
		case AssetHbar:
			l.allowances[allowanceKey{t.Owner, t.Spender, NativeAssetKey}] = t.Amount
		case AssetToken:
			if _, ok := l.tokens[t.TokenID]; !ok {
				return "INVALID_TOKEN_ID", nil
			}
			l.allowances[allowanceKey{t.Owner, t.Spender, t.TokenID}] = t.Amount
		case AssetNFT:
			if _, ok := l.tokens[t.TokenID]; !ok {
				return "INVALID_TOKEN_ID", nil
			}
			l.nftAllowances[allowanceKey{t.Owner, t.Spender, t.TokenID}] = !t.Delete
		}
		return StatusSuccess, nil

	case *AccountDeleteTx:
		acct, ok := l.live(t.AccountID)
		if !ok {
			return "ACCOUNT_DELETED", nil
		}
		if !l.signedBy(t.AccountID, operator, signers) {
			return "", precheck("INVALID_SIGNATURE", txID)
		}
		beneficiary, ok := l.live(t.TransferAccountID)
		if !ok || t.TransferAccountID == t.AccountID {
			return "TRANSFER_ACCOUNT_SAME_AS_DELETE_ACCOUNT", nil
		}
		for _, units := range acct.tokens {
			if units != 0 {
				return "TRANSACTION_REQUIRES_ZERO_TOKEN_BALANCES", nil
			}
		}
		beneficiary.hbar += acct.hbar
		acct.hbar = 0
		acct.deleted = true
		return StatusSuccess, nil

	case *AccountStakeTx:
		acct, ok := l.live(t.AccountID)
		if !ok {
			return "INVALID_ACCOUNT_ID", nil
		}
		acct.stakedNode = t.NodeID
		acct.stakedAccount = t.StakedAccountID
		return StatusSuccess, nil

	case *TokenAssociationTx:
		acct, ok := l.live(t.AccountID)
		if !ok {
			return "INVALID_ACCOUNT_ID", nil
		}
		for _, id := range t.TokenIDs {
			if _, ok := l.tokens[id]; !ok {
				return "INVALID_TOKEN_ID", nil
			}
			if t.Dissociate {
				if !acct.associated[id] {
					return "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT", nil
				}
				if acct.tokens[id] != 0 {
					return "TRANSACTION_REQUIRES_ZERO_TOKEN_BALANCES", nil
				}
			} else if acct.associated[id] {
				return "TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT", nil
			}
		}
		for _, id := range t.TokenIDs {
			if t.Dissociate {
				delete(acct.associated, id)
				delete(acct.tokens, id)
			} else {
				acct.associated[id] = true
			}
		}
		return StatusSuccess, nil

	case *TokenCreateTx:
		treasury, ok := l.live(t.TreasuryAccountID)
		if !ok {
			return "INVALID_TREASURY_ACCOUNT_FOR_TOKEN", nil
		}
		if !l.signedBy(t.TreasuryAccountID, operator, signers) {
			return "", precheck("INVALID_SIGNATURE", txID)
		}
		tok := &memToken{
			id:         l.newEntityID(),
			name:       t.Name,
			symbol:     t.Symbol,
			memo:       t.Memo,
			decimals:   int32(t.Decimals),
			typ:        t.Type,
			supplyType: t.SupplyType,
			maxSupply:  t.MaxSupply,
			treasury:   t.TreasuryAccountID,
			frozen:     make(map[string]bool),
			owners:     make(map[int64]string),
			nextSerial: 1,
		}
		if t.Type == TokenFungible {
			tok.supply = int64(t.InitialSupply)
			treasury.tokens[tok.id] = int64(t.InitialSupply)
		}
		treasury.associated[tok.id] = true
		l.tokens[tok.id] = tok
		tokenID := tok.id
		supply := uint64(tok.supply)
		record.Receipt.TokenID = &tokenID
		record.Receipt.TotalSupply = &supply
		return StatusSuccess, nil

	case *TokenUpdateTx:
		tok, ok := l.tokens[t.TokenID]
		if !ok || tok.deleted {
			return "INVALID_TOKEN_ID", nil
		}
		if t.Name != "" {
			tok.name = t.Name
		}
		if t.Symbol != "" {
			tok.symbol = t.Symbol
		}
		if t.Memo != "" {
			tok.memo = t.Memo
		}
		if t.TreasuryAccountID != "" {
			if _, ok := l.live(t.TreasuryAccountID); !ok {
				return "INVALID_TREASURY_ACCOUNT_FOR_TOKEN", nil
			}
			tok.treasury = t.TreasuryAccountID
		}
		return StatusSuccess, nil

	case *TokenActionTx:
		return l.applyTokenAction(t, record), nil

	case *TopicTx:
		switch t.Op {
		case KindTopicCreate:
			id := l.newEntityID()
			l.topics[id] = &memTopic{memo: t.Memo}
			record.Receipt.TopicID = &id
		case KindTopicUpdate, KindTopicDelete:
			topic, ok := l.topics[t.TopicID]
			if !ok || topic.deleted {
				return "INVALID_TOPIC_ID", nil
			}
			if t.Op == KindTopicDelete {
				topic.deleted = true
			} else if t.Memo != "" {
				topic.memo = t.Memo
			}
		}
		return StatusSuccess, nil

	case *TopicMessageTx:
		topic, ok := l.topics[t.TopicID]
		if !ok || topic.deleted {
			return "INVALID_TOPIC_ID", nil
		}
		topic.seq++
		h := sha512.New384()
		h.Write(topic.runningHash)
		h.Write(t.Message)
		topic.runningHash = h.Sum(nil)
		seq := topic.seq
		version := uint64(3)
		record.Receipt.TopicSequenceNumber = &seq
		record.Receipt.TopicRunningHash = append([]byte(nil), topic.runningHash...)
		record.Receipt.TopicRunningHashVersion = &version
		return StatusSuccess, nil

	case *ContractTx:
		switch t.Op {
		case KindContractCreate:
			if t.BytecodeFileID == "" && len(t.Bytecode) == 0 {
				return "", precheck("INVALID_FILE_ID", txID)
			}
			id := l.newEntityID()
			l.contracts[id] = true
			record.Receipt.ContractID = &id
		case KindContractUpdate, KindContractDelete:
			if !l.contracts[t.ContractID] {
				return "INVALID_CONTRACT_ID", nil
			}
			if t.Op == KindContractDelete {
				delete(l.contracts, t.ContractID)
			}
		}
		return StatusSuccess, nil

	case *ContractCallTx:
		if !l.contracts[t.ContractID] {
			return "INVALID_CONTRACT_ID", nil
		}
		contractID := t.ContractID
		gasUsed := t.Gas / 2
		record.ContractResult = &RawContractResult{ContractID: &contractID, GasUsed: &gasUsed}
		return StatusSuccess, nil

	default:
		return "", precheck("NOT_SUPPORTED", txID)
	}
}

func (l *InMemory) applyTokenAction(t *TokenActionTx, record *RawRecord) string {
	tok, ok := l.tokens[t.TokenID]
	if !ok || tok.deleted {
		return "INVALID_TOKEN_ID"
	}
	if tok.paused && t.Op != KindTokenUnpause && t.Op != KindTokenDelete {
		return "TOKEN_IS_PAUSED"
	}
	treasury := l.accounts[tok.treasury]

	switch t.Op {
	case KindTokenDelete:
		tok.deleted = true
	case KindTokenPause:
		tok.paused = true
	case KindTokenUnpause:
		tok.paused = false
	case KindTokenFreeze, KindTokenUnfreeze:
		acct, ok := l.live(t.AccountID)
		if !ok {
			return "INVALID_ACCOUNT_ID"
		}
		if !acct.associated[t.TokenID] {
			return "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT"
		}
		tok.frozen[t.AccountID] = t.Op == KindTokenFreeze
	case KindTokenGrantKYC, KindTokenRevokeKYC:
		acct, ok := l.live(t.AccountID)
		if !ok {
			return "INVALID_ACCOUNT_ID"
		}
		if !acct.associated[t.TokenID] {
			return "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT"
		}
	case KindTokenMint:
		if tok.typ == TokenNonFungible {
			if len(t.Metadata) == 0 {
				return "INVALID_TOKEN_MINT_METADATA"
			}
			if tok.supplyType == SupplyFinite && tok.supply+int64(len(t.Metadata)) > tok.maxSupply {
				return "TOKEN_MAX_SUPPLY_REACHED"
			}
			for range t.Metadata {
				serial := tok.nextSerial
				tok.nextSerial++
				tok.owners[serial] = tok.treasury
				tok.supply++
				treasury.tokens[t.TokenID]++
				record.Receipt.SerialNumbers = append(record.Receipt.SerialNumbers, serial)
			}
		} else {
			if t.Amount == 0 {
				return "INVALID_TOKEN_MINT_AMOUNT"
			}
			if tok.supplyType == SupplyFinite && tok.supply+int64(t.Amount) > tok.maxSupply {
				return "TOKEN_MAX_SUPPLY_REACHED"
			}
			tok.supply += int64(t.Amount)
			treasury.tokens[t.TokenID] += int64(t.Amount)
		}
	case KindTokenBurn:
		if tok.typ == TokenNonFungible {
			for _, serial := range t.Serials {
				if tok.owners[serial] != tok.treasury {
					return "TREASURY_MUST_OWN_BURNED_NFT"
				}
			}
			for _, serial := range t.Serials {
				delete(tok.owners, serial)
				tok.supply--
				treasury.tokens[t.TokenID]--
			}
		} else {
			if treasury.tokens[t.TokenID] < int64(t.Amount) {
				return "INVALID_TOKEN_BURN_AMOUNT"
			}
			tok.supply -= int64(t.Amount)
			treasury.tokens[t.TokenID] -= int64(t.Amount)
		}
	case KindTokenWipe:
		acct, ok := l.live(t.AccountID)
		if !ok {
			return "INVALID_ACCOUNT_ID"
		}
		if t.AccountID == tok.treasury {
			return "CANNOT_WIPE_TOKEN_TREASURY_ACCOUNT"
		}
		if tok.typ == TokenNonFungible {
			for _, serial := range t.Serials {
				if tok.owners[serial] != t.AccountID {
					return "ACCOUNT_DOES_NOT_OWN_WIPED_NFT"
				}
			}
			for _, serial := range t.Serials {
				delete(tok.owners, serial)
				tok.supply--
				acct.tokens[t.TokenID]--
			}
		} else {
			if acct.tokens[t.TokenID] < int64(t.Amount) {
				return "INVALID_WIPING_AMOUNT"
			}
			tok.supply -= int64(t.Amount)
			acct.tokens[t.TokenID] -= int64(t.Amount)
		}
	default:
		return "NOT_SUPPORTED"
	}

	supply := uint64(tok.supply)
	record.Receipt.TotalSupply = &supply
	return StatusSuccess
}

// maybeExecute runs a schedule's inner transfer once every debited account
// has signed. It returns a non-empty status if the inner transfer failed.
func (l *InMemory) maybeExecute(sched *memSchedule, operator string, record *RawRecord) string {
	for _, id := range debitedAccounts(sched.inner) {
		if !sched.signers[id] {
			return ""
		}
	}
	signers := make([]Key, 0, len(sched.signers))
	for id := range sched.signers {
		if acct, ok := l.accounts[id]; ok {
			signers = append(signers, acct.key)
		}
	}
	if status := l.applyTransfer(sched.inner, operator, signers, nil); status != "" {
		return status
	}
	sched.executed = true
	sched.scheduledTxID = l.newTransactionID(sched.payer) + "?scheduled"
	scheduled := sched.scheduledTxID
	record.Receipt.ScheduledTransactionID = &scheduled
	return ""
}

func debitedAccounts(tx *TransferTx) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, line := range tx.Hbar {
		if line.Amount < 0 {
			add(line.AccountID)
		}
	}
	for _, line := range tx.Tokens {
		if line.Amount < 0 {
			add(line.AccountID)
		}
	}
	for _, line := range tx.Nfts {
		add(line.Sender)
	}
	return out
}

func (l *InMemory) result(resp Response) (RawRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failReceipts {
		return RawRecord{}, errors.New("connection reset while fetching receipt")
	}
	if l.receiptQuery != "" {
		return RawRecord{}, precheck(l.receiptQuery, resp.TransactionID)
	}
	record, ok := l.results[resp.TransactionID]
	if !ok {
		return RawRecord{}, fmt.Errorf("no result for %s", resp.TransactionID)
	}
	if record.Receipt.Status != StatusSuccess {
		return record, &StatusError{Stage: StageReceipt, Status: record.Receipt.Status, TransactionID: resp.TransactionID}
	}
	return record, nil
}

type memClient struct {
	ledger    *InMemory
	operator  string
	publicKey string
}

func (c *memClient) Network() string           { return c.ledger.network }
func (c *memClient) OperatorAccountID() string { return c.operator }
func (c *memClient) OperatorPublicKey() string { return c.publicKey }
func (c *memClient) Close() error              { return nil }

func (c *memClient) Submit(ctx context.Context, tx Transaction, signers ...Key) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	return c.ledger.submit(c.operator, tx, signers)
}

func (c *memClient) Receipt(_ context.Context, resp Response) (RawReceipt, error) {
	record, err := c.ledger.result(resp)
	if err != nil {
		return RawReceipt{}, err
	}
	return record.Receipt, nil
}

func (c *memClient) Record(_ context.Context, resp Response) (RawRecord, error) {
	return c.ledger.result(resp)
}

func (c *memClient) AccountInfoCost(_ context.Context, accountID string) (decimal.Decimal, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()
	if _, ok := c.ledger.live(accountID); !ok {
		return decimal.Zero, precheck("INVALID_ACCOUNT_ID", "")
	}
	return FromSmallestUnit(accountInfoCost, HbarDecimals), nil
}

func (c *memClient) AccountInfo(_ context.Context, accountID string, maxPayment decimal.Decimal) (RawAccountInfo, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()
	acct, ok := c.ledger.live(accountID)
	if !ok {
		return RawAccountInfo{}, precheck("INVALID_ACCOUNT_ID", "")
	}
	if maxTinybars, err := ToSmallestUnit(maxPayment, HbarDecimals); err != nil || maxTinybars < accountInfoCost {
		return RawAccountInfo{}, fmt.Errorf("query cost exceeds max payment %s", maxPayment)
	}
	payer := c.ledger.accounts[c.operator]
	if payer.hbar < accountInfoCost {
		return RawAccountInfo{}, precheck("INSUFFICIENT_PAYER_BALANCE", "")
	}
	payer.hbar -= accountInfoCost

	info := RawAccountInfo{
		AccountID:    acct.id,
		Balance:      acct.hbar,
		StakedNodeID: acct.stakedNode,
		IsDeleted:    acct.deleted,
	}
	if acct.publicKey != "" {
		key := acct.publicKey
		info.Key = &key
	}
	if acct.evmAddress != "" {
		evm := acct.evmAddress
		info.ContractAccountID = &evm
	}
	if acct.stakedAccount != "" {
		staked := acct.stakedAccount
		info.StakedAccountID = &staked
	}
	return info, nil
}
