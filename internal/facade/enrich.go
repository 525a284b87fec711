package facade

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/command"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
	"github.com/hedera-wallet/hedera_wallet/internal/wallet"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// tokenInfo looks up token metadata, separating unknown tokens from an
// unreachable mirror node.
func tokenInfo(ctx context.Context, ss *session, op, tokenID string) (mirror.Token, error) {
	if !ledger.ValidEntityID(tokenID) {
		return mirror.Token{}, xerrors.Precondition(op, fmt.Sprintf("token id %q is invalid", tokenID))
	}
	tok, err := ss.mirror.Token(ctx, tokenID)
	if errors.Is(err, mirror.ErrNotFound) {
		return mirror.Token{}, xerrors.Precondition(op, "unknown token "+tokenID)
	}
	if err != nil {
		return mirror.Token{}, xerrors.Unavailable(op, "token metadata", err)
	}
	return tok, nil
}

// resolveAccount turns an EVM address into the ledger account id it
// aliases; entity ids pass through.
func resolveAccount(ctx context.Context, ss *session, op, idOrAddress string) (string, error) {
	if !wallet.IsEVMAddress(idOrAddress) {
		return idOrAddress, nil
	}
	id, err := ss.mirror.ResolveAccount(ctx, idOrAddress)
	if errors.Is(err, mirror.ErrNotFound) {
		return "", xerrors.Precondition(op, "no account for address "+idOrAddress)
	}
	if err != nil {
		return "", xerrors.Unavailable(op, "resolve address", err)
	}
	return id, nil
}

// resolveTransfers fills token decimals and resolves EVM destinations in
// place.
func resolveTransfers(ctx context.Context, ss *session, op string, transfers []*ledger.Transfer) error {
	decimals := make(map[string]int32)
	for i, t := range transfers {
		if t == nil {
			return xerrors.Precondition(op, fmt.Sprintf("transfer %d is missing", i))
		}
		to, err := resolveAccount(ctx, ss, op, t.To)
		if err != nil {
			return err
		}
		t.To = to
		if t.From != "" {
			if t.From, err = resolveAccount(ctx, ss, op, t.From); err != nil {
				return err
			}
		}

		switch t.Class {
		case ledger.AssetHbar:
			d := ledger.HbarDecimals
			t.Decimals = &d
		case ledger.AssetToken, ledger.AssetNFT:
			key, err := t.AssetKey()
			if err != nil {
				return xerrors.Precondition(op, err.Error())
			}
			d, ok := decimals[key]
			if !ok {
				tok, err := tokenInfo(ctx, ss, op, key)
				if err != nil {
					return err
				}
				if tok.IsNFT() != (t.Class == ledger.AssetNFT) {
					return xerrors.Precondition(op, fmt.Sprintf("token %s is %s, not %s", key, tok.Type, t.Class))
				}
				d = tok.Decimals
				decimals[key] = d
			}
			t.Decimals = &d
		default:
			return xerrors.Precondition(op, fmt.Sprintf("unknown asset type %q", t.Class))
		}
	}
	return nil
}

// resolveDecimals looks up decimals for requests denominated in a token.
func resolveDecimals(ctx context.Context, ss *session, op string, req command.Request) error {
	r, ok := req.(command.DecimalsResolver)
	if !ok {
		return nil
	}
	tokenID := r.TokenNeedingDecimals()
	if tokenID == "" {
		return nil
	}
	tok, err := tokenInfo(ctx, ss, op, tokenID)
	if err != nil {
		return err
	}
	if tok.IsNFT() {
		return xerrors.Precondition(op, "token "+tokenID+" is an nft")
	}
	r.ResolveDecimals(tok.Decimals)
	return nil
}

// balanceWarnings compares what the operator is about to spend with its
// balance. The mirror node lags the ledger, so shortfalls become warnings;
// the ledger has the final word.
func (s *Service) balanceWarnings(ctx context.Context, ss *session, spend map[string]decimal.Decimal) []string {
	if len(spend) == 0 {
		return nil
	}
	balance := ss.account.Balance
	info, err := ss.mirror.Account(ctx, ss.account.AccountID)
	if err == nil {
		balance = wallet.Balance{Hbars: info.Hbars, Tokens: info.Tokens, AsOf: s.now()}
		if err := s.wallets.RecordBalance(ctx, ss.rc.Origin, ss.rc.Network, info); err != nil {
			s.logger.Warn("record balance", zap.String("origin", ss.rc.Origin), zap.Error(err))
		}
	} else {
		s.logger.Warn("balance lookup failed",
			zap.String("account_id", ss.account.AccountID),
			zap.Error(err))
	}

	var warnings []string
	if balance.Stale(s.now(), s.balanceMaxAge) {
		if balance.AsOf.IsZero() {
			return []string{"balance could not be verified"}
		}
		warnings = append(warnings, "balance could not be refreshed, last known from "+balance.AsOf.Format("2006-01-02 15:04:05 MST"))
	}
	for _, key := range sortedKeys(spend) {
		need := spend[key]
		have := balance.Hbars
		if key != ledger.NativeAssetKey {
			have = balance.Tokens[key].Balance
		}
		if have.LessThan(need) {
			warnings = append(warnings, fmt.Sprintf("insufficient %s balance: have %s, need %s", key, have, need))
		}
	}
	return warnings
}

// operatorSpend totals what the operator itself pays per fungible asset:
// the principal of non-delegated transfers plus fees.
func operatorSpend(transfers []*ledger.Transfer, feesByAsset map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range transfers {
		if t.Delegated() || t.Class == ledger.AssetNFT {
			continue
		}
		key, err := t.AssetKey()
		if err != nil {
			continue
		}
		out[key] = out[key].Add(t.Amount)
	}
	for key, fee := range feesByAsset {
		if fee.IsPositive() {
			out[key] = out[key].Add(fee)
		}
	}
	return out
}
