package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
)

// Service owns the per-origin account state: which ledger account the
// origin acts as, its sealed keys and the last balance snapshot.
type Service struct {
	repo   Repository
	sealer *Sealer
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds a wallet state service.
func NewService(repo Repository, sealer *Sealer, logger *zap.Logger) *Service {
	return &Service{repo: repo, sealer: sealer, logger: logger, now: time.Now}
}

// SaveInput binds an origin to a ledger account on one network.
type SaveInput struct {
	Origin     string
	Network    string
	AccountID  string
	PrivateKey string
	PublicKey  string
	Curve      ledger.Curve
}

// Save stores the account binding, sealing the private key.
func (s *Service) Save(ctx context.Context, in SaveInput) (Account, error) {
	if in.Origin == "" || in.Network == "" {
		return Account{}, errors.New("origin and network are required")
	}
	if !ledger.ValidEntityID(in.AccountID) {
		return Account{}, fmt.Errorf("account id %q is invalid", in.AccountID)
	}
	if in.PrivateKey == "" {
		return Account{}, errors.New("private key is required")
	}
	switch in.Curve {
	case ledger.CurveED25519, ledger.CurveECDSA:
	default:
		return Account{}, fmt.Errorf("unsupported curve %q", in.Curve)
	}
	evm, err := EVMAddress(in.PublicKey, in.Curve)
	if err != nil {
		return Account{}, err
	}
	sealed, err := s.sealer.Seal(in.PrivateKey, in.Origin, in.Network)
	if err != nil {
		return Account{}, err
	}

	acct := Account{
		Origin:     in.Origin,
		Network:    in.Network,
		AccountID:  in.AccountID,
		EVMAddress: evm,
		KeyStore:   KeyStore{PrivateKey: sealed, PublicKey: in.PublicKey, Curve: in.Curve},
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.repo.Save(ctx, acct); err != nil {
		return Account{}, err
	}
	s.logger.Info("account state saved",
		zap.String("origin", in.Origin),
		zap.String("network", in.Network),
		zap.String("account_id", in.AccountID))
	acct.KeyStore.PrivateKey = in.PrivateKey
	return acct, nil
}

// Get returns the account state with the private key opened.
func (s *Service) Get(ctx context.Context, origin, network string) (Account, error) {
	acct, err := s.repo.Get(ctx, origin, network)
	if err != nil {
		return Account{}, err
	}
	if acct.KeyStore.PrivateKey != "" {
		key, err := s.sealer.Open(acct.KeyStore.PrivateKey, origin, network)
		if err != nil {
			return Account{}, err
		}
		acct.KeyStore.PrivateKey = key
	}
	return acct, nil
}

// RecordBalance stores a fresh balance snapshot.
func (s *Service) RecordBalance(ctx context.Context, origin, network string, info mirror.AccountInfo) error {
	acct, err := s.repo.Get(ctx, origin, network)
	if err != nil {
		return err
	}
	acct.Balance = Balance{Hbars: info.Hbars, Tokens: info.Tokens, AsOf: s.now().UTC()}
	acct.UpdatedAt = acct.Balance.AsOf
	return s.repo.Save(ctx, acct)
}

// ClearAfterDelete forgets the ledger account and its balance once the
// account was deleted on the ledger. Keys stay so the user can inspect
// them.
func (s *Service) ClearAfterDelete(ctx context.Context, origin, network string) error {
	acct, err := s.repo.Get(ctx, origin, network)
	if err != nil {
		return err
	}
	s.logger.Info("clearing deleted account",
		zap.String("origin", origin),
		zap.String("account_id", acct.AccountID))
	acct.AccountID = ""
	acct.EVMAddress = ""
	acct.Balance = Balance{}
	acct.UpdatedAt = s.now().UTC()
	return s.repo.Save(ctx, acct)
}
