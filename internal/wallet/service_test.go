package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/logging"
	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
)

const testSecret = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// secp256k1 generator point, the public key of private key 1.
const generatorPub = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func newTestService(t *testing.T) (*Service, Repository) {
	t.Helper()
	sealer, err := NewSealer(testSecret)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	repo := NewMemoryRepository()
	return NewService(repo, sealer, logging.Discard()), repo
}

func TestServiceSaveSealsKey(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, SaveInput{
		Origin:     "https://dapp.example",
		Network:    "testnet",
		AccountID:  "0.0.1001",
		PrivateKey: "secret-key",
		PublicKey:  ecdsaDERPrefix + generatorPub,
		Curve:      ledger.CurveECDSA,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := repo.Get(ctx, "https://dapp.example", "testnet")
	if err != nil {
		t.Fatalf("repo get: %v", err)
	}
	if strings.Contains(stored.KeyStore.PrivateKey, "secret-key") {
		t.Fatalf("private key stored in clear")
	}
	if stored.EVMAddress != "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf" {
		t.Fatalf("unexpected evm address %s", stored.EVMAddress)
	}

	acct, err := svc.Get(ctx, "https://dapp.example", "testnet")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.KeyStore.PrivateKey != "secret-key" || acct.KeyStore.Key().Curve != ledger.CurveECDSA {
		t.Fatalf("unexpected keystore %+v", acct.KeyStore)
	}
}

func TestSealedKeyBoundToOrigin(t *testing.T) {
	sealer, err := NewSealer(testSecret)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	sealed, err := sealer.Seal("k", "a", "testnet")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := sealer.Open(sealed, "b", "testnet"); err == nil {
		t.Fatalf("expected open under another origin to fail")
	}
	if _, err := NewSealer("abcd"); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestServiceClearAfterDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Save(ctx, SaveInput{
		Origin: "o", Network: "testnet", AccountID: "0.0.1001",
		PrivateKey: "k", PublicKey: "p", Curve: ledger.CurveED25519,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.RecordBalance(ctx, "o", "testnet", mirror.AccountInfo{Hbars: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("record balance: %v", err)
	}
	if err := svc.ClearAfterDelete(ctx, "o", "testnet"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	acct, err := svc.Get(ctx, "o", "testnet")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.AccountID != "" || !acct.Balance.Hbars.IsZero() || !acct.Balance.AsOf.IsZero() {
		t.Fatalf("expected cleared state, got %+v", acct)
	}
	if acct.KeyStore.PrivateKey != "k" {
		t.Fatalf("expected keys to survive deletion")
	}
}

func TestServiceRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Save(ctx, SaveInput{Origin: "o", Network: "testnet", AccountID: "bob", PrivateKey: "k", Curve: ledger.CurveED25519}); err == nil {
		t.Fatalf("expected invalid account id to fail")
	}
	if _, err := svc.Get(ctx, "o", "mainnet"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if IsEVMAddress("0.0.1001") || !IsEVMAddress("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf") {
		t.Fatalf("evm address detection is wrong")
	}
}
