package xerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Rejected("mintToken", "INVALID_SIGNATURE", nil))

	if !errors.Is(err, ErrLedgerRejection) {
		t.Fatalf("expected ledger rejection, got %v", err)
	}
	if errors.Is(err, ErrUserRejected) {
		t.Fatalf("ledger rejection must not match user rejection")
	}
	if KindOf(err) != KindLedgerRejection {
		t.Fatalf("unexpected kind %q", KindOf(err))
	}
}

func TestErrorMessage(t *testing.T) {
	err := Rejected("transferCrypto", "INSUFFICIENT_PAYER_BALANCE", errors.New("precheck"))
	want := "transferCrypto: ledger rejected transaction (status INSUFFICIENT_PAYER_BALANCE): precheck"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestWithOpDoesNotOverwrite(t *testing.T) {
	base := Precondition("", "decimals unresolved")
	stamped := WithOp("transferCrypto", base)
	if stamped.Error() != "transferCrypto: decimals unresolved" {
		t.Fatalf("unexpected message %q", stamped.Error())
	}
	again := WithOp("other", stamped)
	if again.Error() != stamped.Error() {
		t.Fatalf("op should not be replaced, got %q", again.Error())
	}
	if base.Error() != "decimals unresolved" {
		t.Fatalf("original error mutated: %q", base.Error())
	}
}
