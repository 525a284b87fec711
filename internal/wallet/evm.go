package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
)

// secp256k1 SubjectPublicKeyInfo prefix the ledger uses for DER-encoded
// compressed ECDSA keys.
const ecdsaDERPrefix = "302d300706052b8104000a032200"

// EVMAddress derives the EVM alias of an ECDSA account from its public key.
// Ed25519 accounts have no derivable alias and yield "".
func EVMAddress(publicKey string, curve ledger.Curve) (string, error) {
	if curve != ledger.CurveECDSA {
		return "", nil
	}
	raw := strings.TrimPrefix(strings.ToLower(publicKey), "0x")
	raw = strings.TrimPrefix(raw, ecdsaDERPrefix)
	b, err := hex.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("public key is not hex: %w", err)
	}
	var addr common.Address
	switch len(b) {
	case 33:
		pub, err := crypto.DecompressPubkey(b)
		if err != nil {
			return "", fmt.Errorf("decompress public key: %w", err)
		}
		addr = crypto.PubkeyToAddress(*pub)
	case 65:
		pub, err := crypto.UnmarshalPubkey(b)
		if err != nil {
			return "", fmt.Errorf("parse public key: %w", err)
		}
		addr = crypto.PubkeyToAddress(*pub)
	default:
		return "", fmt.Errorf("unexpected ecdsa public key length %d", len(b))
	}
	return strings.ToLower(addr.Hex()), nil
}

// IsEVMAddress reports whether s is a 20-byte hex address.
func IsEVMAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}
