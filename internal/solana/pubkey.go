package solana

import (
	"github.com/mr-tron/base58"

	"filippo.io/edwards25519"
)

// ValidPubkeyShape decodes a base58-encoded Solana account key and reports
// whether it has the fixed 32-byte width of an ed25519 public key or a
// program-derived address. onCurve additionally reports whether those 32
// bytes parse as a point on the ed25519 curve, via
// edwards25519.Point.SetBytes — true for an ordinary signer key, false for
// an off-curve program-derived address. onCurve is informational only:
// PDAs are deliberately constructed off-curve, so a false value here is
// expected and must never be treated as invalid.
func ValidPubkeyShape(pubkey string) (ok bool, onCurve bool) {
	decoded, err := base58.Decode(pubkey)
	if err != nil || len(decoded) != 32 {
		return false, false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return true, err == nil
}
