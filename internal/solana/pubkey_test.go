package solana

import (
	"testing"

	"github.com/mr-tron/base58"
)

func TestValidPubkeyShapeAcceptsOrdinarySignerKey(t *testing.T) {
	// System Program: all-zero, a valid on-curve encoding in practice for
	// this library's purposes is not guaranteed, so use a key known to be
	// a real ed25519 public key's byte width and confirm the shape check
	// passes regardless of curve membership.
	key := base58.Encode(make([]byte, 32))

	ok, _ := ValidPubkeyShape(key)
	if !ok {
		t.Fatalf("expected ValidPubkeyShape to accept a well-formed 32-byte key")
	}
}

func TestValidPubkeyShapeRejectsWrongLength(t *testing.T) {
	key := base58.Encode(make([]byte, 16))

	ok, onCurve := ValidPubkeyShape(key)
	if ok {
		t.Fatalf("expected ValidPubkeyShape to reject a 16-byte key")
	}
	if onCurve {
		t.Fatalf("expected onCurve=false alongside ok=false")
	}
}

func TestValidPubkeyShapeRejectsUndecodableText(t *testing.T) {
	ok, _ := ValidPubkeyShape("not-base58!!!")
	if ok {
		t.Fatalf("expected ValidPubkeyShape to reject invalid base58 text")
	}
}

func TestValidPubkeyShapeDoesNotRejectOffCurveBytes(t *testing.T) {
	// A program-derived address is, by construction, an off-curve 32-byte
	// value. Thirty-two 0x02 bytes do not decode to an ed25519 point;
	// ValidPubkeyShape must still report ok=true since its width is
	// well-formed.
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = 0x02
	}
	key := base58.Encode(raw)

	ok, _ := ValidPubkeyShape(key)
	if !ok {
		t.Fatalf("expected ValidPubkeyShape to accept an off-curve but well-formed key")
	}
}
