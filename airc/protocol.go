package airc

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// Protocol constants for AIRC v0.2.
const (
	// ProtocolVersion is stamped into revocation proofs as the "v" field.
	ProtocolVersion = "0.2"

	// ActionRevoke is the action field of a revocation proof.
	ActionRevoke = "revoke"

	// KeyAlgEd25519 is the only key algorithm the protocol currently
	// defines. Tagged public keys carry it as a prefix.
	KeyAlgEd25519 = "ed25519"
)

// Request headers used when signing outbound registry calls.
const (
	HeaderSignature = "X-AIRC-Signature"
	HeaderIdentity  = "X-AIRC-Identity"
)

// TagPublicKey encodes an Ed25519 public key into the algorithm-tagged
// string form ("ed25519:" + base64) used in outbound payloads.
func TagPublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return KeyAlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub), nil
}

// UntagPublicKey parses an algorithm-tagged public key string back into raw
// Ed25519 public key bytes. An untagged value is accepted as a bare base64
// key for compatibility with pre-0.2 registrations.
func UntagPublicKey(tagged string) (ed25519.PublicKey, error) {
	alg, enc, ok := strings.Cut(tagged, ":")
	if !ok {
		alg, enc = KeyAlgEd25519, tagged
	}
	if alg != KeyAlgEd25519 {
		return nil, fmt.Errorf("unsupported key algorithm %q", alg)
	}
	pub, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("invalid public key base64: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 public key length %d", len(pub))
	}
	return ed25519.PublicKey(pub), nil
}
