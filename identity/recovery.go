package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/brightseth/airc-go/airc"
	"github.com/brightseth/airc-go/canonical"
	"github.com/brightseth/airc-go/keys"
)

// RecoveryIdentity is the long-lived keypair that authorizes rotation and
// revocation of its signing counterpart. At most one exists per name; its
// store should use keys.RecoveryKeyMode so the artifact is read-only after
// the first write. If the recovery key is ever regenerated, all previously
// issued rotation and revocation authority for the name is void from the
// registry's point of view.
type RecoveryIdentity struct {
	keyholder
}

// NewRecoveryIdentity binds name to a recovery-key store.
func NewRecoveryIdentity(name string, store *keys.Store) *RecoveryIdentity {
	return &RecoveryIdentity{keyholder{name: name, store: store}}
}

// RotationProof asserts, under the recovery key, that newPublicKey should
// replace the current signing key for this name.
type RotationProof struct {
	NewPublicKey string `json:"new_public_key"`
	Timestamp    int64  `json:"timestamp"`
	Nonce        string `json:"nonce"`
	Signature    string `json:"signature"`
}

// RevocationProof asserts, under the recovery key, that the identity behind
// handle should be permanently invalidated.
type RevocationProof struct {
	Version   string `json:"v"`
	Handle    string `json:"handle"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Proof     string `json:"proof"`
}

// GenerateRotationProof builds a fresh rotation proof for newPublicKey (in
// tagged "ed25519:..." form). The signature covers the canonical encoding of
// new_public_key, timestamp and nonce only. The nonce defeats replay of an
// intercepted proof for the same key; the timestamp lets the registry reject
// stale proofs under whatever freshness window it enforces. Proofs are never
// persisted and are single-use by convention.
func (r *RecoveryIdentity) GenerateRotationProof(newPublicKey string) (*RotationProof, error) {
	if r.kp == nil {
		return nil, r.notInitialized()
	}
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	proof := &RotationProof{
		NewPublicKey: newPublicKey,
		Timestamp:    time.Now().Unix(),
		Nonce:        nonce,
	}
	proof.Signature, err = r.Sign(canonical.Map{
		"new_public_key": canonical.String(proof.NewPublicKey),
		"timestamp":      canonical.Int(proof.Timestamp),
		"nonce":          canonical.String(proof.Nonce),
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// GenerateRevocationProof builds a fresh revocation proof for handle. The
// proof signature covers the canonical encoding of the six payload fields
// (v, handle, action, reason, timestamp, nonce).
func (r *RecoveryIdentity) GenerateRevocationProof(handle, reason string) (*RevocationProof, error) {
	if r.kp == nil {
		return nil, r.notInitialized()
	}
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	proof := &RevocationProof{
		Version:   airc.ProtocolVersion,
		Handle:    handle,
		Action:    airc.ActionRevoke,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
		Nonce:     nonce,
	}
	proof.Proof, err = r.Sign(canonical.Map{
		"v":         canonical.String(proof.Version),
		"handle":    canonical.String(proof.Handle),
		"action":    canonical.String(proof.Action),
		"reason":    canonical.String(proof.Reason),
		"timestamp": canonical.Int(proof.Timestamp),
		"nonce":     canonical.String(proof.Nonce),
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// newNonce returns 16 bytes of fresh entropy, hex-encoded (32 characters).
func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("identity: reading nonce entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}
