package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/brightseth/airc-go/airc"
	"github.com/brightseth/airc-go/canonical"
	"github.com/brightseth/airc-go/keys"
)

// keyholder carries the behavior shared by signing and recovery identities:
// generate-or-load against a store, public key encoding, and canonical
// payload signing.
type keyholder struct {
	name  string
	store *keys.Store
	kp    *keys.Keypair
}

// Name returns the agent name this identity belongs to.
func (h *keyholder) Name() string { return h.name }

// EnsureKeypair loads the persisted keypair for the identity's name,
// generating and persisting a fresh one when none exists. Idempotent:
// repeated calls after a successful generate load the same material.
func (h *keyholder) EnsureKeypair() (keys.Outcome, error) {
	kp, outcome, err := h.store.Ensure(h.name)
	if err != nil {
		return outcome, err
	}
	h.kp = kp
	return outcome, nil
}

func (h *keyholder) notInitialized() error {
	return airc.NewError(airc.KindNotInitialized, fmt.Sprintf("identity: no keypair loaded for %q, call EnsureKeypair first", h.name))
}

// PublicKeyBase64 returns the raw public key, base64-encoded, as it appears
// in registration payloads.
func (h *keyholder) PublicKeyBase64() (string, error) {
	if h.kp == nil {
		return "", h.notInitialized()
	}
	return base64.StdEncoding.EncodeToString(h.kp.Public), nil
}

// TaggedPublicKey returns the algorithm-tagged public key ("ed25519:" +
// base64) used wherever a key crosses the boundary to the registry.
func (h *keyholder) TaggedPublicKey() (string, error) {
	if h.kp == nil {
		return "", h.notInitialized()
	}
	return airc.TagPublicKey(h.kp.Public)
}

// PublicKey returns the raw public key bytes.
func (h *keyholder) PublicKey() (ed25519.PublicKey, error) {
	if h.kp == nil {
		return nil, h.notInitialized()
	}
	return h.kp.Public, nil
}

// Sign canonicalizes payload and signs the resulting bytes, returning a
// base64 signature. Ed25519 is deterministic: the same payload under the
// same key always yields the same signature.
func (h *keyholder) Sign(payload canonical.Map) (string, error) {
	if h.kp == nil {
		return "", h.notInitialized()
	}
	message, err := canonical.Encode(payload)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(h.kp.Private, message)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Fingerprint returns the first 16 hex characters of the SHA-256 digest of
// the raw public key. Display and debugging only: the truncation makes it
// unfit for security decisions.
func (h *keyholder) Fingerprint() (string, error) {
	if h.kp == nil {
		return "", h.notInitialized()
	}
	sum := sha256.Sum256(h.kp.Public)
	return hex.EncodeToString(sum[:])[:16], nil
}
