package identity

import (
	"github.com/brightseth/airc-go/keys"
)

// SigningIdentity is the day-to-day identity for one agent name: it signs
// registration, heartbeat and message payloads. Exactly one exists per name.
type SigningIdentity struct {
	keyholder
}

// NewSigningIdentity binds name to a signing-key store. No key material is
// touched until EnsureKeypair.
func NewSigningIdentity(name string, store *keys.Store) *SigningIdentity {
	return &SigningIdentity{keyholder{name: name, store: store}}
}

// Regenerate forcibly creates a brand-new keypair, superseding the current
// one. The old private artifact is archived on disk as history and must not
// be used for fresh signatures; the new keypair is persisted immediately and
// becomes the in-memory identity. Used to stage a new signing key ahead of a
// rotation proof.
func (id *SigningIdentity) Regenerate() error {
	kp, err := id.store.Rotate(id.name)
	if err != nil {
		return err
	}
	id.kp = kp
	return nil
}
