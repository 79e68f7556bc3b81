// Package identity implements AIRC signing and recovery identities.
//
// A SigningIdentity is the day-to-day keypair that authenticates routine
// registry requests. A RecoveryIdentity is a separate, rarely-used keypair
// that authorizes the irreversible actions: rotating the signing key and
// revoking the identity. Keeping them apart limits blast radius: an
// attacker holding only the signing key can forge routine requests but can
// neither rotate nor revoke.
//
// Both identities sign over the canonical package's deterministic encoding
// and never perform network I/O; proofs are handed verbatim to the transport
// layer.
package identity
