// Package keys provides filesystem-backed Ed25519 keypair storage for AIRC
// identities.
//
// A Store owns one directory and one private-artifact file mode. Signing
// keys live in their own store with 0600 artifacts; recovery keys live in a
// separate store with 0400 artifacts, reflecting that recovery keys are
// never expected to change once written.
//
// Stores hold no cryptographic policy beyond key generation: what gets
// signed, and with which key, is the identity package's concern.
//
// Concurrent processes must not Ensure the same name simultaneously; the
// store does no cross-process locking of its own.
package keys
