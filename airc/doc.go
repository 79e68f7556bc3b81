// Package airc holds the protocol-level constants and the structured error
// taxonomy shared by the AIRC SDK packages.
//
// AIRC identities are Ed25519 keypairs. Public keys cross the boundary to the
// registry as algorithm-tagged strings ("ed25519:" + base64 raw key) so the
// key algorithm can evolve server-side without a wire break. Everything the
// registry verifies is signed over the canonical encoding produced by the
// canonical package; this package does not touch the network.
package airc
