package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/brightseth/airc-go/airc"
	"github.com/brightseth/airc-go/canonical"
	"github.com/brightseth/airc-go/keys"
)

func newSigning(t *testing.T) *SigningIdentity {
	t.Helper()
	store, err := keys.NewStore(t.TempDir(), keys.SigningKeyMode)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewSigningIdentity("alice", store)
}

func TestEnsureKeypairOutcomes(t *testing.T) {
	id := newSigning(t)

	outcome, err := id.EnsureKeypair()
	if err != nil {
		t.Fatalf("EnsureKeypair: %v", err)
	}
	if outcome != keys.OutcomeGenerated {
		t.Fatalf("first EnsureKeypair: got %v want %v", outcome, keys.OutcomeGenerated)
	}
	firstPub, err := id.PublicKeyBase64()
	if err != nil {
		t.Fatalf("PublicKeyBase64: %v", err)
	}

	outcome, err = id.EnsureKeypair()
	if err != nil {
		t.Fatalf("EnsureKeypair: %v", err)
	}
	if outcome != keys.OutcomeLoaded {
		t.Fatalf("second EnsureKeypair: got %v want %v", outcome, keys.OutcomeLoaded)
	}
	secondPub, err := id.PublicKeyBase64()
	if err != nil {
		t.Fatalf("PublicKeyBase64: %v", err)
	}
	if firstPub != secondPub {
		t.Fatal("EnsureKeypair regenerated the keypair")
	}
}

func TestUninitializedOperationsFail(t *testing.T) {
	id := newSigning(t)

	if _, err := id.PublicKeyBase64(); !airc.IsKind(err, airc.KindNotInitialized) {
		t.Fatalf("PublicKeyBase64: expected NotInitialized, got %v", err)
	}
	if _, err := id.TaggedPublicKey(); !airc.IsKind(err, airc.KindNotInitialized) {
		t.Fatalf("TaggedPublicKey: expected NotInitialized, got %v", err)
	}
	if _, err := id.Sign(canonical.Map{"k": canonical.String("v")}); !airc.IsKind(err, airc.KindNotInitialized) {
		t.Fatalf("Sign: expected NotInitialized, got %v", err)
	}
	if _, err := id.Fingerprint(); !airc.IsKind(err, airc.KindNotInitialized) {
		t.Fatalf("Fingerprint: expected NotInitialized, got %v", err)
	}
}

func TestSignDeterministicAndVerifiable(t *testing.T) {
	id := newSigning(t)
	if _, err := id.EnsureKeypair(); err != nil {
		t.Fatalf("EnsureKeypair: %v", err)
	}

	payload := canonical.Map{
		"name":      canonical.String("alice"),
		"publicKey": canonical.String("abc"),
	}
	first, err := id.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	second, err := id.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if first != second {
		t.Fatal("Ed25519 signatures should be deterministic for a fixed payload")
	}

	sig, err := base64.StdEncoding.DecodeString(first)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	pub, err := id.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	message, err := canonical.Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !ed25519.Verify(pub, message, sig) {
		t.Fatal("signature did not verify over the canonical encoding")
	}
}

func TestTaggedPublicKeyFormat(t *testing.T) {
	id := newSigning(t)
	if _, err := id.EnsureKeypair(); err != nil {
		t.Fatalf("EnsureKeypair: %v", err)
	}
	tagged, err := id.TaggedPublicKey()
	if err != nil {
		t.Fatalf("TaggedPublicKey: %v", err)
	}
	if !strings.HasPrefix(tagged, "ed25519:") {
		t.Fatalf("expected ed25519 prefix, got %q", tagged)
	}
	pub, err := airc.UntagPublicKey(tagged)
	if err != nil {
		t.Fatalf("UntagPublicKey: %v", err)
	}
	want, err := id.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if !want.Equal(pub) {
		t.Fatal("tagged key did not round-trip")
	}
}

func TestFingerprint(t *testing.T) {
	id := newSigning(t)
	if _, err := id.EnsureKeypair(); err != nil {
		t.Fatalf("EnsureKeypair: %v", err)
	}
	fingerprint, err := id.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if len(fingerprint) != 16 {
		t.Fatalf("fingerprint length: got %d want 16", len(fingerprint))
	}
	if _, err := hex.DecodeString(fingerprint); err != nil {
		t.Fatalf("fingerprint is not hex: %v", err)
	}
	pub, err := id.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	sum := sha256.Sum256(pub)
	if want := hex.EncodeToString(sum[:])[:16]; fingerprint != want {
		t.Fatalf("fingerprint: got %s want %s", fingerprint, want)
	}

	again, err := id.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if again != fingerprint {
		t.Fatal("fingerprint is not stable")
	}
}

func TestRegenerateSupersedesKeypair(t *testing.T) {
	id := newSigning(t)
	if _, err := id.EnsureKeypair(); err != nil {
		t.Fatalf("EnsureKeypair: %v", err)
	}
	oldPub, err := id.PublicKeyBase64()
	if err != nil {
		t.Fatalf("PublicKeyBase64: %v", err)
	}

	if err := id.Regenerate(); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	newPub, err := id.PublicKeyBase64()
	if err != nil {
		t.Fatalf("PublicKeyBase64: %v", err)
	}
	if oldPub == newPub {
		t.Fatal("Regenerate did not change the public key")
	}

	// A fresh identity against the same store loads the new key.
	reloaded := NewSigningIdentity("alice", mustStoreOf(t, id))
	if _, err := reloaded.EnsureKeypair(); err != nil {
		t.Fatalf("EnsureKeypair: %v", err)
	}
	reloadedPub, err := reloaded.PublicKeyBase64()
	if err != nil {
		t.Fatalf("PublicKeyBase64: %v", err)
	}
	if reloadedPub != newPub {
		t.Fatal("store did not persist the regenerated key")
	}
}

func mustStoreOf(t *testing.T, id *SigningIdentity) *keys.Store {
	t.Helper()
	return id.store
}
