package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/brightseth/airc-go/airc"
)

// Private-key artifact modes. Signing keys are owner read/write; recovery
// keys are owner read-only so they cannot be casually overwritten.
const (
	SigningKeyMode  os.FileMode = 0o600
	RecoveryKeyMode os.FileMode = 0o400
)

// Keypair is one Ed25519 keypair. The public half is always re-derivable
// from the private half; Load cross-checks any stored public artifact
// against the derived value.
type Keypair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// Seed returns the 32-byte private seed the keypair derives from.
func (kp *Keypair) Seed() []byte {
	return kp.Private.Seed()
}

// Outcome reports which branch of the generate-or-load contract Ensure took.
type Outcome int

const (
	// OutcomeLoaded: an existing artifact was read.
	OutcomeLoaded Outcome = iota
	// OutcomeGenerated: no artifact existed and a fresh keypair was
	// generated and persisted.
	OutcomeGenerated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeGenerated:
		return "generated"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Store persists one private-key artifact per agent name under a single
// directory. The directory is injected by the caller; defaults derived from
// the user's home directory belong to the surrounding application, not here.
type Store struct {
	dir  string
	mode os.FileMode
}

// NewStore constructs a store rooted at dir. mode is applied to private-key
// artifacts (use SigningKeyMode or RecoveryKeyMode). The directory is
// created lazily on first Generate.
func NewStore(dir string, mode os.FileMode) (*Store, error) {
	if dir == "" {
		return nil, errors.New("keys: store directory is required")
	}
	if mode&^os.ModePerm != 0 {
		return nil, fmt.Errorf("keys: invalid artifact mode %v", mode)
	}
	return &Store{dir: dir, mode: mode}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// CheckName validates an agent name for use as a key artifact name.
// Restricting the charset keeps names from escaping the store directory.
func CheckName(name string) error {
	if name == "" {
		return errors.New("keys: name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("keys: invalid character %q in name", char)
	}
	return nil
}

func (s *Store) privateKeyPath(name string) string {
	return filepath.Join(s.dir, name+".key")
}

func (s *Store) publicKeyPath(name string) string {
	return filepath.Join(s.dir, name+".pub")
}

// Generate creates a new Ed25519 keypair for name and persists both halves.
// It refuses to replace an existing artifact; use Rotate for that.
func (s *Store) Generate(name string) (*Keypair, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	if _, err := os.Lstat(s.privateKeyPath(name)); err == nil {
		return nil, fmt.Errorf("keys: %q already exists in %s", name, s.dir)
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keys: generate: %w", err)
	}
	kp := &Keypair{Private: priv, Public: pub}
	if err := s.persist(name, kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// Import persists a keypair derived from an externally supplied 32-byte
// seed (e.g. a restored recovery-key backup). Same no-overwrite rule as
// Generate.
func (s *Store) Import(name string, seed []byte) (*Keypair, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if _, err := os.Lstat(s.privateKeyPath(name)); err == nil {
		return nil, fmt.Errorf("keys: %q already exists in %s", name, s.dir)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	kp := &Keypair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}
	if err := s.persist(name, kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// Load reads a previously persisted keypair. It fails with a NotFound error
// when no artifact exists and a CorruptKey error when the artifact does not
// round-trip as a valid Ed25519 private key.
func (s *Store) Load(name string) (*Keypair, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.privateKeyPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, airc.WrapError(airc.KindNotFound, fmt.Sprintf("keys: no key artifact for %q", name), err)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, airc.WrapError(airc.KindPermission, fmt.Sprintf("keys: reading key for %q", name), err)
		}
		return nil, fmt.Errorf("keys: reading key for %q: %w", name, err)
	}
	priv, err := decodePrivateKeyPEM(raw)
	if err != nil {
		return nil, err
	}
	kp := &Keypair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}

	// The public artifact is advisory; the private key is authoritative.
	// A present-but-mismatched public artifact means somebody tampered with
	// the store, so refuse to proceed.
	if pubRaw, err := os.ReadFile(s.publicKeyPath(name)); err == nil {
		storedPub, err := decodePublicKeyPEM(pubRaw)
		if err != nil {
			return nil, err
		}
		if !kp.Public.Equal(storedPub) {
			return nil, airc.NewError(airc.KindCorruptKey, fmt.Sprintf("keys: public artifact for %q does not match private key", name))
		}
	}
	return kp, nil
}

// Ensure returns the existing keypair for name, generating and persisting a
// fresh one when no artifact exists. Repeated calls for the same name are
// idempotent; the Outcome reports which branch was taken.
func (s *Store) Ensure(name string) (*Keypair, Outcome, error) {
	kp, err := s.Load(name)
	switch {
	case err == nil:
		return kp, OutcomeLoaded, nil
	case airc.IsKind(err, airc.KindNotFound):
		kp, err = s.Generate(name)
		if err != nil {
			return nil, OutcomeLoaded, err
		}
		return kp, OutcomeGenerated, nil
	default:
		return nil, OutcomeLoaded, err
	}
}

// Rotate supersedes the current keypair for name: the existing private
// artifact is archived as history (never reused) and a fresh keypair is
// generated in its place. With no existing artifact Rotate behaves like
// Generate.
func (s *Store) Rotate(name string) (*Keypair, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	keyPath := s.privateKeyPath(name)
	if _, err := os.Lstat(keyPath); err == nil {
		archived := fmt.Sprintf("%s.%d.old", keyPath, time.Now().Unix())
		if err := os.Rename(keyPath, archived); err != nil {
			return nil, fmt.Errorf("keys: archiving superseded key for %q: %w", name, err)
		}
		// The stale public artifact is replaced by persist below; removing
		// it here keeps a crash between rename and persist detectable.
		_ = os.Remove(s.publicKeyPath(name))
	}
	return s.Generate(name)
}

func (s *Store) persist(name string, kp *Keypair) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return airc.WrapError(airc.KindPermission, "keys: creating store directory", err)
		}
		return fmt.Errorf("keys: creating store directory: %w", err)
	}
	privPEM, err := encodePrivateKeyPEM(kp.Private)
	if err != nil {
		return err
	}
	pubPEM, err := encodePublicKeyPEM(kp.Public)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.privateKeyPath(name), privPEM, s.mode); err != nil {
		return err
	}
	return writeFileAtomic(s.publicKeyPath(name), pubPEM, 0o644)
}

// writeFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, so a crash can never leave a half-written artifact
// at the final path. The temp file is removed on every failure path.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return airc.WrapError(airc.KindPermission, "keys: creating temp artifact", err)
		}
		return fmt.Errorf("keys: creating temp artifact: %w", err)
	}
	tmp := f.Name()
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("keys: writing %s: %w", path, err)
	}
	if err := f.Chmod(mode); err != nil {
		cleanup()
		return airc.WrapError(airc.KindPermission, fmt.Sprintf("keys: applying mode %v to %s", mode, path), err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("keys: syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("keys: closing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, fs.ErrPermission) {
			return airc.WrapError(airc.KindPermission, fmt.Sprintf("keys: renaming into %s", path), err)
		}
		return fmt.Errorf("keys: renaming into %s: %w", path, err)
	}
	return nil
}
