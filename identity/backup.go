package identity

import (
	"crypto/rand"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Recovery-key portability. The recovery seed can leave the machine two
// ways: as a 24-word mnemonic for transcription, or as a passphrase-
// encrypted envelope file. Both round-trip the exact 32-byte Ed25519 seed,
// so a restored key produces the same public key the registry already
// trusts.

const (
	backupVersion       = 1
	backupKDF           = "argon2id"
	defaultArgonTime    = uint32(2)
	defaultArgonMemKB   = uint32(64 * 1024)
	defaultArgonThreads = uint8(1)
)

// BackupEnvelope is the versioned, passphrase-encrypted form of a recovery
// seed. KDF parameters are stored alongside the ciphertext so they can be
// hardened later without breaking old backups.
type BackupEnvelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Mnemonic renders the recovery seed as a 24-word BIP39 mnemonic. The seed
// is used directly as mnemonic entropy, so SeedFromMnemonic recovers it
// bit-for-bit.
func (r *RecoveryIdentity) Mnemonic() (string, error) {
	if r.kp == nil {
		return "", r.notInitialized()
	}
	mnemonic, err := bip39.NewMnemonic(r.kp.Seed())
	if err != nil {
		return "", fmt.Errorf("identity: rendering mnemonic: %w", err)
	}
	return mnemonic, nil
}

// SeedFromMnemonic recovers the 32-byte recovery seed from a mnemonic
// produced by Mnemonic.
func SeedFromMnemonic(mnemonic string) ([]byte, error) {
	seed, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid mnemonic: %w", err)
	}
	return seed, nil
}

// ExportBackup encrypts the recovery seed under passphrase using argon2id
// and XChaCha20-Poly1305.
func (r *RecoveryIdentity) ExportBackup(passphrase []byte) (*BackupEnvelope, error) {
	if r.kp == nil {
		return nil, r.notInitialized()
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := argon2.IDKey(passphrase, salt, defaultArgonTime, defaultArgonMemKB, defaultArgonThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return &BackupEnvelope{
		Version:     backupVersion,
		KDF:         backupKDF,
		KDFTime:     defaultArgonTime,
		KDFMemoryKB: defaultArgonMemKB,
		KDFThreads:  defaultArgonThreads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, r.kp.Seed(), nil),
	}, nil
}

// OpenBackup decrypts env with passphrase and returns the recovery seed.
func OpenBackup(env *BackupEnvelope, passphrase []byte) ([]byte, error) {
	if env.Version != backupVersion {
		return nil, fmt.Errorf("identity: unsupported backup version %d", env.Version)
	}
	if env.KDF != backupKDF {
		return nil, fmt.Errorf("identity: unsupported kdf %q", env.KDF)
	}
	key := argon2.IDKey(passphrase, env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	seed, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: opening backup: %w", err)
	}
	return seed, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
