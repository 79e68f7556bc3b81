package keys

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/brightseth/airc-go/airc"
)

// Key artifacts are PEM-encoded: PKCS#8 for private keys and PKIX for
// public keys, the same encoding the registry's other SDKs persist. The
// self-describing ASN.1 structure is what lets Load reject truncated or
// random bytes instead of accepting wrong-looking key material.

const (
	pemTypePrivate = "PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

func encodePrivateKeyPEM(priv ed25519.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("keys: encoding private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: der}), nil
}

func decodePrivateKeyPEM(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePrivate {
		return nil, airc.NewError(airc.KindCorruptKey, "keys: artifact is not a PEM private key")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, airc.WrapError(airc.KindCorruptKey, "keys: parsing private key", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, airc.NewError(airc.KindCorruptKey, fmt.Sprintf("keys: artifact holds a %T, not an ed25519 key", parsed))
	}
	return priv, nil
}

func encodePublicKeyPEM(pub ed25519.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("keys: encoding public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: der}), nil
}

func decodePublicKeyPEM(data []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePublic {
		return nil, airc.NewError(airc.KindCorruptKey, "keys: artifact is not a PEM public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, airc.WrapError(airc.KindCorruptKey, "keys: parsing public key", err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, airc.NewError(airc.KindCorruptKey, fmt.Sprintf("keys: artifact holds a %T, not an ed25519 key", parsed))
	}
	return pub, nil
}
