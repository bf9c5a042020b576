// Package crypto holds the Ed25519 key material used to sign and verify
// HTTP messages: generating/loading keypairs and resolving a keyid to its
// verifying key for pkg/httpsig.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
)

// KeyPair is an Ed25519 signing identity addressed by KeyID, the value
// carried in an HTTP signature's "keyid" parameter.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
	KeyID   string
}

// GenerateKeyPair creates a fresh random KeyPair.
func GenerateKeyPair(keyID string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: key generation failed: %w", err)
	}
	return &KeyPair{Private: priv, Public: pub, KeyID: keyID}, nil
}

// NewKeyPairFromPrivate wraps an existing Ed25519 private key.
func NewKeyPairFromPrivate(priv ed25519.PrivateKey, keyID string) *KeyPair {
	return &KeyPair{
		Private: priv,
		Public:  priv.Public().(ed25519.PublicKey),
		KeyID:   keyID,
	}
}

// LoadKeyPairFromPEM parses a PKCS#8 PEM-encoded Ed25519 private key, in the
// same layout `openssl genpkey -algorithm ed25519` produces.
func LoadKeyPairFromPEM(pemBytes []byte, keyID string) (*KeyPair, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("crypto: no PEM block found")
	}
	key, err := parsePKCS8Ed25519(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return NewKeyPairFromPrivate(key, keyID), nil
}

// Sign signs data with the private key.
func (k *KeyPair) Sign(data []byte) []byte {
	return ed25519.Sign(k.Private, data)
}

// Verify reports whether sig is a valid Ed25519 signature over data under
// this KeyPair's public key.
func (k *KeyPair) Verify(data, sig []byte) bool {
	return ed25519.Verify(k.Public, data, sig)
}
