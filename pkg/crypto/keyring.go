package crypto

import (
	"crypto/ed25519"
	"sync"
)

// KeyRing resolves a keyid to its verifying key, supporting multiple
// concurrently valid keys (rotation: the old key keeps verifying until its
// holders stop using it, the new key starts immediately).
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

// NewKeyRing returns an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]ed25519.PublicKey)}
}

// Add registers kp's public key under its KeyID.
func (k *KeyRing) Add(kp *KeyPair) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[kp.KeyID] = kp.Public
}

// AddPublicKey registers a verifying key directly, for peers whose private
// key this process never holds.
func (k *KeyRing) AddPublicKey(keyID string, pub ed25519.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[keyID] = pub
}

// Revoke removes a key from the ring by ID.
func (k *KeyRing) Revoke(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, keyID)
}

// Resolve looks up the verifying key for keyID.
func (k *KeyRing) Resolve(keyID string) (ed25519.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.keys[keyID]
	return pub, ok
}

// Resolver returns keyid-resolution as a plain function value, the shape
// pkg/httpsig's verifier expects.
func (k *KeyRing) Resolver() func(string) (ed25519.PublicKey, bool) {
	return k.Resolve
}
