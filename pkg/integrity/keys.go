package integrity

import (
	"bytes"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// GenerateOperatorKey creates a fresh signing-capable OpenPGP entity for
// userID, for use in tests and key-provisioning tooling.
func GenerateOperatorKey(userID string) (*openpgp.Entity, error) {
	entity, err := openpgp.NewEntity(userID, "", "", nil)
	if err != nil {
		return nil, wrap(ErrKeyNotFound, err)
	}
	return entity, nil
}

// ExportPublicKey armors entity's public key.
func ExportPublicKey(entity *openpgp.Entity) ([]byte, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, wrap(ErrSerialization, err)
	}
	if err := entity.Serialize(w); err != nil {
		return nil, wrap(ErrSerialization, err)
	}
	if err := w.Close(); err != nil {
		return nil, wrap(ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// ExportPrivateKey armors entity's private key. Callers are responsible for
// storing the result somewhere only the signing operator can read.
func ExportPrivateKey(entity *openpgp.Entity) ([]byte, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		return nil, wrap(ErrSerialization, err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		return nil, wrap(ErrSerialization, err)
	}
	if err := w.Close(); err != nil {
		return nil, wrap(ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// ImportKeyRing parses one or more armored public or private keys.
func ImportKeyRing(armored []byte) (openpgp.EntityList, error) {
	ring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armored))
	if err != nil {
		return nil, wrap(ErrSerialization, err)
	}
	return ring, nil
}
