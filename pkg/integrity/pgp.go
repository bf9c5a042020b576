package integrity

import (
	"bytes"
	"errors"

	"github.com/ProtonMail/go-crypto/openpgp"
)

var (
	errNoPrivateKey              = errors.New("entity has no private key")
	errEncryptedKeyNeedsPassword = errors.New("private key is passphrase-protected")
	errNoValidSignature          = errors.New("no valid signature found under policy")
)

// SignDetached produces an armored OpenPGP detached signature over data
// using signer's signing-capable private key. If the key is
// passphrase-protected, password must decrypt it.
func SignDetached(signer *openpgp.Entity, password string, data []byte) ([]byte, error) {
	if signer.PrivateKey == nil {
		return nil, wrap(ErrKeyNotFound, errNoPrivateKey)
	}
	if signer.PrivateKey.Encrypted {
		if password == "" {
			return nil, wrap(ErrPolicy, errEncryptedKeyNeedsPassword)
		}
		if err := signer.PrivateKey.Decrypt([]byte(password)); err != nil {
			return nil, wrap(ErrPolicy, err)
		}
	}

	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, signer, bytes.NewReader(data), nil); err != nil {
		return nil, wrap(ErrInvalidSignature, err)
	}
	return buf.Bytes(), nil
}

// VerifyDetached reports whether sig (armored or binary) is a valid detached
// signature over data from any entity in keyring. It returns true only if at
// least one signature verifies; any other outcome is reported as an error.
func VerifyDetached(keyring openpgp.EntityList, sig, data []byte) (bool, error) {
	if bytes.HasPrefix(bytes.TrimSpace(sig), []byte("-----BEGIN PGP SIGNATURE-----")) {
		_, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(sig), nil)
		if err != nil {
			return false, wrap(ErrInvalidSignature, err)
		}
		return true, nil
	}

	_, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(sig), nil)
	if err != nil {
		return false, wrap(ErrInvalidSignature, err)
	}
	return true, nil
}
