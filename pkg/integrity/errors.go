// Package integrity wires operator-grade attestations onto receipts:
// OpenPGP detached signatures over canonical bytes, and RFC 3161 timestamp
// tokens binding an artifact digest to a trusted time source.
package integrity

import "fmt"

// CryptoErrorKind classifies why an integrity operation failed.
type CryptoErrorKind string

const (
	ErrKeyNotFound      CryptoErrorKind = "key_not_found"
	ErrInvalidSignature CryptoErrorKind = "invalid_signature"
	ErrPolicy           CryptoErrorKind = "policy"
	ErrIO               CryptoErrorKind = "io"
	ErrNetwork          CryptoErrorKind = "network"
	ErrSerialization    CryptoErrorKind = "serialization"
	ErrTimestamp        CryptoErrorKind = "timestamp"
)

// CryptoError reports a failure in OpenPGP or RFC 3161 handling.
type CryptoError struct {
	Kind CryptoErrorKind
	Err  error
}

func (e *CryptoError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("integrity: %s", e.Kind)
	}
	return fmt.Sprintf("integrity: %s: %v", e.Kind, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

func wrap(kind CryptoErrorKind, err error) *CryptoError {
	return &CryptoError{Kind: kind, Err: err}
}
