// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization for deterministic hashing of deployment receipts.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// EncodingError wraps a failure to produce canonical bytes for a value:
// non-finite numbers, cyclic structures, or values json.Marshal itself
// rejects.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return fmt.Sprintf("canonicalize: encoding: %v", e.Err) }
func (e *EncodingError) Unwrap() error { return e.Err }

// DecodingError wraps a failure to parse bytes as JSON.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string { return fmt.Sprintf("canonicalize: decoding: %v", e.Err) }
func (e *DecodingError) Unwrap() error { return e.Err }

const maxCanonicalizeDepth = 10000

// JCS returns the RFC 8785 canonical JSON representation of v.
//
// v is first marshaled with the standard library (so struct tags, including
// `omitempty`, are respected), its string scalars and object keys are
// NFC-normalized, and the result is transformed into RFC 8785 form via
// github.com/gowebpki/jcs, which handles object-member ordering by UTF-16
// code unit and ECMAScript-style number rendering — the parts of JCS a
// hand-rolled sorted-keys encoder gets wrong.
func JCS(v interface{}) ([]byte, error) {
	if err := checkDepth(v, 0); err != nil {
		return nil, &EncodingError{Err: err}
	}

	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	// gowebpki/jcs implements RFC 8785's structural rules (member ordering,
	// number rendering) but not Unicode normalization of string content, so
	// NFC-normalize string scalars and object keys ourselves first, the same
	// way the teacher's own CSNF canonicalizer does with golang.org/x/text.
	normalized, err := nfcNormalizeJSON(intermediate)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	canonical, err := jcs.Transform(normalized)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return canonical, nil
}

// nfcNormalizeJSON decodes data generically (preserving number tokens via
// json.Number so re-marshaling doesn't lose precision through float64),
// NFC-normalizes every string scalar and object key it contains, and
// re-encodes the result.
func nfcNormalizeJSON(data []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var v interface{}
	if err := decoder.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(nfcNormalize(v))
}

func nfcNormalize(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[norm.NFC.String(k)] = nfcNormalize(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = nfcNormalize(vv)
		}
		return out
	default:
		return v
	}
}

// checkDepth walks generic (map/slice) values to bound recursion before
// handing them to json.Marshal, which does not itself guard against
// self-referential map[string]any/[]any graphs.
func checkDepth(v interface{}, depth int) error {
	if depth > maxCanonicalizeDepth {
		return fmt.Errorf("value exceeds max nesting depth (%d); likely cyclic", maxCanonicalizeDepth)
	}
	switch t := v.(type) {
	case map[string]interface{}:
		for _, vv := range t {
			if err := checkDepth(vv, depth+1); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, vv := range t {
			if err := checkDepth(vv, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToCanonical is the spec-named alias for JCS.
func ToCanonical(v interface{}) ([]byte, error) {
	return JCS(v)
}

// FromCanonical permissively parses bytes as JSON. Round-trip stability is a
// property of ToCanonical, not of this parser: FromCanonical tolerates
// anything encoding/json accepts.
func FromCanonical(data []byte) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var v interface{}
	if err := decoder.Decode(&v); err != nil {
		return nil, &DecodingError{Err: err}
	}
	return v, nil
}

// ContentID returns the 32-byte SHA-256 digest of the canonical JSON
// representation of v.
func ContentID(v interface{}) ([32]byte, error) {
	b, err := JCS(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// CanonicalHash returns the SHA-256 hex digest of the canonical JSON
// representation of v.
func CanonicalHash(v interface{}) (string, error) {
	id, err := ContentID(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id[:]), nil
}

// HashBytes computes the SHA-256 hash of raw bytes and returns it as hex.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// JCSString returns the JCS canonical form as a string.
func JCSString(v interface{}) (string, error) {
	data, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
