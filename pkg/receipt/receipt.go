// Package receipt defines the deployment receipt data model: the schema,
// content-addressed identifiers, and the attachment rules for operator
// signatures, timestamp tokens, and Merkle inclusion proofs.
package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/vaultmesh/covenant/pkg/canonicalize"
)

// DecodingError wraps a failure to parse bytes as a Receipt.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string { return fmt.Sprintf("receipt: decoding: %v", e.Err) }
func (e *DecodingError) Unwrap() error { return e.Err }

// MerkleProof is the wire form of an inclusion path: the leaf's own hash
// plus the ordered sibling hashes from leaf layer upward, both hex-encoded
// for JSON transport.
type MerkleProof struct {
	LeafHash string   `json:"leaf_hash"`
	Path     []string `json:"path"`
}

// Artifact binds a content digest to optional integrity attachments.
type Artifact struct {
	SHA256       string       `json:"sha256"`
	GPGSignature string       `json:"gpg_signature,omitempty"`
	RFC3161Token string       `json:"rfc3161_token,omitempty"`
	MerkleProof  *MerkleProof `json:"merkle_proof,omitempty"`
}

// Receipt binds a named component+version to an artifact digest, along with
// a UTC timestamp and an arbitrary context sidecar. Target and Outcome are
// supplemented fields absent from the wire example in the data model but
// present in the system this was distilled from; PrevReceiptID is assigned
// by a Ledger and never enters MakeID, but when set it is part of the
// canonical form and therefore of ContentID and SigningBytes.
type Receipt struct {
	ID           string                 `json:"id"`
	Component    string                 `json:"component"`
	Version      string                 `json:"version"`
	Artifact     Artifact               `json:"artifact"`
	TimestampUTC string                 `json:"timestamp_utc"`
	Context      map[string]interface{} `json:"context,omitempty"`

	Target        string `json:"target,omitempty"`
	Outcome       *bool  `json:"ok,omitempty"`
	PrevReceiptID string `json:"prev_receipt_id,omitempty"`
}

// MakeID derives the receipt's textual identifier from its component,
// version, and artifact digest: "{component}@{version}:{hex(sha256[0:4])}".
// This is not a collision-free primary key; stores MAY index by the full
// 32-byte content ID instead.
func MakeID(component, version string, sha256 [32]byte) string {
	return fmt.Sprintf("%s@%s:%s", component, version, hex.EncodeToString(sha256[:4]))
}

// ToCanonical returns the RFC 8785 canonical JSON bytes of the receipt
// exactly as it stands, attachments included.
func (r Receipt) ToCanonical() ([]byte, error) {
	return canonicalize.JCS(r)
}

// ContentID is the SHA-256 digest of the receipt's canonical form.
func (r Receipt) ContentID() ([32]byte, error) {
	b, err := r.ToCanonical()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// SigningBytes returns the canonical bytes a detached signature is computed
// and verified over: the receipt with gpg_signature, rfc3161_token, and
// merkle_proof all absent (I5). Attaching a signature, timestamp, or proof
// leaves these bytes unchanged, so a later attachment does not invalidate an
// earlier signature; a change to any other field does change them.
func (r Receipt) SigningBytes() ([]byte, error) {
	stripped := r
	stripped.Artifact = Artifact{SHA256: r.Artifact.SHA256}
	return stripped.ToCanonical()
}

// AttachSignature sets the armored detached signature produced over
// SigningBytes(). It does not itself verify anything; pkg/integrity does
// the cryptographic work.
func (r *Receipt) AttachSignature(armored string) {
	r.Artifact.GPGSignature = armored
}

// AttachTimestampToken sets the hex-encoded DER RFC 3161 token binding
// Artifact.SHA256.
func (r *Receipt) AttachTimestampToken(tokenHex string) {
	r.Artifact.RFC3161Token = tokenHex
}

// AttachMerkleProof sets the inclusion proof for this receipt's content ID
// in a Merkle log.
func (r *Receipt) AttachMerkleProof(proof MerkleProof) {
	r.Artifact.MerkleProof = &proof
}

// Parse decodes a Receipt from bytes. It tolerates the absence of any
// optional field.
func Parse(data []byte) (Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return Receipt{}, &DecodingError{Err: err}
	}
	return r, nil
}
