package httpsig

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vaultmesh/covenant/pkg/noncestore"
)

// VerifyErrorKind classifies why request verification failed.
type VerifyErrorKind string

const (
	KindMissing   VerifyErrorKind = "missing"
	KindBadFormat VerifyErrorKind = "bad_format"
	KindSignature VerifyErrorKind = "signature"
	KindSkew      VerifyErrorKind = "skew"
	KindReplay    VerifyErrorKind = "replay"
	KindOther     VerifyErrorKind = "other"
)

// VerifyError reports a gated rejection reason without leaking cryptographic
// detail to callers mapping it to an HTTP status.
type VerifyError struct {
	Kind   VerifyErrorKind
	Detail string
}

func (e *VerifyError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("httpsig: verify: %s", e.Kind)
	}
	return fmt.Sprintf("httpsig: verify: %s: %s", e.Kind, e.Detail)
}

func missing(detail string) *VerifyError   { return &VerifyError{Kind: KindMissing, Detail: detail} }
func badFormat(detail string) *VerifyError { return &VerifyError{Kind: KindBadFormat, Detail: detail} }
func other(detail string) *VerifyError     { return &VerifyError{Kind: KindOther, Detail: detail} }

// KeyResolver maps a keyid to its verifying key.
type KeyResolver func(keyid string) (ed25519.PublicKey, bool)

// VerifyOptions tunes verification: clock-skew tolerance and whether a
// nonce is mandatory.
type VerifyOptions struct {
	MaxSkewSecs  int64
	RequireNonce bool
}

// VerifyRequest verifies req against resolve with default options (no skew
// check, nonce optional) and no replay protection.
func VerifyRequest(req *http.Request, resolve KeyResolver) error {
	return VerifyRequestWith(req, resolve, nil, VerifyOptions{})
}

// VerifyRequestWith verifies req's signature headers.
//
// Ordering matters: clock-skew and replay checks run before any
// cryptographic work so cheap rejections happen first, and a nonce is never
// recorded if the skew check fails — recording it would let an attacker
// pollute the nonce store with values that could never have verified
// anyway. There is exactly one success path, returning nil.
func VerifyRequestWith(req *http.Request, resolve KeyResolver, nonces noncestore.Store, opts VerifyOptions) error {
	sigInput := req.Header.Get("signature-input")
	if sigInput == "" {
		return missing("signature-input")
	}
	sigField := req.Header.Get("signature")
	if sigField == "" {
		return missing("signature")
	}
	contentDigest := req.Header.Get("content-digest")
	if contentDigest == "" {
		return missing("content-digest")
	}

	keyid, ok := parseQuotedParam(sigInput, "keyid")
	if !ok {
		return badFormat("keyid")
	}
	created, ok := parseCreatedParam(sigInput)
	if !ok {
		return badFormat("created")
	}
	nonce, hasNonce := parseQuotedParam(sigInput, "nonce")

	if opts.RequireNonce && !hasNonce {
		return missing("nonce")
	}

	if opts.MaxSkewSecs > 0 {
		skew := time.Now().Unix() - created
		if skew < 0 {
			skew = -skew
		}
		if skew > opts.MaxSkewSecs {
			return &VerifyError{Kind: KindSkew}
		}
	}

	if nonces != nil && hasNonce {
		seen, err := nonces.Seen(nonce, created)
		if err != nil {
			// A nonce store that cannot answer "have I seen this?" cannot
			// rule out replay, so treat the failure as a replay itself
			// rather than letting the request through.
			return &VerifyError{Kind: KindReplay, Detail: err.Error()}
		}
		if seen {
			return &VerifyError{Kind: KindReplay}
		}
	}

	pub, ok := resolve(keyid)
	if !ok {
		return other("unknown keyid")
	}

	method, path, authority, err := requestComponents(req)
	if err != nil {
		return other(err.Error())
	}
	base := signatureBase(method, path, authority, contentDigest, sigInput)

	sigB64, ok := extractSignatureValue(sigField)
	if !ok {
		return badFormat("signature")
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return &VerifyError{Kind: KindSignature, Detail: "signature base64"}
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return &VerifyError{Kind: KindSignature, Detail: "signature length"}
	}

	if !ed25519.Verify(pub, []byte(base), sigBytes) {
		return &VerifyError{Kind: KindSignature}
	}
	return nil
}

// extractSignatureValue pulls the base64 payload out of "sig1=:<b64>:".
func extractSignatureValue(sigField string) (string, bool) {
	parts := strings.SplitN(sigField, ":", 3)
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}
