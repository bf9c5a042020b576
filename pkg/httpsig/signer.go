package httpsig

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vaultmesh/covenant/pkg/crypto"
)

// NewNonce returns a fresh random nonce suitable for the signature-input
// nonce parameter. Callers that need replay protection (servers started
// with -require-nonce, the default) must pass one of these to
// SignRequestWith rather than "".
func NewNonce() string {
	return uuid.New().String()
}

// SignRequest signs req with kp using the current time as created and a
// freshly generated nonce, adding content-digest, signature-input, and
// signature headers. It returns the created timestamp used, so callers can
// correlate it with what they sent.
func SignRequest(req *http.Request, body []byte, kp *crypto.KeyPair) (int64, error) {
	return SignRequestWith(req, body, kp, time.Now().Unix(), NewNonce())
}

// SignRequestWith signs req with an explicit created time and optional
// nonce ("" to omit).
func SignRequestWith(req *http.Request, body []byte, kp *crypto.KeyPair, created int64, nonce string) (int64, error) {
	cd := ContentDigestSHA256(body)
	req.Header.Set("content-digest", cd)

	sigInput := signatureInput(created, kp.KeyID, nonce)
	req.Header.Set("signature-input", sigInput)

	method, path, authority, err := requestComponents(req)
	if err != nil {
		return 0, fmt.Errorf("httpsig: sign: %w", err)
	}

	base := signatureBase(method, path, authority, cd, sigInput)
	sig := kp.Sign([]byte(base))
	req.Header.Set("signature", fmt.Sprintf("sig1=:%s:", base64.StdEncoding.EncodeToString(sig)))

	return created, nil
}
