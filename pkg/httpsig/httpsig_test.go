package httpsig

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/covenant/pkg/crypto"
	"github.com/vaultmesh/covenant/pkg/noncestore"
)

func newSignedRequest(t *testing.T, kp *crypto.KeyPair, created int64, nonce string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://example.test/callback", bytes.NewReader(body))
	_, err := SignRequestWith(req, body, kp, created, nonce)
	require.NoError(t, err)
	return req
}

func resolverFor(kp *crypto.KeyPair) KeyResolver {
	return func(keyid string) (ed25519.PublicKey, bool) {
		if keyid == kp.KeyID {
			return kp.Public, true
		}
		return nil, false
	}
}

func noResolver(string) (ed25519.PublicKey, bool) { return nil, false }

func TestNewNonce_Unique(t *testing.T) {
	a := NewNonce()
	b := NewNonce()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestKeyIDFromRequest(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	req := newSignedRequest(t, kp, 1_700_000_000, "nonce-1", []byte(`{}`))
	keyID, ok := KeyIDFromRequest(req)
	require.True(t, ok)
	assert.Equal(t, "key-1", keyID)

	bare := httptest.NewRequest(http.MethodPost, "http://example.test/callback", nil)
	_, ok = KeyIDFromRequest(bare)
	assert.False(t, ok)
}

func TestSignRequest_GeneratesNonce(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	body := []byte(`{"hello":"world"}`)
	req := httptest.NewRequest(http.MethodPost, "http://example.test/callback", bytes.NewReader(body))
	_, err = SignRequest(req, body, kp)
	require.NoError(t, err)

	assert.Contains(t, req.Header.Get("signature-input"), "nonce=")
	err = VerifyRequestWith(req, resolverFor(kp), nil, VerifyOptions{RequireNonce: true})
	require.NoError(t, err)
}

func TestSignThenVerify_RoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	body := []byte(`{"hello":"world"}`)
	req := newSignedRequest(t, kp, 1_700_000_000, "nonce-1", body)

	err = VerifyRequestWith(req, resolverFor(kp), nil, VerifyOptions{})
	require.NoError(t, err)
}

func TestVerify_UnknownKeyID(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	req := newSignedRequest(t, kp, 1_700_000_000, "", []byte("x"))
	err = VerifyRequestWith(req, noResolver, nil, VerifyOptions{})
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindOther, ve.Kind)
}

func TestVerify_MissingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://example.test/callback", nil)
	err := VerifyRequestWith(req, noResolver, nil, VerifyOptions{})
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindMissing, ve.Kind)
}

func TestVerify_Skew(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	req := newSignedRequest(t, kp, 1_700_000_000-600, "", []byte("x"))
	err = VerifyRequestWith(req, resolverFor(kp), nil, VerifyOptions{MaxSkewSecs: 60})
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindSkew, ve.Kind)
}

func TestVerify_Replay(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	nonces := noncestore.NewMemoryStore(300)
	body := []byte("payload")
	created := time.Now().Unix()

	req1 := newSignedRequest(t, kp, created, "nonce-replay", body)
	err = VerifyRequestWith(req1, resolverFor(kp), nonces, VerifyOptions{})
	require.NoError(t, err)

	req2 := newSignedRequest(t, kp, created, "nonce-replay", body)
	err = VerifyRequestWith(req2, resolverFor(kp), nonces, VerifyOptions{})
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindReplay, ve.Kind)
}

type failingNonceStore struct{}

func (failingNonceStore) Seen(nonce string, created int64) (bool, error) {
	return false, errors.New("nonce store unavailable")
}

func TestVerify_NonceStoreErrorTreatedAsReplay(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	req := newSignedRequest(t, kp, 1_700_000_000, "nonce-1", []byte("x"))
	err = VerifyRequestWith(req, resolverFor(kp), failingNonceStore{}, VerifyOptions{})
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindReplay, ve.Kind)
}

func TestVerify_RequireNonceMissing(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	req := newSignedRequest(t, kp, 1_700_000_000, "", []byte("x"))
	err = VerifyRequestWith(req, resolverFor(kp), nil, VerifyOptions{RequireNonce: true})
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindMissing, ve.Kind)
}

func TestVerify_TamperedSignatureFails(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	req := newSignedRequest(t, kp, 1_700_000_000, "", []byte("x"))
	req.Header.Set("signature", "sig1=:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA:")

	err = VerifyRequestWith(req, resolverFor(kp), nil, VerifyOptions{})
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindSignature, ve.Kind)
}

func TestVerify_TamperedBodyDetectedViaContentDigestMismatch(t *testing.T) {
	kp, err := crypto.GenerateKeyPair("key-1")
	require.NoError(t, err)

	original := []byte("original body")
	req := newSignedRequest(t, kp, 1_700_000_000, "", original)

	tampered := []byte("tampered body")
	req.Body = io.NopCloser(bytes.NewReader(tampered))

	gotDigest := req.Header.Get("content-digest")
	assert.Equal(t, ContentDigestSHA256(original), gotDigest)
	assert.NotEqual(t, ContentDigestSHA256(tampered), gotDigest, "caller must detect this by recomputing content-digest over the actual body")
}

func TestContentDigestSHA256_Deterministic(t *testing.T) {
	body := []byte("hello world")
	assert.Equal(t, ContentDigestSHA256(body), ContentDigestSHA256(body))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(KindReplay))
	assert.Equal(t, http.StatusBadRequest, StatusFor(KindSkew))
	assert.Equal(t, http.StatusBadRequest, StatusFor(KindMissing))
	assert.Equal(t, http.StatusBadRequest, StatusFor(KindBadFormat))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(KindSignature))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(KindOther))
}
