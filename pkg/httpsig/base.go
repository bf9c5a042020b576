// Package httpsig implements RFC 9421-style HTTP message signatures over
// Content-Digest bound bodies: request signing, verification, clock-skew
// enforcement, and nonce-based replay protection.
package httpsig

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ContentDigestSHA256 formats an RFC 9530 structured-field Content-Digest
// value over body.
func ContentDigestSHA256(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("sha-256=:%s:", base64.StdEncoding.EncodeToString(sum[:]))
}

// signatureInput builds the Signature-Input header value. nonce == "" omits
// the nonce parameter.
func signatureInput(created int64, keyid, nonce string) string {
	var b strings.Builder
	b.WriteString(`sig1=("@method" "@path" "@authority" "content-digest");created=`)
	b.WriteString(strconv.FormatInt(created, 10))
	if nonce != "" {
		b.WriteString(`;nonce="`)
		b.WriteString(nonce)
		b.WriteString(`"`)
	}
	b.WriteString(`;keyid="`)
	b.WriteString(keyid)
	b.WriteString(`"`)
	return b.String()
}

// signatureBase builds the exact newline-joined signature base: method,
// path, authority, content-digest, and the signature-input value itself,
// in that order.
func signatureBase(method, path, authority, contentDigest, sigInputValue string) string {
	lines := []string{
		fmt.Sprintf("\"@method\": %s", strings.ToLower(method)),
		fmt.Sprintf("\"@path\": %s", path),
		fmt.Sprintf("\"@authority\": %s", authority),
		fmt.Sprintf("\"content-digest\": %s", contentDigest),
		fmt.Sprintf("\"@signature-params\": %s", sigInputValue),
	}
	return strings.Join(lines, "\n")
}

// requestComponents extracts the three request-derived signature-base
// components: lowercased method (left to the caller), path+query (or "/"),
// and authority (URL host, falling back to the Host header/field).
func requestComponents(req *http.Request) (method, path, authority string, err error) {
	method = req.Method

	path = req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}
	if path == "" {
		path = "/"
	}

	authority = req.URL.Host
	if authority == "" {
		authority = req.Host
	}
	if authority == "" {
		authority = req.Header.Get("Host")
	}
	if authority == "" {
		return "", "", "", fmt.Errorf("httpsig: no authority or Host available")
	}
	return method, path, authority, nil
}

// KeyIDFromRequest extracts the keyid parameter from req's Signature-Input
// header, for callers that need to know who signed a request that has
// already passed VerifyRequestWith (e.g. to apply a per-component signing
// policy).
func KeyIDFromRequest(req *http.Request) (string, bool) {
	return parseQuotedParam(req.Header.Get("signature-input"), "keyid")
}

// parseQuotedParam extracts name="value" from a Signature-Input value.
func parseQuotedParam(sigInput, name string) (string, bool) {
	needle := name + `="`
	idx := strings.Index(sigInput, needle)
	if idx < 0 {
		return "", false
	}
	rest := sigInput[idx+len(needle):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// parseCreatedParam extracts the unquoted created=<int> parameter.
func parseCreatedParam(sigInput string) (int64, bool) {
	const needle = "created="
	idx := strings.Index(sigInput, needle)
	if idx < 0 {
		return 0, false
	}
	rest := sigInput[idx+len(needle):]
	end := strings.IndexByte(rest, ';')
	if end >= 0 {
		rest = rest[:end]
	}
	created, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return created, true
}
