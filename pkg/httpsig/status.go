package httpsig

import "net/http"

// StatusFor maps a VerifyErrorKind to the HTTP status callers should
// respond with, per the gating table: replay is a conflict, skew and
// malformed input are client errors, everything crypto-related is
// unauthorized.
func StatusFor(kind VerifyErrorKind) int {
	switch kind {
	case KindReplay:
		return http.StatusConflict
	case KindSkew, KindMissing, KindBadFormat:
		return http.StatusBadRequest
	case KindSignature, KindOther:
		return http.StatusUnauthorized
	default:
		return http.StatusUnauthorized
	}
}
