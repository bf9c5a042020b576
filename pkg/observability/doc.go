// Package observability provides OpenTelemetry tracing and RED (Rate,
// Errors, Duration) metric helpers. In this module, receiptctl serve wraps
// its signed-receipt handler (HTTP signature verification included) with
// TrackOperation; receipt signing and Merkle root computation are not
// instrumented.
//
// Initialize a Provider at application startup:
//
//	p, err := observability.New(ctx, observability.DefaultConfig())
//	defer p.Shutdown(ctx)
//
// Wrap an operation with TrackOperation to get a span, an active-operation
// gauge, a request counter, and a duration histogram all in one call:
//
//	ctx, done := p.TrackOperation(ctx, "httpsig.verify_request")
//	err := httpsig.VerifyRequestWith(req, resolve, nonces, opts)
//	done(err)
package observability
