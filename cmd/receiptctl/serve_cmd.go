package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vaultmesh/covenant/pkg/api"
	"github.com/vaultmesh/covenant/pkg/config"
	"github.com/vaultmesh/covenant/pkg/crypto"
	"github.com/vaultmesh/covenant/pkg/httpsig"
	"github.com/vaultmesh/covenant/pkg/noncestore"
	"github.com/vaultmesh/covenant/pkg/observability"
	"github.com/vaultmesh/covenant/pkg/receipt"
	"github.com/vaultmesh/covenant/pkg/store"
)

// callbackServer hosts the signed-callback endpoint: a caller POSTs a
// canonical receipt body with RFC 9421 Signature-Input/Signature headers,
// the server verifies it against a registered keyid, and persists the
// receipt.
type callbackServer struct {
	store   store.ReceiptStore
	keys    *crypto.KeyRing
	nonces  noncestore.Store
	opts    httpsig.VerifyOptions
	obs     *observability.Provider
	schemas *receipt.ContextSchemaRegistry
	policy  *config.SigningPolicy
	started time.Time
}

// runServeCmd implements `receiptctl serve`.
//
// Exit codes:
//
//	2 = setup failed before the server could start (ListenAndServe's own
//	    error is logged and also returns 2; a running server that is
//	    interrupted normally returns via os.Exit elsewhere)
func runServeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		addr           string
		trustedKeys    string
		requireNonce   bool
		rps            int
		burst          int
		contextSchemas string
		signingPolicy  string
	)
	cmd.StringVar(&addr, "addr", ":8080", "Address to listen on")
	cmd.StringVar(&trustedKeys, "trusted-keys", "", "Path to a JSON map of keyid -> base64 Ed25519 public key (REQUIRED)")
	cmd.BoolVar(&requireNonce, "require-nonce", true, "Reject signatures with no nonce parameter")
	cmd.IntVar(&rps, "rate-limit-rps", 20, "Per-IP requests/sec before a 429")
	cmd.IntVar(&burst, "rate-limit-burst", 40, "Per-IP burst size")
	cmd.StringVar(&contextSchemas, "context-schemas", "", "Directory of <component>.schema.json files validating receipt context")
	cmd.StringVar(&signingPolicy, "signing-policy", "", "YAML file restricting which keyids may sign which components")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if trustedKeys == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -trusted-keys is required")
		return 2
	}

	cfg := config.Load()

	keys, err := loadTrustedKeys(trustedKeys)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	s, err := openStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	schemas := receipt.NewContextSchemaRegistry()
	if contextSchemas != "" {
		if err := loadContextSchemas(schemas, contextSchemas); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	var policy *config.SigningPolicy
	if signingPolicy != "" {
		policy, err = config.LoadSigningPolicy(signingPolicy)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	var nonces noncestore.Store
	if cfg.RedisAddr != "" {
		nonces = noncestore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.NonceTTLSecs)
	} else {
		nonces = noncestore.NewMemoryStore(cfg.NonceTTLSecs)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = "covenant-receiptctl-serve"
	ctx := context.Background()
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: observability init: %v\n", err)
		return 2
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	srv := &callbackServer{
		store:  s,
		keys:   keys,
		nonces: nonces,
		opts: httpsig.VerifyOptions{
			MaxSkewSecs:  cfg.MaxSkewSecs,
			RequireNonce: requireNonce,
		},
		obs:     obs,
		schemas: schemas,
		policy:  policy,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/receipts", srv.handleReceipts)
	mux.HandleFunc("/receipts/", srv.handleReceiptByID)

	limiter := api.NewGlobalRateLimiter(rps, burst)
	handler := api.RequestIDMiddleware(limiter.Middleware(mux))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("receiptctl serve listening", "addr", addr, "store_driver", cfg.StoreDriver)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// loadContextSchemas registers <component>.schema.json files found directly
// in dir with the registry, keyed by filename stem.
func loadContextSchemas(reg *receipt.ContextSchemaRegistry, dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.schema.json"))
	if err != nil {
		return fmt.Errorf("listing -context-schemas: %w", err)
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		component := strings.TrimSuffix(filepath.Base(path), ".schema.json")
		if err := reg.Register(component, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func loadTrustedKeys(path string) (*crypto.KeyRing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading -trusted-keys: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing -trusted-keys: %w", err)
	}
	ring := crypto.NewKeyRing()
	for keyID, b64 := range raw {
		pub, err := decodeEd25519PublicKeyB64(b64)
		if err != nil {
			return nil, fmt.Errorf("-trusted-keys[%s]: %w", keyID, err)
		}
		ring.AddPublicKey(keyID, pub)
	}
	return ring, nil
}

func decodeEd25519PublicKeyB64(b64 string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("want %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func (s *callbackServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"uptime_sec": int(time.Since(s.started).Seconds()),
	})
}

// handleReceipts accepts a signed receipt POST and persists it.
func (s *callbackServer) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	ctx, done := s.obs.TrackOperation(r.Context(), "serve.receive_receipt")
	var verifyErr error
	defer func() { done(verifyErr) }()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		api.WriteBadRequest(w, "reading request body")
		return
	}

	expectedDigest := httpsig.ContentDigestSHA256(body)
	if r.Header.Get("content-digest") != expectedDigest {
		api.WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "content-digest does not match body")
		return
	}

	verifyErr = httpsig.VerifyRequestWith(r, s.keys.Resolver(), s.nonces, s.opts)
	if verifyErr != nil {
		var kind httpsig.VerifyErrorKind = httpsig.KindOther
		if ve, ok := verifyErr.(*httpsig.VerifyError); ok {
			kind = ve.Kind
		}
		api.WriteErrorR(w, r, httpsig.StatusFor(kind), "Signature Verification Failed", verifyErr.Error())
		return
	}

	rcpt, err := receipt.Parse(body)
	if err != nil {
		api.WriteBadRequest(w, "body is not a valid receipt: "+err.Error())
		return
	}

	if keyID, ok := httpsig.KeyIDFromRequest(r); ok && !s.policy.Allows(rcpt.Component, keyID) {
		api.WriteErrorR(w, r, http.StatusForbidden, "Signing Policy Violation", fmt.Sprintf("keyid %q is not permitted to sign %q", keyID, rcpt.Component))
		return
	}

	if err := s.schemas.Validate(rcpt); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	if err := s.store.Put(ctx, rcpt); err != nil {
		api.WriteInternal(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": rcpt.ID})
}

// handleReceiptByID serves GET /receipts/{id} unauthenticated read access,
// mirroring the console's public verify-by-id route.
func (s *callbackServer) handleReceiptByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w)
		return
	}
	id := r.URL.Path[len("/receipts/"):]
	if id == "" {
		api.WriteBadRequest(w, "missing receipt id")
		return
	}

	rcpt, ok, err := s.store.Get(r.Context(), id)
	if err != nil {
		api.WriteInternal(w, err)
		return
	}
	if !ok {
		api.WriteNotFound(w, "receipt not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rcpt)
}
