package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/vaultmesh/covenant/pkg/artifacts"
	"github.com/vaultmesh/covenant/pkg/config"
	"github.com/vaultmesh/covenant/pkg/integrity"
	"github.com/vaultmesh/covenant/pkg/receipt"
)

// runRecordCmd implements `receiptctl record`.
//
// Exit codes:
//
//	0 = receipt recorded
//	2 = runtime or usage error
func runRecordCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("record", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		component    string
		version      string
		artifactPath string
		sha256Hex    string
		target       string
		failed       bool
		contextJSON  string
		signKeyPath  string
		signPassword string
		timestamp    bool
		tsaURL       string
	)

	cmd.StringVar(&component, "component", "", "Component name (REQUIRED)")
	cmd.StringVar(&version, "version", "", "Component version (REQUIRED)")
	cmd.StringVar(&artifactPath, "artifact", "", "Path to the artifact file to hash")
	cmd.StringVar(&sha256Hex, "sha256", "", "Hex SHA-256 digest, if the artifact isn't local")
	cmd.StringVar(&target, "target", "", "Deployment target (e.g. production, staging)")
	cmd.BoolVar(&failed, "failed", false, "Mark the deployment outcome as failed")
	cmd.StringVar(&contextJSON, "context", "", "Context sidecar as a JSON object")
	cmd.StringVar(&signKeyPath, "sign-key", "", "Armored OpenPGP private key to sign the receipt")
	cmd.StringVar(&signPassword, "sign-password", "", "Passphrase for -sign-key, if encrypted")
	cmd.BoolVar(&timestamp, "timestamp", false, "Request an RFC 3161 timestamp token")
	cmd.StringVar(&tsaURL, "tsa-url", "", "TSA URL override (defaults to config/TSA_URL)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if component == "" || version == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -component and -version are required")
		return 2
	}
	if _, err := semver.NewVersion(version); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: -version %q is not valid semver: %v\n", version, err)
		return 2
	}

	digest, err := artifactDigest(context.Background(), artifactPath, sha256Hex)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	r := receipt.Receipt{
		Component:    component,
		Version:      version,
		Artifact:     receipt.Artifact{SHA256: hex.EncodeToString(digest[:])},
		TimestampUTC: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Target:       target,
	}
	if failed {
		ok := false
		r.Outcome = &ok
	}
	if contextJSON != "" {
		var ctxVal map[string]interface{}
		if err := json.Unmarshal([]byte(contextJSON), &ctxVal); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: -context is not valid JSON: %v\n", err)
			return 2
		}
		r.Context = ctxVal
	}
	r.ID = receipt.MakeID(component, version, digest)

	cfg := config.Load()
	if tsaURL == "" {
		tsaURL = cfg.TSAURL
	}

	s, err := openStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	// receiptctl is one process per invocation, so pkg/receipt.Ledger's
	// in-memory tip tracking can't span runs; the chain's previous link is
	// instead the newest receipt the store already has for this component.
	if prior, perr := s.ByComponent(context.Background(), component); perr == nil && len(prior) > 0 {
		r.PrevReceiptID = prior[0].ID
		warnIfVersionRegressed(stderr, component, prior[0].Version, version)
	}

	if timestamp {
		token, err := integrity.RequestTimestamp(tsaURL, digest)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: timestamp request failed: %v\n", err)
			return 2
		}
		r.AttachTimestampToken(hex.EncodeToString(token))
	}

	if signKeyPath != "" {
		armored, err := os.ReadFile(signKeyPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: reading -sign-key: %v\n", err)
			return 2
		}
		ring, err := integrity.ImportKeyRing(armored)
		if err != nil || len(ring) == 0 {
			_, _ = fmt.Fprintf(stderr, "Error: parsing -sign-key: %v\n", err)
			return 2
		}
		sigBytes, err := signReceipt(ring[0], signPassword, r)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: signing receipt: %v\n", err)
			return 2
		}
		r.AttachSignature(string(sigBytes))
	}

	if err := s.Put(context.Background(), r); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: storing receipt: %v\n", err)
		return 2
	}

	canonical, err := r.ToCanonical()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: canonicalizing receipt: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintf(stdout, "recorded %s\n", r.ID)
	_, _ = fmt.Fprintln(stdout, string(canonical))
	return 0
}

// warnIfVersionRegressed logs (without failing the record) when the new
// version is not strictly newer than the component's last recorded one,
// since a rollback is sometimes intentional but usually worth flagging.
func warnIfVersionRegressed(stderr io.Writer, component, priorVersion, newVersion string) {
	prior, err := semver.NewVersion(priorVersion)
	if err != nil {
		return
	}
	next, err := semver.NewVersion(newVersion)
	if err != nil {
		return
	}
	if next.LessThan(prior) {
		_, _ = fmt.Fprintf(stderr, "Warning: %s version %s is older than its last recorded version %s\n", component, newVersion, priorVersion)
	}
}

func signReceipt(signer *openpgp.Entity, password string, r receipt.Receipt) ([]byte, error) {
	data, err := r.SigningBytes()
	if err != nil {
		return nil, err
	}
	return integrity.SignDetached(signer, password, data)
}

// artifactDigest hashes -artifact if given (local path, s3://, or gs://),
// otherwise decodes -sha256.
func artifactDigest(ctx context.Context, artifactPath, sha256Hex string) ([32]byte, error) {
	if artifactPath != "" {
		if strings.HasPrefix(artifactPath, "s3://") || strings.HasPrefix(artifactPath, "gs://") {
			data, err := artifacts.Resolve(ctx, artifactPath)
			if err != nil {
				return [32]byte{}, err
			}
			return sha256.Sum256(data), nil
		}

		f, err := os.Open(artifactPath)
		if err != nil {
			return [32]byte{}, fmt.Errorf("opening -artifact: %w", err)
		}
		defer f.Close()

		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return [32]byte{}, fmt.Errorf("hashing -artifact: %w", err)
		}
		var out [32]byte
		h.Sum(out[:0])
		return out, nil
	}

	if sha256Hex == "" {
		return [32]byte{}, fmt.Errorf("one of -artifact or -sha256 is required")
	}
	decoded, err := hex.DecodeString(sha256Hex)
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, fmt.Errorf("-sha256 must be 64 hex characters")
	}
	var out [32]byte
	copy(out[:], decoded)
	return out, nil
}
