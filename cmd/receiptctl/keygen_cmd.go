package main

import (
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vaultmesh/covenant/pkg/crypto"
	"github.com/vaultmesh/covenant/pkg/integrity"
)

// runKeygenCmd implements `receiptctl keygen`: an Ed25519 keypair for
// signing HTTP callbacks, or an OpenPGP operator key for signing receipts.
//
// Exit codes:
//
//	0 = keys written
//	2 = runtime or usage error
func runKeygenCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keygen", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		keyType string
		keyID   string
		userID  string
		outDir  string
	)
	cmd.StringVar(&keyType, "type", "ed25519", "Key type: ed25519 or pgp")
	cmd.StringVar(&keyID, "keyid", "default", "keyid value for an ed25519 key (used in Signature-Input)")
	cmd.StringVar(&userID, "userid", "covenant operator", "User ID string for a pgp key")
	cmd.StringVar(&outDir, "out", ".", "Directory to write key files into")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	switch keyType {
	case "ed25519":
		return keygenEd25519(stdout, stderr, outDir, keyID)
	case "pgp":
		return keygenPGP(stdout, stderr, outDir, userID)
	default:
		_, _ = fmt.Fprintf(stderr, "Error: unknown -type %q (want ed25519 or pgp)\n", keyType)
		return 2
	}
}

func keygenEd25519(stdout, stderr io.Writer, outDir, keyID string) int {
	kp, err := crypto.GenerateKeyPair(keyID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	der, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: marshaling private key: %v\n", err)
		return 2
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	pubDER, err := x509.MarshalPKIXPublicKey(kp.Public)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: marshaling public key: %v\n", err)
		return 2
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	privPath := outDir + "/" + keyID + ".key.pem"
	pubPath := outDir + "/" + keyID + ".pub.pem"
	if err := os.WriteFile(privPath, privPEM, 0600); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: writing %s: %v\n", privPath, err)
		return 2
	}
	if err := os.WriteFile(pubPath, pubPEM, 0644); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: writing %s: %v\n", pubPath, err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "wrote %s (private, mode 0600)\n", privPath)
	_, _ = fmt.Fprintf(stdout, "wrote %s\n", pubPath)
	_, _ = fmt.Fprintf(stdout, "keyid: %s\n", keyID)
	return 0
}

func keygenPGP(stdout, stderr io.Writer, outDir, userID string) int {
	entity, err := integrity.GenerateOperatorKey(userID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	pub, err := integrity.ExportPublicKey(entity)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: exporting public key: %v\n", err)
		return 2
	}
	priv, err := integrity.ExportPrivateKey(entity)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: exporting private key: %v\n", err)
		return 2
	}

	pubPath := outDir + "/operator.pub.asc"
	privPath := outDir + "/operator.key.asc"
	if err := os.WriteFile(privPath, priv, 0600); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: writing %s: %v\n", privPath, err)
		return 2
	}
	if err := os.WriteFile(pubPath, pub, 0644); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: writing %s: %v\n", pubPath, err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "wrote %s (private, mode 0600)\n", privPath)
	_, _ = fmt.Fprintf(stdout, "wrote %s\n", pubPath)
	_, _ = fmt.Fprintln(stdout, "pass -sign-key on `record` the private key path to sign receipts with it")
	return 0
}
