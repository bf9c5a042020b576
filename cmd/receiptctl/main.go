// Command receiptctl issues, stores, verifies, and serves deployment
// receipts: tamper-evident records binding a named component+version to an
// artifact digest, with optional operator signatures, trusted timestamps,
// and Merkle inclusion proofs.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing: it dispatches on args[1] and returns a
// process exit code instead of calling os.Exit directly.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "record":
		return runRecordCmd(args[2:], stdout, stderr)
	case "query":
		return runQueryCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "serve":
		return runServeCmd(args[2:], stdout, stderr)
	case "keygen":
		return runKeygenCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "receiptctl — deployment receipts & signed callbacks")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "USAGE:")
	_, _ = fmt.Fprintln(w, "  receiptctl <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "COMMANDS:")
	_, _ = fmt.Fprintln(w, "  record   Build, sign, timestamp, and persist a receipt")
	_, _ = fmt.Fprintln(w, "  query    Look up stored receipts by id, component, or all")
	_, _ = fmt.Fprintln(w, "  verify   Verify a stored receipt's signature, timestamp, and proof")
	_, _ = fmt.Fprintln(w, "  serve    Host the signed-callback HTTP endpoint")
	_, _ = fmt.Fprintln(w, "  keygen   Generate an Ed25519 callback keypair or an OpenPGP operator key")
	_, _ = fmt.Fprintln(w, "  help     Show this help")
}
