package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/vaultmesh/covenant/pkg/config"
	"github.com/vaultmesh/covenant/pkg/receipt"
)

// runQueryCmd implements `receiptctl query`.
//
// Exit codes:
//
//	0 = query succeeded (even if no rows matched)
//	1 = -id was given and no receipt was found
//	2 = runtime or usage error
func runQueryCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("query", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		id        string
		component string
		all       bool
	)
	cmd.StringVar(&id, "id", "", "Look up a single receipt by ID")
	cmd.StringVar(&component, "component", "", "List receipts for a component, newest first")
	cmd.BoolVar(&all, "all", false, "List every stored receipt, newest first")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	s, err := openStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	ctx := context.Background()

	switch {
	case id != "":
		r, ok, err := s.Get(ctx, id)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if !ok {
			_, _ = fmt.Fprintf(stderr, "not found: %s\n", id)
			return 1
		}
		return printReceipts(stdout, stderr, []receipt.Receipt{r})
	case component != "":
		rs, err := s.ByComponent(ctx, component)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		return printReceipts(stdout, stderr, rs)
	case all:
		rs, err := s.All(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		return printReceipts(stdout, stderr, rs)
	default:
		_, _ = fmt.Fprintln(stderr, "Error: one of -id, -component, or -all is required")
		return 2
	}
}

func printReceipts(stdout, stderr io.Writer, rs []receipt.Receipt) int {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}
