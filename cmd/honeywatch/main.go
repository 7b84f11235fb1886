// Package main is the entry point for the honeywatch CLI.
//
// Usage:
//
//	honeywatch                      # Start the dashboard
//	honeywatch once -o json         # Run one poll cycle and print the state
//	honeywatch candidates --probe   # Show and health-check candidate endpoints
//	honeywatch version              # Show version info
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information, set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2024-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "honeywatch: %v\n", err)
		return 1
	}
	return 0
}
