// Package main implements the reflections command. It submits the weekly
// reflection batch, polls outstanding batches to completion, cleans up old
// jobs and serves the read-only admin API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
