// Package main is the entry point for the nucleon command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	a := newApp(os.Stdout, os.Stderr, wd)
	return a.execute(ctx, os.Args[1:])
}
