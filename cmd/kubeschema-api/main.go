// Package main is the entry point for the kubeschema API server.
package main

import (
	"os"

	"github.com/kubeschema/kubeschema/cmd/kubeschema-api/app"
	"github.com/kubeschema/kubeschema/internal/logger"
)

func main() {
	// Logs go to stderr so stdout stays clean for commands that output data
	// (e.g. version --format json, resolve --output json).
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
