// Rfqd extracts line items from RFQ documents.
//
// The serve command starts the HTTP server: document ingestion (PDF, image,
// plain text), PII masking, AI extraction, rule-based confidence scoring,
// and verification of borderline items. The corrections command inspects
// the learned-correction store.
//
// Configuration is loaded from an optional YAML file plus section-prefixed
// environment variables (ORACLE_API_KEY, SERVER_HTTP_PORT, ...). See
// internal/config for details.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath is the optional YAML config file, shared by all subcommands.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rfqd",
	Short: "RFQ line-item extraction service",
	Long: `rfqd extracts structured line items from supplier RFQ documents.

It ingests PDFs, scans, and plain text, masks PII before any external AI
call, scores every extracted item with deterministic rules, and escalates
borderline items to a second verification pass.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(correctionsCmd)
}
