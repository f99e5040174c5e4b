// Package main provides the entry point for the webform converter CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "webform_agent",
	Short: "Legacy CRM webform converter",
	Long: `webform_agent converts legacy CRM webform HTML into form-builder schemas, stores them,
and replays collected submissions to the legacy capture endpoint.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
