package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/webform-converter/internal/config"
	"github.com/jonathan/webform-converter/internal/observability"
	"github.com/jonathan/webform-converter/internal/replay"
	"github.com/jonathan/webform-converter/internal/types"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a stored submission to the form's legacy endpoint",
	Long: `Builds the multipart payload for a submission of a converted form and posts it to the
legacy capture URL recorded in the form. Spam submissions are skipped.

Use --print-payload to write the payload to stdout instead of delivering it.`,
	RunE: runReplay,
}

var (
	replaySchemaFile     string
	replaySubmissionFile string
	replayInsecure       bool
	replayPrintPayload   bool
	replayConfigPath     string
	replayVerbose        bool
)

func init() {
	replayCmd.Flags().StringVar(&replayConfigPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	replayCmd.Flags().StringVarP(&replaySchemaFile, "schema", "s", "", "Path to the converted form schema JSON (required)")
	replayCmd.Flags().StringVar(&replaySubmissionFile, "submission", "", "Path to the submission JSON (required)")
	replayCmd.Flags().BoolVar(&replayInsecure, "insecure", false, "Skip TLS certificate verification for the legacy endpoint")
	replayCmd.Flags().BoolVar(&replayPrintPayload, "print-payload", false, "Print the multipart payload instead of posting it")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Print detailed debug information")

	_ = replayCmd.MarkFlagRequired("schema")
	_ = replayCmd.MarkFlagRequired("submission")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	cfg, err := loadSettings(replayConfigPath, replayVerbose, out)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("insecure") {
		cfg.InsecureSkipVerify = replayInsecure
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = replayVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Config{})

	var schema types.FormSchema
	if err := readJSONFile(replaySchemaFile, &schema); err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	var submission types.Submission
	if err := readJSONFile(replaySubmissionFile, &submission); err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}

	replayer := replay.New(&replay.Options{
		Timeout:            cfg.ReplayTimeout(),
		Boundary:           cfg.ReplayBoundary,
		Headers:            cfg.ReplayHeaders,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})

	printer := observability.NewPrinter(out)
	if cfg.Verbose {
		printer.PrintFormSchema(&schema)
	}

	if replayPrintPayload {
		payload, err := replayer.BuildPayload(ctx, &schema, &submission)
		if err != nil {
			return fmt.Errorf("failed to build payload: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Content-Type: %s\n\n", payload.ContentType)
		_, _ = out.Write(payload.Body)
		return nil
	}

	result, err := replayer.Replay(ctx, &schema, &submission)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	printer.PrintReplayResult(string(result.Status), result.URL, result.StatusCode)
	return nil
}

func readJSONFile(path string, v any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}
