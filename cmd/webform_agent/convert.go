package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/webform-converter/internal/config"
	"github.com/jonathan/webform-converter/internal/conversion"
	"github.com/jonathan/webform-converter/internal/db"
	"github.com/jonathan/webform-converter/internal/fetch"
	"github.com/jonathan/webform-converter/internal/forms"
	"github.com/jonathan/webform-converter/internal/observability"
	"github.com/jonathan/webform-converter/internal/schemas"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a legacy webform into a form-builder schema",
	Long: `Converts legacy CRM webform HTML into a form-builder schema and creates or updates the
stored form. A form whose publicid matches an existing form replaces that form's fields.

The webform is read from a file (--in) or fetched from a page (--url). Use --dry-run to
convert without touching the database.`,
	RunE: runConvert,
}

var (
	convertInputFile   string
	convertURL         string
	convertUseBrowser  bool
	convertOutputFile  string
	convertDatabaseURL string
	convertDryRun      bool
	convertConfigPath  string
	convertVerbose     bool
)

func init() {
	convertCmd.Flags().StringVar(&convertConfigPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	convertCmd.Flags().StringVarP(&convertInputFile, "in", "i", "", "Path to a webform HTML file (mutually exclusive with --url)")
	convertCmd.Flags().StringVar(&convertURL, "url", "", "URL of a page containing the webform (mutually exclusive with --in)")
	convertCmd.Flags().BoolVar(&convertUseBrowser, "browser", false, "Render the page in a headless browser when it has no static form (requires Chrome)")
	convertCmd.Flags().StringVarP(&convertOutputFile, "out", "o", "", "Path to write the converted schema JSON")
	convertCmd.Flags().StringVar(&convertDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "Convert against an empty in-memory store instead of the database")
	convertCmd.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	cfg, err := loadSettings(convertConfigPath, convertVerbose, out)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("browser") {
		cfg.UseBrowser = convertUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = convertVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = convertDatabaseURL
	}
	cfg = cfg.MergeWithDefaults(config.Config{})

	if convertInputFile == "" && convertURL == "" {
		return fmt.Errorf("either --in or --url must be provided")
	}
	if convertInputFile != "" && convertURL != "" {
		return fmt.Errorf("--in and --url are mutually exclusive; provide only one")
	}

	rawHTML, err := readWebform(ctx, cfg)
	if err != nil {
		return err
	}

	var store forms.Store
	if convertDryRun {
		store = forms.NewMemoryStore()
	} else {
		dbURL := databaseURL(cfg.DatabaseURL)
		if dbURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required (or use --dry-run)")
		}
		database, err := db.Connect(ctx, dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		store = database
	}

	converter := conversion.NewConverter(&conversion.Options{
		MaxFileSizeMB:     cfg.MaxFileSizeMB,
		AllowedExtensions: cfg.AllowedExtensions,
	}, nil)

	result, err := forms.NewService(converter, store).Import(ctx, rawHTML)
	if err != nil {
		return fmt.Errorf("failed to convert webform: %w", err)
	}

	printer := observability.NewPrinter(out)
	if cfg.Verbose {
		printer.PrintFormSchema(result.Schema)
	}
	printer.PrintImportResult(string(result.Status), result.FormID)

	if convertOutputFile != "" {
		if err := writeSchema(convertOutputFile, result); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Output: %s\n", convertOutputFile)
	}

	return nil
}

// readWebform returns the markup of the first form in the input file or page.
func readWebform(ctx context.Context, cfg config.Config) (string, error) {
	var page string
	if convertInputFile != "" {
		content, err := os.ReadFile(convertInputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		page = string(content)
	} else {
		opts := fetch.DefaultOptions()
		opts.InsecureSkipVerify = cfg.InsecureSkipVerify
		html, err := fetch.Page(ctx, convertURL, opts, cfg.UseBrowser, cfg.Verbose)
		if err != nil {
			return "", fmt.Errorf("failed to fetch webform: %w", err)
		}
		page = html
	}

	form, err := fetch.ExtractForm(page)
	if err != nil {
		var noForm *fetch.NoFormError
		if errors.As(err, &noForm) {
			// The converter reports the missing form with its own error.
			return page, nil
		}
		return "", err
	}
	return form, nil
}

// writeSchema writes the schema JSON and validates the file against the form
// schema definition.
func writeSchema(path string, result *forms.ImportResult) error {
	jsonBytes, err := json.MarshalIndent(result.Schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if err := schemas.ValidateFormSchemaFile(path); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("generated JSON does not validate against schema: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Could not validate output against schema: %v\n", err)
	}
	return nil
}
