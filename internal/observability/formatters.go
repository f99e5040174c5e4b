// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 12
	// maxChoicesToShow bounds the choices listed per field
	maxChoicesToShow = 3
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintFormSchema outputs a human-readable summary of a converted form.
func (p *Printer) PrintFormSchema(schema *types.FormSchema) {
	if schema == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", schema.Title))
	if url, ok := schema.LegacyPostURL(); ok {
		sb.WriteString(fmt.Sprintf("Endpoint: %s\n", url))
	}
	if publicID, ok := schema.PublicID(); ok {
		sb.WriteString(fmt.Sprintf("PublicID: %s\n", publicID))
	}
	if text, ok := schema.SubmitButtonText(); ok {
		sb.WriteString(fmt.Sprintf("Button:   %s\n", text))
	}
	sb.WriteString(fmt.Sprintf("Fields:   %d\n", len(schema.Fields)))

	if len(schema.Fields) > 0 {
		sb.WriteString("\n")
	}
	count := min(len(schema.Fields), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(formatField(schema.Fields[i]))
	}
	if len(schema.Fields) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(schema.Fields)-maxItemsToShow))
	}

	p.printBox("CONVERTED FORM", strings.TrimSuffix(sb.String(), "\n"))
}

func formatField(field types.FieldSpec) string {
	var sb strings.Builder

	required := ""
	if field.IsRequired {
		required = " *"
	}
	sb.WriteString(fmt.Sprintf("  %2d %-11s %s%s\n", field.ID, field.Type, field.AdminLabel, required))

	if len(field.Choices) > 0 {
		values := make([]string, 0, maxChoicesToShow)
		for i := 0; i < min(len(field.Choices), maxChoicesToShow); i++ {
			values = append(values, field.Choices[i].Text)
		}
		line := strings.Join(values, ", ")
		if len(field.Choices) > maxChoicesToShow {
			line += fmt.Sprintf(", +%d", len(field.Choices)-maxChoicesToShow)
		}
		sb.WriteString(fmt.Sprintf("      [%s]\n", line))
	}
	return sb.String()
}

// PrintImportResult outputs whether a form was created or updated.
func (p *Printer) PrintImportResult(status string, formID uuid.UUID) {
	content := fmt.Sprintf("Status:   %s\nForm ID:  %s", status, formID)
	p.printBox("FORM STORAGE", content)
}

// PrintReplayResult outputs the outcome of a replay attempt.
func (p *Printer) PrintReplayResult(status, url string, statusCode int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:   %s\n", status))
	if url != "" {
		sb.WriteString(fmt.Sprintf("Endpoint: %s\n", url))
	}
	if statusCode > 0 {
		sb.WriteString(fmt.Sprintf("HTTP:     %d\n", statusCode))
	}
	p.printBox("SUBMISSION REPLAY", strings.TrimSuffix(sb.String(), "\n"))
}

// truncate shortens s to width runes, ending with "..." when cut.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
