package replay

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jonathan/webform-converter/internal/sanitize"
	"github.com/jonathan/webform-converter/internal/types"
)

// Part is one multipart section of the replayed payload.
type Part struct {
	Name        string
	Value       string
	FileName    string
	ContentType string
	Content     []byte
}

// IsFile reports whether the part carries file content.
func (p *Part) IsFile() bool {
	return p.FileName != ""
}

// File is an uploaded file fetched before the payload is built.
type File struct {
	Name    string
	Content []byte
}

// FieldInput is what a Formatter sees for one field.
type FieldInput struct {
	Field  types.FieldSpec
	Values url.Values
	// File is the downloaded upload for the field, nil when none was stored.
	File *File
}

// Key returns the posted value key for the field, with optional sub-input
// suffixes, e.g. input_4 or input_4_1.
func (in FieldInput) Key(sub ...int) string {
	key := "input_" + strconv.Itoa(in.Field.ID)
	for _, s := range sub {
		key += "_" + strconv.Itoa(s)
	}
	return key
}

// Formatter renders one field of a submission. A nil part omits the field.
type Formatter interface {
	Format(in FieldInput) (*Part, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(in FieldInput) (*Part, error)

// Format calls f(in).
func (f FormatterFunc) Format(in FieldInput) (*Part, error) {
	return f(in)
}

// DefaultFormatters returns the formatters for kinds needing special
// handling. Other kinds use TextFormatter.
func DefaultFormatters() map[types.FieldKind]Formatter {
	return map[types.FieldKind]Formatter{
		types.KindDate:       FormatterFunc(formatDate),
		types.KindTime:       FormatterFunc(formatTime),
		types.KindCheckbox:   FormatterFunc(formatCheckbox),
		types.KindFileUpload: FormatterFunc(formatUpload),
	}
}

// TextFormatter posts the sanitized text of input_<id>.
var TextFormatter Formatter = FormatterFunc(formatText)

func formatText(in FieldInput) (*Part, error) {
	return &Part{Name: in.Field.AdminLabel, Value: sanitize.Text(in.Values.Get(in.Key()))}, nil
}

// formatDate joins the dropdown parts with dashes. An empty first part falls
// back to the plain text value.
func formatDate(in FieldInput) (*Part, error) {
	parts := in.Values[in.Key()]
	if len(parts) == 0 || parts[0] == "" {
		return formatText(in)
	}
	return &Part{Name: in.Field.AdminLabel, Value: strings.Join(parts, "-")}, nil
}

// formatTime renders [hh, mm, am|pm] as 24h HH:MM.
func formatTime(in FieldInput) (*Part, error) {
	parts := in.Values[in.Key()]
	hour, minute := 0, 0
	if len(parts) > 0 {
		hour, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	}
	if len(parts) > 1 {
		minute, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	if len(parts) > 2 {
		switch strings.ToLower(strings.TrimSpace(parts[2])) {
		case "am":
			if hour == 12 {
				hour = 0
			}
		case "pm":
			if hour != 12 {
				hour += 12
			}
		}
	}
	return &Part{Name: in.Field.AdminLabel, Value: fmt.Sprintf("%02d:%02d", hour, minute)}, nil
}

func formatCheckbox(in FieldInput) (*Part, error) {
	value := "0"
	if sanitize.Text(in.Values.Get(in.Key(1))) != "" {
		value = "1"
	}
	return &Part{Name: in.Field.AdminLabel, Value: value}, nil
}

func formatUpload(in FieldInput) (*Part, error) {
	if in.File == nil {
		return nil, nil
	}
	return &Part{
		Name:        in.Field.AdminLabel,
		FileName:    in.File.Name,
		ContentType: detectContentType(in.File.Content),
		Content:     in.File.Content,
	}, nil
}

// detectContentType sniffs the MIME type without parameters.
func detectContentType(content []byte) string {
	mediaType, _, _ := strings.Cut(mimetype.Detect(content).String(), ";")
	return strings.TrimSpace(mediaType)
}
