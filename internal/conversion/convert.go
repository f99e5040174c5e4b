package conversion

import (
	"strings"

	"github.com/jonathan/webform-converter/internal/htmltree"
	"github.com/jonathan/webform-converter/internal/sanitize"
	"github.com/jonathan/webform-converter/internal/schemas"
	"github.com/jonathan/webform-converter/internal/types"
)

// Sanitizer cleans pasted markup before it is parsed.
type Sanitizer interface {
	Sanitize(raw string) string
}

// Converter turns raw webform markup into a form schema.
type Converter struct {
	sanitizer Sanitizer
	builder   *Builder
}

// NewConverter creates a converter. A nil sanitizer uses the default webform
// allow-list and a nil opts uses DefaultOptions.
func NewConverter(opts *Options, sanitizer Sanitizer) *Converter {
	if sanitizer == nil {
		sanitizer = sanitize.New()
	}
	return &Converter{
		sanitizer: sanitizer,
		builder:   NewBuilder(opts),
	}
}

// Convert sanitizes, parses and classifies the markup. Any structural
// problem aborts the conversion; a partial schema is never returned.
func (c *Converter) Convert(rawHTML string) (*types.FormSchema, error) {
	clean := c.sanitizer.Sanitize(rawHTML)
	if strings.TrimSpace(clean) == "" {
		return nil, &EmptyInputError{}
	}

	root := htmltree.Build(clean)

	schema, err := c.builder.Build(root)
	if err != nil {
		return nil, err
	}

	if err := schema.Validate(); err != nil {
		return nil, &InvalidSchemaError{Cause: err}
	}
	if err := schemas.ValidateFormSchema(schema); err != nil {
		return nil, &InvalidSchemaError{Cause: err}
	}

	return schema, nil
}
