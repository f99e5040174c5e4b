package conversion

import (
	"github.com/jonathan/webform-converter/internal/htmltree"
	"github.com/jonathan/webform-converter/internal/types"
)

const (
	// DefaultMaxFileSizeMB is the upload size limit applied to file fields.
	DefaultMaxFileSizeMB = 5
	// DefaultAllowedExtensions is the extension list applied to file fields.
	DefaultAllowedExtensions = "pdf,doc,docx,jpg,jpeg,png"
)

// FieldTransformer adjusts a classified field before it is added to the schema.
// The element is the resolved input, textarea or select node of the row.
type FieldTransformer interface {
	TransformField(field types.FieldSpec, element *htmltree.Node) (types.FieldSpec, error)
}

// FieldTransformerFunc adapts a function to FieldTransformer.
type FieldTransformerFunc func(field types.FieldSpec, element *htmltree.Node) (types.FieldSpec, error)

// TransformField calls f.
func (f FieldTransformerFunc) TransformField(field types.FieldSpec, element *htmltree.Node) (types.FieldSpec, error) {
	return f(field, element)
}

// Options configures classification.
type Options struct {
	MaxFileSizeMB     int
	AllowedExtensions string
	// KindTransformers run first, only for fields of the given kind.
	KindTransformers map[types.FieldKind][]FieldTransformer
	// Transformers run for every row field.
	Transformers []FieldTransformer
}

// DefaultOptions returns the converter defaults.
func DefaultOptions() *Options {
	return &Options{
		MaxFileSizeMB:     DefaultMaxFileSizeMB,
		AllowedExtensions: DefaultAllowedExtensions,
	}
}

func (o *Options) normalize() *Options {
	if o == nil {
		return DefaultOptions()
	}
	result := *o
	if result.MaxFileSizeMB <= 0 {
		result.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	if result.AllowedExtensions == "" {
		result.AllowedExtensions = DefaultAllowedExtensions
	}
	return &result
}

func (o *Options) transform(field types.FieldSpec, element *htmltree.Node) (types.FieldSpec, error) {
	var err error
	for _, t := range o.KindTransformers[field.Type] {
		if field, err = t.TransformField(field, element); err != nil {
			return field, &TransformError{FieldID: field.ID, Cause: err}
		}
	}
	for _, t := range o.Transformers {
		if field, err = t.TransformField(field, element); err != nil {
			return field, &TransformError{FieldID: field.ID, Cause: err}
		}
	}
	return field, nil
}
