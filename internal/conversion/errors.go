// Package conversion turns legacy webform markup into a form-builder schema.
package conversion

import "fmt"

// EmptyInputError is returned when the sanitized markup has no content.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "conversion failed: webform markup is empty"
}

// StructuralError reports markup that does not have the table-row shape the
// converter relies on. The whole conversion is aborted when it occurs.
type StructuralError struct {
	Path    string
	Message string
}

func (e *StructuralError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("structural error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("structural error: %s", e.Message)
}

// InvalidSchemaError wraps a failed validation of the produced schema.
type InvalidSchemaError struct {
	Cause error
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("converted schema is invalid: %v", e.Cause)
}

func (e *InvalidSchemaError) Unwrap() error {
	return e.Cause
}

// TransformError wraps a failure returned by a field transformer.
type TransformError struct {
	FieldID int
	Cause   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("field transformer failed for field %d: %v", e.FieldID, e.Cause)
}

func (e *TransformError) Unwrap() error {
	return e.Cause
}
