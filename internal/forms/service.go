package forms

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/matching"
	"github.com/jonathan/webform-converter/internal/types"
)

// ImportStatus tells whether an import created a form or refreshed one.
type ImportStatus string

const (
	StatusCreated ImportStatus = "created"
	StatusUpdated ImportStatus = "updated"
)

// HoneypotAction is the honeypot action set on newly created forms.
const HoneypotAction = "spam"

// Converter turns raw webform HTML into a form schema.
type Converter interface {
	Convert(rawHTML string) (*types.FormSchema, error)
}

// FormTransformer adjusts form metadata before a new form is stored.
type FormTransformer interface {
	TransformForm(schema *types.FormSchema) error
}

// FormTransformerFunc adapts a function to FormTransformer.
type FormTransformerFunc func(schema *types.FormSchema) error

// TransformForm calls f(schema).
func (f FormTransformerFunc) TransformForm(schema *types.FormSchema) error {
	return f(schema)
}

// ImportResult describes the outcome of a successful import.
type ImportResult struct {
	Status ImportStatus      `json:"status"`
	FormID uuid.UUID         `json:"form_id"`
	Schema *types.FormSchema `json:"schema"`
}

// Service converts webforms and creates or updates the matching stored form.
type Service struct {
	converter    Converter
	store        Store
	transformers []FormTransformer
}

// NewService wires a converter to a store.
func NewService(converter Converter, store Store, transformers ...FormTransformer) *Service {
	return &Service{
		converter:    converter,
		store:        store,
		transformers: transformers,
	}
}

// Import converts rawHTML and persists the result. A stored form sharing the
// new schema's public id has its field list replaced; otherwise a new form
// is created with the honeypot enabled. Conversion errors are returned
// unchanged and no storage call is made.
func (s *Service) Import(ctx context.Context, rawHTML string) (*ImportResult, error) {
	schema, err := s.converter.Convert(rawHTML)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListForms(ctx)
	if err != nil {
		return nil, &StorageError{Operation: "list", Cause: err}
	}

	match := matching.FindExisting(schema, existing)
	if match.Matched {
		if err := s.store.UpdateFormFields(ctx, match.ExistingID, schema.Fields); err != nil {
			return nil, &StorageError{Operation: "update", Cause: err}
		}
		log.Printf("[IMPORT] Updated form %s (%q, %d fields)", match.ExistingID, schema.Title, len(schema.Fields))
		return &ImportResult{Status: StatusUpdated, FormID: match.ExistingID, Schema: schema}, nil
	}

	schema.EnableHoneypot = true
	schema.HoneypotAction = HoneypotAction
	for _, t := range s.transformers {
		if err := t.TransformForm(schema); err != nil {
			return nil, fmt.Errorf("form transformer failed: %w", err)
		}
	}

	id, err := s.store.CreateForm(ctx, *schema)
	if err != nil {
		return nil, &StorageError{Operation: "create", Cause: err}
	}
	log.Printf("[IMPORT] Created form %s (%q, %d fields)", id, schema.Title, len(schema.Fields))
	return &ImportResult{Status: StatusCreated, FormID: id, Schema: schema}, nil
}
