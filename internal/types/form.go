// Package types provides type definitions for structured data used throughout the webform converter.
package types

import (
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FieldKind identifies the form-builder field type. Values match the
// destination platform's field "type" keys.
type FieldKind string

const (
	KindHidden      FieldKind = "hidden"
	KindText        FieldKind = "text"
	KindEmail       FieldKind = "email"
	KindPhone       FieldKind = "phone"
	KindWebsite     FieldKind = "website"
	KindTextarea    FieldKind = "textarea"
	KindCheckbox    FieldKind = "checkbox"
	KindSelect      FieldKind = "select"
	KindMultiSelect FieldKind = "multiselect"
	KindDate        FieldKind = "date"
	KindFileUpload  FieldKind = "fileupload"
	// KindTime is never produced by the converter. Stored forms may carry it
	// after being edited on the platform, so replay understands it.
	KindTime FieldKind = "time"
)

// Reserved admin labels.
const (
	// LegacyPostURLLabel marks the hidden field that holds the legacy endpoint URL.
	LegacyPostURLLabel = "vtiger_POST_url"
	// PublicIDLabel marks the hidden field whose value identifies a legacy form.
	PublicIDLabel = "publicid"
)

// FieldSizeLarge is the size applied to every generated field except uploads.
const FieldSizeLarge = "large"

// Choice is one option of a select, multiselect or checkbox field.
type Choice struct {
	Text       string `json:"text"`
	Value      string `json:"value"`
	IsSelected bool   `json:"isSelected,omitempty"`
}

// FieldSpec describes one form field in the form-builder's field format.
// Optional keys are pointers so that "absent" and "empty" stay distinct.
type FieldSpec struct {
	Type              FieldKind `json:"type" validate:"required,oneof=hidden text email phone website textarea checkbox select multiselect date fileupload time"`
	ID                int       `json:"id" validate:"min=1"`
	Label             *string   `json:"label,omitempty"`
	AdminLabel        string    `json:"adminLabel"`
	DefaultValue      *string   `json:"defaultValue,omitempty"`
	IsRequired        bool      `json:"isRequired"`
	Size              string    `json:"size,omitempty"`
	Placeholder       *string   `json:"placeholder,omitempty"`
	Choices           []Choice  `json:"choices,omitempty" validate:"dive"`
	MultipleFiles     *bool     `json:"multipleFiles,omitempty"`
	MaxFileSize       int       `json:"maxFileSize,omitempty" validate:"min=0"`
	AllowedExtensions string    `json:"allowedExtensions,omitempty"`
	DateType          string    `json:"dateType,omitempty"`
	DateFormat        string    `json:"dateFormat,omitempty"`
}

// LabelText returns the label or "" when the field has none.
func (f FieldSpec) LabelText() string {
	if f.Label == nil {
		return ""
	}
	return *f.Label
}

// Default returns the default value or "" when the field has none.
func (f FieldSpec) Default() string {
	if f.DefaultValue == nil {
		return ""
	}
	return *f.DefaultValue
}

// PlaceholderText returns the placeholder or "" when the field has none.
func (f FieldSpec) PlaceholderText() string {
	if f.Placeholder == nil {
		return ""
	}
	return *f.Placeholder
}

// Button is the form's submit button definition.
type Button struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FormSchema is the converted form definition handed to form storage.
type FormSchema struct {
	Title          string      `json:"title" validate:"required"`
	Button         *Button     `json:"button,omitempty"`
	Fields         []FieldSpec `json:"fields" validate:"dive"`
	EnableHoneypot bool        `json:"enableHoneypot,omitempty"`
	HoneypotAction string      `json:"honeypotAction,omitempty"`
}

// SubmitButtonText returns the submit button text and whether one was set.
func (s *FormSchema) SubmitButtonText() (string, bool) {
	if s.Button == nil {
		return "", false
	}
	return s.Button.Text, true
}

// SetSubmitButtonText sets a text button.
func (s *FormSchema) SetSubmitButtonText(text string) {
	s.Button = &Button{Type: "text", Text: text}
}

// FieldByAdminLabel returns the first field carrying the given admin label.
func (s *FormSchema) FieldByAdminLabel(adminLabel string) (*FieldSpec, bool) {
	for i := range s.Fields {
		if s.Fields[i].AdminLabel == adminLabel {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// LegacyPostURL returns the URL stored in the reserved legacy endpoint field.
func (s *FormSchema) LegacyPostURL() (string, bool) {
	field, ok := s.FieldByAdminLabel(LegacyPostURLLabel)
	if !ok {
		return "", false
	}
	return field.Default(), true
}

// PublicID returns the value of the reserved public id field.
func (s *FormSchema) PublicID() (string, bool) {
	field, ok := s.FieldByAdminLabel(PublicIDLabel)
	if !ok {
		return "", false
	}
	return field.Default(), true
}

// Validate validates the FormSchema using the validator and checks that field
// ids are unique.
func (s *FormSchema) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return err
	}
	seen := make(map[int]bool, len(s.Fields))
	for _, field := range s.Fields {
		if seen[field.ID] {
			return &DuplicateFieldIDError{ID: field.ID}
		}
		seen[field.ID] = true
	}
	return nil
}

// StoredForm is a form schema persisted by form storage.
type StoredForm struct {
	ID        uuid.UUID  `json:"id"`
	Schema    FormSchema `json:"schema"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SubmissionStatusSpam marks an entry flagged by the platform's spam check.
const SubmissionStatusSpam = "spam"

// Submission is one submitted entry of a stored form.
type Submission struct {
	ID     uuid.UUID `json:"id"`
	FormID uuid.UUID `json:"form_id"`
	Status string    `json:"status,omitempty"`
	// Values holds the posted values keyed input_<id> or input_<id>_<sub>.
	Values url.Values `json:"values"`
	// Uploads maps an upload field id to the stored file's URL.
	Uploads map[int]string `json:"uploads,omitempty"`
}

// IsSpam reports whether the platform flagged the entry as spam.
func (s *Submission) IsSpam() bool {
	return s.Status == SubmissionStatusSpam
}

// Clone returns a deep copy of the field.
func (f FieldSpec) Clone() FieldSpec {
	f.Label = clonePtr(f.Label)
	f.DefaultValue = clonePtr(f.DefaultValue)
	f.Placeholder = clonePtr(f.Placeholder)
	f.MultipleFiles = clonePtr(f.MultipleFiles)
	if f.Choices != nil {
		f.Choices = append([]Choice(nil), f.Choices...)
	}
	return f
}

// Clone returns a deep copy of the schema that shares no memory with s.
func (s *FormSchema) Clone() FormSchema {
	clone := *s
	if s.Button != nil {
		button := *s.Button
		clone.Button = &button
	}
	clone.Fields = CloneFields(s.Fields)
	return clone
}

// CloneFields deep-copies a field list, keeping nil as nil.
func CloneFields(fields []FieldSpec) []FieldSpec {
	if fields == nil {
		return nil
	}
	cloned := make([]FieldSpec, len(fields))
	for i, field := range fields {
		cloned[i] = field.Clone()
	}
	return cloned
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
