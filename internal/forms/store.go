// Package forms imports converted webforms into form storage.
package forms

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/types"
)

// Store is the form storage capability the importer needs.
type Store interface {
	// ListForms returns stored forms in creation order.
	ListForms(ctx context.Context) ([]types.StoredForm, error)
	// GetForm returns nil when no form has the id.
	GetForm(ctx context.Context, id uuid.UUID) (*types.StoredForm, error)
	CreateForm(ctx context.Context, schema types.FormSchema) (uuid.UUID, error)
	// UpdateFormFields replaces only the field list, leaving the form's id
	// and other metadata untouched.
	UpdateFormFields(ctx context.Context, id uuid.UUID, fields []types.FieldSpec) error
	DeleteForm(ctx context.Context, id uuid.UUID) error
}

// MemoryStore is an in-process Store used for dry runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	forms []types.StoredForm
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// ListForms returns copies of the stored forms in creation order.
func (m *MemoryStore) ListForms(_ context.Context) ([]types.StoredForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]types.StoredForm, len(m.forms))
	for i, form := range m.forms {
		result[i] = cloneForm(form)
	}
	return result, nil
}

// GetForm returns a copy of the form or nil.
func (m *MemoryStore) GetForm(_ context.Context, id uuid.UUID) (*types.StoredForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, form := range m.forms {
		if form.ID == id {
			found := cloneForm(form)
			return &found, nil
		}
	}
	return nil, nil
}

// CreateForm stores the schema under a new id.
func (m *MemoryStore) CreateForm(_ context.Context, schema types.FormSchema) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	id := uuid.New()
	m.forms = append(m.forms, types.StoredForm{
		ID:        id,
		Schema:    schema.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	return id, nil
}

// UpdateFormFields replaces the fields of an existing form.
func (m *MemoryStore) UpdateFormFields(_ context.Context, id uuid.UUID, fields []types.FieldSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.forms {
		if m.forms[i].ID == id {
			m.forms[i].Schema.Fields = types.CloneFields(fields)
			m.forms[i].UpdatedAt = m.now()
			return nil
		}
	}
	return &NotFoundError{ID: id}
}

// DeleteForm removes a form.
func (m *MemoryStore) DeleteForm(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.forms {
		if m.forms[i].ID == id {
			m.forms = append(m.forms[:i], m.forms[i+1:]...)
			return nil
		}
	}
	return &NotFoundError{ID: id}
}

func cloneForm(form types.StoredForm) types.StoredForm {
	form.Schema = form.Schema.Clone()
	return form
}
