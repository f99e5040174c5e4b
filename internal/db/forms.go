package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/webform-converter/internal/forms"
	"github.com/jonathan/webform-converter/internal/types"
)

// ListForms returns all stored forms, oldest first
func (db *DB) ListForms(ctx context.Context) ([]types.StoredForm, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, schema, created_at, updated_at FROM forms ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	var result []types.StoredForm
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate forms: %w", err)
	}
	return result, nil
}

// GetForm retrieves a form by ID, returning nil if it does not exist
func (db *DB) GetForm(ctx context.Context, id uuid.UUID) (*types.StoredForm, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, schema, created_at, updated_at FROM forms WHERE id = $1`,
		id,
	)
	form, err := scanForm(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return form, nil
}

// CreateForm stores a new form and returns its ID
func (db *DB) CreateForm(ctx context.Context, schema types.FormSchema) (uuid.UUID, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal form schema: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO forms (title, public_id, schema)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		schema.Title, publicIDColumn(schema), schemaJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create form: %w", err)
	}
	return id, nil
}

// UpdateFormFields replaces the field list of a form. Title, button and
// honeypot settings are left as stored.
func (db *DB) UpdateFormFields(ctx context.Context, id uuid.UUID, fields []types.FieldSpec) error {
	if fields == nil {
		fields = []types.FieldSpec{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE forms
		 SET schema = jsonb_set(schema, '{fields}', $2::jsonb),
		     public_id = $3,
		     updated_at = NOW()
		 WHERE id = $1`,
		id, fieldsJSON, publicIDColumn(types.FormSchema{Fields: fields}),
	)
	if err != nil {
		return fmt.Errorf("failed to update form fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &forms.NotFoundError{ID: id}
	}
	return nil
}

// DeleteForm removes a form and its replay log
func (db *DB) DeleteForm(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &forms.NotFoundError{ID: id}
	}
	return nil
}

func scanForm(row pgx.Row) (*types.StoredForm, error) {
	var form types.StoredForm
	var schemaJSON []byte
	if err := row.Scan(&form.ID, &schemaJSON, &form.CreatedAt, &form.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan form: %w", err)
	}
	if err := json.Unmarshal(schemaJSON, &form.Schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema of form %s: %w", form.ID, err)
	}
	return &form, nil
}

// publicIDColumn returns the value indexed in forms.public_id.
func publicIDColumn(schema types.FormSchema) *string {
	if id, ok := schema.PublicID(); ok {
		return &id
	}
	return nil
}
