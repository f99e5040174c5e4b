package forms

import (
	"fmt"

	"github.com/google/uuid"
)

// StorageError represents a failure of the form storage backend
type StorageError struct {
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("form storage %s failed: %v", e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates no stored form has the id
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("form not found: %s", e.ID)
}
