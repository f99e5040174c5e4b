package types

import "fmt"

// DuplicateFieldIDError reports two fields sharing one id in a schema.
type DuplicateFieldIDError struct {
	ID int
}

func (e *DuplicateFieldIDError) Error() string {
	return fmt.Sprintf("duplicate field id %d", e.ID)
}
