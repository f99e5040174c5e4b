// Package matching decides whether a converted form replaces a stored one.
package matching

import (
	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/types"
)

// MatchResult reports the stored form a new schema updates, if any.
type MatchResult struct {
	Matched    bool
	ExistingID uuid.UUID
}

// FindExisting returns the first stored form that shares a public id with
// the new schema. Forms are scanned in the order given and scanning stops at
// the first match, so callers control the tie-break through ordering.
func FindExisting(newSchema *types.FormSchema, existing []types.StoredForm) MatchResult {
	if newSchema == nil {
		return MatchResult{}
	}
	newIDs := publicIDs(newSchema)
	if len(newIDs) == 0 {
		return MatchResult{}
	}

	for _, stored := range existing {
		for _, field := range stored.Schema.Fields {
			if field.AdminLabel != types.PublicIDLabel {
				continue
			}
			if newIDs[field.Default()] {
				return MatchResult{Matched: true, ExistingID: stored.ID}
			}
		}
	}

	return MatchResult{}
}

func publicIDs(schema *types.FormSchema) map[string]bool {
	ids := make(map[string]bool)
	for _, field := range schema.Fields {
		if field.AdminLabel == types.PublicIDLabel {
			ids[field.Default()] = true
		}
	}
	return ids
}
