package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/types"
	"github.com/stretchr/testify/assert"
)

func schemaWith(fields ...types.FieldSpec) *types.FormSchema {
	return &types.FormSchema{Title: "Form", Fields: fields}
}

func hidden(id int, adminLabel, value string) types.FieldSpec {
	return types.FieldSpec{
		Type:         types.KindHidden,
		ID:           id,
		Label:        types.StringPtr(adminLabel),
		AdminLabel:   adminLabel,
		DefaultValue: types.StringPtr(value),
	}
}

func stored(fields ...types.FieldSpec) types.StoredForm {
	return types.StoredForm{ID: uuid.New(), Schema: *schemaWith(fields...)}
}

func TestFindExisting_SecondFormMatches(t *testing.T) {
	newSchema := schemaWith(hidden(1, types.LegacyPostURLLabel, "https://legacy/post"), hidden(2, types.PublicIDLabel, "abc"))
	first := stored(hidden(1, "other", "abc"))
	second := stored(hidden(1, types.PublicIDLabel, "abc"))

	result := FindExisting(newSchema, []types.StoredForm{first, second})

	assert.True(t, result.Matched)
	assert.Equal(t, second.ID, result.ExistingID)
}

func TestFindExisting_FirstMatchWins(t *testing.T) {
	newSchema := schemaWith(hidden(1, types.PublicIDLabel, "abc"))
	a := stored(hidden(3, types.PublicIDLabel, "abc"))
	b := stored(hidden(1, types.PublicIDLabel, "abc"))

	result := FindExisting(newSchema, []types.StoredForm{a, b})
	assert.Equal(t, a.ID, result.ExistingID)

	result = FindExisting(newSchema, []types.StoredForm{b, a})
	assert.Equal(t, b.ID, result.ExistingID)
}

func TestFindExisting_NoMatch(t *testing.T) {
	tests := []struct {
		name      string
		newSchema *types.FormSchema
		existing  []types.StoredForm
	}{
		{
			name:      "different public id",
			newSchema: schemaWith(hidden(1, types.PublicIDLabel, "abc")),
			existing:  []types.StoredForm{stored(hidden(1, types.PublicIDLabel, "xyz"))},
		},
		{
			name:      "new schema without public id",
			newSchema: schemaWith(hidden(1, types.LegacyPostURLLabel, "https://legacy/post")),
			existing:  []types.StoredForm{stored(hidden(1, types.LegacyPostURLLabel, "https://legacy/post"))},
		},
		{
			name:      "value equal but label differs",
			newSchema: schemaWith(hidden(1, types.PublicIDLabel, "abc")),
			existing:  []types.StoredForm{stored(hidden(1, "publicId", "abc"))},
		},
		{
			name:      "comparison is exact",
			newSchema: schemaWith(hidden(1, types.PublicIDLabel, "abc")),
			existing:  []types.StoredForm{stored(hidden(1, types.PublicIDLabel, "ABC ")), stored(hidden(1, types.PublicIDLabel, " abc"))},
		},
		{
			name:      "no stored forms",
			newSchema: schemaWith(hidden(1, types.PublicIDLabel, "abc")),
		},
		{
			name:     "nil schema",
			existing: []types.StoredForm{stored(hidden(1, types.PublicIDLabel, "abc"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindExisting(tt.newSchema, tt.existing)

			assert.False(t, result.Matched)
			assert.Equal(t, uuid.Nil, result.ExistingID)
		})
	}
}
