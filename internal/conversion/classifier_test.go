package conversion

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jonathan/webform-converter/internal/htmltree"
	"github.com/jonathan/webform-converter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTag(n *htmltree.Node, tag string) *htmltree.Node {
	if n.Tag == tag {
		return n
	}
	for _, child := range n.Children {
		if found := findTag(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// parseRow wraps row markup in a table so the HTML parser keeps the tr.
func parseRow(t *testing.T, row string) *htmltree.Node {
	t.Helper()
	root := htmltree.Build("<table><tbody>" + row + "</tbody></table>")
	tr := findTag(root, "tr")
	require.NotNil(t, tr, "row markup must contain a tr")
	return tr
}

func classify(t *testing.T, row string) RowResult {
	t.Helper()
	result, err := NewClassifier(nil).ClassifyRow(parseRow(t, row), NewCounter())
	require.NoError(t, err)
	return result
}

func classifyField(t *testing.T, row string) types.FieldSpec {
	t.Helper()
	result := classify(t, row)
	require.NotNil(t, result.Field)
	return *result.Field
}

func TestClassifyRow_TextInput(t *testing.T) {
	field := classifyField(t, `<tr><td><label>  First Name </label></td><td><input type="text" name="firstname" value="Jane"></td></tr>`)

	assert.Equal(t, types.KindText, field.Type)
	assert.Equal(t, 1, field.ID)
	assert.Equal(t, "First Name", field.LabelText())
	assert.Equal(t, "firstname", field.AdminLabel)
	assert.Equal(t, "Jane", field.Default())
	assert.Equal(t, types.FieldSizeLarge, field.Size)
	assert.False(t, field.IsRequired)
	assert.Nil(t, field.Placeholder)
}

func TestClassifyRow_LabelFromCellText(t *testing.T) {
	field := classifyField(t, `<tr><td>Last Name</td><td><input type="text" name="lastname"></td></tr>`)

	assert.Equal(t, "Last Name", field.LabelText())
	assert.Equal(t, "", field.Default())
}

func TestClassifyRow_InputKinds(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		label       string
		want        types.FieldKind
		placeholder string
	}{
		{name: "email by name", input: `<input type="text" name="email">`, label: "Email", want: types.KindEmail, placeholder: EmailPlaceholder},
		{name: "email by type", input: `<input type="email" name="secondaryemail">`, label: "Work mail", want: types.KindEmail, placeholder: EmailPlaceholder},
		{name: "email type beats phone name", input: `<input type="email" name="phone">`, label: "Contact", want: types.KindEmail, placeholder: EmailPlaceholder},
		{name: "mobile", input: `<input type="text" name="mobile">`, label: "Mobile", want: types.KindPhone, placeholder: PhonePlaceholder},
		{name: "phone", input: `<input type="text" name="phone">`, label: "Phone", want: types.KindPhone, placeholder: PhonePlaceholder},
		{name: "fax", input: `<input type="text" name="fax">`, label: "Fax", want: types.KindPhone, placeholder: PhonePlaceholder},
		{name: "file", input: `<input type="file" name="attachment">`, label: "CV", want: types.KindFileUpload},
		{name: "checkbox", input: `<input type="checkbox" name="newsletter">`, label: "Newsletter", want: types.KindCheckbox},
		{name: "date", input: `<input type="date" name="birthday">`, label: "Birthday", want: types.KindDate},
		{name: "website", input: `<input type="text" name="website">`, label: "Website", want: types.KindWebsite, placeholder: WebsitePlaceholder},
		{name: "missing type defaults to text", input: `<input name="city">`, label: "City", want: types.KindText},
		{name: "upper case type", input: `<input type="CHECKBOX" name="gdpr">`, label: "GDPR", want: types.KindCheckbox},
		{name: "email name beats file type", input: `<input type="file" name="email">`, label: "Email", want: types.KindEmail, placeholder: EmailPlaceholder},
		{name: "empty label is hidden", input: `<input type="text" name="email">`, label: "", want: types.KindHidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := fmt.Sprintf(`<tr><td><label>%s</label></td><td>%s</td></tr>`, tt.label, tt.input)
			field := classifyField(t, row)

			assert.Equal(t, tt.want, field.Type)
			assert.Equal(t, tt.placeholder, field.PlaceholderText())
		})
	}
}

func TestClassifyRow_EmailPlaceholder(t *testing.T) {
	field := classifyField(t, `<tr><td><label>Email</label></td><td><input type="email" name="email" required></td></tr>`)

	assert.Equal(t, types.KindEmail, field.Type)
	require.NotNil(t, field.Placeholder)
	assert.Equal(t, "name@example.com", *field.Placeholder)
	assert.True(t, field.IsRequired)
}

func TestClassifyRow_RequiredPresenceOnly(t *testing.T) {
	field := classifyField(t, `<tr><td>Company</td><td><input type="text" name="company" required="false"></td></tr>`)

	assert.True(t, field.IsRequired)
}

func TestClassifyRow_FileUpload(t *testing.T) {
	field := classifyField(t, `<tr><td>CV</td><td><input type="file" name="cv" value="ignored"></td></tr>`)

	assert.Equal(t, types.KindFileUpload, field.Type)
	require.NotNil(t, field.MultipleFiles)
	assert.False(t, *field.MultipleFiles)
	assert.Equal(t, DefaultMaxFileSizeMB, field.MaxFileSize)
	assert.Equal(t, DefaultAllowedExtensions, field.AllowedExtensions)
	assert.Nil(t, field.DefaultValue)
	assert.Empty(t, field.Size)
}

func TestClassifyRow_FileUploadCustomLimits(t *testing.T) {
	classifier := NewClassifier(&Options{MaxFileSizeMB: 20, AllowedExtensions: "pdf"})
	result, err := classifier.ClassifyRow(parseRow(t, `<tr><td>CV</td><td><input type="file" name="cv"></td></tr>`), NewCounter())
	require.NoError(t, err)

	assert.Equal(t, 20, result.Field.MaxFileSize)
	assert.Equal(t, "pdf", result.Field.AllowedExtensions)
}

func TestClassifyRow_Date(t *testing.T) {
	field := classifyField(t, `<tr><td>Birthday</td><td><input type="date" name="birthday"></td></tr>`)

	assert.Equal(t, DateTypeDropdown, field.DateType)
	assert.Equal(t, DateFormatYMD, field.DateFormat)
}

func TestClassifyRow_CheckboxLabelBecomesChoice(t *testing.T) {
	field := classifyField(t, `<tr><td><label>Accept terms</label></td><td><input type="checkbox" name="terms" required></td></tr>`)

	assert.Equal(t, types.KindCheckbox, field.Type)
	assert.Nil(t, field.Label)
	assert.Equal(t, []types.Choice{{Text: "Accept terms", Value: "Accept terms"}}, field.Choices)
	assert.True(t, field.IsRequired)
}

func TestClassifyRow_SubmitButton(t *testing.T) {
	result := classify(t, `<tr><td></td><td><input type="submit" value="Send"></td></tr>`)

	assert.True(t, result.Submit)
	assert.Nil(t, result.Field)
	require.NotNil(t, result.ButtonText)
	assert.Equal(t, "Send", *result.ButtonText)
}

func TestClassifyRow_SubmitWithoutValue(t *testing.T) {
	result := classify(t, `<tr><td><input type="submit"></td></tr>`)

	assert.True(t, result.Submit)
	assert.Nil(t, result.ButtonText)
}

func TestClassifyRow_SingleCellRowIsHidden(t *testing.T) {
	field := classifyField(t, `<tr><td><input type="text" name="leadsource" value="Web"></td></tr>`)

	assert.Equal(t, types.KindHidden, field.Type)
	assert.Equal(t, "leadsource", field.AdminLabel)
	assert.Equal(t, "Web", field.Default())
}

func TestClassifyRow_DecoratedCellUsesSecondElement(t *testing.T) {
	field := classifyField(t, `<tr><td>Phone</td><td><label>+</label><input type="text" name="phone"></td></tr>`)

	assert.Equal(t, types.KindPhone, field.Type)
	assert.Equal(t, "phone", field.AdminLabel)
}

func TestClassifyRow_Textarea(t *testing.T) {
	field := classifyField(t, `<tr><td>Message</td><td><textarea name="description" required>  Hello there </textarea></td></tr>`)

	assert.Equal(t, types.KindTextarea, field.Type)
	assert.Equal(t, "Message", field.LabelText())
	assert.Equal(t, "Hello there", field.Default())
	assert.True(t, field.IsRequired)
}

func TestClassifyRow_TextareaWithoutLabelIsHidden(t *testing.T) {
	field := classifyField(t, `<tr><td></td><td><textarea name="notes">fixed</textarea></td></tr>`)

	assert.Equal(t, types.KindHidden, field.Type)
	assert.Equal(t, "fixed", field.Default())
}

func TestClassifyRow_SelectDropsPlaceholderOption(t *testing.T) {
	field := classifyField(t, `<tr><td>Salutation</td><td><select name="salutationtype">
		<option value="">Select Value</option>
		<option value="Mr.">Mr.</option>
		<option value="Ms." selected>Ms.</option>
	</select></td></tr>`)

	assert.Equal(t, types.KindSelect, field.Type)
	assert.Equal(t, "Select Value", field.PlaceholderText())
	assert.Equal(t, []types.Choice{
		{Text: "Mr.", Value: "Mr."},
		{Text: "Ms.", Value: "Ms.", IsSelected: true},
	}, field.Choices)
}

func TestClassifyRow_SelectChoiceCounts(t *testing.T) {
	for n := 1; n <= 5; n++ {
		var options strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&options, `<option value="v%d">Option %d</option>`, i, i)
		}

		t.Run(fmt.Sprintf("single %d options", n), func(t *testing.T) {
			field := classifyField(t, `<tr><td>Pick</td><td><select name="pick">`+options.String()+`</select></td></tr>`)
			assert.Equal(t, types.KindSelect, field.Type)
			assert.Len(t, field.Choices, n-1)
			assert.Equal(t, "Option 0", field.PlaceholderText())
			for _, choice := range field.Choices {
				assert.NotEqual(t, "v0", choice.Value)
			}
		})

		t.Run(fmt.Sprintf("multiple %d options", n), func(t *testing.T) {
			field := classifyField(t, `<tr><td>Pick</td><td><select name="pick" multiple>`+options.String()+`</select></td></tr>`)
			assert.Equal(t, types.KindMultiSelect, field.Type)
			assert.Len(t, field.Choices, n)
			require.NotNil(t, field.Placeholder)
			assert.Equal(t, "", *field.Placeholder)
		})
	}
}

func TestClassifyRow_SelectOptionWithoutValueUsesText(t *testing.T) {
	field := classifyField(t, `<tr><td>Size</td><td><select name="size" multiple><option>Large</option></select></td></tr>`)

	assert.Equal(t, []types.Choice{{Text: "Large", Value: "Large"}}, field.Choices)
}

func TestClassifyRow_HiddenSelect(t *testing.T) {
	t.Run("selected option value", func(t *testing.T) {
		field := classifyField(t, `<tr><td></td><td><select name="leadsource" hidden>
			<option value="Web">Web</option>
			<option value="Partner" selected>Partner</option>
		</select></td></tr>`)

		assert.Equal(t, types.KindHidden, field.Type)
		assert.Nil(t, field.Label)
		assert.Equal(t, "leadsource", field.AdminLabel)
		assert.Equal(t, "Partner", field.Default())
		assert.Empty(t, field.Choices)
	})

	t.Run("nothing selected", func(t *testing.T) {
		field := classifyField(t, `<tr><td></td><td><select name="leadsource"><option value="Web">Web</option></select></td></tr>`)

		require.NotNil(t, field.DefaultValue)
		assert.Equal(t, "", *field.DefaultValue)
	})
}

func TestClassifyRow_UnknownElementIsSkipped(t *testing.T) {
	counter := NewCounter()
	result, err := NewClassifier(nil).ClassifyRow(parseRow(t, `<tr><td>Note</td><td><div>just text</div></td></tr>`), counter)

	require.NoError(t, err)
	assert.Nil(t, result.Field)
	assert.False(t, result.Submit)
	assert.Equal(t, 1, counter.Next(), "skipped rows do not consume ids")
}

func TestClassifyRow_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{name: "three cells", row: `<tr><td>A</td><td><input name="a"></td><td>extra</td></tr>`},
		{name: "empty row", row: `<tr></tr>`},
		{name: "empty content cell", row: `<tr><td>A</td><td></td></tr>`},
		{name: "three elements in content cell", row: `<tr><td>A</td><td><label>x</label><label>y</label><input name="a"></td></tr>`},
		{name: "input without name", row: `<tr><td>A</td><td><input type="text"></td></tr>`},
		{name: "textarea without name", row: `<tr><td>A</td><td><textarea></textarea></td></tr>`},
		{name: "select without name", row: `<tr><td>A</td><td><select><option>x</option></select></td></tr>`},
		{name: "single select without options", row: `<tr><td>A</td><td><select name="a"></select></td></tr>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassifier(nil).ClassifyRow(parseRow(t, tt.row), NewCounter())

			var structErr *StructuralError
			require.ErrorAs(t, err, &structErr)
			assert.NotEmpty(t, structErr.Path)
		})
	}
}

func TestClassifyRow_SharedCounter(t *testing.T) {
	classifier := NewClassifier(nil)
	counter := NewCounter()

	first, err := classifier.ClassifyRow(parseRow(t, `<tr><td>A</td><td><input name="a"></td></tr>`), counter)
	require.NoError(t, err)
	second, err := classifier.ClassifyRow(parseRow(t, `<tr><td>B</td><td><input name="b"></td></tr>`), counter)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Field.ID)
	assert.Equal(t, 2, second.Field.ID)
}

func TestClassifyRow_Transformers(t *testing.T) {
	var order []string
	opts := &Options{
		KindTransformers: map[types.FieldKind][]FieldTransformer{
			types.KindEmail: {FieldTransformerFunc(func(f types.FieldSpec, _ *htmltree.Node) (types.FieldSpec, error) {
				order = append(order, "kind")
				f.Placeholder = types.StringPtr("you@company.test")
				return f, nil
			})},
		},
		Transformers: []FieldTransformer{FieldTransformerFunc(func(f types.FieldSpec, el *htmltree.Node) (types.FieldSpec, error) {
			order = append(order, "all")
			if dataLabel, ok := el.Attr("data-label"); ok {
				f.Label = types.StringPtr(dataLabel)
			}
			return f, nil
		})},
	}

	result, err := NewClassifier(opts).ClassifyRow(
		parseRow(t, `<tr><td>Email</td><td><input name="email" data-label="E-Mail"></td></tr>`), NewCounter())
	require.NoError(t, err)

	assert.Equal(t, []string{"kind", "all"}, order)
	assert.Equal(t, "you@company.test", result.Field.PlaceholderText())
	assert.Equal(t, "E-Mail", result.Field.LabelText())
}

func TestClassifyRow_TransformerError(t *testing.T) {
	boom := errors.New("boom")
	opts := &Options{Transformers: []FieldTransformer{FieldTransformerFunc(func(f types.FieldSpec, _ *htmltree.Node) (types.FieldSpec, error) {
		return f, boom
	})}}

	_, err := NewClassifier(opts).ClassifyRow(parseRow(t, `<tr><td>A</td><td><input name="a"></td></tr>`), NewCounter())

	var transformErr *TransformError
	require.ErrorAs(t, err, &transformErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, transformErr.FieldID)
}

func TestCounter_ZeroValueStartsAtOne(t *testing.T) {
	var counter Counter

	assert.Equal(t, 1, counter.Next())
	assert.Equal(t, 2, counter.Next())
}
