package conversion

import (
	"fmt"
	"strings"

	"github.com/jonathan/webform-converter/internal/htmltree"
	"github.com/jonathan/webform-converter/internal/types"
)

// Placeholders applied to special text inputs.
const (
	EmailPlaceholder   = "name@example.com"
	PhonePlaceholder   = "+49 (0) 123 / 456 789 0"
	WebsitePlaceholder = "https://example.com"
)

// Date field settings: drop-down entry with a year-month-day dash format.
const (
	DateTypeDropdown = "datedropdown"
	DateFormatYMD    = "ymd_dash"
)

// Counter hands out field ids. The zero value starts at 1.
type Counter struct {
	next int
}

// NewCounter returns a counter starting at 1.
func NewCounter() *Counter {
	return &Counter{next: 1}
}

// Next returns the next id and advances the counter.
func (c *Counter) Next() int {
	if c.next == 0 {
		c.next = 1
	}
	id := c.next
	c.next++
	return id
}

// RowResult is the outcome of classifying one table row. At most one of
// Field and Submit is set; both empty means the row produced nothing.
type RowResult struct {
	Field *types.FieldSpec
	// Submit is set when the row holds the submit button.
	Submit bool
	// ButtonText is the submit button's value, nil when it has none.
	ButtonText *string
}

// Classifier infers a single field from a table row.
type Classifier struct {
	opts *Options
}

// NewClassifier creates a classifier. A nil opts uses DefaultOptions.
func NewClassifier(opts *Options) *Classifier {
	return &Classifier{opts: opts.normalize()}
}

// ClassifyRow classifies a tr node, consuming ids from counter for every
// field it produces.
func (c *Classifier) ClassifyRow(row *htmltree.Node, counter *Counter) (RowResult, error) {
	return c.classifyRow(row, counter, row.Tag)
}

func (c *Classifier) classifyRow(row *htmltree.Node, counter *Counter, path string) (RowResult, error) {
	label := ""
	var cell *htmltree.Node

	switch row.ElementCount() {
	case 2:
		label = labelText(row.Children[0])
		cell = row.Children[1]
		path = fmt.Sprintf("%s/%s[2]", path, cell.Tag)
	case 1:
		cell = row.Children[0]
		path = fmt.Sprintf("%s/%s[1]", path, cell.Tag)
	default:
		return RowResult{}, &StructuralError{
			Path:    path,
			Message: fmt.Sprintf("row has %d cells, expected 1 or 2", row.ElementCount()),
		}
	}

	var element *htmltree.Node
	switch cell.ElementCount() {
	case 2:
		// Some layouts put a decorative element in front of the input.
		element = cell.Children[1]
		path = fmt.Sprintf("%s/%s[2]", path, element.Tag)
	case 1:
		element = cell.Children[0]
		path = fmt.Sprintf("%s/%s[1]", path, element.Tag)
	default:
		return RowResult{}, &StructuralError{
			Path:    path,
			Message: fmt.Sprintf("content cell has %d elements, expected 1 or 2", cell.ElementCount()),
		}
	}

	var (
		result RowResult
		err    error
	)
	switch element.Tag {
	case "input":
		result, err = c.classifyInput(element, label, counter, path)
	case "textarea":
		result, err = c.classifyTextarea(element, label, counter, path)
	case "select":
		result, err = c.classifySelect(element, label, counter, path)
	default:
		return RowResult{}, nil
	}
	if err != nil || result.Field == nil {
		return result, err
	}

	field, err := c.opts.transform(*result.Field, element)
	if err != nil {
		return RowResult{}, err
	}
	result.Field = &field
	return result, nil
}

// labelText returns the text of the label cell's first element, falling
// back to the cell's own text.
func labelText(cell *htmltree.Node) string {
	if cell.ElementCount() > 0 && cell.Children[0].Text != "" {
		return cell.Children[0].Text
	}
	return cell.Text
}

func requireAttr(element *htmltree.Node, key, path string) (string, error) {
	value, ok := element.Attr(key)
	if !ok {
		return "", &StructuralError{
			Path:    path,
			Message: fmt.Sprintf("<%s> is missing the %q attribute", element.Tag, key),
		}
	}
	return value, nil
}

func inputKind(label, name, inputType string) types.FieldKind {
	switch {
	case label == "":
		return types.KindHidden
	case name == "email" || inputType == "email":
		return types.KindEmail
	case name == "mobile" || name == "phone" || name == "fax":
		return types.KindPhone
	case inputType == "file":
		return types.KindFileUpload
	case inputType == "checkbox":
		return types.KindCheckbox
	case inputType == "date":
		return types.KindDate
	case name == "website":
		return types.KindWebsite
	default:
		return types.KindText
	}
}

func (c *Classifier) classifyInput(element *htmltree.Node, label string, counter *Counter, path string) (RowResult, error) {
	inputType := "text"
	if t, ok := element.Attr("type"); ok && t != "" {
		inputType = strings.ToLower(t)
	}

	if inputType == "submit" {
		result := RowResult{Submit: true}
		if value, ok := element.Attr("value"); ok {
			result.ButtonText = &value
		}
		return result, nil
	}

	name, err := requireAttr(element, "name", path)
	if err != nil {
		return RowResult{}, err
	}

	value, _ := element.Attr("value")
	kind := inputKind(label, name, inputType)

	field := types.FieldSpec{
		Type:         kind,
		ID:           counter.Next(),
		Label:        types.StringPtr(label),
		AdminLabel:   name,
		DefaultValue: types.StringPtr(value),
		IsRequired:   element.HasAttr("required"),
		Size:         types.FieldSizeLarge,
	}

	switch kind {
	case types.KindEmail:
		field.Placeholder = types.StringPtr(EmailPlaceholder)
	case types.KindPhone:
		field.Placeholder = types.StringPtr(PhonePlaceholder)
	case types.KindWebsite:
		field.Placeholder = types.StringPtr(WebsitePlaceholder)
	case types.KindFileUpload:
		field.MultipleFiles = types.BoolPtr(false)
		field.MaxFileSize = c.opts.MaxFileSizeMB
		field.AllowedExtensions = c.opts.AllowedExtensions
		field.Size = ""
		field.DefaultValue = nil
	case types.KindDate:
		field.DateType = DateTypeDropdown
		field.DateFormat = DateFormatYMD
	case types.KindCheckbox:
		field.Choices = []types.Choice{{Text: label, Value: label}}
		field.Label = nil
	}

	return RowResult{Field: &field}, nil
}

func (c *Classifier) classifyTextarea(element *htmltree.Node, label string, counter *Counter, path string) (RowResult, error) {
	name, err := requireAttr(element, "name", path)
	if err != nil {
		return RowResult{}, err
	}

	kind := types.KindTextarea
	if label == "" {
		kind = types.KindHidden
	}

	field := types.FieldSpec{
		Type:         kind,
		ID:           counter.Next(),
		Label:        types.StringPtr(label),
		AdminLabel:   name,
		DefaultValue: types.StringPtr(element.Text),
		IsRequired:   element.HasAttr("required"),
		Size:         types.FieldSizeLarge,
	}
	return RowResult{Field: &field}, nil
}

func (c *Classifier) classifySelect(element *htmltree.Node, label string, counter *Counter, path string) (RowResult, error) {
	name, err := requireAttr(element, "name", path)
	if err != nil {
		return RowResult{}, err
	}

	options := selectOptions(element)

	if label == "" {
		// A select without a label carries a fixed value: the selected option.
		selected := ""
		for _, option := range options {
			if option.HasAttr("selected") {
				selected = optionValue(option)
			}
		}
		field := types.FieldSpec{
			Type:         types.KindHidden,
			ID:           counter.Next(),
			AdminLabel:   name,
			DefaultValue: types.StringPtr(selected),
			Size:         types.FieldSizeLarge,
		}
		return RowResult{Field: &field}, nil
	}

	choices := make([]types.Choice, 0, len(options))
	for _, option := range options {
		choices = append(choices, types.Choice{
			Text:       option.Text,
			Value:      optionValue(option),
			IsSelected: option.HasAttr("selected"),
		})
	}

	kind := types.KindMultiSelect
	placeholder := ""
	if !element.HasAttr("multiple") {
		if len(choices) == 0 {
			return RowResult{}, &StructuralError{
				Path:    path,
				Message: "select has no options to take the placeholder from",
			}
		}
		// The first option is the "please choose" entry.
		placeholder = choices[0].Text
		choices = choices[1:]
		kind = types.KindSelect
	}

	field := types.FieldSpec{
		Type:        kind,
		ID:          counter.Next(),
		Label:       types.StringPtr(label),
		AdminLabel:  name,
		Placeholder: types.StringPtr(placeholder),
		Choices:     choices,
		IsRequired:  element.HasAttr("required"),
		Size:        types.FieldSizeLarge,
	}
	return RowResult{Field: &field}, nil
}

// selectOptions lists option elements in document order, including those
// grouped under optgroup.
func selectOptions(element *htmltree.Node) []*htmltree.Node {
	var options []*htmltree.Node
	for _, child := range element.Children {
		switch child.Tag {
		case "option":
			options = append(options, child)
		case "optgroup":
			options = append(options, selectOptions(child)...)
		}
	}
	return options
}

// optionValue falls back to the option text when value is absent, as browsers do.
func optionValue(option *htmltree.Node) string {
	if value, ok := option.Attr("value"); ok {
		return value
	}
	return option.Text
}
