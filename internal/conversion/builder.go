package conversion

import (
	"fmt"

	"github.com/jonathan/webform-converter/internal/htmltree"
	"github.com/jonathan/webform-converter/internal/types"
)

// Builder walks a parsed webform and assembles the form schema.
type Builder struct {
	classifier *Classifier
}

// NewBuilder creates a schema builder. A nil opts uses DefaultOptions.
func NewBuilder(opts *Options) *Builder {
	return &Builder{classifier: NewClassifier(opts)}
}

// Build walks the tree depth-first and returns the schema. Fields appear in
// document order with ids starting at 1.
func (b *Builder) Build(root *htmltree.Node) (*types.FormSchema, error) {
	schema := &types.FormSchema{Fields: []types.FieldSpec{}}
	if root == nil {
		return schema, nil
	}

	counter := NewCounter()
	if err := b.walk([]*htmltree.Node{root}, "", schema, counter); err != nil {
		return nil, err
	}
	return schema, nil
}

func (b *Builder) walk(nodes []*htmltree.Node, parent string, schema *types.FormSchema, counter *Counter) error {
	for i, node := range nodes {
		path := fmt.Sprintf("%s/%s[%d]", parent, node.Tag, i+1)

		switch node.Tag {
		case "html", "body", "table", "tbody":
			if err := b.walk(node.Children, path, schema, counter); err != nil {
				return err
			}

		case "form":
			if err := b.addForm(node, path, schema, counter); err != nil {
				return err
			}
			if err := b.walk(node.Children, path, schema, counter); err != nil {
				return err
			}

		case "input":
			// Hidden inputs such as publicid sit directly in the form.
			if err := b.addBareInput(node, path, schema, counter); err != nil {
				return err
			}

		case "tr":
			result, err := b.classifier.classifyRow(node, counter, path)
			if err != nil {
				return err
			}
			switch {
			case result.Submit:
				if result.ButtonText != nil {
					schema.SetSubmitButtonText(*result.ButtonText)
				}
			case result.Field != nil:
				schema.Fields = append(schema.Fields, *result.Field)
			}
		}
	}
	return nil
}

// addForm sets the title and records the legacy endpoint as a reserved
// hidden field so it is stored along with the schema.
func (b *Builder) addForm(form *htmltree.Node, path string, schema *types.FormSchema, counter *Counter) error {
	title, err := requireAttr(form, "name", path)
	if err != nil {
		return err
	}
	action, err := requireAttr(form, "action", path)
	if err != nil {
		return err
	}

	schema.Title = title
	schema.Fields = append(schema.Fields, types.FieldSpec{
		Type:         types.KindHidden,
		ID:           counter.Next(),
		Label:        types.StringPtr(types.LegacyPostURLLabel),
		AdminLabel:   types.LegacyPostURLLabel,
		DefaultValue: types.StringPtr(action),
		Size:         types.FieldSizeLarge,
	})
	return nil
}

func (b *Builder) addBareInput(input *htmltree.Node, path string, schema *types.FormSchema, counter *Counter) error {
	if inputType, _ := input.Attr("type"); inputType == "submit" {
		if value, ok := input.Attr("value"); ok {
			schema.SetSubmitButtonText(value)
		}
		return nil
	}

	name, err := requireAttr(input, "name", path)
	if err != nil {
		return err
	}
	value, _ := input.Attr("value")

	schema.Fields = append(schema.Fields, types.FieldSpec{
		Type:         types.KindHidden,
		ID:           counter.Next(),
		Label:        types.StringPtr(name),
		AdminLabel:   name,
		DefaultValue: types.StringPtr(value),
		IsRequired:   input.HasAttr("required"),
		Size:         types.FieldSizeLarge,
	})
	return nil
}
