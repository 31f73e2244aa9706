package fields

import (
	"encoding/json"
	"strconv"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the submission object of a form: one property per
// active field keyed by field id. Unknown keys are allowed since the
// validator ignores them.
func JSONSchema(reg *Registry, title string, schema []DynamicField) *jsonschema.Schema {
	if reg == nil {
		reg = DefaultRegistry()
	}
	root := &jsonschema.Schema{
		Version:    jsonschema.Version,
		Type:       "object",
		Title:      title,
		Properties: jsonschema.NewProperties(),
	}
	for _, f := range ActiveFields(schema) {
		p := propertySchema(reg, f)
		root.Properties.Set(f.ID, p)
		if f.Required {
			root.Required = append(root.Required, f.ID)
		}
	}
	return root
}

func propertySchema(reg *Registry, f DynamicField) *jsonschema.Schema {
	t := f.Type
	if !reg.Has(t) {
		t = TypeText
	}
	s := &jsonschema.Schema{Title: f.Label, Description: f.Description}
	switch t {
	case TypeNumber, TypeCurrency:
		s.Type = "number"
		s.Minimum = jsonNumber(f.Min)
		s.Maximum = jsonNumber(f.Max)
		s.MultipleOf = jsonNumber(f.Step)
	case TypeDate:
		s.Type = "string"
		s.Format = "date"
	case TypeDropdown:
		s.Type = "string"
		if f.Required {
			s.Enum = optionValues(f)
		}
	case TypeMultiDropdown:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string", Enum: optionValues(f)}
		s.UniqueItems = true
		if f.Required {
			one := uint64(1)
			s.MinItems = &one
		}
	default:
		s.Type = "string"
		if f.Validation != nil {
			s.MinLength = jsonLength(f.Validation.MinLength)
			s.MaxLength = jsonLength(f.Validation.MaxLength)
		}
		if f.Required && s.MinLength == nil {
			one := uint64(1)
			s.MinLength = &one
		}
	}
	return s
}

func optionValues(f DynamicField) []any {
	out := make([]any, 0, len(f.Options))
	for _, o := range f.Options {
		out = append(out, o.Value)
	}
	return out
}

func jsonNumber(p *float64) json.Number {
	if p == nil {
		return ""
	}
	return json.Number(strconv.FormatFloat(*p, 'f', -1, 64))
}

func jsonLength(p *int) *uint64 {
	if p == nil || *p < 0 {
		return nil
	}
	v := uint64(*p)
	return &v
}
