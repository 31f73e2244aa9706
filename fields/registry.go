package fields

import (
	"errors"
	"fmt"
)

// ErrUnknownFieldType is returned when a type has no registry entry.
var ErrUnknownFieldType = errors.New("unknown field type")

// TypeConfig describes the defaults of one field type.
type TypeConfig struct {
	Type              FieldType     `json:"type"`
	Label             string        `json:"label"`
	DefaultOptions    []FieldOption `json:"defaultOptions"`
	DefaultValidation Defaults      `json:"defaultValidation"`
}

// Defaults is the validation template applied to a new field or to a field
// whose type just changed.
type Defaults struct {
	Validation *Validation `json:"validation,omitempty"`
	Min        *float64    `json:"min,omitempty"`
	Max        *float64    `json:"max,omitempty"`
	Step       *float64    `json:"step,omitempty"`
}

// Apply overwrites the type-specific shape of f with the defaults.
func (d Defaults) Apply(f *DynamicField) {
	f.Min = cloneFloat(d.Min)
	f.Max = cloneFloat(d.Max)
	f.Step = cloneFloat(d.Step)
	f.Validation = nil
	if d.Validation != nil {
		v := Validation{MinLength: cloneInt(d.Validation.MinLength), MaxLength: cloneInt(d.Validation.MaxLength)}
		f.Validation = &v
	}
}

// Registry is an immutable catalog of field types and their widgets. Build
// it once and pass it to the validator, forms and editors that need it.
type Registry struct {
	order   []FieldType
	configs map[FieldType]TypeConfig
	widgets map[FieldType]Widget
}

// Entry binds a type config to the widget that renders it.
type Entry struct {
	Config TypeConfig
	Widget Widget
}

// NewRegistry builds a registry from entries. Duplicate types are rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		configs: make(map[FieldType]TypeConfig, len(entries)),
		widgets: make(map[FieldType]Widget, len(entries)),
	}
	for _, e := range entries {
		t := e.Config.Type
		if t == "" {
			return nil, errors.New("registry entry without type")
		}
		if _, dup := r.configs[t]; dup {
			return nil, fmt.Errorf("duplicate registry entry for %q", t)
		}
		if e.Widget == nil {
			return nil, fmt.Errorf("registry entry %q has no widget", t)
		}
		r.order = append(r.order, t)
		r.configs[t] = e.Config
		r.widgets[t] = e.Widget
	}
	return r, nil
}

// DefaultRegistry returns the catalog of the six built-in field types.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Entry{
			Config: TypeConfig{Type: TypeText, Label: "Texto", DefaultValidation: Defaults{
				Validation: &Validation{MaxLength: Int(255)},
			}},
			Widget: textWidget{},
		},
		Entry{
			Config: TypeConfig{Type: TypeNumber, Label: "Número", DefaultValidation: Defaults{Step: Float(1)}},
			Widget: numberWidget{},
		},
		Entry{
			Config: TypeConfig{Type: TypeCurrency, Label: "Moeda", DefaultValidation: Defaults{Min: Float(0), Step: Float(0.01)}},
			Widget: currencyWidget{},
		},
		Entry{
			Config: TypeConfig{Type: TypeDate, Label: "Data"},
			Widget: dateWidget{},
		},
		Entry{
			Config: TypeConfig{Type: TypeDropdown, Label: "Lista Suspensa", DefaultOptions: []FieldOption{}},
			Widget: dropdownWidget{},
		},
		Entry{
			Config: TypeConfig{Type: TypeMultiDropdown, Label: "Seleção Múltipla", DefaultOptions: []FieldOption{}},
			Widget: multiDropdownWidget{},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Config returns the configuration of t.
func (r *Registry) Config(t FieldType) (TypeConfig, error) {
	c, ok := r.configs[t]
	if !ok {
		return TypeConfig{}, fmt.Errorf("%w: %q", ErrUnknownFieldType, t)
	}
	c.DefaultOptions = append([]FieldOption{}, c.DefaultOptions...)
	return c, nil
}

// MustConfig is like Config but panics on unknown types. Use it where the
// type comes from code rather than from user input.
func (r *Registry) MustConfig(t FieldType) TypeConfig {
	c, err := r.Config(t)
	if err != nil {
		panic(err)
	}
	return c
}

// Has reports whether t is registered.
func (r *Registry) Has(t FieldType) bool {
	_, ok := r.configs[t]
	return ok
}

// Types returns the registered types in declaration order.
func (r *Registry) Types() []FieldType {
	return append([]FieldType(nil), r.order...)
}

// Configs returns every type config in declaration order.
func (r *Registry) Configs() []TypeConfig {
	out := make([]TypeConfig, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.MustConfig(t))
	}
	return out
}

// Widget returns the widget for t, falling back to the text widget.
func (r *Registry) Widget(t FieldType) Widget {
	if w, ok := r.widgets[t]; ok {
		return w
	}
	if w, ok := r.widgets[TypeText]; ok {
		return w
	}
	return textWidget{}
}
