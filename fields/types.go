package fields

// FieldType identifies the kind of a dynamic field. It selects both the
// validation rules and the widget used to render the field.
type FieldType string

const (
	TypeText          FieldType = "text"
	TypeNumber        FieldType = "number"
	TypeCurrency      FieldType = "currency"
	TypeDate          FieldType = "date"
	TypeDropdown      FieldType = "dropdown"
	TypeMultiDropdown FieldType = "multidropdown"
)

// HasOptions reports whether fields of this type carry an option list.
func (t FieldType) HasOptions() bool {
	return t == TypeDropdown || t == TypeMultiDropdown
}

// IsNumeric reports whether fields of this type carry min/max/step bounds.
func (t FieldType) IsNumeric() bool {
	return t == TypeNumber || t == TypeCurrency
}

// FieldOption is one selectable entry of a dropdown or multidropdown field.
// ID is stable while editing; Value is what gets stored on submission.
type FieldOption struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Validation holds the text length bounds of a field.
type Validation struct {
	MinLength *int `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// DynamicField is the schema entry of one configurable form input.
type DynamicField struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Label       string        `json:"label" yaml:"label"`
	Type        FieldType     `json:"type" yaml:"type"`
	Required    bool          `json:"required" yaml:"required"`
	Placeholder string        `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Options     []FieldOption `json:"options,omitempty" yaml:"options,omitempty"`
	Min         *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Step        *float64      `json:"step,omitempty" yaml:"step,omitempty"`
	Validation  *Validation   `json:"validation,omitempty" yaml:"validation,omitempty"`
	Order       int           `json:"order" yaml:"order"`
	IsActive    bool          `json:"isActive" yaml:"isActive"`
}

// Clone returns a deep copy so callers never share option slices or
// pointer bounds with the store.
func (f DynamicField) Clone() DynamicField {
	c := f
	if f.Options != nil {
		c.Options = append([]FieldOption(nil), f.Options...)
	}
	c.Min = cloneFloat(f.Min)
	c.Max = cloneFloat(f.Max)
	c.Step = cloneFloat(f.Step)
	if f.Validation != nil {
		v := Validation{MinLength: cloneInt(f.Validation.MinLength), MaxLength: cloneInt(f.Validation.MaxLength)}
		c.Validation = &v
	}
	return c
}

// HasOptionValue reports whether value matches one of the field's options.
func (f *DynamicField) HasOptionValue(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// FieldValue is a submitted value paired with the field it belongs to.
type FieldValue struct {
	FieldID string    `json:"fieldId"`
	Value   any       `json:"value"`
	Type    FieldType `json:"type"`
}

// ErrorKind is the machine-readable reason of a ValidationError.
type ErrorKind string

const (
	KindRequired   ErrorKind = "required"
	KindTooShort   ErrorKind = "too_short"
	KindTooLong    ErrorKind = "too_long"
	KindBelowMin   ErrorKind = "below_min"
	KindAboveMax   ErrorKind = "above_max"
	KindNotANumber ErrorKind = "not_a_number"
)

// ValidationError reports the first broken rule of one field.
type ValidationError struct {
	FieldID string    `json:"fieldId"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v. Handy for literal bounds.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
