package fields

import (
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"
)

const (
	msgRequired   = "Campo obrigatório"
	msgNotANumber = "Valor numérico inválido"
)

// Validator checks submitted values against a field schema. It holds no
// state besides the registry and is safe for concurrent use.
type Validator struct {
	registry *Registry
}

// NewValidator returns a validator bound to reg. A nil registry means the
// default catalog.
func NewValidator(reg *Registry) *Validator {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Validator{registry: reg}
}

// BuildValues zips the active fields with a value map keyed by field id.
// Keys of values that match no field are dropped.
func BuildValues(fields []DynamicField, values map[string]any) []FieldValue {
	active := ActiveFields(fields)
	out := make([]FieldValue, 0, len(active))
	for _, f := range active {
		out = append(out, FieldValue{FieldID: f.ID, Value: values[f.ID], Type: f.Type})
	}
	return out
}

// Validate is a shorthand for ValidateForm(fields, BuildValues(fields, values)).
func (v *Validator) Validate(fields []DynamicField, values map[string]any) []ValidationError {
	return v.ValidateForm(fields, BuildValues(fields, values))
}

// ValidateInput normalizes raw submitted values through the widgets of
// their fields, then validates them. Use it for values typed by people,
// such as "R$ 1.234,56" or "31/01/2024".
func (v *Validator) ValidateInput(fields []DynamicField, values map[string]any) []ValidationError {
	return v.Validate(fields, v.registry.Normalize(fields, values))
}

// ValidateForm evaluates every active field of the schema against its
// submitted value and returns at most one error per field, in render
// order. Values whose field id is not in the schema are ignored.
func (v *Validator) ValidateForm(fields []DynamicField, values []FieldValue) []ValidationError {
	byID := make(map[string]any, len(values))
	for _, fv := range values {
		byID[fv.FieldID] = fv.Value
	}
	var errs []ValidationError
	for _, f := range ActiveFields(fields) {
		if e := v.Check(f, byID[f.ID]); e != nil {
			errs = append(errs, *e)
		}
	}
	return errs
}

// Check validates a single value and returns the first broken rule, or nil.
func (v *Validator) Check(f DynamicField, value any) *ValidationError {
	t := f.Type
	if !v.registry.Has(t) {
		t = TypeText
	}
	fail := func(kind ErrorKind, msg string) *ValidationError {
		return &ValidationError{FieldID: f.ID, Kind: kind, Message: msg}
	}

	switch t {
	case TypeNumber, TypeCurrency:
		n, ok := asNumber(value)
		if !ok {
			if f.Required {
				return fail(KindRequired, msgRequired)
			}
			if !isEmpty(value) {
				return fail(KindNotANumber, msgNotANumber)
			}
			return nil
		}
		if f.Min != nil && n < *f.Min {
			return fail(KindBelowMin, "Valor mínimo é "+formatNumber(*f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return fail(KindAboveMax, "Valor máximo é "+formatNumber(*f.Max))
		}
		return nil

	case TypeDropdown:
		if !f.Required {
			return nil
		}
		s, ok := asText(value)
		if !ok || isEmpty(s) || !f.HasOptionValue(s) {
			return fail(KindRequired, msgRequired)
		}
		return nil

	case TypeMultiDropdown:
		if !f.Required {
			return nil
		}
		if sel, ok := asStrings(value); !ok || len(sel) == 0 {
			return fail(KindRequired, msgRequired)
		}
		return nil

	case TypeDate:
		if f.Required && isEmpty(value) {
			return fail(KindRequired, msgRequired)
		}
		return nil

	default:
		s, ok := asText(value)
		if !ok || isEmpty(s) {
			if f.Required {
				return fail(KindRequired, msgRequired)
			}
			return nil
		}
		if f.Validation == nil {
			return nil
		}
		n := utf8.RuneCountInString(s)
		if lo := f.Validation.MinLength; lo != nil && n < *lo {
			return fail(KindTooShort, fmt.Sprintf("Mínimo de %d caracteres", *lo))
		}
		if hi := f.Validation.MaxLength; hi != nil && n > *hi {
			return fail(KindTooLong, fmt.Sprintf("Máximo de %d caracteres", *hi))
		}
		return nil
	}
}

// ActiveFields returns the active entries sorted by ascending order. Ties
// keep their relative position.
func ActiveFields(fields []DynamicField) []DynamicField {
	out := make([]DynamicField, 0, len(fields))
	for _, f := range fields {
		if f.IsActive {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
