package fields

import (
	"fmt"
	"maps"
)

// EmptyFormMessage is shown when a scope has no active field.
const EmptyFormMessage = "Nenhum campo personalizado configurado para este contrato."

// FormView is the rendered form: one widget per active field, in order.
type FormView struct {
	Fields       []WidgetView      `json:"fields"`
	Valid        bool              `json:"valid"`
	Errors       []ValidationError `json:"errors"`
	Empty        bool              `json:"empty"`
	EmptyMessage string            `json:"emptyMessage,omitempty"`
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithInitialData starts an uncontrolled form with the given values. The
// form owns its value map from then on.
func WithInitialData(values map[string]any) FormOption {
	return func(f *Form) {
		f.values = maps.Clone(values)
	}
}

// WithValues makes the form controlled: the caller owns the value map and
// pushes updates back with SetValues. Changes are only forwarded to the
// OnChange callback.
func WithValues(values map[string]any) FormOption {
	return func(f *Form) {
		f.values = maps.Clone(values)
		f.controlled = true
	}
}

// WithOnChange registers the callback receiving the merged value map after
// every change.
func WithOnChange(fn func(values map[string]any)) FormOption {
	return func(f *Form) { f.onChange = fn }
}

// WithOnValidationChange registers the callback fired after every value
// map mutation with the form validity and its errors.
func WithOnValidationChange(fn func(valid bool, errs []ValidationError)) FormOption {
	return func(f *Form) { f.onValidation = fn }
}

// Form composes the widgets of a field schema and keeps the validation
// result in sync with the values. It is not safe for concurrent use.
type Form struct {
	registry  *Registry
	validator *Validator
	fields    []DynamicField
	index     map[string]int

	values     map[string]any
	controlled bool
	errs       []ValidationError

	onChange     func(map[string]any)
	onValidation func(bool, []ValidationError)
}

// NewForm builds a form over the active fields of schema.
func NewForm(reg *Registry, schema []DynamicField, opts ...FormOption) *Form {
	if reg == nil {
		reg = DefaultRegistry()
	}
	f := &Form{
		registry:  reg,
		validator: NewValidator(reg),
		fields:    ActiveFields(schema),
	}
	for _, o := range opts {
		o(f)
	}
	if f.values == nil {
		f.values = map[string]any{}
	}
	f.index = make(map[string]int, len(f.fields))
	for i, fd := range f.fields {
		f.index[fd.ID] = i
	}
	f.errs = f.validator.ValidateForm(f.fields, BuildValues(f.fields, f.values))
	return f
}

// Controlled reports whether the caller owns the value map.
func (f *Form) Controlled() bool { return f.controlled }

// Change routes raw input for one field through its widget, merges it into
// the value map and re-validates.
func (f *Form) Change(fieldID string, raw any) error {
	i, ok := f.index[fieldID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, fieldID)
	}
	w := f.registry.Widget(f.fields[i].Type)
	merged := maps.Clone(f.values)
	merged[fieldID] = w.Normalize(raw)

	if !f.controlled {
		f.values = merged
	}
	if f.onChange != nil {
		f.onChange(maps.Clone(merged))
	}
	f.revalidate(merged)
	return nil
}

// SetValues replaces the value map, as a controlled host does after its own
// state changed.
func (f *Form) SetValues(values map[string]any) {
	f.values = maps.Clone(values)
	if f.values == nil {
		f.values = map[string]any{}
	}
	f.revalidate(f.values)
}

func (f *Form) revalidate(values map[string]any) {
	f.errs = f.validator.ValidateForm(f.fields, BuildValues(f.fields, values))
	if f.onValidation != nil {
		f.onValidation(len(f.errs) == 0, append([]ValidationError(nil), f.errs...))
	}
}

// Values returns a copy of the current value map.
func (f *Form) Values() map[string]any { return maps.Clone(f.values) }

// Errors returns the current validation errors.
func (f *Form) Errors() []ValidationError {
	return append([]ValidationError(nil), f.errs...)
}

// Valid reports whether the form can be submitted.
func (f *Form) Valid() bool { return len(f.errs) == 0 }

// Fields returns the rendered fields in order.
func (f *Form) Fields() []DynamicField {
	out := make([]DynamicField, 0, len(f.fields))
	for _, fd := range f.fields {
		out = append(out, fd.Clone())
	}
	return out
}

// Render describes every widget with its value and error.
func (f *Form) Render() FormView {
	view := FormView{
		Valid:  f.Valid(),
		Errors: f.Errors(),
		Fields: make([]WidgetView, 0, len(f.fields)),
	}
	if view.Errors == nil {
		view.Errors = []ValidationError{}
	}
	if len(f.fields) == 0 {
		view.Empty = true
		view.EmptyMessage = EmptyFormMessage
		return view
	}
	byField := make(map[string]ValidationError, len(f.errs))
	for _, e := range f.errs {
		byField[e.FieldID] = e
	}
	for _, fd := range f.fields {
		w := f.registry.Widget(fd.Type)
		v := w.View(fd, f.values[fd.ID])
		if e, ok := byField[fd.ID]; ok {
			v.Error = e.Message
			v.ErrorKind = e.Kind
		}
		view.Fields = append(view.Fields, v)
	}
	return view
}
