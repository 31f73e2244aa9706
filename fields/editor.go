package fields

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DraftErrors maps a draft attribute ("name", "label", "options", ...) to
// the message shown next to it. A draft with errors is never persisted.
type DraftErrors map[string]string

func (e DraftErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid field definition: " + strings.Join(parts, "; ")
}

// Draft is the editable copy of a field definition.
type Draft struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	Label       string        `json:"label"`
	Type        FieldType     `json:"type"`
	Required    bool          `json:"required"`
	Placeholder string        `json:"placeholder,omitempty"`
	Description string        `json:"description,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
	Min         *float64      `json:"min,omitempty"`
	Max         *float64      `json:"max,omitempty"`
	Step        *float64      `json:"step,omitempty"`
	Validation  *Validation   `json:"validation,omitempty"`

	registry *Registry
}

// ChangeType switches the draft to t and resets options and validation to
// the registry defaults of t, so no stale shape survives the switch.
func (d *Draft) ChangeType(t FieldType) error {
	if d.registry == nil {
		d.registry = DefaultRegistry()
	}
	cfg, err := d.registry.Config(t)
	if err != nil {
		return err
	}
	d.Type = t
	d.Options = nil
	if t.HasOptions() {
		d.Options = cfg.DefaultOptions
	}
	var f DynamicField
	cfg.DefaultValidation.Apply(&f)
	d.Min, d.Max, d.Step, d.Validation = f.Min, f.Max, f.Step, f.Validation
	return nil
}

// AddOption appends an option with a fresh id and returns it.
func (d *Draft) AddOption(label, value string) FieldOption {
	o := FieldOption{ID: uuid.NewString(), Label: label, Value: value}
	d.Options = append(d.Options, o)
	return o
}

// UpdateOption edits the option with the given id.
func (d *Draft) UpdateOption(id, label, value string) bool {
	for i := range d.Options {
		if d.Options[i].ID == id {
			d.Options[i].Label = label
			d.Options[i].Value = value
			return true
		}
	}
	return false
}

// RemoveOption drops the option with the given id.
func (d *Draft) RemoveOption(id string) bool {
	for i := range d.Options {
		if d.Options[i].ID == id {
			d.Options = append(d.Options[:i], d.Options[i+1:]...)
			return true
		}
	}
	return false
}

// field returns the definition the draft describes, keeping only the
// attributes its type uses.
func (d *Draft) field() DynamicField {
	f := DynamicField{
		ID:          d.ID,
		Name:        strings.TrimSpace(d.Name),
		Label:       strings.TrimSpace(d.Label),
		Type:        d.Type,
		Required:    d.Required,
		Placeholder: d.Placeholder,
		Description: d.Description,
	}
	switch {
	case d.Type.HasOptions():
		f.Options = withOptionIDs(d.Options)
	case d.Type.IsNumeric():
		f.Min, f.Max, f.Step = cloneFloat(d.Min), cloneFloat(d.Max), cloneFloat(d.Step)
	case d.Type == TypeText && d.Validation != nil:
		f.Validation = &Validation{MinLength: cloneInt(d.Validation.MinLength), MaxLength: cloneInt(d.Validation.MaxLength)}
	}
	return f
}

// Editor authors field definitions of one store.
type Editor struct {
	store    *Store
	registry *Registry
}

// NewEditor returns an editor writing to store.
func NewEditor(store *Store, reg *Registry) *Editor {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Editor{store: store, registry: reg}
}

// NewDraft starts a new definition of type t with the type defaults.
func (e *Editor) NewDraft(t FieldType) (*Draft, error) {
	return e.registry.NewDraft(t)
}

// NewDraft starts a definition of type t carrying the defaults of t.
func (r *Registry) NewDraft(t FieldType) (*Draft, error) {
	d := &Draft{registry: r}
	if err := d.ChangeType(t); err != nil {
		return nil, err
	}
	return d, nil
}

// Edit loads the stored field id into a draft.
func (e *Editor) Edit(id string) (*Draft, error) {
	f, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	return DraftOf(e.registry, f), nil
}

// DraftOf wraps an existing definition in a draft bound to reg.
func DraftOf(reg *Registry, f DynamicField) *Draft {
	f = f.Clone()
	return &Draft{
		ID:          f.ID,
		Name:        f.Name,
		Label:       f.Label,
		Type:        f.Type,
		Required:    f.Required,
		Placeholder: f.Placeholder,
		Description: f.Description,
		Options:     f.Options,
		Min:         f.Min,
		Max:         f.Max,
		Step:        f.Step,
		Validation:  f.Validation,
		registry:    reg,
	}
}

// Bind attaches a draft decoded from outside (JSON, YAML) to the editor's
// registry.
func (e *Editor) Bind(d *Draft) *Draft {
	d.registry = e.registry
	return d
}

// Check returns the problems that block saving d, or nil.
func (e *Editor) Check(d *Draft) DraftErrors {
	errs := DraftErrors{}
	f := d.field()
	if f.Name == "" {
		errs["name"] = "Nome é obrigatório"
	}
	if f.Label == "" {
		errs["label"] = "Rótulo é obrigatório"
	}
	if !e.registry.Has(f.Type) {
		errs["type"] = "Tipo de campo inválido"
	}
	if f.Type.HasOptions() {
		if len(f.Options) == 0 {
			errs["options"] = "Adicione ao menos uma opção"
		}
		for _, o := range f.Options {
			if strings.TrimSpace(o.Value) == "" || strings.TrimSpace(o.Label) == "" {
				errs["options"] = "Opções precisam de rótulo e valor"
				break
			}
		}
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		errs["max"] = "Valor máximo menor que o mínimo"
	}
	if f.Step != nil && *f.Step <= 0 {
		errs["step"] = "Incremento deve ser positivo"
	}
	if v := f.Validation; v != nil {
		if (v.MinLength != nil && *v.MinLength < 0) || (v.MaxLength != nil && *v.MaxLength < 0) {
			errs["validation"] = "Tamanhos não podem ser negativos"
		} else if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
			errs["validation"] = "Tamanho máximo menor que o mínimo"
		}
	}
	if f.Name != "" {
		for _, other := range e.store.All() {
			if other.ID != f.ID && strings.EqualFold(strings.TrimSpace(other.Name), f.Name) {
				errs["name"] = "Já existe um campo com este nome"
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Save persists d into the store: a draft without id becomes a new active
// field, otherwise the stored field is replaced attribute by attribute.
// Invalid drafts return DraftErrors and leave the store untouched.
func (e *Editor) Save(d *Draft) (DynamicField, error) {
	if errs := e.Check(d); errs != nil {
		return DynamicField{}, errs
	}
	f := d.field()
	if f.ID == "" {
		return e.store.Add(f), nil
	}
	opts := f.Options
	patch := FieldPatch{
		Name:        &f.Name,
		Label:       &f.Label,
		Type:        &f.Type,
		Required:    &f.Required,
		Placeholder: &f.Placeholder,
		Description: &f.Description,
		Options:     &opts,
		Bounds:      &Bounds{Min: f.Min, Max: f.Max, Step: f.Step},
		Validation:  &Validation{},
	}
	if f.Validation != nil {
		patch.Validation = f.Validation
	}
	if !e.store.Update(f.ID, patch) {
		return DynamicField{}, fmt.Errorf("%w: %q", ErrUnknownField, f.ID)
	}
	saved, _ := e.store.Get(f.ID)
	return saved, nil
}
