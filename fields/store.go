package fields

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// GlobalScope is the scope id of the process-wide field list.
const GlobalScope = "global"

// ErrUnknownField is returned when an operation names a field id the store
// does not hold.
var ErrUnknownField = errors.New("unknown field")

// ErrInvalidOrder is returned by Reorder when an id is listed twice.
var ErrInvalidOrder = errors.New("invalid field order")

// Bounds replaces the numeric bounds of a field as a whole.
type Bounds struct {
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
	Step *float64 `json:"step"`
}

// FieldPatch is a partial update. Nil members are left untouched.
type FieldPatch struct {
	Name        *string        `json:"name,omitempty"`
	Label       *string        `json:"label,omitempty"`
	Type        *FieldType     `json:"type,omitempty"`
	Required    *bool          `json:"required,omitempty"`
	Placeholder *string        `json:"placeholder,omitempty"`
	Description *string        `json:"description,omitempty"`
	Options     *[]FieldOption `json:"options,omitempty"`
	Bounds      *Bounds        `json:"bounds,omitempty"`
	Validation  *Validation    `json:"validation,omitempty"`
	Order       *int           `json:"order,omitempty"`
	IsActive    *bool          `json:"isActive,omitempty"`
}

func (p *FieldPatch) apply(f *DynamicField) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Placeholder != nil {
		f.Placeholder = *p.Placeholder
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Options != nil {
		f.Options = withOptionIDs(*p.Options)
	}
	if p.Bounds != nil {
		f.Min = cloneFloat(p.Bounds.Min)
		f.Max = cloneFloat(p.Bounds.Max)
		f.Step = cloneFloat(p.Bounds.Step)
	}
	if p.Validation != nil {
		v := Validation{MinLength: cloneInt(p.Validation.MinLength), MaxLength: cloneInt(p.Validation.MaxLength)}
		if v.MinLength == nil && v.MaxLength == nil {
			f.Validation = nil
		} else {
			f.Validation = &v
		}
	}
	if p.Order != nil {
		f.Order = *p.Order
	}
	if p.IsActive != nil {
		f.IsActive = *p.IsActive
	}
}

// Store holds the ordered field schema of one scope. Every method takes the
// lock for its whole duration, so readers never observe a half-applied
// mutation.
type Store struct {
	scope string

	mu     sync.RWMutex
	fields []DynamicField
}

// NewStore returns a store for scope seeded with fields. The seed is copied.
func NewStore(scope string, fields []DynamicField) *Store {
	s := &Store{scope: scope}
	for _, f := range fields {
		s.fields = append(s.fields, f.Clone())
	}
	return s
}

// Scope returns the scope id the store belongs to.
func (s *Store) Scope() string { return s.scope }

// Add appends a new field. It is given a fresh id, the next order slot and
// starts active.
func (s *Store) Add(f DynamicField) DynamicField {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := f.Clone()
	n.ID = uuid.NewString()
	n.Order = len(s.fields)
	n.IsActive = true
	n.Options = withOptionIDs(n.Options)
	s.fields = append(s.fields, n)
	return n.Clone()
}

// Update merges patch into the field with the given id. It reports false,
// and changes nothing, when the id is unknown.
func (s *Store) Update(id string, patch FieldPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	patch.apply(&s.fields[i])
	return true
}

// Remove deletes the field for good. Values already submitted for it are
// not touched.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.fields = append(s.fields[:i], s.fields[i+1:]...)
	return true
}

// SetActive sets the active flag of a field.
func (s *Store) SetActive(id string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.fields[i].IsActive = active
	return true
}

// ToggleActive flips the active flag of a field.
func (s *Store) ToggleActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.fields[i].IsActive = !s.fields[i].IsActive
	return true
}

// Reorder renumbers the fields so that ids come first, in the given order.
// Fields not listed follow, keeping their current relative order.
func (s *Store) Reorder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: duplicate field id %q", ErrInvalidOrder, id)
		}
		if s.index(id) < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownField, id)
		}
		seen[id] = true
	}

	rest := sorted(s.fields)
	next := make([]DynamicField, 0, len(s.fields))
	for _, id := range ids {
		next = append(next, s.fields[s.index(id)])
	}
	for _, f := range rest {
		if !seen[f.ID] {
			next = append(next, f)
		}
	}
	for i := range next {
		next[i].Order = i
	}
	s.fields = next
	return nil
}

// Get returns a copy of the field with the given id.
func (s *Store) Get(id string) (DynamicField, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return DynamicField{}, false
	}
	return s.fields[i].Clone(), true
}

// All returns every field, active or not, sorted by order.
func (s *Store) All() []DynamicField {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.fields)
}

// Active returns the fields a form renders: active only, by ascending order.
func (s *Store) Active() []DynamicField {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ActiveFields(sorted(s.fields))
}

// Len returns the number of fields, active or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fields)
}

func (s *Store) index(id string) int {
	for i := range s.fields {
		if s.fields[i].ID == id {
			return i
		}
	}
	return -1
}

func sorted(fields []DynamicField) []DynamicField {
	out := make([]DynamicField, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func withOptionIDs(opts []FieldOption) []FieldOption {
	if opts == nil {
		return nil
	}
	out := make([]FieldOption, len(opts))
	for i, o := range opts {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		out[i] = o
	}
	return out
}
