package fields

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAdd(t *testing.T) {
	s := NewStore("c1", nil)
	a := s.Add(DynamicField{Name: "a", Label: "A", Type: TypeText, ID: "ignored", Order: 9})
	b := s.Add(DynamicField{Name: "b", Label: "B", Type: TypeDropdown, Options: []FieldOption{{Label: "X", Value: "x"}}})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, "ignored", a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 0, a.Order)
	assert.Equal(t, 1, b.Order)
	assert.True(t, a.IsActive)
	require.Len(t, b.Options, 1)
	assert.NotEmpty(t, b.Options[0].ID)
	assert.Equal(t, 2, s.Len())
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore("c1", nil)
	a := s.Add(DynamicField{Name: "a", Label: "A", Type: TypeText})
	other := s.Add(DynamicField{Name: "b", Label: "B", Type: TypeNumber})

	label := "Nova"
	assert.True(t, s.Update(a.ID, FieldPatch{Label: &label}))
	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "Nova", got.Label)
	assert.Equal(t, "a", got.Name)

	before := s.All()
	assert.False(t, s.Update("missing", FieldPatch{Label: &label}))
	assert.Equal(t, before, s.All())

	untouched, _ := s.Get(other.ID)
	assert.Equal(t, "B", untouched.Label)
}

func TestStoreRemove(t *testing.T) {
	s := NewStore("global", nil)
	a := s.Add(DynamicField{Name: "a", Label: "A", Type: TypeText})
	assert.True(t, s.Remove(a.ID))
	assert.False(t, s.Remove(a.ID))
	_, ok := s.Get(a.ID)
	assert.False(t, ok)
}

func TestStoreInactiveRetained(t *testing.T) {
	s := NewStore("c1", nil)
	a := s.Add(DynamicField{Name: "a", Label: "A", Type: TypeText})
	b := s.Add(DynamicField{Name: "b", Label: "B", Type: TypeText})

	require.True(t, s.ToggleActive(a.ID))
	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.False(t, got.IsActive)

	form := NewForm(nil, s.All())
	view := form.Render()
	require.Len(t, view.Fields, 1)
	assert.Equal(t, b.ID, view.Fields[0].FieldID)

	require.True(t, s.SetActive(a.ID, true))
	assert.Len(t, s.Active(), 2)
	assert.False(t, s.SetActive("missing", true))
	assert.False(t, s.ToggleActive("missing"))
}

func TestStoreActiveOrdering(t *testing.T) {
	s := NewStore("c1", []DynamicField{
		{ID: "x", Order: 2, IsActive: true},
		{ID: "y", Order: 1, IsActive: true},
		{ID: "z", Order: 1, IsActive: true},
		{ID: "w", Order: 0, IsActive: false},
	})
	var ids []string
	for _, f := range s.Active() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"y", "z", "x"}, ids)
}

func TestStoreReorder(t *testing.T) {
	s := NewStore("c1", nil)
	a := s.Add(DynamicField{Name: "a"})
	b := s.Add(DynamicField{Name: "b"})
	c := s.Add(DynamicField{Name: "c"})

	require.NoError(t, s.Reorder([]string{c.ID, a.ID}))
	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, []int{0, 1, 2}, []int{all[0].Order, all[1].Order, all[2].Order})

	assert.ErrorIs(t, s.Reorder([]string{"nope"}), ErrUnknownField)
	assert.ErrorIs(t, s.Reorder([]string{a.ID, a.ID}), ErrInvalidOrder)
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore("c1", nil)
	a := s.Add(DynamicField{Name: "a", Type: TypeDropdown, Options: []FieldOption{{ID: "1", Value: "v"}}})
	got, _ := s.Get(a.ID)
	got.Options[0].Value = "changed"
	again, _ := s.Get(a.ID)
	assert.Equal(t, "v", again.Options[0].Value)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore("c1", nil)
	v := NewValidator(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f := s.Add(DynamicField{Name: "n", Label: "L", Type: TypeText, Required: true})
			s.ToggleActive(f.ID)
		}()
		go func() {
			defer wg.Done()
			_ = v.Validate(s.Active(), map[string]any{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
}
