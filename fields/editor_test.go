package fields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorRequiresNameAndLabel(t *testing.T) {
	s := NewStore("c1", nil)
	e := NewEditor(s, nil)
	d, err := e.NewDraft(TypeText)
	require.NoError(t, err)
	d.Name, d.Label = "  ", ""

	_, err = e.Save(d)
	var derrs DraftErrors
	require.True(t, errors.As(err, &derrs))
	assert.Contains(t, derrs, "name")
	assert.Contains(t, derrs, "label")
	assert.Equal(t, 0, s.Len())
}

func TestEditorDropdownNeedsOptions(t *testing.T) {
	s := NewStore("c1", nil)
	e := NewEditor(s, nil)
	d, err := e.NewDraft(TypeDropdown)
	require.NoError(t, err)
	d.Name, d.Label = "kind", "Tipo"

	errs := e.Check(d)
	require.NotNil(t, errs)
	assert.Contains(t, errs, "options")

	o := d.AddOption("Manutenção", "manutencao")
	assert.NotEmpty(t, o.ID)
	assert.Nil(t, e.Check(d))

	f, err := e.Save(d)
	require.NoError(t, err)
	assert.True(t, f.IsActive)
	require.Len(t, f.Options, 1)
	assert.Equal(t, o.ID, f.Options[0].ID)
}

func TestEditorOptionSubEditor(t *testing.T) {
	d, err := NewEditor(NewStore("c1", nil), nil).NewDraft(TypeMultiDropdown)
	require.NoError(t, err)
	a := d.AddOption("A", "a")
	b := d.AddOption("B", "b")

	assert.True(t, d.UpdateOption(a.ID, "Alfa", "alfa"))
	assert.False(t, d.UpdateOption("nope", "x", "x"))
	assert.True(t, d.RemoveOption(b.ID))
	assert.False(t, d.RemoveOption(b.ID))
	assert.Equal(t, []FieldOption{{ID: a.ID, Label: "Alfa", Value: "alfa"}}, d.Options)
}

func TestDraftChangeTypeResetsShape(t *testing.T) {
	s := NewStore("c1", nil)
	e := NewEditor(s, nil)
	d, err := e.NewDraft(TypeDropdown)
	require.NoError(t, err)
	d.AddOption("X", "x")
	d.Validation = &Validation{MinLength: Int(9)}

	require.NoError(t, d.ChangeType(TypeText))
	assert.Empty(t, d.Options)
	require.NotNil(t, d.Validation)
	assert.Nil(t, d.Validation.MinLength)
	assert.Equal(t, 255, *d.Validation.MaxLength)

	require.NoError(t, d.ChangeType(TypeCurrency))
	assert.Nil(t, d.Validation)
	assert.Equal(t, 0.0, *d.Min)
	assert.Equal(t, 0.01, *d.Step)

	assert.ErrorIs(t, d.ChangeType("checkbox"), ErrUnknownFieldType)
	assert.Equal(t, TypeCurrency, d.Type)
}

func TestEditorUpdateExisting(t *testing.T) {
	s := NewStore("c1", nil)
	e := NewEditor(s, nil)
	d, _ := e.NewDraft(TypeDropdown)
	d.Name, d.Label = "kind", "Tipo"
	d.AddOption("X", "x")
	created, err := e.Save(d)
	require.NoError(t, err)

	edit, err := e.Edit(created.ID)
	require.NoError(t, err)
	require.NoError(t, edit.ChangeType(TypeText))
	edit.Label = "Descrição"
	updated, err := e.Save(edit)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, TypeText, updated.Type)
	assert.Empty(t, updated.Options)
	assert.Equal(t, 255, *updated.Validation.MaxLength)
	assert.Equal(t, 1, s.Len())

	_, err = e.Edit("missing")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestEditorNameUnique(t *testing.T) {
	s := NewStore("c1", nil)
	e := NewEditor(s, nil)
	d, _ := e.NewDraft(TypeText)
	d.Name, d.Label = "local", "Local"
	first, err := e.Save(d)
	require.NoError(t, err)

	dup, _ := e.NewDraft(TypeNumber)
	dup.Name, dup.Label = " LOCAL ", "Outro"
	errs := e.Check(dup)
	require.NotNil(t, errs)
	assert.Equal(t, "Já existe um campo com este nome", errs["name"])

	same, _ := e.Edit(first.ID)
	assert.Nil(t, e.Check(same), "a field does not clash with itself")
}

func TestEditorBoundsChecks(t *testing.T) {
	e := NewEditor(NewStore("c1", nil), nil)
	d, _ := e.NewDraft(TypeNumber)
	d.Name, d.Label = "n", "N"
	d.Min, d.Max = Float(5), Float(1)
	assert.Contains(t, e.Check(d), "max")

	d.Min, d.Max, d.Step = nil, nil, Float(0)
	assert.Contains(t, e.Check(d), "step")

	txt, _ := e.NewDraft(TypeText)
	txt.Name, txt.Label = "t", "T"
	txt.Validation = &Validation{MinLength: Int(5), MaxLength: Int(2)}
	assert.Contains(t, e.Check(txt), "validation")
}

func TestDraftErrorsMessage(t *testing.T) {
	err := DraftErrors{"name": "a", "label": "b"}
	assert.Equal(t, "invalid field definition: label: b; name: a", err.Error())
}
