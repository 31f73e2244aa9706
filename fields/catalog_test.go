package fields

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapRepo struct {
	mu     sync.Mutex
	scopes map[string][]DynamicField
	fail   error
}

func (m *mapRepo) Load(_ context.Context, scope string) ([]DynamicField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DynamicField(nil), m.scopes[scope]...), nil
}

func (m *mapRepo) Save(_ context.Context, scope string, fields []DynamicField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if m.scopes == nil {
		m.scopes = map[string][]DynamicField{}
	}
	m.scopes[scope] = fields
	return nil
}

func newDraft(t *testing.T, typ FieldType, name string) *Draft {
	t.Helper()
	d, err := NewEditor(NewStore("", nil), nil).NewDraft(typ)
	require.NoError(t, err)
	d.Name, d.Label = name, name
	return d
}

func TestCatalogPersistsMutations(t *testing.T) {
	ctx := context.Background()
	repo := &mapRepo{}
	c := NewCatalog(repo, nil)

	f, err := c.SaveDraft(ctx, "c1", newDraft(t, TypeText, "local"))
	require.NoError(t, err)

	stored, err := c.Fields(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, f.ID, stored[0].ID)

	_, err = c.SetActive(ctx, "c1", f.ID, false)
	require.NoError(t, err)
	active, err := c.Active(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, active)
	all, _ := c.Fields(ctx, "c1")
	assert.Len(t, all, 1, "deactivated fields stay in the schema")

	other, _ := c.Fields(ctx, "c2")
	assert.Empty(t, other)
}

func TestCatalogInvalidDraftNotSaved(t *testing.T) {
	ctx := context.Background()
	repo := &mapRepo{}
	c := NewCatalog(repo, nil)

	_, err := c.SaveDraft(ctx, "c1", newDraft(t, TypeDropdown, "kind"))
	var derrs DraftErrors
	require.True(t, errors.As(err, &derrs))
	assert.Contains(t, derrs, "options")
	assert.Empty(t, repo.scopes["c1"])
}

func TestCatalogRemovePolicy(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(&mapRepo{}, nil)

	f, err := c.SaveDraft(ctx, "c1", newDraft(t, TypeText, "a"))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Remove(ctx, "c1", f.ID), ErrRemoveNotAllowed)

	g, err := c.SaveDraft(ctx, GlobalScope, newDraft(t, TypeText, "a"))
	require.NoError(t, err)
	require.NoError(t, c.Remove(ctx, GlobalScope, g.ID))
	assert.ErrorIs(t, c.Remove(ctx, GlobalScope, g.ID), ErrUnknownField)
	all, _ := c.Fields(ctx, GlobalScope)
	assert.Empty(t, all)
}

func TestCatalogSaveFailure(t *testing.T) {
	repo := &mapRepo{fail: errors.New("disk full")}
	c := NewCatalog(repo, nil)
	_, err := c.SaveDraft(context.Background(), "c1", newDraft(t, TypeText, "a"))
	assert.ErrorContains(t, err, "disk full")
}

func TestCatalogImportIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := &mapRepo{}
	c := NewCatalog(repo, nil)

	good := newDraft(t, TypeText, "a")
	bad := newDraft(t, TypeText, "")
	_, err := c.Import(ctx, "c1", []*Draft{good, bad})
	require.Error(t, err)
	assert.Empty(t, repo.scopes["c1"])

	out, err := c.Import(ctx, "c1", []*Draft{newDraft(t, TypeText, "a"), newDraft(t, TypeNumber, "b")})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[1].Order)
}

func TestCatalogReorder(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(&mapRepo{}, nil)
	a, _ := c.SaveDraft(ctx, "c1", newDraft(t, TypeText, "a"))
	b, _ := c.SaveDraft(ctx, "c1", newDraft(t, TypeText, "b"))

	out, err := c.Reorder(ctx, "c1", []string{b.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, []string{out[0].ID, out[1].ID})
}

func TestYAMLImportExport(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(&mapRepo{}, nil)
	d := newDraft(t, TypeDropdown, "kind")
	d.AddOption("X", "x")
	_, err := c.SaveDraft(ctx, "c1", d)
	require.NoError(t, err)
	_, err = c.SaveDraft(ctx, "c1", newDraft(t, TypeDate, "when"))
	require.NoError(t, err)

	fields, _ := c.Fields(ctx, "c1")
	data, err := MarshalYAML("c1", fields)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: dropdown")

	doc, err := UnmarshalYAML(data)
	require.NoError(t, err)
	assert.Equal(t, "c1", doc.Scope)

	imported, err := c.Import(ctx, "c2", doc.Drafts(c.Registry()))
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.NotEqual(t, fields[0].ID, imported[0].ID)
	assert.Equal(t, "kind", imported[0].Name)
	assert.Equal(t, "x", imported[0].Options[0].Value)
	assert.Equal(t, "when", imported[1].Name)
	for _, f := range imported {
		assert.True(t, f.IsActive)
	}
	for _, d := range doc.Drafts(nil) {
		assert.Empty(t, d.ID)
	}

	_, err = UnmarshalYAML([]byte("fields: [: bad"))
	assert.Error(t, err)
}

func TestJSONSchema(t *testing.T) {
	text := field("t", TypeText, true)
	text.Validation = &Validation{MinLength: Int(2), MaxLength: Int(10)}
	num := field("n", TypeCurrency, false)
	num.Min, num.Step, num.Order = Float(0), Float(0.01), 1
	multi := field("m", TypeMultiDropdown, true)
	multi.Options = []FieldOption{{ID: "1", Label: "A", Value: "a"}}
	multi.Order = 2
	pick := field("d", TypeDropdown, true)
	pick.Options = []FieldOption{{ID: "1", Label: "Início", Value: "inicio"}, {ID: "2", Label: "Fim", Value: "fim"}}
	pick.Order = 3
	off := field("off", TypeText, true)
	off.IsActive = false

	s := JSONSchema(nil, "Contrato", []DynamicField{multi, num, text, pick, off})
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, "Contrato", doc["title"])
	assert.ElementsMatch(t, []any{"t", "m", "d"}, doc["required"])

	props := doc["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.NotContains(t, props, "off")
	tp := props["t"].(map[string]any)
	assert.Equal(t, "string", tp["type"])
	assert.EqualValues(t, 2, tp["minLength"])
	assert.EqualValues(t, 10, tp["maxLength"])
	np := props["n"].(map[string]any)
	assert.Equal(t, "number", np["type"])
	assert.EqualValues(t, 0, np["minimum"])
	mp := props["m"].(map[string]any)
	assert.Equal(t, "array", mp["type"])
	assert.EqualValues(t, 1, mp["minItems"])
	dp := props["d"].(map[string]any)
	assert.Equal(t, []any{"inicio", "fim"}, dp["enum"])
}
