package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/satheeshds/cdaplus/db"
	"github.com/satheeshds/cdaplus/fields"
	"github.com/satheeshds/cdaplus/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func newServer(t *testing.T, opts RouterOptions) http.Handler {
	t.Helper()
	Setup(db.NewMemory(), nil)
	return NewRouter(opts)
}

func call(t *testing.T, h http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

func createContract(t *testing.T, h http.Handler, name string) models.Contract {
	t.Helper()
	code, env := call(t, h, http.MethodPost, "/api/v1/contracts", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, code, env.Error)
	return decode[models.Contract](t, env)
}

func mustCreateField(t *testing.T, h http.Handler, path string, body map[string]any) fields.DynamicField {
	t.Helper()
	code, env := call(t, h, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, code, env.Error)
	return decode[fields.DynamicField](t, env)
}

func TestContractEndpoints(t *testing.T) {
	h := newServer(t, RouterOptions{})

	code, env := call(t, h, http.MethodPost, "/api/v1/contracts", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "name is required", env.Error)

	c := createContract(t, h, "Obra Norte")
	assert.True(t, c.Active)

	code, env = call(t, h, http.MethodGet, "/api/v1/contracts?search=norte", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Contract](t, env), 1)

	code, env = call(t, h, http.MethodPut, "/api/v1/contracts/"+c.ID, map[string]any{"name": "Obra Sul", "active": false})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[models.Contract](t, env)
	assert.Equal(t, "Obra Sul", updated.Name)
	assert.False(t, updated.Active)

	code, _ = call(t, h, http.MethodGet, "/api/v1/contracts/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, h, http.MethodDelete, "/api/v1/contracts/"+c.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodGet, "/api/v1/contracts/"+c.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFieldTypes(t *testing.T) {
	h := newServer(t, RouterOptions{})
	code, env := call(t, h, http.MethodGet, "/api/v1/field-types", nil)
	require.Equal(t, http.StatusOK, code)
	types := decode[[]map[string]any](t, env)
	assert.Len(t, types, 6)
}

func TestContractFieldLifecycle(t *testing.T) {
	h := newServer(t, RouterOptions{})
	c := createContract(t, h, "Obra")
	base := "/api/v1/contracts/" + c.ID + "/fields"

	notes := mustCreateField(t, h, base, map[string]any{"name": "notes", "label": "Notas", "type": "text"})
	require.NotNil(t, notes.Validation)
	assert.Equal(t, 255, *notes.Validation.MaxLength, "type defaults apply")
	assert.True(t, notes.IsActive)

	code, env := call(t, h, http.MethodPost, base, map[string]any{"name": "kind", "label": "Tipo", "type": "dropdown"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, decode[map[string]string](t, env), "options")

	code, env = call(t, h, http.MethodPost, base, map[string]any{"name": "x", "label": "X", "type": "color"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "unknown field type")

	code, env = call(t, h, http.MethodPost, base, map[string]any{"name": "NOTES", "label": "Outra", "type": "text"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, decode[map[string]string](t, env), "name")

	value := mustCreateField(t, h, base, map[string]any{"name": "value", "label": "Valor", "type": "currency", "required": true})
	assert.Equal(t, 1, value.Order)

	code, env = call(t, h, http.MethodPut, base+"/"+notes.ID, map[string]any{"label": "Observações"})
	require.Equal(t, http.StatusOK, code, env.Error)
	edited := decode[fields.DynamicField](t, env)
	assert.Equal(t, "Observações", edited.Label)
	assert.Equal(t, "notes", edited.Name, "omitted attributes are kept")

	code, env = call(t, h, http.MethodPost, base+"/reorder", map[string]any{"ids": []string{value.ID}})
	require.Equal(t, http.StatusOK, code, env.Error)
	ordered := decode[[]fields.DynamicField](t, env)
	assert.Equal(t, value.ID, ordered[0].ID)

	code, env = call(t, h, http.MethodPut, base+"/"+value.ID+"/active", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.False(t, decode[fields.DynamicField](t, env).IsActive)

	code, env = call(t, h, http.MethodGet, base+"?active=true", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]fields.DynamicField](t, env), 1)
	code, env = call(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]fields.DynamicField](t, env), 2, "inactive fields are retained")

	code, _ = call(t, h, http.MethodDelete, base+"/"+notes.ID, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = call(t, h, http.MethodGet, base+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, h, http.MethodGet, "/api/v1/contracts/missing/fields", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFieldTypeChangeResetsDefaults(t *testing.T) {
	h := newServer(t, RouterOptions{})
	c := createContract(t, h, "Obra")
	base := "/api/v1/contracts/" + c.ID + "/fields"

	kind := mustCreateField(t, h, base, map[string]any{
		"name": "kind", "label": "Tipo", "type": "dropdown",
		"options": []map[string]any{{"label": "A", "value": "a"}},
	})
	code, env := call(t, h, http.MethodPut, base+"/"+kind.ID, map[string]any{"type": "text"})
	require.Equal(t, http.StatusOK, code, env.Error)
	text := decode[fields.DynamicField](t, env)
	assert.Equal(t, fields.TypeText, text.Type)
	assert.Empty(t, text.Options)
	require.NotNil(t, text.Validation)
	require.NotNil(t, text.Validation.MaxLength)
	assert.Equal(t, 255, *text.Validation.MaxLength)
	assert.Equal(t, "kind", text.Name)

	hours := mustCreateField(t, h, base, map[string]any{"name": "hours", "label": "Horas", "type": "number", "max": 8})
	code, env = call(t, h, http.MethodPut, base+"/"+hours.ID, map[string]any{"type": "currency"})
	require.Equal(t, http.StatusOK, code, env.Error)
	money := decode[fields.DynamicField](t, env)
	assert.Equal(t, fields.TypeCurrency, money.Type)
	require.NotNil(t, money.Min)
	require.NotNil(t, money.Step)
	assert.Equal(t, 0.0, *money.Min)
	assert.Equal(t, 0.01, *money.Step)
	assert.Nil(t, money.Max)

	// Attributes sent with the new type apply over its defaults.
	code, env = call(t, h, http.MethodPut, base+"/"+hours.ID, map[string]any{"type": "number", "step": 0.5})
	require.Equal(t, http.StatusOK, code, env.Error)
	num := decode[fields.DynamicField](t, env)
	require.NotNil(t, num.Step)
	assert.Equal(t, 0.5, *num.Step)
	assert.Nil(t, num.Min)

	code, _ = call(t, h, http.MethodPut, base+"/"+hours.ID, map[string]any{"type": "color"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateActivityKeepsInactiveValues(t *testing.T) {
	h := newServer(t, RouterOptions{})
	c := createContract(t, h, "Obra")
	base := "/api/v1/contracts/" + c.ID

	old := mustCreateField(t, h, base+"/fields", map[string]any{"name": "old", "label": "Antigo", "type": "text"})
	cur := mustCreateField(t, h, base+"/fields", map[string]any{"name": "cur", "label": "Atual", "type": "text"})

	code, env := call(t, h, http.MethodPost, base+"/activities", map[string]any{
		"title":         "Vistoria",
		"custom_fields": map[string]any{old.ID: "historico", cur.ID: "x"},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	a := decode[models.Activity](t, env)

	code, _ = call(t, h, http.MethodPut, base+"/fields/"+old.ID+"/active", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, h, http.MethodPut, "/api/v1/activities/"+a.ID, map[string]any{
		"title":         "Vistoria",
		"custom_fields": map[string]any{cur.ID: "y"},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[models.Activity](t, env)
	assert.Equal(t, map[string]any{old.ID: "historico", cur.ID: "y"}, updated.CustomFields)
}

func TestGlobalFields(t *testing.T) {
	h := newServer(t, RouterOptions{})
	f := mustCreateField(t, h, "/api/v1/fields", map[string]any{"name": "area", "label": "Área", "type": "number"})

	code, env := call(t, h, http.MethodGet, "/api/v1/fields", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]fields.DynamicField](t, env), 1)

	code, _ = call(t, h, http.MethodDelete, "/api/v1/fields/"+f.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodDelete, "/api/v1/fields/"+f.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestActivityCustomFieldValidation(t *testing.T) {
	h := newServer(t, RouterOptions{})
	c := createContract(t, h, "Obra")
	base := "/api/v1/contracts/" + c.ID

	value := mustCreateField(t, h, base+"/fields", map[string]any{
		"name": "value", "label": "Valor", "type": "currency", "required": true, "max": 5000,
	})
	notes := mustCreateField(t, h, base+"/fields", map[string]any{
		"name": "notes", "label": "Notas", "type": "text", "validation": map[string]any{"minLength": 3},
	})

	code, env := call(t, h, http.MethodPost, base+"/activities", map[string]any{
		"title":         "Vistoria",
		"custom_fields": map[string]any{notes.ID: "ab"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	errs := decode[[]fields.ValidationError](t, env)
	require.Len(t, errs, 2)
	assert.Equal(t, value.ID, errs[0].FieldID)
	assert.Equal(t, fields.KindRequired, errs[0].Kind)
	assert.Equal(t, fields.KindTooShort, errs[1].Kind)

	code, env = call(t, h, http.MethodPost, base+"/activities", map[string]any{
		"title":         "Vistoria",
		"activity_date": "2024-05-02",
		"custom_fields": map[string]any{value.ID: "R$ 1.234,56", "stale": "x"},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	a := decode[models.Activity](t, env)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, map[string]any{value.ID: 1234.56}, a.CustomFields)

	// A deactivated required field no longer blocks submissions.
	code, _ = call(t, h, http.MethodPut, base+"/fields/"+value.ID+"/active", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, code)
	code, env = call(t, h, http.MethodPut, "/api/v1/activities/"+a.ID, map[string]any{
		"title":         "Vistoria final",
		"status":        "approved",
		"custom_fields": map[string]any{value.ID: 10},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[models.Activity](t, env)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, float64(10), updated.CustomFields[value.ID], "values of inactive fields are kept")

	code, env = call(t, h, http.MethodGet, base+"/activities", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Activity](t, env), 1)

	code, env = call(t, h, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, code)
	d := decode[models.Dashboard](t, env)
	assert.Equal(t, 1, d.ApprovedActivities)

	code, _ = call(t, h, http.MethodDelete, "/api/v1/activities/"+a.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodGet, "/api/v1/activities/"+a.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestContractForm(t *testing.T) {
	h := newServer(t, RouterOptions{})
	c := createContract(t, h, "Obra")
	base := "/api/v1/contracts/" + c.ID

	code, env := call(t, h, http.MethodPost, base+"/form", map[string]any{})
	require.Equal(t, http.StatusOK, code, env.Error)
	empty := decode[formOutput](t, env)
	assert.True(t, empty.Form.Empty)
	assert.Equal(t, fields.EmptyFormMessage, empty.Form.EmptyMessage)

	value := mustCreateField(t, h, base+"/fields", map[string]any{"name": "value", "label": "Valor", "type": "currency", "required": true})

	code, env = call(t, h, http.MethodPost, base+"/form", map[string]any{
		"changes": []map[string]any{{"fieldId": value.ID, "value": "R$ 2,50"}},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	out := decode[formOutput](t, env)
	assert.True(t, out.Form.Valid)
	require.Len(t, out.Form.Fields, 1)
	assert.Equal(t, "R$ 2,50", out.Form.Fields[0].Display)
	assert.Equal(t, 2.5, out.Values[value.ID])

	code, _ = call(t, h, http.MethodPost, base+"/form", map[string]any{
		"changes": []map[string]any{{"fieldId": "nope", "value": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = call(t, h, http.MethodPost, base+"/form/validate", map[string]any{"values": map[string]any{}})
	require.Equal(t, http.StatusOK, code)
	res := decode[validationOutput](t, env)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Campo obrigatório", res.Errors[0].Message)

	code, env = call(t, h, http.MethodGet, base+"/fields/schema", nil)
	require.Equal(t, http.StatusOK, code)
	schema := decode[map[string]any](t, env)
	assert.Equal(t, []any{value.ID}, schema["required"])
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	h := newServer(t, RouterOptions{AuthUser: "admin", AuthPasswordHash: string(hash)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/contracts", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/contracts", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health checks stay outside the authenticated API.
	code, _ := call(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRateLimit(t *testing.T) {
	h := newServer(t, RouterOptions{RateLimit: 0.001, RateBurst: 1})

	code, _ := call(t, h, http.MethodGet, "/api/v1/contracts", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env := call(t, h, http.MethodGet, "/api/v1/contracts", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", env.Error)
}
