package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/cdaplus/fields"
)

const maxDraftBody = 1 << 20

type activeInput struct {
	Active bool `json:"active"`
}

type reorderInput struct {
	IDs []string `json:"ids"`
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDraftBody))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return body, true
}

// newDraft builds a draft carrying the defaults of the requested type with
// the request attributes laid over them.
func newDraft(body []byte) (*fields.Draft, error) {
	var head struct {
		Type fields.FieldType `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, err
	}
	d, err := Catalog.Registry().NewDraft(head.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, d); err != nil {
		return nil, err
	}
	d.ID = ""
	return d, nil
}

// writeFieldFailure also reports attributes of the wrong JSON type as a
// bad request.
func writeFieldFailure(w http.ResponseWriter, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+typeErr.Field)
		return
	}
	writeFailure(w, err, "field not found")
}

func listFields(w http.ResponseWriter, r *http.Request, scope string) {
	list := Catalog.Fields
	if r.URL.Query().Get("active") == "true" {
		list = Catalog.Active
	}
	fs, err := list(r.Context(), scope)
	if err != nil {
		writeFailure(w, err, "fields not found")
		return
	}
	if fs == nil {
		fs = []fields.DynamicField{}
	}
	writeJSON(w, http.StatusOK, fs)
}

func createField(w http.ResponseWriter, r *http.Request, scope string) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d, err := newDraft(body)
	if err != nil {
		writeFieldFailure(w, err)
		return
	}
	f, err := Catalog.SaveDraft(r.Context(), scope, d)
	if err != nil {
		writeFieldFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// updateField lays the request attributes over the stored definition, so
// omitted attributes keep their value. A new type first resets the draft to
// the defaults of that type.
func updateField(w http.ResponseWriter, r *http.Request, scope string) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var head struct {
		Type fields.FieldType `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		writeFieldFailure(w, err)
		return
	}
	id := chi.URLParam(r, "fieldId")
	var saved fields.DynamicField
	err := Catalog.Mutate(r.Context(), scope, func(_ *fields.Store, e *fields.Editor) error {
		d, err := e.Edit(id)
		if err != nil {
			return err
		}
		if head.Type != "" && head.Type != d.Type {
			if err := d.ChangeType(head.Type); err != nil {
				return err
			}
		}
		if err := json.Unmarshal(body, d); err != nil {
			return err
		}
		d.ID = id
		saved, err = e.Save(d)
		return err
	})
	if err != nil {
		writeFieldFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListFieldTypes lists the registered field types
// @Summary      List field types
// @Description  Get the field type catalog with labels and default settings.
// @Tags         fields
// @Produce      json
// @Success      200  {object}  Response{data=[]fields.TypeConfig}
// @Router       /field-types [get]
// @Security     BasicAuth
func ListFieldTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Catalog.Registry().Configs())
}

// ListContractFields lists the field schema of a contract
// @Summary      List contract fields
// @Description  Get the dynamic fields of a contract by order, inactive ones included unless active=true.
// @Tags         fields
// @Produce      json
// @Param        id      path      string  true   "Contract ID"
// @Param        active  query     bool    false  "Only active fields"
// @Success      200  {object}  Response{data=[]fields.DynamicField}
// @Failure      404  {object}  Response{error=string}
// @Router       /contracts/{id}/fields [get]
// @Security     BasicAuth
func ListContractFields(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	listFields(w, r, c.ID)
}

// CreateContractField adds a field to a contract
// @Summary      Create contract field
// @Description  Add a field to the contract schema. Unset attributes take the defaults of the field type.
// @Tags         fields
// @Accept       json
// @Produce      json
// @Param        id     path      string        true  "Contract ID"
// @Param        field  body      fields.Draft  true  "Field definition"
// @Success      201    {object}  Response{data=fields.DynamicField}
// @Failure      400    {object}  Response{error=string}
// @Failure      422    {object}  Response{data=fields.DraftErrors,error=string}
// @Router       /contracts/{id}/fields [post]
// @Security     BasicAuth
func CreateContractField(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	createField(w, r, c.ID)
}

// GetContractField retrieves one field of a contract
// @Summary      Get contract field
// @Tags         fields
// @Produce      json
// @Param        id       path      string  true  "Contract ID"
// @Param        fieldId  path      string  true  "Field ID"
// @Success      200  {object}  Response{data=fields.DynamicField}
// @Failure      404  {object}  Response{error=string}
// @Router       /contracts/{id}/fields/{fieldId} [get]
// @Security     BasicAuth
func GetContractField(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	var f fields.DynamicField
	err := Catalog.View(r.Context(), c.ID, func(s *fields.Store) error {
		var found bool
		if f, found = s.Get(chi.URLParam(r, "fieldId")); !found {
			return fields.ErrUnknownField
		}
		return nil
	})
	if err != nil {
		writeFailure(w, err, "field not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// UpdateContractField edits a field of a contract
// @Summary      Update contract field
// @Description  Change attributes of a field. Omitted attributes are kept.
// @Tags         fields
// @Accept       json
// @Produce      json
// @Param        id       path      string        true  "Contract ID"
// @Param        fieldId  path      string        true  "Field ID"
// @Param        field    body      fields.Draft  true  "Field attributes"
// @Success      200  {object}  Response{data=fields.DynamicField}
// @Failure      404  {object}  Response{error=string}
// @Failure      422  {object}  Response{data=fields.DraftErrors,error=string}
// @Router       /contracts/{id}/fields/{fieldId} [put]
// @Security     BasicAuth
func UpdateContractField(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	updateField(w, r, c.ID)
}

// SetContractFieldActive activates or deactivates a field
// @Summary      Activate or deactivate field
// @Description  Inactive fields stay in the schema but are neither rendered nor validated.
// @Tags         fields
// @Accept       json
// @Produce      json
// @Param        id       path      string       true  "Contract ID"
// @Param        fieldId  path      string       true  "Field ID"
// @Param        body     body      activeInput  true  "Desired state"
// @Success      200  {object}  Response{data=fields.DynamicField}
// @Failure      404  {object}  Response{error=string}
// @Router       /contracts/{id}/fields/{fieldId}/active [put]
// @Security     BasicAuth
func SetContractFieldActive(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	var input activeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	f, err := Catalog.SetActive(r.Context(), c.ID, chi.URLParam(r, "fieldId"), input.Active)
	if err != nil {
		writeFailure(w, err, "field not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteContractField is refused: contract fields are only deactivated
// @Summary      Delete contract field
// @Description  Contract fields cannot be removed, deactivate them instead.
// @Tags         fields
// @Produce      json
// @Param        id       path      string  true  "Contract ID"
// @Param        fieldId  path      string  true  "Field ID"
// @Failure      405  {object}  Response{error=string}
// @Router       /contracts/{id}/fields/{fieldId} [delete]
// @Security     BasicAuth
func DeleteContractField(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	if err := Catalog.Remove(r.Context(), c.ID, chi.URLParam(r, "fieldId")); err != nil {
		writeFailure(w, err, "field not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ReorderContractFields changes the field order of a contract
// @Summary      Reorder contract fields
// @Description  Listed ids come first in the given order; the others follow.
// @Tags         fields
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Contract ID"
// @Param        body  body      reorderInput  true  "Field ids in order"
// @Success      200  {object}  Response{data=[]fields.DynamicField}
// @Failure      400  {object}  Response{error=string}
// @Router       /contracts/{id}/fields/reorder [post]
// @Security     BasicAuth
func ReorderContractFields(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	var input reorderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	fs, err := Catalog.Reorder(r.Context(), c.ID, input.IDs)
	if err != nil {
		writeFailure(w, err, "field not found")
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

// GetContractFieldSchema exports the contract form as JSON Schema
// @Summary      Contract JSON Schema
// @Description  JSON Schema of the custom_fields object accepted for the contract's activities.
// @Tags         fields
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  Response{data=object}
// @Failure      404  {object}  Response{error=string}
// @Router       /contracts/{id}/fields/schema [get]
// @Security     BasicAuth
func GetContractFieldSchema(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	fs, err := Catalog.Fields(r.Context(), c.ID)
	if err != nil {
		writeFailure(w, err, "contract not found")
		return
	}
	writeJSON(w, http.StatusOK, fields.JSONSchema(Catalog.Registry(), c.Name, fs))
}

// ListGlobalFields lists the global field list
// @Summary      List global fields
// @Tags         fields
// @Produce      json
// @Param        active  query     bool    false  "Only active fields"
// @Success      200  {object}  Response{data=[]fields.DynamicField}
// @Router       /fields [get]
// @Security     BasicAuth
func ListGlobalFields(w http.ResponseWriter, r *http.Request) {
	listFields(w, r, fields.GlobalScope)
}

// CreateGlobalField adds a field to the global list
// @Summary      Create global field
// @Tags         fields
// @Accept       json
// @Produce      json
// @Param        field  body      fields.Draft  true  "Field definition"
// @Success      201  {object}  Response{data=fields.DynamicField}
// @Failure      422  {object}  Response{data=fields.DraftErrors,error=string}
// @Router       /fields [post]
// @Security     BasicAuth
func CreateGlobalField(w http.ResponseWriter, r *http.Request) {
	createField(w, r, fields.GlobalScope)
}

// UpdateGlobalField edits a global field
// @Summary      Update global field
// @Tags         fields
// @Accept       json
// @Produce      json
// @Param        fieldId  path      string        true  "Field ID"
// @Param        field    body      fields.Draft  true  "Field attributes"
// @Success      200  {object}  Response{data=fields.DynamicField}
// @Failure      404  {object}  Response{error=string}
// @Failure      422  {object}  Response{data=fields.DraftErrors,error=string}
// @Router       /fields/{fieldId} [put]
// @Security     BasicAuth
func UpdateGlobalField(w http.ResponseWriter, r *http.Request) {
	updateField(w, r, fields.GlobalScope)
}

// DeleteGlobalField removes a global field
// @Summary      Delete global field
// @Description  Hard removal; values stored under the field id are left as they are.
// @Tags         fields
// @Produce      json
// @Param        fieldId  path      string  true  "Field ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /fields/{fieldId} [delete]
// @Security     BasicAuth
func DeleteGlobalField(w http.ResponseWriter, r *http.Request) {
	if err := Catalog.Remove(r.Context(), fields.GlobalScope, chi.URLParam(r, "fieldId")); err != nil {
		writeFailure(w, err, "field not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
