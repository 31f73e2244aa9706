package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/satheeshds/cdaplus/fields"
)

type formInput struct {
	Values  map[string]any      `json:"values"`
	Changes []fields.FieldValue `json:"changes"`
}

type formOutput struct {
	Form   fields.FormView `json:"form"`
	Values map[string]any  `json:"values"`
}

type validationOutput struct {
	Valid  bool                     `json:"valid"`
	Errors []fields.ValidationError `json:"errors"`
}

// RenderContractForm renders the custom field form of a contract
// @Summary      Render contract form
// @Description  Describe the widgets of the contract's active fields for the given values. Changes are raw
// @Description  widget inputs applied in order after the values, e.g. "R$ 1.234,56" for a currency field.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        id    path      string     true  "Contract ID"
// @Param        form  body      formInput  true  "Current values and pending changes"
// @Success      200   {object}  Response{data=formOutput}
// @Failure      400   {object}  Response{error=string}
// @Failure      404   {object}  Response{error=string}
// @Router       /contracts/{id}/form [post]
// @Security     BasicAuth
func RenderContractForm(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	var input formInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	schema, err := Catalog.Active(r.Context(), c.ID)
	if err != nil {
		writeFailure(w, err, "contract not found")
		return
	}

	form := fields.NewForm(Catalog.Registry(), schema, fields.WithInitialData(input.Values))
	for _, ch := range input.Changes {
		if err := form.Change(ch.FieldID, ch.Value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, formOutput{Form: form.Render(), Values: form.Values()})
}

// ValidateContractForm validates custom field values without saving them
// @Summary      Validate contract form
// @Description  Check values against the contract's active fields. Unknown keys are ignored.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        id    path      string     true  "Contract ID"
// @Param        form  body      formInput  true  "Values to check"
// @Success      200   {object}  Response{data=validationOutput}
// @Failure      404   {object}  Response{error=string}
// @Router       /contracts/{id}/form/validate [post]
// @Security     BasicAuth
func ValidateContractForm(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	var input formInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	schema, err := Catalog.Fields(r.Context(), c.ID)
	if err != nil {
		writeFailure(w, err, "contract not found")
		return
	}

	errs := checkValues(schema, input.Values)
	writeJSON(w, http.StatusOK, validationOutput{Valid: len(errs) == 0, Errors: errs})
}

// checkValues normalizes values through the widgets of schema and
// validates them. The result is never nil.
func checkValues(schema []fields.DynamicField, values map[string]any) []fields.ValidationError {
	errs := fields.NewValidator(Catalog.Registry()).ValidateInput(schema, values)
	if errs == nil {
		errs = []fields.ValidationError{}
	}
	return errs
}
