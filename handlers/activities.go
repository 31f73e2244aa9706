package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/cdaplus/fields"
	"github.com/satheeshds/cdaplus/models"
)

func activityFilter(r *http.Request) models.ActivityFilter {
	q := r.URL.Query()
	return models.ActivityFilter{
		ContractID: q.Get("contract_id"),
		Status:     q.Get("status"),
		From:       q.Get("from"),
		To:         q.Get("to"),
	}
}

// decodeActivity reads and checks an activity body against the field
// schema of contractID. Custom values are normalized and keys of unknown
// fields dropped. On failure the response is already written.
func decodeActivity(ctx context.Context, w http.ResponseWriter, r *http.Request, contractID string) (models.ActivityInput, []fields.DynamicField, bool) {
	var input models.ActivityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return input, nil, false
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return input, nil, false
	}

	schema, err := Catalog.Fields(ctx, contractID)
	if err != nil {
		writeFailure(w, err, "contract not found")
		return input, nil, false
	}
	if errs := checkValues(schema, input.CustomFields); len(errs) > 0 {
		writeInvalid(w, "invalid custom fields", errs)
		return input, nil, false
	}
	input.CustomFields = Catalog.Registry().Normalize(schema, input.CustomFields)
	return input, schema, true
}

// ListActivities lists activities across contracts
// @Summary      List activities
// @Description  Get activities, newest first, optionally filtered.
// @Tags         activities
// @Produce      json
// @Param        contract_id  query     string  false  "Filter by contract"
// @Param        status       query     string  false  "pending, approved or rejected"
// @Param        from         query     string  false  "Activity date from (YYYY-MM-DD)"
// @Param        to           query     string  false  "Activity date to (YYYY-MM-DD)"
// @Success      200  {object}  Response{data=[]models.Activity}
// @Router       /activities [get]
// @Security     BasicAuth
func ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := Repo.ListActivities(r.Context(), activityFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// ListContractActivities lists the activities of a contract
// @Summary      List contract activities
// @Tags         activities
// @Produce      json
// @Param        id      path      string  true   "Contract ID"
// @Param        status  query     string  false  "pending, approved or rejected"
// @Param        from    query     string  false  "Activity date from (YYYY-MM-DD)"
// @Param        to      query     string  false  "Activity date to (YYYY-MM-DD)"
// @Success      200  {object}  Response{data=[]models.Activity}
// @Failure      404  {object}  Response{error=string}
// @Router       /contracts/{id}/activities [get]
// @Security     BasicAuth
func ListContractActivities(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	filter := activityFilter(r)
	filter.ContractID = c.ID
	activities, err := Repo.ListActivities(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// CreateActivity logs an activity against a contract
// @Summary      Create activity
// @Description  Create an activity. custom_fields is validated against the contract's active fields; keys of
// @Description  unknown fields are dropped.
// @Tags         activities
// @Accept       json
// @Produce      json
// @Param        id        path      string                true  "Contract ID"
// @Param        activity  body      models.ActivityInput  true  "Activity contents"
// @Success      201  {object}  Response{data=models.Activity}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Failure      422  {object}  Response{data=[]fields.ValidationError,error=string}
// @Router       /contracts/{id}/activities [post]
// @Security     BasicAuth
func CreateActivity(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	input, _, ok := decodeActivity(r.Context(), w, r, c.ID)
	if !ok {
		return
	}

	a, err := Repo.CreateActivity(r.Context(), c.ID, input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// GetActivity retrieves a single activity by ID
// @Summary      Get activity
// @Tags         activities
// @Produce      json
// @Param        id   path      string  true  "Activity ID"
// @Success      200  {object}  Response{data=models.Activity}
// @Failure      404  {object}  Response{error=string}
// @Router       /activities/{id} [get]
// @Security     BasicAuth
func GetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := Repo.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateActivity updates an existing activity
// @Summary      Update activity
// @Description  Replace the contents of an activity. custom_fields is validated as on creation; stored
// @Description  values of inactive fields are kept when omitted.
// @Tags         activities
// @Accept       json
// @Produce      json
// @Param        id        path      string                true  "Activity ID"
// @Param        activity  body      models.ActivityInput  true  "Updated activity contents"
// @Success      200  {object}  Response{data=models.Activity}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Failure      422  {object}  Response{data=[]fields.ValidationError,error=string}
// @Router       /activities/{id} [put]
// @Security     BasicAuth
func UpdateActivity(w http.ResponseWriter, r *http.Request) {
	existing, err := Repo.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err, "activity not found")
		return
	}
	input, schema, ok := decodeActivity(r.Context(), w, r, existing.ContractID)
	if !ok {
		return
	}
	input.CustomFields = fields.KeepInactive(schema, existing.CustomFields, input.CustomFields)

	a, err := Repo.UpdateActivity(r.Context(), existing.ID, input)
	if err != nil {
		writeFailure(w, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteActivity deletes an activity
// @Summary      Delete activity
// @Tags         activities
// @Produce      json
// @Param        id   path      string  true  "Activity ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /activities/{id} [delete]
// @Security     BasicAuth
func DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := Repo.DeleteActivity(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
