package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/cdaplus/models"
)

// loadContract resolves the {id} path parameter. On failure the response
// is already written.
func loadContract(w http.ResponseWriter, r *http.Request) (models.Contract, bool) {
	c, err := Repo.GetContract(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err, "contract not found")
		return c, false
	}
	return c, true
}

// ListContracts lists all contracts
// @Summary      List contracts
// @Description  Get a list of all contracts with their active field and activity counts.
// @Tags         contracts
// @Produce      json
// @Param        search  query     string  false  "Search by name"
// @Success      200  {object}  Response{data=[]models.Contract}
// @Router       /contracts [get]
// @Security     BasicAuth
func ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := Repo.ListContracts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

// GetContract retrieves a single contract by ID
// @Summary      Get contract
// @Description  Get details of a specific contract.
// @Tags         contracts
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  Response{data=models.Contract}
// @Failure      404  {object}  Response{error=string}
// @Router       /contracts/{id} [get]
// @Security     BasicAuth
func GetContract(w http.ResponseWriter, r *http.Request) {
	c, ok := loadContract(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateContract creates a new contract
// @Summary      Create contract
// @Description  Create a new contract. Its field schema starts empty.
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        contract  body      models.ContractInput  true  "Contract contents"
// @Success      201       {object}  Response{data=models.Contract}
// @Failure      400       {object}  Response{error=string}
// @Router       /contracts [post]
// @Security     BasicAuth
func CreateContract(w http.ResponseWriter, r *http.Request) {
	var input models.ContractInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := Repo.CreateContract(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContract updates an existing contract
// @Summary      Update contract
// @Description  Update details of an existing contract.
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        id        path      string                true  "Contract ID"
// @Param        contract  body      models.ContractInput  true  "Updated contract contents"
// @Success      200       {object}  Response{data=models.Contract}
// @Failure      400       {object}  Response{error=string}
// @Failure      404       {object}  Response{error=string}
// @Router       /contracts/{id} [put]
// @Security     BasicAuth
func UpdateContract(w http.ResponseWriter, r *http.Request) {
	var input models.ContractInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := Repo.UpdateContract(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeFailure(w, err, "contract not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContract deletes a contract
// @Summary      Delete contract
// @Description  Remove a contract together with its field schema and activities.
// @Tags         contracts
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /contracts/{id} [delete]
// @Security     BasicAuth
func DeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := Repo.DeleteContract(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err, "contract not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
