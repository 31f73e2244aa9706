package handlers

import (
	"net/http"

	"github.com/satheeshds/cdaplus/models"
)

// GetDashboard retrieves dashboard summary statistics
// @Summary      Get dashboard
// @Description  Get totals for contracts, dynamic fields and activities by status, plus the 5 latest activities.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  Response{data=models.Dashboard}
// @Router       /dashboard [get]
// @Security     BasicAuth
func GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := Repo.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if d.RecentActivities == nil {
		d.RecentActivities = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, d)
}
