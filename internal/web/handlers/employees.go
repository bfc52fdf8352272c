package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// EmployeesHandler serves the enrolled-employee listing.
type EmployeesHandler struct {
	employees store.EmployeeStore
}

// NewEmployeesHandler creates the employees endpoint handler.
func NewEmployeesHandler(employees store.EmployeeStore) *EmployeesHandler {
	return &EmployeesHandler{employees: employees}
}

// List handles GET /employees. With ?enrolled=true only employees that have
// at least one face encoding are returned.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		employees []store.Employee
		err       error
	)
	if r.URL.Query().Get("enrolled") == "true" {
		employees, err = h.employees.ListEnrolled(r.Context())
	} else {
		employees, err = h.employees.ListActive(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"employees": employees,
		"count":     len(employees),
	})
}
