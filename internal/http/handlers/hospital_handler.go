// README: Hospital registration and listing.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifelink/internal/identity"
	"lifelink/internal/modules/donor"
)

type HospitalHandler struct {
	donors *donor.Service
}

func NewHospitalHandler(donors *donor.Service) *HospitalHandler {
	return &HospitalHandler{donors: donors}
}

// Register handles POST /api/hospitals. A hospital caller registers itself
// under its auth uid; admins may register anyone.
func (h *HospitalHandler) Register(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var cmd donor.RegisterHospitalCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	switch p.(type) {
	case identity.Hospital:
		cmd.ID = p.ID()
	case identity.Admin:
	default:
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	hosp, err := h.donors.RegisterHospital(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, hosp)
}

func (h *HospitalHandler) List(c *gin.Context) {
	list, err := h.donors.ListHospitals(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"hospitals": list})
}
