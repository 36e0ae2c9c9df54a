// README: Medical vault listing, scoped to the caller.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifelink/internal/modules/medical"
)

type MedicalHandler struct {
	vault *medical.Service
}

func NewMedicalHandler(vault *medical.Service) *MedicalHandler {
	return &MedicalHandler{vault: vault}
}

func (h *MedicalHandler) List(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	list, err := h.vault.ListFor(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"medical_history": list})
}
