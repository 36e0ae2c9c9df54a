// README: Shortage forecast for admins.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifelink/internal/service"
)

type InsightHandler struct {
	desk *service.Desk
}

func NewInsightHandler(desk *service.Desk) *InsightHandler {
	return &InsightHandler{desk: desk}
}

// Shortage handles GET /api/insights/shortage. Provider failures come back
// as the static forecast with fallback=true.
func (h *InsightHandler) Shortage(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	f, err := h.desk.ShortageOutlook(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, f)
}
