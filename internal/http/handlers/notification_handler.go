// README: Notification inbox handlers: list, respond, mark read.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifelink/internal/identity"
	"lifelink/internal/modules/notification"
)

type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(svc *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

// List handles GET /api/notifications: a donor's own inbox, or every
// notification for admins.
func (h *NotificationHandler) List(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var (
		list []*notification.Notification
		err  error
	)
	switch v := p.(type) {
	case identity.Donor:
		list, err = h.notifications.ListForDonor(c.Request.Context(), v.DonorID)
	case identity.Admin:
		list, err = h.notifications.List(c.Request.Context())
	default:
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": list})
}

type respondReq struct {
	Decision notification.Decision `json:"decision"`
}

// Respond handles POST /api/notifications/:id/respond.
func (h *NotificationHandler) Respond(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := notification.RespondCommand{NotificationID: id, Decision: req.Decision}
	switch p.(type) {
	case identity.Donor:
		cmd.ResponderID = p.ID()
	case identity.Admin:
	default:
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	res, err := h.notifications.Respond(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !res.Found {
		writeServiceError(c, notification.ErrNotFound)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	n, err := h.notifications.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !identity.CanActForDonor(p, n.DonorID) {
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	found, err := h.notifications.MarkRead(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !found {
		writeServiceError(c, notification.ErrNotFound)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id, "is_read": true})
}
