// README: Emergency request handlers: submit, list, cancel, complete, track.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifelink/internal/identity"
	"lifelink/internal/modules/request"
	"lifelink/internal/service"
	"lifelink/internal/types"
)

type RequestHandler struct {
	desk     *service.Desk
	requests *request.Service
}

func NewRequestHandler(desk *service.Desk, requests *request.Service) *RequestHandler {
	return &RequestHandler{desk: desk, requests: requests}
}

// Submit handles POST /api/requests.
func (h *RequestHandler) Submit(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var cmd service.SubmitCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.desk.Submit(c.Request.Context(), p, cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

// List handles GET /api/requests. Hospitals only see their own requests;
// ?status= narrows the result.
func (h *RequestHandler) List(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var (
		list []*request.Request
		err  error
	)
	if hosp, isHospital := p.(identity.Hospital); isHospital {
		list, err = h.requests.ListByHospital(c.Request.Context(), hosp.HospitalID)
	} else {
		list, err = h.requests.List(c.Request.Context())
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if status := request.Status(c.Query("status")); status != "" {
		filtered := list[:0]
		for _, r := range list {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		list = filtered
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": list})
}

func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.requests.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.requests.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !identity.CanManageRequest(p, r.HospitalID) {
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	err = h.requests.Cancel(c.Request.Context(), request.CancelCommand{
		RequestID: id,
		ActorType: string(p.Role()),
		ActorID:   p.ID(),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id, "status": request.StatusCancelled})
}

func (h *RequestHandler) Complete(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var cmd service.CompleteCommand
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	cmd.RequestID = id
	res, err := h.desk.Complete(c.Request.Context(), p, cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type trackReq struct {
	Position *types.Point `json:"position"`
}

func (h *RequestHandler) Track(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req trackReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	t, err := h.desk.Track(c.Request.Context(), p, id, req.Position)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}
