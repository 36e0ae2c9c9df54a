// README: Donor directory handlers: registration, search, profile, availability, inbox.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifelink/internal/identity"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/notification"
	"lifelink/internal/types"
)

type DonorHandler struct {
	donors        *donor.Service
	notifications *notification.Service
}

func NewDonorHandler(donors *donor.Service, notifications *notification.Service) *DonorHandler {
	return &DonorHandler{donors: donors, notifications: notifications}
}

// Register handles POST /api/donors. A donor caller registers itself under
// its auth uid; admins may register anyone.
func (h *DonorHandler) Register(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var cmd donor.RegisterCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	switch p.(type) {
	case identity.Donor:
		cmd.ID = p.ID()
	case identity.Admin:
	default:
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	d, err := h.donors.Register(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

type searchQuery struct {
	BloodGroup string   `form:"blood_group"`
	Verified   bool     `form:"verified"`
	Lat        *float64 `form:"lat"`
	Lng        *float64 `form:"lng"`
	RadiusKm   float64  `form:"radius_km"`
}

// Search handles GET /api/donors.
func (h *DonorHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "invalid query")
		return
	}
	sq := donor.SearchQuery{
		BloodGroup:   types.BloodGroup(q.BloodGroup),
		VerifiedOnly: q.Verified,
		RadiusKm:     q.RadiusKm,
	}
	if (q.Lat == nil) != (q.Lng == nil) {
		writeError(c, http.StatusBadRequest, "lat and lng go together")
		return
	}
	if q.Lat != nil {
		sq.Origin = &types.Point{Lat: *q.Lat, Lng: *q.Lng}
	}
	results, err := h.donors.Search(c.Request.Context(), sq)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"donors": results})
}

func (h *DonorHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.donors.GetDonor(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

// Update handles PATCH /api/donors/:id. Verification and scores are
// admin-only fields.
func (h *DonorHandler) Update(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !identity.CanActForDonor(p, id) {
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	var patch donor.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !identity.IsAdmin(p) && (patch.IsVerified != nil || patch.ReliabilityScore != nil || patch.ResponseRate != nil) {
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	found, err := h.donors.UpdateDonor(c.Request.Context(), id, patch)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !found {
		writeServiceError(c, donor.ErrNotFound)
		return
	}
	h.Get(c)
}

type availabilityReq struct {
	Available *bool `json:"available"`
}

func (h *DonorHandler) SetAvailability(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !identity.CanActForDonor(p, id) {
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		writeError(c, http.StatusBadRequest, "missing available")
		return
	}
	found, err := h.donors.SetAvailability(c.Request.Context(), id, *req.Available)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !found {
		writeServiceError(c, donor.ErrNotFound)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id, "available": *req.Available})
}

func (h *DonorHandler) Eligibility(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, err := h.donors.Eligibility(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, e)
}

func (h *DonorHandler) Notifications(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !identity.CanActForDonor(p, id) {
		writeServiceError(c, identity.ErrForbidden)
		return
	}
	list, err := h.notifications.ListForDonor(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": list})
}
