// README: Base handler utilities (JSON helpers, error mapping, caller lookup).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lifelink/internal/http/middleware"
	"lifelink/internal/identity"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/location"
	"lifelink/internal/modules/medical"
	"lifelink/internal/modules/notification"
	"lifelink/internal/modules/request"
	"lifelink/internal/service"
	"lifelink/internal/types"
	"lifelink/internal/validate"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinels to status codes. Unknown errors
// are logged by the middleware and hidden behind a generic 500.
func writeServiceError(c *gin.Context, err error) {
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}
	switch {
	case errors.Is(err, identity.ErrForbidden),
		errors.Is(err, notification.ErrNotRecipient):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, donor.ErrNotFound),
		errors.Is(err, request.ErrNotFound),
		errors.Is(err, notification.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, donor.ErrInvalidDonor),
		errors.Is(err, request.ErrBadRequest),
		errors.Is(err, location.ErrInvalidCoordinate),
		errors.Is(err, types.ErrUnknownBloodGroup),
		errors.Is(err, notification.ErrInvalidDecision),
		errors.Is(err, medical.ErrInvalidHistory):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, donor.ErrDuplicateIdentity),
		errors.Is(err, donor.ErrRestPeriodActive),
		errors.Is(err, request.ErrInvalidState),
		errors.Is(err, request.ErrConflict),
		errors.Is(err, notification.ErrAlreadyResponded),
		errors.Is(err, notification.ErrDuplicate),
		errors.Is(err, medical.ErrDuplicate),
		errors.Is(err, service.ErrNotAccepted):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// caller returns the authenticated principal or answers 401.
func caller(c *gin.Context) (identity.Principal, bool) {
	p := middleware.Principal(c)
	if p == nil {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}
	return p, true
}

func pathID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing id")
		return "", false
	}
	return types.ID(id), true
}
