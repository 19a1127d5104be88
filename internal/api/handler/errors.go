package handler

import (
	"net/http"

	"blindjudge/backend/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to a transport status. Clients branch on the
// kind field of the body, not on the message.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindPrecondition:
		return http.StatusUnprocessableEntity
	case apperrors.KindUpstream:
		return http.StatusBadGateway
	case apperrors.KindStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the discriminated failure shape all endpoints share.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	message := err.Error()
	if kind == apperrors.KindUnknown || kind == apperrors.KindDataIntegrity {
		// Internal details stay out of client responses.
		message = "internal server error"
	}
	c.JSON(statusFor(kind), gin.H{"kind": kind, "error": message})
}
