package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/apperr"
)

// StatusFor maps an application error to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	var v *apperr.ValidationError
	var ext *apperr.ExternalServiceError
	var dc *apperr.DataCorruptionError
	switch {
	case errors.As(err, &v):
		return http.StatusBadRequest, apperr.CodeValidation
	case errors.As(err, &ext):
		switch ext.Code {
		case apperr.CodeLLMTimeout:
			return http.StatusGatewayTimeout, ext.Code
		case apperr.CodeLLMSizeLimit:
			return http.StatusRequestEntityTooLarge, ext.Code
		default:
			return http.StatusBadGateway, ext.Code
		}
	case errors.As(err, &dc):
		return http.StatusBadGateway, apperr.CodeLLMSchemaMismatch
	default:
		return http.StatusInternalServerError, apperr.CodeInternal
	}
}

// Failure writes err using the application error taxonomy. Internal errors
// and unparseable generation output get a generic message; details carries any usable fallback data.
func Failure(c *gin.Context, err error, details any) {
	status, code := StatusFor(err)
	message := apperr.Sanitize(err)
	switch code {
	case apperr.CodeInternal:
		_ = c.Error(err)
		message = "Unexpected server error"
	case apperr.CodeLLMSchemaMismatch:
		// The excerpt of generation output stays in the logs.
		_ = c.Error(err)
		message = "generation output could not be parsed"
	}
	Error(c, status, code, message, details)
}
