package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesengine/internal/apperror"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrMissingOwner = errors.New("missing_owner")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return apperror.Validation("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return apperror.Validation(field, code, message)
}

// mapError turns any error into a status and a payload without internals.
func mapError(err error) (int, errorPayload) {
	appErr := apperror.As(err)
	if appErr == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    string(apperror.KindUnknown),
			Message: apperror.UserMessage(apperror.KindUnknown),
		}
	}

	payload := errorPayload{
		Type:    string(appErr.Kind),
		Code:    appErr.Code,
		Message: appErr.UserFacing(),
	}

	switch appErr.Kind {
	case apperror.KindValidation, apperror.KindJSONParse:
		payload.Errors = []ValidationError{{
			Field:   appErr.Field,
			Code:    appErr.Code,
			Message: appErr.UserFacing(),
		}}
		return http.StatusBadRequest, payload
	case apperror.KindNotFound, apperror.KindProductNotFound:
		return http.StatusNotFound, payload
	case apperror.KindInsufficientStock:
		return http.StatusConflict, payload
	case apperror.KindBusinessLogic:
		if appErr.Code == saledomain.ErrRateLimited.Error() {
			return http.StatusTooManyRequests, payload
		}
		return http.StatusUnprocessableEntity, payload
	case apperror.KindDatabase, apperror.KindRPC:
		return http.StatusServiceUnavailable, payload
	default:
		payload.Code = ""
		return http.StatusInternalServerError, payload
	}
}

func classifyErrorForLog(err error) (string, string) {
	appErr := apperror.As(err)
	if appErr == nil {
		return "", ""
	}
	return string(appErr.Kind), appErr.Code
}
