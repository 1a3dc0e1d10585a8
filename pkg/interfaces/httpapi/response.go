package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// retryAfterSeconds is sent with 503s for operations that ran out of time
const retryAfterSeconds = "1"

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps the error taxonomy to a status code
func RespondDomainError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindInvalidState:
		status = http.StatusConflict
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindOperationFailed:
		if errs.IsRetryable(err) {
			status = http.StatusServiceUnavailable
			c.Header("Retry-After", retryAfterSeconds)
		}
	}
	RespondError(c, status, string(kind), err)
}

// pathID parses the named path parameter, answering 400 when it is not a uuid
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body, answering 400 on malformed input
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, string(errs.KindValidation), err)
		return false
	}
	return true
}
