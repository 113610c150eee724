package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// FailureEnvelope is the body of a run that ended without a course.
type FailureEnvelope struct {
	Status       string `json:"status"`
	ErrorKind    string `json:"error_kind"`
	ErrorMessage string `json:"error_message"`
}

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

// RespondAPIError writes err with the status and code it carries.
func RespondAPIError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, apierr.StatusOf(err, http.StatusInternalServerError), ae.Code, ae.Err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}

// RespondFailure writes a pipeline failure. Guardrail refusals are an answer,
// not an error, so they come back as 200.
func RespondFailure(c *gin.Context, err error) {
	kind := pipelineerr.Classify(err)
	status := http.StatusBadGateway
	switch kind {
	case pipelineerr.KindGuardrail:
		status = http.StatusOK
	case pipelineerr.KindSchema:
		status = http.StatusUnprocessableEntity
	default:
		kind = pipelineerr.KindFatal
	}
	c.JSON(status, FailureEnvelope{
		Status:       "failure",
		ErrorKind:    string(kind),
		ErrorMessage: pipelineerr.UserMessage(err),
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
