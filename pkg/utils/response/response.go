package response

import (
	"net/http"

	"codemanager/pkg/errors"
	"codemanager/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody is the wire shape for request failures: { error, detail }.
type ErrorBody struct {
	Error  string      `json:"error"`
	Detail string      `json:"detail,omitempty"`
	Fields interface{} `json:"fields,omitempty"`
}

// OK sends a 200 response with the given body as-is.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Text sends a 200 plain-text response.
func Text(c *gin.Context, body string) {
	c.String(http.StatusOK, body)
}

// Error sends an error response derived from the error's code.
// The body carries the stable variant tag plus a human-readable detail.
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(customErr.Code)),
		zap.String("tag", customErr.Code.Tag()),
		zap.String("detail", customErr.Error()),
	)

	body := ErrorBody{
		Error:  customErr.Code.Tag(),
		Detail: customErr.Error(),
	}
	if len(customErr.Details) > 0 {
		body.Fields = customErr.Details
	}

	c.JSON(customErr.Code.HTTPStatus(), body)
}

// BadRequest sends a 400 response with an invalid_input body.
func BadRequest(c *gin.Context, detail string) {
	Error(c, errors.BadRequest(detail))
}
