package api

import (
	"github.com/code-sleuth/ike-tube/internal/manager/apperrors"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform body of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data"`
	Error   *ErrorBody   `json:"error"`
	Meta    EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string `json:"requestId"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{
		Success: true,
		Data:    data,
		Meta:    EnvelopeMeta{RequestID: c.GetString(requestIDKey)},
	})
}

func respondError(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(err.HTTPStatus(), Envelope{
		Success: false,
		Error:   &ErrorBody{Code: err.Code, Message: err.Message},
		Meta:    EnvelopeMeta{RequestID: c.GetString(requestIDKey)},
	})
}
