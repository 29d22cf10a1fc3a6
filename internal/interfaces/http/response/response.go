// Package response writes the JSON envelopes returned by every endpoint.
package response

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// Body is the envelope of every JSON response
type Body struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

// Writer renders errors consistently. ExposeStack adds the goroutine stack
// to error bodies and is only enabled in development debug mode.
type Writer struct {
	Logger      logrus.FieldLogger
	ExposeStack bool
}

func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Message: message, Data: data})
}

// Error maps err onto its status and message. Internal and upstream
// failures are logged and answered with a generic message.
func (w *Writer) Error(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	body := Body{Success: false, Message: apperror.PublicMessage(err)}

	var appErr *apperror.Error
	if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
		body.Errors = appErr.Fields
	}

	if status >= http.StatusInternalServerError {
		w.Logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
			"status":     status,
		}).WithError(err).Error("request failed")
		_ = c.Error(err)
	}

	if w.ExposeStack {
		body.Stack = string(debug.Stack())
	}

	c.AbortWithStatusJSON(status, body)
}

// Abort writes a failure envelope without going through an error value
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Message: message})
}
