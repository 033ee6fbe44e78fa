package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"accounthub/internal/pkg/apperr"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrorHandler is the single error boundary. It renders the last error added
// with c.Error as the response envelope, logs server errors, and recovers
// panics into a 500. It must sit inside RequestLogger and Metrics so they
// observe the status it writes.
func ErrorHandler(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(c, log, start, "panic", fmt.Errorf("%v", recovered), debug.Stack())
				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, "Internal server error")
				}
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		appErr := apperr.From(c.Errors.Last().Err)
		if appErr.Kind == apperr.KindInternal {
			logRequestError(c, log, start, appErr.Kind.String(), appErr, nil)
		}
		if !c.Writer.Written() {
			response.Error(c, appErr.Status(), appErr.Message)
		}
	}
}

// RequestLogger writes one line per request.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", requestID(c),
		)
	}
}

func logRequestError(c *gin.Context, log logging.Logger, start time.Time, errType string, err error, stack []byte) {
	args := []any{
		"type", errType,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
		"user_id", c.GetString(userIDKey),
		"request_id", requestID(c),
		"latency", time.Since(start).String(),
		"error", err.Error(),
	}
	if stack != nil {
		args = append(args, "stack", string(stack))
	}
	log.Error(c.Request.Context(), "request_error", args...)
}

func requestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = c.GetHeader("X-Request-Id")
	}
	return requestID
}
