package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID  = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID reuses the caller's X-Request-ID or mints one, so a booking can be
// followed across the order, cart and payment logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// ErrorLogger recovers panics into a 500 envelope and logs every request
// that ended in a server error or carried gin errors.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequest(c, start, "panic", fmt.Sprint(recovered))
				log.Printf("level=error msg=\"panic stack\" request_id=%s stack=%q", requestID(c), debug.Stack())
				response.Error(c, http.StatusInternalServerError, response.CodeInternal, "server error")
				c.Abort()
				return
			}

			for _, err := range c.Errors {
				logRequest(c, start, "gin_error", err.Error())
			}
			if len(c.Errors) == 0 && c.Writer.Status() >= http.StatusInternalServerError {
				logRequest(c, start, "http_error", http.StatusText(c.Writer.Status()))
			}
		}()

		c.Next()
	}
}

func logRequest(c *gin.Context, start time.Time, kind, message string) {
	log.Printf("level=error msg=\"request failed\" kind=%s status=%d method=%s path=%s user_id=%s role=%s request_id=%s latency=%s err=%q",
		kind,
		c.Writer.Status(),
		c.Request.Method,
		c.Request.URL.Path,
		c.GetString(ContextUserID),
		c.GetString(ContextRole),
		requestID(c),
		time.Since(start),
		message,
	)
}

func requestID(c *gin.Context) string {
	if id := c.GetString(ContextRequestID); id != "" {
		return id
	}
	return c.GetHeader(HeaderRequestID)
}
