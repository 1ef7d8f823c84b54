package middleware

import (
	"log/slog"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

// RequestIDHeader carries the request id in both directions. The gateway
// client forwards it so client and server logs can be joined.
const RequestIDHeader = "X-Request-ID"

const requestIDContextKey = "request_id"

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// RequestID assigns an id to each request. When trustUpstream is set a
// well-formed incoming X-Request-ID is reused; otherwise a random one is
// generated.
//
// The id is stored in gin.Context under "request_id", echoed in the response
// header and attached to the request context via logger.WithContextAttrs.
func RequestID(trustUpstream bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if trustUpstream {
			if upstream := c.GetHeader(RequestIDHeader); requestIDPattern.MatchString(upstream) {
				id = upstream
			}
		}
		if id == "" {
			id = NewRequestID()
		}

		c.Set(requestIDContextKey, id)
		c.Header(RequestIDHeader, id)

		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String("request_id", id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// NewRequestID returns a random UUID string.
func NewRequestID() string {
	return uuid.NewString()
}
