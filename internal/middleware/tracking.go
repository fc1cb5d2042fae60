package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipsentry/ipsentry/internal/service"
)

// ContextClientIP holds the resolved client address for downstream
// middleware and handlers.
const ContextClientIP = "client_ip"

// Tracking adapts the interceptor to gin: it builds the framework-free
// request descriptor, lets the tracker decide, and short-circuits
// blocked addresses with a 403.
func Tracking(tracker *service.TrackerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.New().String()
		c.Header("X-Request-ID", reqID)

		info := service.RequestInfo{
			RemoteAddr:   c.Request.RemoteAddr,
			ForwardedFor: c.GetHeader("X-Forwarded-For"),
			Path:         c.Request.URL.Path,
			Method:       c.Request.Method,
			UserAgent:    c.Request.UserAgent(),
		}

		decision := tracker.Intercept(c.Request.Context(), info)
		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "forbidden",
				"request_id": reqID,
			})
			return
		}

		c.Set(ContextClientIP, decision.Address)
		c.Next()
	}
}

// ClientIP returns the address resolved by the tracking middleware,
// falling back to gin's own resolution when tracking did not run.
func ClientIP(c *gin.Context) string {
	if ip, ok := c.Get(ContextClientIP); ok {
		if s, ok := ip.(string); ok {
			return s
		}
	}
	return c.ClientIP()
}
