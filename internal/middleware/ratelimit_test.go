package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitRouter(anonPerMin, authPerMin int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(anonPerMin, authPerMin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doLogin(router *gin.Engine, ip, authorization string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":40000"
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitAnonymousBudget(t *testing.T) {
	router := newRateLimitRouter(2, 10)

	assert.Equal(t, http.StatusOK, doLogin(router, "203.0.113.5", ""))
	assert.Equal(t, http.StatusOK, doLogin(router, "203.0.113.5", ""))
	assert.Equal(t, http.StatusTooManyRequests, doLogin(router, "203.0.113.5", ""))

	// A different address has its own bucket.
	assert.Equal(t, http.StatusOK, doLogin(router, "198.51.100.7", ""))
}

func TestRateLimitAuthenticatedBudgetIsSeparate(t *testing.T) {
	router := newRateLimitRouter(1, 3)

	assert.Equal(t, http.StatusOK, doLogin(router, "203.0.113.5", ""))
	assert.Equal(t, http.StatusTooManyRequests, doLogin(router, "203.0.113.5", ""))

	// The same address still has the authenticated budget available.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doLogin(router, "203.0.113.5", "Bearer token"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doLogin(router, "203.0.113.5", "Bearer token"))
}
