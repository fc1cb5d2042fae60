package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Login is a sensitive demo endpoint fronted by the per-route rate
// limiter; the limiter already distinguishes anonymous from
// authenticated callers by the Authorization header.
func Login(c *gin.Context) {
	if c.GetHeader("Authorization") != "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "authenticated login endpoint"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "anonymous login endpoint"})
}
