package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request. The event socket is logged by the hub.
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()

	if c.FullPath() == "/events" {
		return
	}
	status := c.Writer.Status()
	kv := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"duration", time.Since(start),
	}
	switch {
	case status >= 500:
		h.log.Errorw("http_request", kv...)
	case status >= 400:
		h.log.Warnw("http_request", kv...)
	default:
		h.log.Debugw("http_request", kv...)
	}
}
