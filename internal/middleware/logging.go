package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartfarm/advisor/internal/logx"
)

func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logx.Info()
		if status >= 500 {
			event = logx.Error()
		} else if status >= 400 {
			event = logx.Warn()
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("http request")
	}
}
