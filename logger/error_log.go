package logger

import (
	"time"

	"github.com/gin-gonic/gin"
)

// LogHTTPError logs a request-scoped error with the fields the error
// middleware has on hand. Kept separate from GetLogger().Errorw so every
// HTTP error carries the same field set.
func LogHTTPError(c *gin.Context, err error, statusCode int, message string) {
	log := GetLogger()

	fields := []interface{}{
		"timestamp", time.Now().UTC().Format(time.RFC3339),
		"status_code", statusCode,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"client_ip", c.ClientIP(),
	}

	if requestID := c.GetString("request_id"); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if userID := c.GetString("userID"); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}

	if statusCode >= 500 {
		log.Errorw(message, fields...)
	} else {
		log.Warnw(message, fields...)
	}
}
