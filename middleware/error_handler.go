package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/logger"
)

// ErrorHandler renders the last error attached to the gin context as a
// structured JSON body. Handlers push errors with c.Error and return; the
// status code comes from the AppError type.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if appError, ok := err.(*errors.AppError); ok {
			statusCode := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, statusCode, fmt.Sprintf("%s error", appError.Type))

			response := map[string]interface{}{
				"type":    string(appError.Type),
				"message": appError.Message,
				"code":    strconv.Itoa(statusCode),
			}

			// Detail can carry internals; only surface it for errors the
			// caller can act on, or in debug mode.
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == errors.ValidationError ||
				appError.Type == errors.NotFoundError ||
				appError.Type == errors.InvalidStateError ||
				appError.Type == errors.AmountMismatchType) {
				response["details"] = appError.Detail
			}

			c.JSON(statusCode, response)
			return
		}

		if c.Errors.Last().Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, 400, "Request binding error")

			response := map[string]interface{}{
				"type":    string(errors.ValidationError),
				"message": "Failed to bind request",
				"code":    "400",
			}
			if gin.IsDebugging() {
				response["details"] = err.Error()
			}

			c.JSON(400, response)
			return
		}

		logger.LogHTTPError(c, err, 500, "Unhandled error")
		c.JSON(500, map[string]interface{}{
			"type":    string(errors.ServerError),
			"message": "Internal server error",
			"code":    "500",
		})
	}
}
