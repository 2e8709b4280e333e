package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/middleware"
)

// requireUserID reads the authenticated user ID placed in the context by
// the auth middleware. A missing ID means the route was wired without
// authentication, which is a server fault, not a client one.
func requireUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		_ = c.Error(apperrors.Unauthorized("missing_auth", "Authentication required"))
		return "", false
	}
	return userID, true
}

// requireUUIDParam reads and validates a UUID path parameter.
func requireUUIDParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if _, err := uuid.Parse(value); err != nil {
		_ = c.Error(apperrors.ValidationFailed(
			"invalid "+name,
			name+" must be a valid UUID",
		))
		return "", false
	}
	return value, true
}

// bindJSON binds the request body and reports binding failures through
// the error middleware.
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request body", err.Error()))
		return false
	}
	return true
}

// parsePagination reads limit/offset query parameters with defaults.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
