package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/roamfund/roamfund-backend/config"
	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/logger"
)

// AuthMiddleware validates the bearer token and stores the caller's user
// ID in the gin context. Tokens are HS256-signed with the server's secret
// and identify the user through the "sub" claim.
func AuthMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		tokenString, err := extractBearerToken(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JwtSecretKey), nil
		}, jwt.WithValidMethods([]string{"HS256"}))

		switch {
		case err == nil && token.Valid && claims.Subject != "":
			c.Set(string(UserIDKey), claims.Subject)
			c.Next()
		case err != nil && strings.Contains(err.Error(), jwt.ErrTokenExpired.Error()):
			_ = c.Error(apperrors.Unauthorized("token_expired", "Your session has expired"))
			c.Abort()
		default:
			log.Debugw("Token validation failed", "error", err)
			_ = c.Error(apperrors.Unauthorized("invalid_token", "Invalid authentication token"))
			c.Abort()
		}
	}
}

func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", apperrors.Unauthorized("missing_auth", "Authorization header is required")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperrors.Unauthorized("invalid_auth_header", "Authorization header must be a bearer token")
	}

	return parts[1], nil
}
