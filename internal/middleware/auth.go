package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"restobook/internal/pkg/jwt"
	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"

	// RoleService marks callers that presented the internal service token.
	RoleService = "service"
)

// JWTAuth accepts a bearer token issued by the identity service and stores
// the caller's id and role on the context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if errors.Is(err, jwt.ErrExpiredToken) {
			response.Error(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")
			c.Abort()
			return
		}
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// JWTOrInternal accepts either a user token or the internal service token.
// Browsers opening a websocket cannot set headers, so ?token= is honoured
// when the Authorization header is absent.
func JWTOrInternal(jwtService *jwt.Service, internalToken string) gin.HandlerFunc {
	userAuth := JWTAuth(jwtService)
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			if q := c.Query("token"); q != "" {
				c.Request.Header.Set("Authorization", "Bearer "+q)
				raw = "Bearer " + q
			}
		}
		parts := strings.SplitN(raw, " ", 2)
		if internalToken != "" && len(parts) == 2 && strings.EqualFold(parts[0], "bearer") &&
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(internalToken)) == 1 {
			c.Set(ContextUserID, RoleService)
			c.Set(ContextRole, RoleService)
			c.Next()
			return
		}
		userAuth(c)
	}
}

// SelfOrRole lets a caller through when the path parameter names them, or
// when they hold one of roles. Used on per-user listings.
func SelfOrRole(param string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
			c.Abort()
			return
		}
		if c.Param(param) == userID || hasRole(c.GetString(ContextRole), roles) {
			c.Next()
			return
		}
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "You can only access your own resources")
		c.Abort()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
