package middleware

import (
	"net/http"

	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// RequireRole ensures the authenticated user holds one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Role not found in token")
			c.Abort()
			return
		}

		if r, _ := role.(string); !hasRole(r, roles) {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// StaffOnly admits restaurant staff and admins.
func StaffOnly() gin.HandlerFunc {
	return RequireRole(RoleStaff, RoleAdmin)
}
