package middleware

import (
	"net/http"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures that the authenticated actor has one of the given roles
func RequireRole(roles ...domain.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		if role == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		for _, r := range roles {
			if domain.ActorRole(role) == r {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		c.Abort()
	}
}

func GuestOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleGuest)
}

func ProviderOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleProvider)
}
