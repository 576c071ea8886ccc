package middleware

import (
	"net/http"
	"strings"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/jwt"
	"hotelrides/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxActorID = "actor_id"
	ctxRole    = "role"
	ctxHotelID = "hotel_id"
)

// JWTAuth validates the bearer token and stores the actor in the gin context.
func JWTAuth(tokens *jwt.Service) gin.HandlerFunc {
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

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxActorID, claims.ActorID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxHotelID, claims.HotelID)
		c.Next()
	}
}

// ActorFrom returns the authenticated actor set by JWTAuth.
func ActorFrom(c *gin.Context) domain.Actor {
	return domain.Actor{
		ID:   c.GetString(ctxActorID),
		Role: domain.ActorRole(c.GetString(ctxRole)),
	}
}
