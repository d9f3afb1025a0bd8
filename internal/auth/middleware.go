package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDKey    = "auth_user_id"
	bearerPrefix = "Bearer "
)

// Middleware validates the Authorization header and stores the caller's
// user ID in the request context.
func Middleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := svc.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		userID, err := claims.GetUserUUID()
		if err != nil {
			abortUnauthorized(c, "invalid user id in token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user ID set by Middleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
