// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"github.com/your-org/jewelry-backend/internal/domain/user"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
	"github.com/your-org/jewelry-backend/internal/pkg/auth"
)

const (
	keyUserID    = "user_id"
	keyUserEmail = "user_email"
	keyIsAdmin   = "is_admin"
)

// UserFinder resolves the token subject against the user directory
type UserFinder interface {
	FindUser(ctx context.Context, id uint) (*user.User, error)
}

// AuthMiddleware validates the bearer token and loads the user it names.
// The admin flag comes from the directory, never from the token.
func AuthMiddleware(jwtManager *auth.JWTManager, users UserFinder, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		u, err := users.FindUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperror.KindOf(err) == apperror.KindNotFound {
				response.Abort(c, http.StatusUnauthorized, "Unknown user")
				return
			}
			log.WithError(err).WithField("user_id", claims.UserID).Error("user lookup failed")
			response.Abort(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !u.IsActive {
			response.Abort(c, http.StatusUnauthorized, "Account is disabled")
			return
		}

		c.Set(keyUserID, u.ID)
		c.Set(keyUserEmail, u.Email)
		c.Set(keyIsAdmin, u.IsAdmin())

		c.Next()
	}
}

// AdminMiddleware ensures the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserIDFromContext(c); !ok {
			response.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !IsAdminFromContext(c) {
			response.Abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(keyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmailFromContext extracts user email from gin context
func GetUserEmailFromContext(c *gin.Context) string {
	return c.GetString(keyUserEmail)
}

// IsAdminFromContext checks if user is admin from gin context
func IsAdminFromContext(c *gin.Context) bool {
	return c.GetBool(keyIsAdmin)
}

// ActorFromContext describes the authenticated caller to the domain services
func ActorFromContext(c *gin.Context) order.Actor {
	id, _ := GetUserIDFromContext(c)
	return order.Actor{UserID: id, IsAdmin: IsAdminFromContext(c)}
}
