// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/models"
	"github.com/ricelink/ricelink-backend/internal/services"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

const actorKey = "actor"

// AuthRequired validates the bearer token issued by the external identity
// service and resolves the actor's local mirror record. The role on the
// mirror row wins over the token claim if they disagree (the mirror is
// synced from the identity service and is the fresher source).
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			c.Abort()
			return
		}

		var actor models.User
		if err := db.First(&actor, "id = ?", userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown account"})
			c.Abort()
			return
		}

		c.Set(actorKey, &actor)
		c.Set("user_id", actor.ID.String())
		c.Set("role", string(actor.Role))
		c.Next()
	}
}

// RoleRequired gates a route on the actor's role, using the same
// capability check the services apply.
func RoleRequired(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil || !services.Authorize(actor.Role, allowed...) {
			utils.ForbiddenResponse(c, "access denied for role")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated user loaded by AuthRequired, or nil.
func Actor(c *gin.Context) *models.User {
	if v, exists := c.Get(actorKey); exists {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
