package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/gin-gonic/gin"
)

// EnsureUser runs after Auth. It upserts the token's user ID and role into
// the users table so that assignment and escalation targeting always resolve.
func EnsureUser(repo repository.UserRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		role := c.GetString("userRole")
		if err := repo.Upsert(c.Request.Context(), userID, role); err != nil {
			logger.ErrorContext(c.Request.Context(), "ensure user upsert", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "Internal server error"})
			return
		}
		c.Next()
	}
}
