package auth

import (
	"errors"
	"net/http"
	"strings"

	dom "taskboard/internal/domain"
	"taskboard/internal/repo"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

const contextKeyUser = "current_user"

// CurrentUser returns the account set by RequireAuth. ok is false on
// unauthenticated routes.
func CurrentUser(c *gin.Context) (dom.User, bool) {
	v, exists := c.Get(contextKeyUser)
	if !exists {
		return dom.User{}, false
	}
	u, ok := v.(dom.User)
	return u, ok
}

// RequireAuth returns a middleware that validates the Authorization bearer
// token, loads the account it belongs to and puts it in the request context.
// Missing header, bad token or a deleted account all answer 401; there is no
// anonymous fallthrough.
func RequireAuth(tokens *TokenManager, users repo.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		userID, err := tokens.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Token decoded fine but the account is gone.
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.Set(contextKeyUser, user)
		c.Next()
	}
}
