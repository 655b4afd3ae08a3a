package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/models"
	"github.com/mindelo-dev/registo-api/internal/service"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT protects routes by requiring a valid access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Actor extracts the acting identity from the verified claims stored by JWT.
// The second return is false when the route did not pass through JWT.
func Actor(c *gin.Context) (models.ActorContext, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return models.ActorContext{}, false
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return models.ActorContext{}, false
	}
	return models.ActorFromClaims(claims), true
}
