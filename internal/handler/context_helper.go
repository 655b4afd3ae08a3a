package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/middleware"
	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// actorFromContext resolves the acting identity set by the JWT middleware.
// It writes the 401 itself and returns false when the claims are missing.
func actorFromContext(c *gin.Context) (models.ActorContext, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.ActorContext{}, false
	}
	return actor, true
}
