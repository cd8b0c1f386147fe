package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusdesk/request-portal-api/internal/middleware"
	"github.com/campusdesk/request-portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext derives the acting principal from the verified token.
// Routes behind the JWT middleware always have one; a nil return means the
// route was misregistered.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}, false
	}
	return claims.Actor(), true
}
