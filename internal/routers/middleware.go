package routers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Deepesh976/ro-iot/internal/handlers"
	"github.com/Deepesh976/ro-iot/internal/models"
)

// ValidateJWT rejects requests without a valid bearer token and places the
// authenticated user id into the gin context for the handlers.
func ValidateJWT(api *handlers.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims, err := api.Tokens().Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
			return
		}

		userId, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("invalid subject"))
			return
		}
		c.Set(handlers.AuthUserID, userId)
		c.Next()
	}
}
