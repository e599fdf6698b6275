package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/repository"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Auth reads the bearer token, forwards it to upstream calls made while
// serving the request and stores its claims under ContextUserKey. When
// required is false, requests without a token pass through anonymously and
// a token that fails local verification is still forwarded so the upstream
// can decide.
func Auth(validator tokenValidator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				response.Error(c, appErrors.ErrUnauthorized)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}
		token := strings.TrimSpace(parts[1])
		c.Request = c.Request.WithContext(repository.WithAuthToken(c.Request.Context(), token))

		if validator == nil {
			c.Next()
			return
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			if required {
				response.Error(c, err)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Claims returns the verified claims of the current request, if any.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
