package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/response"
)

// RequireScope only lets through requests whose token scope contains one of
// the allowed values. Scopes are space separated as issued by the classroom
// backend. An empty allow list disables the check.
func RequireScope(allowed ...string) gin.HandlerFunc {
	allowedScopes := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
			allowedScopes[a] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		if len(allowedScopes) == 0 {
			c.Next()
			return
		}
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, scope := range strings.Fields(claims.Scope) {
			if _, ok := allowedScopes[strings.ToUpper(scope)]; ok {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
