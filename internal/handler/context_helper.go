package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LDThien999/ptitclassroom-score-api/internal/middleware"
	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/repository"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext names the caller for per user caching and job ownership.
func actorFromContext(c *gin.Context) string {
	return claimsFromContext(c).Actor()
}

func viewIDFromContext(c *gin.Context) string {
	return middleware.ViewID(c)
}

func authTokenFromContext(c *gin.Context) string {
	return repository.AuthToken(c.Request.Context())
}

func respondMeta(c *gin.Context) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
