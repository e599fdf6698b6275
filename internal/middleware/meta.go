package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ViewHeader carries the id of the dashboard widget issuing a request.
const ViewHeader = "X-View-ID"

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	viewIDKey       = "view_id"
	maxViewIDLength = 128
)

// WithResponseMeta initialises response metadata storage and records the
// caller's view id.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if viewID := strings.TrimSpace(c.GetHeader(ViewHeader)); viewID != "" {
			if len(viewID) > maxViewIDLength {
				viewID = viewID[:maxViewIDLength]
			}
			c.Set(viewIDKey, viewID)
			meta[viewIDKey] = viewID
		}
		c.Set(responseMetaKey, meta)
		c.Next()
		meta = ensureMeta(c)
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// ViewID returns the view id of the current request, or "" when absent.
func ViewID(c *gin.Context) string {
	if v, exists := c.Get(viewIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return strings.TrimSpace(c.GetHeader(ViewHeader))
}

// SetCacheHit records cache hit information for the current response.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	if c != nil {
		c.Set(responseMetaKey, meta)
	}
	return meta
}
