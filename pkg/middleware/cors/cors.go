package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Headers the dashboard sends and reads across origins.
var (
	RequestHeaders  = []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID", "X-View-ID"}
	ResponseHeaders = []string{"X-Request-ID", "Content-Disposition"}
	Methods         = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
)

// New lets the dashboard origins in. With no origins configured every
// origin is echoed back, which is meant for local development.
func New(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins[o] = struct{}{}
		}
	}
	allowHeaders := strings.Join(RequestHeaders, ", ")
	exposeHeaders := strings.Join(ResponseHeaders, ", ")
	allowMethods := strings.Join(Methods, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := strings.TrimRight(c.GetHeader("Origin"), "/")
		if origin == "" {
			c.Next()
			return
		}
		if _, ok := origins[origin]; !ok && len(origins) > 0 {
			c.Next()
			return
		}

		h.Set("Access-Control-Allow-Origin", c.GetHeader("Origin"))
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Expose-Headers", exposeHeaders)

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
