package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"traino/internal/shared/constants"
	"traino/internal/shared/logger"
	"traino/internal/shared/utils"
)

// AdminIdentity extracts the acting administrator from the X-Admin-ID header
// and stores it in the request context for attribution. Authentication proper
// is handled upstream by the API gateway; this engine only records who acted.
func AdminIdentity(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(constants.HeaderXAdminID)
		if raw == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "X-Admin-ID header is required")
			c.Abort()
			return
		}

		adminID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || adminID == 0 {
			log.Warnw("invalid admin ID header", "value", raw, "path", c.Request.URL.Path)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid X-Admin-ID header")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyAdminID, uint(adminID))
		c.Next()
	}
}
