package middleware

import (
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"traino/internal/shared/logger"
	"traino/internal/shared/utils"
)

// Recovery converts handler panics into a logged 500. Broken client
// connections are logged without a response since the socket is gone.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if isBrokenConnection(recovered) {
			logger.Error("connection broken during request",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"error", recovered)
			c.Abort()
			return
		}

		logger.Error("panic recovered",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"headers", redactedHeaders(c),
			"error", recovered,
			"stack", string(debug.Stack()))

		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error occurred")
	})
}

// redactedHeaders dumps the request headers with credential-bearing values
// masked before they reach the log.
func redactedHeaders(c *gin.Context) []string {
	raw, _ := httputil.DumpRequest(c.Request, false)
	headers := strings.Split(string(raw), "\r\n")
	for i, header := range headers {
		name, _, found := strings.Cut(header, ":")
		if !found {
			continue
		}
		switch name {
		case "Authorization", "X-Admin-ID":
			headers[i] = name + ": *"
		}
	}
	return headers
}

func isBrokenConnection(err interface{}) bool {
	ne, ok := err.(*net.OpError)
	if !ok {
		return false
	}
	se, ok := ne.Err.(*os.SyscallError)
	if !ok {
		return false
	}

	errStr := strings.ToLower(se.Error())
	for _, s := range []string{"connection reset by peer", "broken pipe", "connection refused"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// ErrorHandler logs errors attached to the Gin context and writes the error
// response when no handler has written one.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			logger.Error("handler error occurred",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"error", err)

			if !c.Writer.Written() {
				utils.ErrorResponseWithError(c, err)
			}
		}
	}
}
