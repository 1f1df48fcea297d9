// Package middleware provides the gin middleware chain of the quotesync API.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the gin key holding the request id.
	ContextKeyRequestID = "request_id"
)

// RequestID takes X-Request-ID from the request or generates one. The id is
// echoed on the response, attached to the context logger, and stored in the
// request context so outbound remote calls forward it.
func RequestID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName: HeaderRequestID,
		contextKey: ContextKeyRequestID,
		enrichers: []func(context.Context, string) context.Context{
			ContextWithRequestID,
			logging.WithRequestID,
		},
	})
}

// GetRequestID returns the request id, or "" outside the middleware.
func GetRequestID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyRequestID)
}
