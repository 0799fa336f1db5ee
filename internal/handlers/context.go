package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/orgtreehq/orgtree/internal/auditctx"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// orgContext scopes the request context to the organization being acted on, so
// audit entries written downstream inherit the organization id.
func orgContext(c *gin.Context, orgID string) context.Context {
	return auditctx.WithOrganization(requestContext(c), orgID)
}
