package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/middleware"
	"github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// currentIdentity extracts the authenticated identity seeded by the auth
// middleware, writing a 401 response when it is absent.
func currentIdentity(c *gin.Context) (access.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return access.Identity{}, false
	}
	return identity, true
}
