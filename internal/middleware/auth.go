package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/auditctx"
	iauth "github.com/orgtreehq/orgtree/internal/auth"
	"github.com/orgtreehq/orgtree/internal/models"
	"github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxUserIDKey   = "userID"
	CtxUserKey     = "authUser"
	CtxIdentityKey = "authIdentity"
)

// UserLoader resolves the account behind a validated token.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Auth enforces JWT authentication using the supplied JWT service, loads the
// account, and seeds the request context with the caller's identity and audit
// actor metadata.
func Auth(jwt *iauth.JWTService, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxUserKey, user)
		c.Set(CtxIdentityKey, user.Identity())

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    user.ID,
			Username:  user.Email,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireSuperuser restricts a route to accounts holding the superuser system role.
// It must run after Auth.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxIdentityKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		identity, _ := v.(access.Identity)
		if identity.SystemRole != access.SystemRoleSuperuser {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFrom extracts the authenticated identity stored by Auth.
func IdentityFrom(c *gin.Context) (access.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return access.Identity{}, false
	}
	identity, ok := v.(access.Identity)
	return identity, ok
}

// UserFrom extracts the authenticated account stored by Auth.
func UserFrom(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
