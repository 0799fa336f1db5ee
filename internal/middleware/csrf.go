package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orgtreehq/orgtree/internal/security"
	"github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/logger"
	"github.com/orgtreehq/orgtree/pkg/metrics"
	"github.com/orgtreehq/orgtree/pkg/response"
)

const (
	// CSRFCookieName is the cookie used to transport the signed CSRF token to clients.
	CSRFCookieName = "orgtree_csrf"
	// CSRFHeaderName is the header clients must echo for unsafe HTTP methods.
	CSRFHeaderName = "X-CSRF-Token"

	csrfLoggerModule = "csrf"
)

var unsafeMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// CSRF implements the double-submit-cookie pattern with HMAC-signed tokens.
// Safe methods receive a signed token via cookie and header; mutating requests
// must echo the cookie value using the X-CSRF-Token header. Verification is
// stateless, so any replica sharing the secret can validate any token.
func CSRF(manager *security.CSRFManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodOptions {
			c.Next()
			return
		}

		if isUnsafeMethod(method) {
			cookieToken, _ := c.Cookie(CSRFCookieName)
			headerToken := strings.TrimSpace(c.GetHeader(CSRFHeaderName))
			if !manager.Verify(cookieToken, headerToken) {
				metrics.CSRFRejections.Inc()
				logger.WithModule(csrfLoggerModule).Warn("csrf validation failed",
					// Avoid logging token contents
					zap.String("method", method),
					zap.String("path", c.FullPath()),
					zap.Bool("cookie_present", cookieToken != ""),
					zap.Bool("header_present", headerToken != ""),
				)
				response.Error(c, errors.ErrCSRFInvalid)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		token, err := ensureCSRFCookie(c, manager)
		if err != nil {
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}
		c.Header(CSRFHeaderName, token)

		c.Next()
	}
}

func ensureCSRFCookie(c *gin.Context, manager *security.CSRFManager) (string, error) {
	// Re-issue when the cookie is absent or no longer verifies (expired, tampered,
	// signed under a rotated secret).
	if existing, err := c.Cookie(CSRFCookieName); err == nil && manager.Verify(existing, existing) {
		return existing, nil
	}

	pair, err := manager.Issue()
	if err != nil {
		return "", err
	}
	setCSRFCookie(c, manager, pair.SignedToken)
	return pair.SignedToken, nil
}

func setCSRFCookie(c *gin.Context, manager *security.CSRFManager, token string) {
	secure := isSecureRequest(c.Request)
	c.SetSameSite(http.SameSiteStrictMode)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		MaxAge:   int(manager.TTL().Seconds()),
		SameSite: http.SameSiteStrictMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	return strings.EqualFold(scheme, "https")
}

func isUnsafeMethod(method string) bool {
	_, ok := unsafeMethods[method]
	return ok
}
