package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/orgtreehq/orgtree/pkg/crypto"
)

// DefaultCSRFTokenTTL is the validity window for issued CSRF tokens.
const DefaultCSRFTokenTTL = 24 * time.Hour

const csrfTokenBytes = 32

// CSRFTokenPair is the result of issuing a token: the raw token and the signed,
// self-describing value handed to clients (cookie and response body).
type CSRFTokenPair struct {
	Token       string `json:"token"`
	SignedToken string `json:"signed_token"`
}

// CSRFConfig bundles the inputs required to build a CSRFManager.
type CSRFConfig struct {
	Secret string
	TTL    time.Duration
	Clock  func() time.Time
}

// CSRFManager implements the double-submit-cookie protocol with HMAC-SHA256 signed
// tokens. Issuance binds same-origin-ness only, not identity, and keeps no server
// state: any replica holding the secret can verify any replica's tokens.
type CSRFManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCSRFManager constructs a CSRFManager from the supplied configuration.
func NewCSRFManager(cfg CSRFConfig) (*CSRFManager, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("security: csrf secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCSRFTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &CSRFManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}, nil
}

// Issue generates a random token, signs it together with the issuance timestamp,
// and returns both the raw token and the opaque signed value.
//
// Signed token layout: token "." unix-timestamp "." base64url(HMAC-SHA256(token "." unix-timestamp)).
func (m *CSRFManager) Issue() (CSRFTokenPair, error) {
	token, err := crypto.GenerateToken(csrfTokenBytes)
	if err != nil {
		return CSRFTokenPair{}, fmt.Errorf("security: generate csrf token: %w", err)
	}

	issuedAt := strconv.FormatInt(m.now().Unix(), 10)
	payload := token + "." + issuedAt
	signature := m.sign(payload)

	return CSRFTokenPair{
		Token:       token,
		SignedToken: payload + "." + signature,
	}, nil
}

// Verify checks a signed token presented via header against the cookie value.
// It returns false, never an error, for malformed input, signature mismatch,
// expired timestamps, or a header/cookie mismatch.
func (m *CSRFManager) Verify(signedToken, presented string) bool {
	signedToken = strings.TrimSpace(signedToken)
	presented = strings.TrimSpace(presented)
	if signedToken == "" || presented == "" {
		return false
	}

	// Double-submit: the echoed value must match the cookie byte for byte.
	if subtle.ConstantTimeCompare([]byte(signedToken), []byte(presented)) != 1 {
		return false
	}

	token, issuedAt, signature, ok := splitSignedToken(signedToken)
	if !ok {
		return false
	}

	expected := m.sign(token + "." + strconv.FormatInt(issuedAt, 10))
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return false
	}

	age := m.now().Sub(time.Unix(issuedAt, 0))
	if age < 0 || age > m.ttl {
		return false
	}

	return true
}

// TTL reports the validity window applied to issued tokens.
func (m *CSRFManager) TTL() time.Duration {
	return m.ttl
}

func (m *CSRFManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func splitSignedToken(signedToken string) (token string, issuedAt int64, signature string, ok bool) {
	parts := strings.Split(signedToken, ".")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", 0, "", false
	}

	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, "", false
	}

	return parts[0], ts, parts[2], true
}
