package app

import (
	"fmt"
	"strings"

	"github.com/orgtreehq/orgtree/pkg/crypto"
)

const (
	jwtSecretBytes  = 48
	csrfSecretBytes = 32
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.Security.CSRFSecret) == "" {
		secret, err := crypto.GenerateToken(csrfSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate csrf secret: %w", err)
		}
		cfg.Security.CSRFSecret = secret
		generated["security.csrf_secret"] = true
	}

	return generated, nil
}
