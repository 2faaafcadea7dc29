// Package config loads the service configuration from the environment. Keys
// and defaults match the forum deployment: only the secrets and the database
// are mandatory.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface of the auth core.
type Config struct {
	Env            string
	Port           int
	DatabaseURL    string
	RedisURL       string
	AllowedOrigins []string

	// SigningKey signs the inner claim envelope (HS256).
	SigningKey []byte
	// EncryptionKey wraps the signed envelope (A256GCM); exactly 32 bytes.
	EncryptionKey []byte
	// CookieSecret signs the session cookie; independent of the token keys.
	CookieSecret []byte
	// CSRFSecret keys the CSRF HMAC.
	CSRFSecret []byte

	// SessionTTL bounds both the token expiry and the cookie max-age.
	SessionTTL time.Duration
}

// Production reports whether the service runs with production hardening
// (Secure cookies, generic 500 messages).
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", 3100)
	v.SetDefault("EXPIRATION", "2h")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	for _, key := range []string{"DATABASE_URL", "JWT_SECRET_HS256", "JWE_ENCRYPTION_KEY_256", "COOKIE_SECRET", "CSRF_SECRET"} {
		if v.GetString(key) == "" {
			return nil, fmt.Errorf("missing required configuration: %s", key)
		}
	}

	encryptionKey := []byte(v.GetString("JWE_ENCRYPTION_KEY_256"))
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("JWE_ENCRYPTION_KEY_256 must be 32 bytes, got %d", len(encryptionKey))
	}

	ttl, err := time.ParseDuration(v.GetString("EXPIRATION"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRATION: %w", err)
	}

	var origins []string
	if raw := v.GetString("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origins = append(origins, strings.TrimSpace(origin))
		}
	}

	return &Config{
		Env:            v.GetString("APP_ENV"),
		Port:           v.GetInt("PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisURL:       v.GetString("REDIS_URL"),
		AllowedOrigins: origins,
		SigningKey:     []byte(v.GetString("JWT_SECRET_HS256")),
		EncryptionKey:  encryptionKey,
		CookieSecret:   []byte(v.GetString("COOKIE_SECRET")),
		CSRFSecret:     []byte(v.GetString("CSRF_SECRET")),
		SessionTTL:     ttl,
	}, nil
}
