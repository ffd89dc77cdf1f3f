package session

import (
	"time"
)

const (
	defaultAccessTokenTTL  = 15 * 60           // 15 minutes
	defaultRefreshTokenTTL = 30 * 24 * 60 * 60 // 30 days
	defaultRetentionDays   = 30
	defaultAudience        = "kinderauth"
)

type Config struct {
	// PrivateKeyPEM is RSA 256 private key in PEM format, used to sign
	// access tokens.
	PrivateKeyPEM string `yaml:"private_key_pem"`

	// Issuer is the url of this service, set as iss of access tokens.
	Issuer string `yaml:"issuer"`

	// Audience is set as aud of access tokens.
	Audience string `yaml:"audience"`

	AccessTokenTTL  int `yaml:"access_token_ttl"`  // seconds
	RefreshTokenTTL int `yaml:"refresh_token_ttl"` // seconds

	// RetentionDays is how long revoked and expired refresh tokens are
	// kept after expiry before the cleaner deletes them.
	RetentionDays int `yaml:"retention_days"`
}

func (c *Config) Validate() {
	if c.PrivateKeyPEM == "" {
		logger.Fatal().Msg("SessionConfig: PrivateKeyPEM is missing")
	}
	if c.Issuer == "" {
		logger.Fatal().Msg("SessionConfig: Issuer is missing")
	}
	if c.AccessTokenTTL < 0 || c.RefreshTokenTTL < 0 || c.RetentionDays < 0 {
		logger.Fatal().Msg("SessionConfig: TTLs must not be negative")
	}

	c.applyDefaults()

	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		logger.Fatal().Msg("SessionConfig: AccessTokenTTL must be shorter than RefreshTokenTTL")
	}
}

func (c *Config) applyDefaults() {
	if c.Audience == "" {
		c.Audience = defaultAudience
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = defaultRetentionDays
	}
}

func (c *Config) AccessTokenTTLDuration() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

func (c *Config) RefreshTokenTTLDuration() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * time.Second
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
