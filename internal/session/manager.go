// Package session implements the rotating refresh token session core:
// issuing token pairs, rotating refresh tokens on use and revoking them.
//
// Access tokens are RS256 JWTs verifiable with the public key alone.
// Refresh tokens are opaque random secrets; only their SHA-256 hash is
// persisted. Presenting a secret whose record was already revoked is
// treated as theft and revokes every session of the owner.
package session

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/kinderauth/internal/gormw"
)

var (
	logger = log.With().Str("component", "session").Logger()
)

type Manager struct {
	config *Config
	db     *gormw.DB
	clock  clockwork.Clock

	privateKey jwk.Key
	publicKey  jwk.Key
}

// NewManager parses the signing key from config. A nil clock means the real
// clock.
func NewManager(config *Config, db *gormw.DB, clock clockwork.Clock) (*Manager, error) {
	config.applyDefaults()

	priv, err := jwk.ParseKey([]byte(config.PrivateKeyPEM), jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	pub, err := priv.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate public key: %w", err)
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Manager{
		config:     config,
		db:         db,
		clock:      clock,
		privateKey: priv,
		publicKey:  pub,
	}, nil
}

func (m *Manager) Config() *Config {
	return m.config
}

// PublicKey is published as JWKS so other services can verify access tokens.
func (m *Manager) PublicKey() jwk.Key {
	return m.publicKey
}
