package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/metrics"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

// TokenPair is handed to the client once. RefreshSecret can not be
// recovered afterwards.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshSecret    string
	RefreshRecordID  string
	RefreshExpiresAt time.Time
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID    uint
	Username  string
	Roles     []string
	ExpiresAt time.Time
}

// Issue mints a new token pair for user, persisting one refresh record.
func (m *Manager) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	return m.issue(m.db.WithContext(ctx), user)
}

func (m *Manager) issue(db *gormw.DB, user *models.User) (*TokenPair, error) {
	now := m.clock.Now()

	accessToken, accessExp, err := m.genAccessToken(user, now)
	if err != nil {
		return nil, err
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	refreshExp := now.Add(m.config.RefreshTokenTTLDuration())
	record, err := storage.AddRefreshToken(db, user.ID, HashSecret(secret), refreshExp)
	if err != nil {
		if errors.Is(err, storage.ErrConstraintViolation) {
			logger.Error().Uint("user_id", user.ID).Msg("Refresh token hash collision, random source broken?")
			return nil, err
		}
		return nil, persistenceFailure(err)
	}

	metrics.Issued.Inc()

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshSecret:    secret,
		RefreshRecordID:  record.ID,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) genAccessToken(user *models.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.config.AccessTokenTTLDuration())

	token, err := jwt.NewBuilder().
		Issuer(m.config.Issuer).
		IssuedAt(now).
		Expiration(exp).
		Audience([]string{m.config.Audience}).
		Subject(strconv.FormatUint(uint64(user.ID), 10)).
		JwtID(uuid.NewString()).
		Claim("preferred_username", user.Username).
		Claim("roles", user.Roles).
		Build()

	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build access token claims: %v", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), m.privateKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %v", err)
	}

	return string(signed), exp, nil
}

// VerifyAccessToken checks signature, issuer, audience and expiry. No
// store lookup is done.
func (m *Manager) VerifyAccessToken(token string) (*AccessClaims, error) {
	verified, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.RS256(), m.publicKey),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithClock(jwt.ClockFunc(m.clock.Now)),
	)
	if err != nil {
		return nil, err
	}

	sub, ok := verified.Subject()
	if !ok {
		return nil, errors.New("access token has no subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid access token subject: %w", err)
	}

	claims := &AccessClaims{UserID: uint(userID)}
	claims.ExpiresAt, _ = verified.Expiration()

	var username string
	if err := verified.Get("preferred_username", &username); err == nil {
		claims.Username = username
	}
	var roles string
	if err := verified.Get("roles", &roles); err == nil {
		claims.Roles = strings.Fields(roles)
	}

	return claims, nil
}
