package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/hashicorp/go-set/v3"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/session"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

const minPasswordLength = 8

var (
	knownRoles = set.From([]string{
		models.RoleSuperAdmin,
		models.RoleAdmin,
		models.RoleTeacher,
		models.RoleParent,
	})

	errMissingFlag = errors.New("missing required flag")
)

type createUserParams struct {
	Username string
	Name     string
	Email    string
	Password string
	Roles    string
}

func (p *createUserParams) validate() error {
	if p.Username == "" || p.Email == "" || p.Password == "" {
		return fmt.Errorf("%w: username, email and password are required", errMissingFlag)
	}
	if err := checkmail.ValidateFormat(p.Email); err != nil {
		return fmt.Errorf("invalid email %q: %w", p.Email, err)
	}
	if len(p.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	roles := strings.Fields(p.Roles)
	if len(roles) == 0 {
		return fmt.Errorf("%w: at least one role is required", errMissingFlag)
	}
	if unknown := set.From(roles).Difference(knownRoles); !unknown.Empty() {
		return fmt.Errorf("unknown roles: %s", unknown.String())
	}
	return nil
}

func runCreateUser(db *gormw.DB, args []string) error {
	p := &createUserParams{}
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.StringVar(&p.Username, "username", "", "login name")
	fs.StringVar(&p.Name, "name", "", "display name")
	fs.StringVar(&p.Email, "email", "", "email, also usable to login")
	fs.StringVar(&p.Password, "password", "", "initial password")
	fs.StringVar(&p.Roles, "roles", models.RoleParent, "space separated roles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := createUser(db, p)
	if err != nil {
		return err
	}
	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("User created")
	return nil
}

func createUser(db *gormw.DB, p *createUserParams) (*models.User, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	user := &models.User{
		Username: p.Username,
		Name:     p.Name,
		Email:    p.Email,
		Roles:    strings.Join(strings.Fields(p.Roles), " "),
	}
	if err := user.SetPassword(p.Password); err != nil {
		return nil, err
	}
	if err := storage.CreateUser(db, user); err != nil {
		return nil, err
	}
	return user, nil
}

func runRevokeUser(ctx context.Context, db *gormw.DB, sessions *session.Manager, args []string) error {
	fs := flag.NewFlagSet("revoke-user", flag.ContinueOnError)
	username := fs.String("username", "", "username or email of the user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	n, err := revokeUser(ctx, db, sessions, *username)
	if err != nil {
		return err
	}
	log.Info().Str("username", *username).Int64("revoked", n).Msg("Sessions revoked")
	return nil
}

func revokeUser(ctx context.Context, db *gormw.DB, sessions *session.Manager, username string) (int64, error) {
	if username == "" {
		return 0, fmt.Errorf("%w: username", errMissingFlag)
	}

	user, err := storage.GetUserByUsernameOrEmail(db, username)
	if err != nil {
		return 0, fmt.Errorf("user %q: %w", username, err)
	}
	return sessions.RevokeAllForUser(ctx, user.ID)
}

func runPurge(db *gormw.DB, retention time.Duration, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	days := fs.Int("retention-days", int(retention/(24*time.Hour)), "keep tokens expired within this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days < 0 {
		return errors.New("retention-days must not be negative")
	}

	cutoff := time.Now().Add(-time.Duration(*days) * 24 * time.Hour)
	n, err := storage.PurgeRefreshTokensExpiredBefore(db, cutoff)
	if err != nil {
		return err
	}
	log.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("Refresh tokens purged")
	return nil
}
