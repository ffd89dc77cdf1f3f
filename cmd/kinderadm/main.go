// kinderadm is the operator tool for kinderauth: schema migration, user
// creation and session revocation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/kinderauth/internal/config"
	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/session"
)

const usage = `usage: kinderadm [-c config.yaml] <command> [flags]

commands:
  migrate       create or update the database schema
  create-user   add a user
  revoke-user   sign a user out of every session
  purge         delete refresh tokens expired before the retention window
`

var (
	configPath = flag.String("c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
)

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if *configPath == "" {
		log.Fatal().Msg("Config path must be provided via CONFIG_PATH env var or -c flag")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig(*configPath)

	db, err := gormw.Open(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	ctx := context.Background()

	switch cmd {
	case "migrate":
		err = db.Migrate()
	case "create-user":
		err = runCreateUser(db, args)
	case "revoke-user":
		var sessions *session.Manager
		sessions, err = session.NewManager(&cfg.Session, db, nil)
		if err == nil {
			err = runRevokeUser(ctx, db, sessions, args)
		}
	case "purge":
		err = runPurge(db, cfg.Session.Retention(), args)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
	log.Info().Str("command", cmd).Msg("Done")
}
