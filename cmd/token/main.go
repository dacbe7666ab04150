// Command token issues a bearer token for a writer or manager identity,
// signed with the configured APPROVALFLOW_AUTH_TOKEN_SECRET.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/approvalflow/auth"
)

// Config holds the issuing parameters
type Config struct {
	Secret string        `env:"APPROVALFLOW_AUTH_TOKEN_SECRET"`
	TTL    time.Duration `env:"APPROVALFLOW_AUTH_TOKEN_TTL" envDefault:"24h"`
	Email  string
	Role   string
}

// ParseConfig reads the secret from the environment and the identity from flags
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.Email, "email", "", "email of the identity")
	fs.StringVar(&cfg.Role, "role", string(auth.RoleWriter), "role: writer or manager")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run issues the token and writes it to out
func Run(cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	svc, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.Secret),
		TTL:    cfg.TTL,
	}, nil)
	if err != nil {
		return err
	}
	token, err := svc.Issue(cfg.Email, auth.Role(cfg.Role))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func main() {
	cfg, err := ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse configuration")
	}
	if err := Run(cfg, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}
}
