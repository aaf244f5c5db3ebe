// Command migrate applies the embedded schema migrations.
//
//	migrate [-dsn url] up|down|version
//	migrate [-dsn url] steps N
//	migrate [-dsn url] force N
//
// Without -dsn the connection comes from DOCKET_DB_DSN, then from the
// [database] section of config.toml and its DOCKET_DB_* overrides.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/docket/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "DOCKET_DB_DSN"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dsn := flag.String("dsn", "", "postgres connection url")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-dsn url] up|down|version|steps N|force N")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	url, err := resolveDSN(*dsn)
	if err != nil {
		logger.Error("resolve connection", "error", err)
		os.Exit(1)
	}

	if err := run(url, flag.Args(), logger); err != nil {
		logger.Error("migrate failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if env := os.Getenv(envDSN); env != "" {
		return env, nil
	}
	db, err := config.LoadDatabase()
	if err != nil {
		return "", err
	}
	return db.URL(), nil
}

func run(url string, args []string, logger *slog.Logger) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requires a number", args[0])
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("%s: %w", args[0], convErr)
		}
		if args[0] == "steps" {
			err = m.Steps(n)
		} else {
			err = m.Force(n)
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already current")
		err = nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("no migrations applied")
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		logger.Info("schema version", "version", version, "dirty", dirty)
	}
	return nil
}
