package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raine/category-admin/config"
	"github.com/raine/category-admin/internal/catalog"
	"github.com/raine/category-admin/internal/console"
	"github.com/raine/category-admin/internal/storage"
	"github.com/raine/category-admin/internal/tree"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logFileName = "category-admin.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing config.env file
	config.LoadEnvFile()

	if missing := config.MissingRequired(); len(missing) > 0 {
		if isInteractiveTerminal() {
			if !runSetupWizard() {
				os.Exit(1)
			}
		} else {
			fatal("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// The console owns stdout, so logs go to the log file only. Under
	// systemd there is no console and journald collects stderr.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatal("failed to open log file: %v", err)
		}
		defer logFile.Close()

		log.Logger = log.Output(zerolog.ConsoleWriter{Out: logFile, NoColor: true})
	}
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}

	journal, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fatal("failed to initialize mutation journal: %v", err)
	}
	defer journal.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("mutation journal initialized")

	client := catalog.NewClient(catalog.ClientOpts{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
	})
	service := catalog.NewCachedService(client, cfg.CacheTTL)

	operator := &tree.Operator{ID: cfg.OperatorID, Name: cfg.OperatorName, Role: cfg.OperatorRole}
	if err := tree.RequireAdmin(operator); err != nil {
		fatal("%v (OPERATOR_ROLE=%s)", err, cfg.OperatorRole)
	}

	dialogs := console.NewHuhDialogs()
	view := tree.New(service, operator, console.NewNotifier(os.Stdout), dialogs, tree.WithJournal(journal))
	c := console.New(view, dialogs, journal, os.Stdin, os.Stdout)

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("baseURL", cfg.APIBaseURL).Str("operator", operator.Name).Msg("starting category admin")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}
