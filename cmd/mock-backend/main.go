package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raine/category-admin/internal/mockapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	token := flag.String("token", "", "Required bearer token (empty disables auth)")
	seed := flag.Bool("seed", true, "Seed demo categories")
	debug := flag.Bool("debug", false, "Log every request")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	store := mockapi.NewStore()
	if *seed {
		store.Seed("home-repair", "Home Repair", "", 0)
		store.Seed("plumbing", "Plumbing", "home-repair", 12)
		store.Seed("electrical", "Electrical", "home-repair", 7)
		store.Seed("cleaning", "Cleaning", "", 0)
		store.Seed("deep-cleaning", "Deep Cleaning", "cleaning", 3)
		store.Seed("auto-parts", "Auto Parts", "", 0)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mockapi.NewServer(store, *token).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", *addr).Int("categories", store.Len()).Msg("mock category backend listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("shutdown complete")
}
