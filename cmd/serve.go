package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/songstream/internal/repositories"
	"github.com/desertthunder/songstream/internal/server"
	"github.com/desertthunder/songstream/internal/services"
	"github.com/desertthunder/songstream/internal/sessions"
	"github.com/desertthunder/songstream/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve wires storage, the identity provider, and the resolver into the HTTP API and serves until
// SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.configure(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.IsSet("port") {
		config.Server.Port = int(cmd.Int("port"))
	}
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	httpClient, err := shared.NewHTTPClient("", config.Auth.Timeout())
	if err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}
	spotify.WithHTTPClient(httpClient)

	accounts := repositories.NewAccountRepository(db)
	manager := sessions.NewManager(spotify, accounts, config.Auth.Timeout(), r.logger)
	resolver, store := r.newResolver(config)

	srv, err := server.New(server.Options{
		Resolver:       resolver,
		Credentials:    store,
		Sessions:       manager,
		Catalog:        spotify,
		SessionSecret:  config.Server.SessionSecret,
		CookieSecure:   config.Server.CookieSecure,
		CORSOrigins:    config.Server.CORSOrigins,
		CatalogTimeout: config.Auth.Timeout(),
		Logger:         r.logger,
	})
	if err != nil {
		return err
	}

	r.logger.Info("starting songstream",
		"config", r.configPath,
		"database", config.Database.Path,
		"cookies", store.Info().Present,
		"require_cookies", config.Credentials.YouTube.RequireCookies,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, config.Server.Addr())
}
