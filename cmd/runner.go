package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songstream/internal/credentials"
	"github.com/desertthunder/songstream/internal/shared"
	"github.com/desertthunder/songstream/internal/streams"
	"github.com/desertthunder/songstream/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	getenv     func(string) string
	extractor  streams.Extractor
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Logger    *log.Logger
	Output    io.Writer
	Getenv    func(string) string
	Extractor streams.Extractor // defaults to yt-dlp at the configured path
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		getenv:    opts.Getenv,
		extractor: opts.Extractor,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, resolveCommand, cookiesCommand, accountsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file at path when it exists, then applies environment overrides.
//
// A missing file keeps the current configuration.
func (r *Runner) configure(path string) (*shared.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			r.config = config
			r.configPath = path
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	r.config.ApplyEnv(r.getenv)
	return r.config, nil
}

// openDatabase opens the configured database and brings its schema up to date.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// newResolver wires the credential store, extractor, and cache from config.
func (r *Runner) newResolver(config *shared.Config) (*streams.Resolver, *credentials.Store) {
	yt := config.Credentials.YouTube
	store := credentials.New(yt.CookiesPath)

	extractor := r.extractor
	if extractor == nil {
		extractor = streams.NewYtDlp(yt.YtDlpPath)
	}

	resolver := streams.NewResolver(streams.NewMemoryCache(), extractor, store, streams.Options{
		RequireCredential: yt.RequireCookies,
		ProxyURL:          yt.ProxyURL,
		Timeout:           config.Resolver.Timeout(),
		RateLimit:         config.Resolver.RateLimit,
		Burst:             config.Resolver.Burst,
	}, r.logger)

	return resolver, store
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", ui.Styles.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
