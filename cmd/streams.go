package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/songstream/internal/credentials"
	"github.com/desertthunder/songstream/internal/shared"
	"github.com/desertthunder/songstream/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

type resolveOutput struct {
	Track     string `json:"track"`
	StreamURL string `json:"stream_url"`
}

type cookiesOutput struct {
	Path string `json:"path"`
	credentials.Info
}

// Resolve resolves a single track name and prints its stream URL.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	track := cmd.StringArg("track")

	config, err := r.configure(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	resolver, _ := r.newResolver(config)
	url, err := resolver.Resolve(ctx, track)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", track, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(resolveOutput{Track: track, StreamURL: url}, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", url)
}

// CookiesUpload copies a local cookie export into the credential store.
func (r *Runner) CookiesUpload(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a cookies .txt file", shared.ErrMissingArgument)
	}

	config, err := r.configure(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	store := credentials.New(config.Credentials.YouTube.CookiesPath)
	if err := store.Save(f, filepath.Base(path)); err != nil {
		return err
	}

	r.logger.Info("cookie file stored", "path", store.Path())
	return r.writePlain("%s %s\n", ui.Styles.OK("✓ Cookies stored at"), store.Path())
}

// CookiesStatus reports whether a cookie file is stored.
func (r *Runner) CookiesStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.configure(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := credentials.New(config.Credentials.YouTube.CookiesPath)
	info := store.Info()

	if cmd.Bool("json") {
		return r.writeJSON(cookiesOutput{Path: store.Path(), Info: info}, cmd.Bool("pretty"))
	}

	r.writePlainHeader("YouTube cookies")
	r.writePlain("Path:     %s\n", store.Path())
	r.writePlain("Status:   %s\n", ui.Styles.Status(info.Present, "present", "missing"))
	if info.Present {
		r.writePlain("Size:     %s\n", humanize.Bytes(uint64(info.Size)))
		r.writePlain("Modified: %s\n", humanize.Time(info.UpdatedAt))
	} else if config.Credentials.YouTube.RequireCookies {
		r.writePlain("%s\n", ui.Styles.Help("Stream resolution is disabled until a cookie file is uploaded."))
	}
	return nil
}
