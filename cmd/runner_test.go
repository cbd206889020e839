package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/songstream/internal/models"
	"github.com/desertthunder/songstream/internal/repositories"
	"github.com/desertthunder/songstream/internal/shared"
	"github.com/desertthunder/songstream/internal/streams"
	tu "github.com/desertthunder/songstream/internal/testing"
	"github.com/urfave/cli/v3"
)

type stubExtractor struct {
	url     string
	queries []string
}

func (s *stubExtractor) Search(ctx context.Context, query string, opts streams.SearchOptions) (*streams.SearchResult, error) {
	s.queries = append(s.queries, query)
	return &streams.SearchResult{Entries: []streams.Entry{{URL: s.url}}}, nil
}

func noEnv(string) string { return "" }

// newTestRunner returns a runner whose database and cookie file live in a temp dir, plus a
// config path that does not exist so the injected config is used.
func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, string) {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "songstream.db")
	config.Credentials.YouTube.CookiesPath = filepath.Join(dir, "cookies", "youtube.txt")
	config.Credentials.YouTube.RequireCookies = false

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:    config,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
		Output:    output,
		Getenv:    noEnv,
		Extractor: &stubExtractor{url: "https://media.example/bohemian.webm"},
	})
	return runner, output, filepath.Join(dir, "missing.toml")
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "songstream", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"songstream"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			extractor := &stubExtractor{}

			runner := NewRunner(RunnerOpts{
				Config:    config,
				Logger:    logger,
				Output:    output,
				Extractor: extractor,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.extractor != extractor {
				t.Error("expected extractor to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil getenv uses the environment", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.getenv == nil {
				t.Error("expected getenv to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("expected compact JSON, got %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(map[string]any{"fn": func() {}}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Hello %s", "World"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "Hello World" {
				t.Errorf("expected 'Hello World', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("test"); err == nil {
				t.Error("expected error on write failure")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		var names []string
		for _, c := range runner.register() {
			names = append(names, c.Name)
		}
		if got := strings.Join(names, ","); got != "setup,serve,resolve,cookies,accounts" {
			t.Errorf("unexpected commands %s", got)
		}
	})

	t.Run("configure", func(t *testing.T) {
		t.Run("missing file keeps the current config and applies env", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: shared.NewLogger(&bytes.Buffer{}),
				Getenv: func(key string) string {
					if key == "PORT" {
						return "8080"
					}
					return ""
				},
			})

			got, err := runner.configure(filepath.Join(t.TempDir(), "missing.toml"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != config || got.Server.Port != 8080 {
				t.Errorf("expected injected config with env port, got port %d", got.Server.Port)
			}
		})

		t.Run("loads an existing file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server]\nport = 7000\n"), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Getenv: noEnv})
			got, err := runner.configure(path)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.Server.Port != 7000 || runner.configPath != path {
				t.Errorf("expected file to be loaded, got port %d path %q", got.Server.Port, runner.configPath)
			}
			if got.Resolver.Burst != 4 {
				t.Errorf("expected defaults for unset keys, got burst %d", got.Resolver.Burst)
			}
		})

		t.Run("invalid file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server\n"), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Getenv: noEnv})
			if _, err := runner.configure(path); err == nil {
				t.Error("expected parse error")
			}
		})
	})
}

func TestCommands(t *testing.T) {
	t.Run("resolve prints the stream url", func(t *testing.T) {
		runner, output, config := newTestRunner(t)

		if err := run(runner, "resolve", "--config", config, "Bohemian Rhapsody"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "https://media.example/bohemian.webm\n" {
			t.Errorf("unexpected output %q", output.String())
		}

		queries := runner.extractor.(*stubExtractor).queries
		if len(queries) != 1 || queries[0] != "Bohemian Rhapsody" {
			t.Errorf("unexpected extractor queries %v", queries)
		}
	})

	t.Run("resolve as JSON", func(t *testing.T) {
		runner, output, config := newTestRunner(t)

		if err := run(runner, "resolve", "--config", config, "--json", "Bohemian Rhapsody"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got resolveOutput
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if got.Track != "Bohemian Rhapsody" || got.StreamURL != "https://media.example/bohemian.webm" {
			t.Errorf("unexpected output %+v", got)
		}
	})

	t.Run("resolve without a track", func(t *testing.T) {
		runner, _, config := newTestRunner(t)

		err := run(runner, "resolve", "--config", config)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("resolve with required cookies missing", func(t *testing.T) {
		runner, _, config := newTestRunner(t)
		runner.config.Credentials.YouTube.RequireCookies = true

		err := run(runner, "resolve", "--config", config, "Bohemian Rhapsody")
		if !errors.Is(err, shared.ErrCredentialMissing) {
			t.Errorf("expected ErrCredentialMissing, got %v", err)
		}
	})

	t.Run("cookies upload and status", func(t *testing.T) {
		runner, output, config := newTestRunner(t)

		src := filepath.Join(t.TempDir(), "cookies.txt")
		if err := os.WriteFile(src, []byte("# Netscape HTTP Cookie File\n"), 0600); err != nil {
			t.Fatalf("failed to write cookies: %v", err)
		}

		if err := run(runner, "cookies", "upload", "--config", config, src); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		stored := runner.config.Credentials.YouTube.CookiesPath
		if got := tu.MustReadFile(t, stored); got != "# Netscape HTTP Cookie File\n" {
			t.Errorf("unexpected stored content %q", got)
		}

		output.Reset()
		if err := run(runner, "cookies", "status", "--config", config, "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var status cookiesOutput
		if err := json.Unmarshal(output.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if !status.Present || status.Path != stored || status.Size == 0 {
			t.Errorf("unexpected status %+v", status)
		}

		output.Reset()
		if err := run(runner, "cookies", "status", "--config", config); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "present") {
			t.Errorf("expected present status, got %q", output.String())
		}
	})

	t.Run("cookies upload rejects other extensions", func(t *testing.T) {
		runner, _, config := newTestRunner(t)

		src := filepath.Join(t.TempDir(), "cookies.json")
		if err := os.WriteFile(src, []byte("{}"), 0600); err != nil {
			t.Fatalf("failed to write cookies: %v", err)
		}

		err := run(runner, "cookies", "upload", "--config", config, src)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("cookies upload without a path", func(t *testing.T) {
		runner, _, config := newTestRunner(t)

		err := run(runner, "cookies", "upload", "--config", config)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("cookies status when missing", func(t *testing.T) {
		runner, output, config := newTestRunner(t)

		if err := run(runner, "cookies", "status", "--config", config); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "missing") {
			t.Errorf("expected missing status, got %q", output.String())
		}
	})

	t.Run("accounts list", func(t *testing.T) {
		runner, output, config := newTestRunner(t)

		db, err := runner.openDatabase(runner.config)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		account := models.NewAccount(0, "user-1", "Freddie", "freddie@example.com")
		account.SetTokens("access", "refresh", time.Now().Add(time.Hour))
		account.SetSessionToken("session-1")
		if err := repositories.NewAccountRepository(db).Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		db.Close()

		if err := run(runner, "accounts", "list", "--config", config, "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var accounts []accountOutput
		if err := json.Unmarshal(output.Bytes(), &accounts); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(accounts) != 1 || accounts[0].ExternalID != "user-1" || accounts[0].Email != "freddie@example.com" {
			t.Errorf("unexpected accounts %+v", accounts)
		}
		if strings.Contains(output.String(), "session-1") || strings.Contains(output.String(), "refresh") {
			t.Error("expected tokens to be omitted")
		}

		output.Reset()
		if err := run(runner, "accounts", "list", "--config", config, "--email", "nobody@example.com"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No accounts yet") {
			t.Errorf("expected empty listing, got %q", output.String())
		}
	})

	t.Run("setup creates config and database", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "songstream.db")

		runner := NewRunner(RunnerOpts{
			Logger: shared.NewLogger(&bytes.Buffer{}),
			Output: &bytes.Buffer{},
			Getenv: func(key string) string {
				if key == "SONGSTREAM_DATABASE" {
					return dbPath
				}
				return ""
			},
		})

		if err := run(runner, "setup", "--config", configPath); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, configPath)
		tu.AssertFileExists(t, dbPath)
	})

	t.Run("serve rejects an incomplete config", func(t *testing.T) {
		runner, _, config := newTestRunner(t)
		runner.config.Credentials.Spotify.ClientID = ""

		err := run(runner, "serve", "--config", config)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
