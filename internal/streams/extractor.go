package streams

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/desertthunder/songstream/internal/shared"
)

const (
	ytDlpCmd          = "yt-dlp"
	ytDlpSearchPrefix = "ytsearch1:"
	ytDlpAudioFormat  = "bestaudio/best"
)

// Entry is a single search hit from the extraction backend.
type Entry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Duration   float64 `json:"duration"`
}

// SearchResult is the backend's answer to a search query.
type SearchResult struct {
	Entries []Entry `json:"entries"`
}

// First returns the direct media URL of the first entry, or "" when there is none.
func (r *SearchResult) First() string {
	if r == nil || len(r.Entries) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Entries[0].URL)
}

// SearchOptions carries per-call extraction settings.
type SearchOptions struct {
	ProxyURL    string // ProxyURL routes extraction traffic when set
	CookiesPath string // CookiesPath is passed to the backend when set
}

// Extractor searches the video platform and returns direct media URLs.
type Extractor interface {
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error)
}

// CommandRunner executes name with args and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// YtDlp is an [Extractor] that shells out to the yt-dlp binary.
type YtDlp struct {
	path string
	run  CommandRunner
}

// NewYtDlp creates a [YtDlp] extractor for the binary at path (looked up on PATH when bare).
func NewYtDlp(path string) *YtDlp {
	if strings.TrimSpace(path) == "" {
		path = ytDlpCmd
	}
	return &YtDlp{path: path, run: execRunner}
}

// WithRunner replaces the process runner.
func (y *YtDlp) WithRunner(run CommandRunner) *YtDlp {
	y.run = run
	return y
}

// Args builds the yt-dlp argument list for query.
func (y *YtDlp) Args(query string, opts SearchOptions) []string {
	args := []string{
		"-J",
		"--no-warnings",
		"--no-playlist",
		"--no-check-certificates",
		"-f", ytDlpAudioFormat,
	}
	if opts.ProxyURL != "" {
		args = append(args, "--proxy", opts.ProxyURL)
	}
	if opts.CookiesPath != "" {
		args = append(args, "--cookies", opts.CookiesPath)
	}
	return append(args, ytDlpSearchPrefix+query)
}

// Search runs a single-result audio search for query.
//
// A deadline on ctx surfaces as [shared.ErrTimeout]; any other process or decoding failure
// as [shared.ErrServiceUnavailable].
func (y *YtDlp) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	out, err := y.run(ctx, y.path, y.Args(query, opts)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: yt-dlp: %w", shared.ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: yt-dlp: %w", shared.ErrServiceUnavailable, err)
	}

	var result SearchResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode yt-dlp output: %w", shared.ErrServiceUnavailable, err)
	}
	return &result, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
