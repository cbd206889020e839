// package streams turns a free-text track name into a playable stream URL.
//
// A [Resolver] consults its [Cache] first and otherwise runs one extraction per track name at a
// time through an [Extractor], coalescing concurrent callers for the same name. Successful URLs are
// written through to the cache. Failures are returned as typed errors and never cached, so a later
// call retries from scratch.
//
// Cached URLs do not expire. Platform-issued media URLs go stale after a few hours, at which point
// a cached entry points at a dead link until [Resolver.Forget] drops it.
package streams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songstream/internal/shared"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const defaultTimeout = 30 * time.Second

// CredentialSource reports whether the extraction credential artifact is available.
type CredentialSource interface {
	Has() bool
	Path() string
}

// Options configures a [Resolver].
type Options struct {
	RequireCredential bool          // RequireCredential fails resolution when the artifact is absent
	ProxyURL          string        // ProxyURL is forwarded to the extractor
	Timeout           time.Duration // Timeout bounds a single extraction
	RateLimit         float64       // RateLimit is extractions per second; zero or less is unlimited
	Burst             int           // Burst is the limiter bucket size
}

// Resolver maps track names to stream URLs.
type Resolver struct {
	cache       Cache
	extractor   Extractor
	credentials CredentialSource
	opts        Options
	group       singleflight.Group
	limiter     *rate.Limiter
	logger      *log.Logger
}

// NewResolver creates a [Resolver]. credentials may be nil when no artifact is ever used.
func NewResolver(cache Cache, extractor Extractor, credentials CredentialSource, opts Options, logger *log.Logger) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Resolver{
		cache:       cache,
		extractor:   extractor,
		credentials: credentials,
		opts:        opts,
		limiter:     rate.NewLimiter(limit, opts.Burst),
		logger:      shared.WithLogger(logger, "component", "resolver"),
	}
}

// Resolve returns the stream URL for trackName.
//
// The name is used verbatim as the cache key. Errors wrap one of [shared.ErrInvalidInput],
// [shared.ErrCredentialMissing], [shared.ErrTrackNotFound], [shared.ErrTimeout], or
// [shared.ErrServiceUnavailable].
func (r *Resolver) Resolve(ctx context.Context, trackName string) (string, error) {
	if strings.TrimSpace(trackName) == "" {
		return "", fmt.Errorf("%w: track name is required", shared.ErrInvalidInput)
	}

	withCredential := r.credentials != nil && r.credentials.Has()
	if r.opts.RequireCredential && !withCredential {
		return "", fmt.Errorf("%w: upload a cookie file before streaming", shared.ErrCredentialMissing)
	}

	if url, ok := r.cache.Get(trackName); ok {
		r.logger.Debug("cache hit", "track", trackName)
		return url, nil
	}

	ch := r.group.DoChan(trackName, func() (any, error) {
		return r.extract(ctx, trackName, withCredential)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			r.logger.Debug("coalesced with in-flight resolution", "track", trackName)
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: waiting for %q: %w", shared.ErrTimeout, trackName, ctx.Err())
		}
		return "", ctx.Err()
	}
}

// extract runs inside the single-flight group. It is detached from the first caller's
// cancellation so that coalesced callers are not failed by someone else hanging up.
func (r *Resolver) extract(ctx context.Context, trackName string, withCredential bool) (string, error) {
	if url, ok := r.cache.Get(trackName); ok {
		return url, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.Timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limited: %w", shared.ErrTimeout, err)
	}

	opts := SearchOptions{ProxyURL: r.opts.ProxyURL}
	if withCredential {
		opts.CookiesPath = r.credentials.Path()
	}

	start := time.Now()
	result, err := r.extractor.Search(ctx, trackName, opts)
	if err != nil {
		err = classify(ctx, err)
		r.logger.Warn("extraction failed", "track", trackName, "elapsed", time.Since(start), "error", err)
		return "", err
	}

	url := result.First()
	if url == "" {
		r.logger.Info("no results", "track", trackName)
		return "", fmt.Errorf("%w: %q", shared.ErrTrackNotFound, trackName)
	}

	r.cache.Put(trackName, url)
	r.logger.Info("resolved track", "track", trackName, "elapsed", time.Since(start))
	return url, nil
}

// classify makes sure every extractor failure carries a sentinel.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, shared.ErrTimeout):
		return err
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	case shared.KindOf(err) == shared.KindInternal:
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	default:
		return err
	}
}

// Forget drops the cached URL for trackName and reports whether one was present.
func (r *Resolver) Forget(trackName string) bool {
	ok := r.cache.Delete(trackName)
	if ok {
		r.logger.Info("forgot cached stream", "track", trackName)
	}
	return ok
}

// Cached reports the number of memoized tracks.
func (r *Resolver) Cached() int {
	return r.cache.Len()
}
