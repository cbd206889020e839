// package sessions manages per-user authentication state.
//
// A login exchanges an authorization code for a token pair, fetches the caller's profile, issues a
// fresh opaque session token, and upserts the [models.Account] keyed by external identity. Each login
// rotates the session token, so earlier tokens for the same identity stop resolving.
//
// When the account store rejects the write, the login still succeeds: the session is held in memory
// for the life of the process and [Session.Persisted] is false. A degraded session supersedes any
// durable session for the same identity, and a later durable login evicts it.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songstream/internal/models"
	"github.com/desertthunder/songstream/internal/services"
	"github.com/desertthunder/songstream/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 15 * time.Second
	// expiryDelta refreshes tokens slightly before the provider would reject them.
	expiryDelta = 30 * time.Second
)

// IdentityProvider runs the provider side of the OAuth flow.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, token *oauth2.Token) (*services.Profile, error)
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// AccountStore persists accounts.
type AccountStore interface {
	Upsert(account *models.Account) error
	GetBySessionToken(token string) (*models.Account, error)
	Update(account *models.Account) error
}

// Session is the outcome of a completed login.
type Session struct {
	Token     string
	Account   *models.Account
	Persisted bool
}

// Manager issues and validates session tokens.
type Manager struct {
	provider IdentityProvider
	store    AccountStore
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu         sync.RWMutex
	degraded   map[string]*models.Account // session token -> account
	identities map[string]string          // external id -> degraded session token
}

// NewManager creates a [Manager]. timeout bounds each provider round trip.
func NewManager(provider IdentityProvider, store AccountStore, timeout time.Duration, logger *log.Logger) *Manager {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		provider:   provider,
		store:      store,
		timeout:    timeout,
		logger:     shared.WithLogger(logger, "component", "sessions"),
		now:        time.Now,
		degraded:   make(map[string]*models.Account),
		identities: make(map[string]string),
	}
}

// BeginAuth returns the provider authorization URL and the CSRF state embedded in it.
func (m *Manager) BeginAuth() (string, string, error) {
	state, err := shared.GenerateToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	return m.provider.AuthURL(state), state, nil
}

// CompleteAuth exchanges code for tokens and issues a new session.
//
// An empty code is rejected before the provider is contacted. Exchange and profile failures wrap
// [shared.ErrAuthFailed] and leave the store untouched.
func (m *Manager) CompleteAuth(ctx context.Context, code string) (*Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	token, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(ctx, "token exchange", err)
	}

	profile, err := m.provider.Profile(ctx, token)
	if err != nil {
		return nil, exchangeError(ctx, "profile fetch", err)
	}

	sessionToken, err := shared.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	account := models.NewAccount(0, profile.ID, profile.DisplayName, profile.Email)
	account.SetTokens(token.AccessToken, token.RefreshToken, token.Expiry)
	account.SetSessionToken(sessionToken)

	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: provider returned an incomplete identity: %v", shared.ErrAuthFailed, err)
	}

	if err := m.store.Upsert(account); err != nil {
		m.logger.Warn("account not persisted, keeping session in memory", "user", profile.ID, "error", err)
		m.hold(account)
		return &Session{Token: sessionToken, Account: account, Persisted: false}, nil
	}

	m.release(profile.ID)
	m.logger.Info("session issued", "user", profile.ID)
	return &Session{Token: sessionToken, Account: account, Persisted: true}, nil
}

// ResolveSession returns the account holding token.
//
// Empty, rotated, and never-issued tokens wrap [shared.ErrNotAuthenticated].
func (m *Manager) ResolveSession(token string) (*models.Account, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no session token", shared.ErrNotAuthenticated)
	}

	if account, ok := m.held(token); ok {
		return account, nil
	}

	account, err := m.store.GetBySessionToken(token)
	switch {
	case errors.Is(err, shared.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: unknown session token", shared.ErrNotAuthenticated)
	case err != nil:
		return nil, err
	}

	m.mu.RLock()
	_, superseded := m.identities[account.ExternalID()]
	m.mu.RUnlock()
	if superseded {
		return nil, fmt.Errorf("%w: session replaced by a newer login", shared.ErrNotAuthenticated)
	}

	return account, nil
}

// Token returns a usable access token for account, refreshing it through the provider when it has
// expired and saving the result.
func (m *Manager) Token(ctx context.Context, account *models.Account) (*oauth2.Token, error) {
	token := &oauth2.Token{
		AccessToken:  account.AccessToken(),
		RefreshToken: account.RefreshToken(),
		Expiry:       account.TokenExpiry(),
		TokenType:    "Bearer",
	}

	if !account.Expired(m.now().Add(expiryDelta)) {
		return token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	fresh, err := m.provider.Refresh(ctx, token)
	if err != nil {
		m.logger.Warn("token refresh failed", "user", account.ExternalID(), "error", err)
		return nil, err
	}

	m.SaveToken(account, fresh)
	return fresh, nil
}

// SaveToken records a rotated token pair on account.
//
// A store failure is logged and otherwise ignored; the new token stays on account for the current
// request.
func (m *Manager) SaveToken(account *models.Account, token *oauth2.Token) {
	m.mu.Lock()
	account.SetTokens(token.AccessToken, token.RefreshToken, token.Expiry)
	if held, ok := m.degraded[account.SessionToken()]; ok {
		held.SetTokens(token.AccessToken, token.RefreshToken, token.Expiry)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := m.store.Update(account); err != nil {
		m.logger.Warn("refreshed token not persisted", "user", account.ExternalID(), "error", err)
		return
	}
	m.logger.Debug("token refreshed", "user", account.ExternalID())
}

// Degraded reports how many sessions are held only in memory.
func (m *Manager) Degraded() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.degraded)
}

func (m *Manager) hold(account *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.identities[account.ExternalID()]; ok {
		delete(m.degraded, prev)
	}
	held := *account
	m.degraded[account.SessionToken()] = &held
	m.identities[account.ExternalID()] = account.SessionToken()
}

func (m *Manager) held(token string) (*models.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.degraded[token]
	if !ok {
		return nil, false
	}
	copied := *account
	return &copied, true
}

func (m *Manager) release(externalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token, ok := m.identities[externalID]; ok {
		delete(m.degraded, token)
		delete(m.identities, externalID)
	}
}

// exchangeError classifies a provider failure during login as an exchange failure, or a timeout
// when the login deadline passed.
func exchangeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, shared.ErrTimeout):
		return fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, op, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w: %s: %w", shared.ErrAuthFailed, shared.ErrTimeout, op, err)
	case errors.Is(err, shared.ErrAuthFailed):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", shared.ErrAuthFailed, op, err)
	}
}
