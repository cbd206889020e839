// Spotify accounts service (OAuth2) and Web API access
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/songstream/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1/"
)

// SpotifyScopes is the fixed scope set requested at login.
var SpotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-library-read",
}

// SpotifyService is the identity provider and catalog factory for Spotify.
//
// User-scoped calls use the authorization-code flow; anonymous catalog calls use an app-level
// client-credentials token.
type SpotifyService struct {
	config     *oauth2.Config
	app        *clientcredentials.Config
	httpClient *http.Client
	apiURL     string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:5000/auth/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
		},
		app: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
		},
		httpClient: http.DefaultClient,
	}
	return s.WithEndpoints(spotifyAuthURL, spotifyTokenURL, spotifyBaseURL), nil
}

// WithHTTPClient sets the base client used for token and API traffic (proxy, timeouts).
func (s *SpotifyService) WithHTTPClient(c *http.Client) *SpotifyService {
	if c != nil {
		s.httpClient = c
	}
	return s
}

// WithEndpoints points the service at alternate accounts and API hosts.
//
// apiURL must end with a slash.
func (s *SpotifyService) WithEndpoints(authURL, tokenURL, apiURL string) *SpotifyService {
	s.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	s.app.TokenURL = tokenURL
	s.apiURL = apiURL
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (s *SpotifyService) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Exchange trades an authorization code for a token pair.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.withClient(ctx), code)
	if err != nil {
		return nil, tokenError(shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh obtains a new access token using token's refresh token.
//
// The provider may omit a new refresh token; the returned token then carries the old one.
func (s *SpotifyService) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	stale := &oauth2.Token{RefreshToken: token.RefreshToken}
	fresh, err := s.config.TokenSource(s.withClient(ctx), stale).Token()
	if err != nil {
		return nil, tokenError(shared.ErrRefreshFailed, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}
	return fresh, nil
}

// Profile fetches the identity that owns token.
func (s *SpotifyService) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := s.client(ctx, oauth2.StaticTokenSource(token))

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, apiError("fetch profile", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile has no id", shared.ErrAPIRequest)
	}

	return &Profile{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, nil
}

// Catalog returns a [CatalogClient] authorized as the user owning token, or as the app when
// token is nil.
//
// onRefresh, when non-nil, is called with every token the user-scoped source mints so callers can
// persist rotated tokens.
func (s *SpotifyService) Catalog(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) CatalogClient {
	var source oauth2.TokenSource
	if token == nil {
		source = s.app.TokenSource(s.withClient(ctx))
	} else {
		source = &refreshableTokenSource{
			source:   s.config.TokenSource(s.withClient(ctx), token),
			callback: onRefresh,
			last:     token.AccessToken,
		}
	}
	return &spotifyCatalog{client: s.client(ctx, source)}
}

func (s *SpotifyService) client(ctx context.Context, source oauth2.TokenSource) *spotify.Client {
	httpClient := oauth2.NewClient(s.withClient(ctx), source)
	return spotify.New(httpClient, spotify.WithBaseURL(s.apiURL))
}

// refreshableTokenSource reports each newly minted access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, tokenError(shared.ErrRefreshFailed, err)
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// tokenError wraps a token endpoint failure in kind, keeping deadline information.
func tokenError(kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s", kind, shared.ErrTimeout, describe(err))
	}
	return fmt.Errorf("%w: %s", kind, describe(err))
}

// describe extracts the provider's own error text when there is one.
func describe(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorDescription != "":
			return re.ErrorCode + ": " + re.ErrorDescription
		case re.ErrorCode != "":
			return re.ErrorCode
		}
	}
	return err.Error()
}

func apiError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", shared.ErrTimeout, op, err)
	case errors.Is(err, shared.ErrRefreshFailed):
		return err
	}

	var se spotify.Error
	var sep *spotify.Error
	switch {
	case errors.As(err, &sep):
		se = *sep
	case !errors.As(err, &se):
		return fmt.Errorf("%w: %s: %w", shared.ErrServiceUnavailable, op, err)
	}

	if se.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s: %s", shared.ErrTokenExpired, op, se.Message)
	}
	return fmt.Errorf("%w: %s: %d %s", shared.ErrAPIRequest, op, se.Status, se.Message)
}

