package server

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/songstream/internal/shared"
)

type loginResponse struct {
	SessionToken string `json:"session_token"`
	DisplayName  string `json:"display_name"`
	Persisted    bool   `json:"persisted"`
}

type sessionUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *sessionUser `json:"user,omitempty"`
}

// AuthHandler serves the OAuth2 authorization code flow and session checks.
//
// Login sets a signed state cookie and redirects to the provider. The callback checks the state
// (CSRF protection), completes the login, and sets the signed session cookie.
type AuthHandler struct {
	server *Server
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"GET /auth/login", "GET /auth/callback", "GET /auth/session"}
}

// ServeHTTP dispatches to the login, callback, and session endpoints.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	case "/auth/session":
		h.session(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	s := h.server

	url, state, err := s.sessions.BeginAuth()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	s.setCookie(w, stateCookie, state, "/auth", stateMaxAge)
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	s := h.server
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		writeError(w, s.logger, fmt.Errorf("%w: provider denied authorization: %s", shared.ErrAuthFailed, reason))
		return
	}

	expected := s.cookie(r, stateCookie)
	if expected == "" || q.Get("state") != expected {
		writeError(w, s.logger, fmt.Errorf("%w: invalid state parameter", shared.ErrInvalidInput))
		return
	}
	s.clearCookie(w, stateCookie, "/auth")

	session, err := s.sessions.CompleteAuth(r.Context(), q.Get("code"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	s.setCookie(w, sessionCookie, session.Token, "/", sessionMaxAge)
	writeJSON(w, http.StatusOK, loginResponse{
		SessionToken: session.Token,
		DisplayName:  session.Account.DisplayName(),
		Persisted:    session.Persisted,
	})
}

func (h *AuthHandler) session(w http.ResponseWriter, r *http.Request) {
	s := h.server

	account, err := s.sessions.ResolveSession(s.sessionToken(r))
	switch {
	case shared.KindOf(err) == shared.KindUnauthenticated:
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	case err != nil:
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User: &sessionUser{
			ID:          account.ExternalID(),
			DisplayName: account.DisplayName(),
			Email:       account.Email(),
		},
	})
}
