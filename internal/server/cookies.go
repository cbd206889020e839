package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	sessionCookie = "session"
	stateCookie   = "oauth_state"
	stateMaxAge   = 10 * time.Minute
	sessionMaxAge = 30 * 24 * time.Hour
)

// Signer authenticates cookie values with HMAC-SHA256.
type Signer struct {
	key []byte
}

// NewSigner creates a [Signer] keyed by secret.
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Sign returns value with its MAC appended.
func (s *Signer) Sign(value string) string {
	return value + "." + s.mac(value)
}

// Verify returns the unsigned value when signed carries a valid MAC.
func (s *Signer) Verify(signed string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i <= 0 {
		return "", false
	}
	value, sum := signed[:i], signed[i+1:]
	if !hmac.Equal([]byte(sum), []byte(s.mac(value))) {
		return "", false
	}
	return value, true
}

func (s *Signer) mac(value string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *Server) setCookie(w http.ResponseWriter, name, value, path string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    s.signer.Sign(value),
		Path:     path,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// cookie returns the verified value of the named cookie, or "" when it is absent or tampered.
func (s *Server) cookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	value, ok := s.signer.Verify(c.Value)
	if !ok {
		return ""
	}
	return value
}

// sessionToken reads the caller's session token from the signed cookie or a bearer header.
func (s *Server) sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return s.cookie(r, sessionCookie)
}
