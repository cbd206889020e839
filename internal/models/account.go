package models

import (
	"fmt"
	"time"
)

// Account is an identity authenticated through the catalog provider.
//
// There is exactly one Account per external identity. Every login replaces the token pair and
// rotates the session token, so a previously issued session token stops resolving.
type Account struct {
	record
	externalID   string
	displayName  string
	email        string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	sessionToken string
}

// NewAccount creates an [Account] for the provider-assigned externalID.
func NewAccount(sequence int, externalID, displayName, email string) *Account {
	return &Account{
		record:      newRecord(sequence),
		externalID:  externalID,
		displayName: displayName,
		email:       email,
	}
}

func (a *Account) ExternalID() string { return a.externalID }
func (a *Account) DisplayName() string { return a.displayName }
func (a *Account) Email() string { return a.email }
func (a *Account) AccessToken() string { return a.accessToken }
func (a *Account) RefreshToken() string { return a.refreshToken }
func (a *Account) TokenExpiry() time.Time { return a.tokenExpiry }
func (a *Account) SessionToken() string { return a.sessionToken }

// SetProfile updates the profile fields reported by the provider.
func (a *Account) SetProfile(displayName, email string) {
	a.displayName = displayName
	a.email = email
}

// SetTokens replaces the OAuth token pair.
//
// An empty refresh token keeps the current one, since providers may omit it on refresh.
func (a *Account) SetTokens(accessToken, refreshToken string, expiry time.Time) {
	a.accessToken = accessToken
	if refreshToken != "" {
		a.refreshToken = refreshToken
	}
	a.tokenExpiry = expiry
}

// SetSessionToken sets the opaque token clients present instead of re-running OAuth.
func (a *Account) SetSessionToken(token string) {
	a.sessionToken = token
}

// Expired reports whether the access token is past its expiry at now.
// A zero expiry never expires.
func (a *Account) Expired(now time.Time) bool {
	return !a.tokenExpiry.IsZero() && !now.Before(a.tokenExpiry)
}

// Validate checks required fields before persistence.
func (a *Account) Validate() error {
	switch {
	case a.externalID == "":
		return fmt.Errorf("external id is required")
	case a.accessToken == "":
		return fmt.Errorf("access token is required")
	case a.sessionToken == "":
		return fmt.Errorf("session token is required")
	}
	return nil
}
