package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrCredentialMissing  = fmt.Errorf("credential artifact not uploaded")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrPersistence    = fmt.Errorf("persistence failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Kind is the stable, machine-checkable category of an error surfaced to clients.
type Kind string

const (
	KindInputInvalid        Kind = "input_invalid"
	KindUnauthenticated     Kind = "unauthenticated"
	KindExchangeFailed      Kind = "exchange_failed"
	KindExternalUnavailable Kind = "external_unavailable"
	KindNotFound            Kind = "not_found"
	KindCredentialMissing   Kind = "credential_missing"
	KindPersistenceFailure  Kind = "persistence_failure"
	KindTimeout             Kind = "timeout"
	KindInternal            Kind = "internal"
)

var kinds = []struct {
	kind    Kind
	targets []error
}{
	{KindInputInvalid, []error{ErrInvalidInput, ErrMissingArgument, ErrInvalidArgument}},
	{KindUnauthenticated, []error{ErrNotAuthenticated, ErrTokenExpired, ErrNoRefreshToken}},
	{KindCredentialMissing, []error{ErrCredentialMissing}},
	{KindTimeout, []error{ErrTimeout, context.DeadlineExceeded}},
	{KindExchangeFailed, []error{ErrAuthFailed, ErrRefreshFailed}},
	{KindNotFound, []error{ErrTrackNotFound, ErrRecordNotFound}},
	{KindPersistenceFailure, []error{ErrPersistence}},
	{KindExternalUnavailable, []error{ErrServiceUnavailable, ErrAPIRequest}},
}

// KindOf classifies err by the first sentinel it wraps.
//
// Order matters: a timeout wrapped inside an exchange failure reports as a timeout.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		for _, target := range k.targets {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}
