// Package services talks to the Spotify accounts service and Web API.
//
// # Identity
//
// [SpotifyService] runs the OAuth2 authorization-code flow with a fixed scope set ([SpotifyScopes]),
// refreshes tokens, and fetches the authenticated user's [Profile].
//
// # Catalog
//
// [SpotifyService.Catalog] returns a [CatalogClient]. With a user token the client acts as that
// user and reports refreshed tokens through a callback. Without one it uses an app-level
// client-credentials token.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAuthFailed] : authorization code rejected
//   - [shared.ErrRefreshFailed] : refresh token rejected or token endpoint down
//   - [shared.ErrTokenExpired] : access token rejected by the API
//   - [shared.ErrAPIRequest] : API answered with an error status
//   - [shared.ErrServiceUnavailable] : API unreachable
//   - [shared.ErrTimeout] : deadline reached while talking to either host
package services
