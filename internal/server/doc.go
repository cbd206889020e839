// Package server provides HTTP routing, middleware, and handlers for the songstream API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// method patterns on an [http.ServeMux] and wraps the whole mux with [Middleware], first added
// outermost: [Recover], [Logging], then [CORS].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and
// adds routes, allowing a handler to encapsulate a group of route definitions. [AuthHandler] owns
// the /auth routes this way.
//
// # Routes
//
//	GET    /                       liveness
//	GET    /health                 credential and cache status
//	GET    /stream_track?track=    resolve a stream URL
//	DELETE /stream_track?track=    drop a cached resolution
//	POST   /upload_youtube_cookie  replace the credential artifact (multipart field "file")
//	GET    /auth/login             redirect to the provider
//	GET    /auth/callback          complete a login
//	GET    /auth/session           report the caller's session
//	GET    /search?q=&limit=       catalog search
//	GET    /recommendations        catalog browse
//
// # Errors
//
// Failures answer with {"error": {"kind": ..., "detail": ...}}, where kind comes from
// [shared.KindOf] and selects the status code ([StatusOf]).
//
// # Sessions
//
// The session token travels in an HMAC-signed "session" cookie or an "Authorization: Bearer"
// header. Catalog routes act as the caller when the token is valid and fall back to app-level
// credentials otherwise.
package server
