// Package server provides HTTP routing, middleware, and the OAuth callback used by `tunesync auth spotify`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), trades the authorization code for a token through
// an [Exchanger], and sends the result through a channel. It only processes one callback.
//
// [AwaitToken] runs a temporary listener (localhost:3000 by default) until the callback arrives, the timeout
// fires, or the context is cancelled, and then shuts the listener down.
package server
