// Package client is the client side of the marketplace auth API.
//
// # Overview
//
// The package provides:
//  1. The gateway contract the session core depends on (see Client):
//     Register, Login, Verify, ResendVerification, FetchProfile, Logout.
//  2. A REST implementation (see HTTPClient) speaking JSON to the
//     marketplace backend.
//  3. The request authorizer (see Authorizer), an http.RoundTripper that
//     attaches the bearer token only while it is usable and reports
//     authentication rejections back to the session owner.
//
// # Error Handling
//
// Every failed call returns an *APIError whose Kind is one of the sentinel
// errors below, so callers match with errors.Is:
//
//   - ErrUnauthorized: the server explicitly rejected the credential (401/403).
//   - ErrUnavailable:  timeout, network failure, 5xx or a malformed body.
//   - ErrRejected:     any other 4xx; the server's message explains why.
//
// APIError.Message carries the server's message verbatim.
package client
