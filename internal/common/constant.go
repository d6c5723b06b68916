// Package common contains constants and sentinel errors shared by the
// client and the auth stub server.
package common

// HTTP header names used on every call between the client and the API.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-Id"
	BearerPrefix            = "Bearer "
)

// REST paths of the marketplace auth API. Verification and resend both go
// through RegisterPath; the server tells them apart by the presence of a code.
const (
	RegisterPath = "/auth/register"
	LoginPath    = "/auth/login"
	LogoutPath   = "/auth/logout"
	ProfilePath  = "/profile"
)

// OTPDigits is the length of the e-mailed verification code.
const OTPDigits = 6
