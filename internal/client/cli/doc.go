// Package cli provides the interactive vutto command-line client.
//
// It wires configuration, the credential store, the REST gateway, the
// session controller and the registration flow, then runs a REPL on top of
// them. On start the stored session is validated once; while signed in the
// session is renewed in the background.
//
// Key features:
//   - register / verify <code> / resend / cancel (two-step sign-up)
//   - login / logout
//   - whoami / status
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
