package session

// Result is the uniform outcome of a session or registration operation.
// Error is the user-facing message of a failure, Err its classified cause.
// Warning is set when the operation succeeded in memory but the credential
// store could not be updated.
type Result struct {
	Success bool
	Error   string
	Err     error
	Warning string

	RequiresVerification bool
	Message              string
	Email                string
}

const (
	WarnNotSaved   = "Signed in, but credentials could not be saved: the session will not survive a restart"
	WarnNotCleared = "Stored credentials could not be removed"
	WarnNotRead    = "Stored credentials could not be read"
)

func ok(warning string) Result {
	return Result{Success: true, Warning: warning}
}

func fail(err error, msg string) Result {
	return Result{Error: msg, Err: err}
}

// joinWarnings keeps the first non-empty warning.
func joinWarnings(ws ...string) string {
	for _, w := range ws {
		if w != "" {
			return w
		}
	}
	return ""
}
