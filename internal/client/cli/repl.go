package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Verify(ctx context.Context, code string) error
	Resend(ctx context.Context) error
	Cancel(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the vutto CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, on context cancellation, or when the user
// types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help            show available commands
//	  - register        create an account
//	  - verify <code>   confirm registration with the e-mailed code
//	  - resend          request a new code once the countdown is over
//	  - cancel          abandon a pending registration
//	  - login           authenticate
//	  - status          show session and registration state
//	  - exit | quit     leave the program
//
//	Logged in:
//	  - help, whoami, status, logout, exit | quit
//
// Errors returned by command handlers are not printed here; handlers report
// their own outcome. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("vutto %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, status, logout, exit")
			} else {
				printlnFn("Available commands: register, verify <code>, resend, cancel, login, status, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "verify":
			if len(args) == 0 {
				printlnFn("Usage: verify <code>")
				continue
			}
			_ = a.Verify(ctx, args[0])

		case "resend":
			_ = a.Resend(ctx)

		case "cancel":
			_ = a.Cancel(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
