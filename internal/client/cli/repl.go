package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/koulio-auth/internal/client/client"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Profile(ctx context.Context) error
	UpdateProfile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Logout(ctx context.Context) error
	Health(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the koulio CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           show available commands
//	  - register       create an account
//	  - login          authenticate
//	  - health         check the server
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - profile        show the profile
//	  - update         change full name or email
//	  - passwd         change the password
//	  - delete         deactivate the account
//	  - logout         forget the session
//	  - health, help, exit | quit
//
// Errors returned by command handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "koulio %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: profile, update, passwd, delete, logout, health, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, health, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "health":
			cmdErr = a.Health(ctx)

		case "profile", "update", "passwd", "delete", "logout":
			if !a.isLoggedIn() {
				fmt.Fprintln(w, "Please log in first")
				continue
			}
			cmdErr = runSession(ctx, a, cmd)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", describe(cmdErr))
		}
	}
}

func runSession(ctx context.Context, a execIface, cmd string) error {
	switch cmd {
	case "profile":
		return a.Profile(ctx)
	case "update":
		return a.UpdateProfile(ctx)
	case "passwd":
		return a.ChangePassword(ctx)
	case "delete":
		return a.DeleteAccount(ctx)
	default:
		return a.Logout(ctx)
	}
}

// describe prefers the server's own message over the wrapped error text.
func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, client.ErrNotLoggedIn) {
		return "session expired, please log in again"
	}
	return err.Error()
}
