// Package cli provides the interactive koulio command-line client.
//
// It wires configuration, the HTTP API client and an interactive REPL. Typical
// flow: register or log in, then inspect or edit the profile, change the
// password, deactivate the account or log out.
//
// Passwords are read without echo when stdin is a terminal.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
