package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/koulio-auth/internal/client/client"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	err      error

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}
func (f *fakeExec) Register(ctx context.Context) error { return f.record("register") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Profile(ctx context.Context) error        { return f.record("profile") }
func (f *fakeExec) UpdateProfile(ctx context.Context) error  { return f.record("update") }
func (f *fakeExec) ChangePassword(ctx context.Context) error { return f.record("passwd") }
func (f *fakeExec) DeleteAccount(ctx context.Context) error  { return f.record("delete") }
func (f *fakeExec) Health(ctx context.Context) error         { return f.record("health") }
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}

func runScript(ctx context.Context, exec *fakeExec, lines ...string) string {
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(ctx, exec, func() string { return "status" }, in, &out)
	return out.String()
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	exec := &fakeExec{}

	out := runScript(context.Background(), exec,
		"help",
		"profile",
		"login",
		"help",
		"",
		"profile",
		"update",
		"passwd",
		"health",
		"delete",
		"logout",
		"foobar",
		"exit",
		"register",
	)

	assert.Equal(t, []string{"login", "profile", "update", "passwd", "health", "delete", "logout"}, exec.calls)
	assert.Contains(t, out, "Available commands: register, login, health, exit")
	assert.Contains(t, out, "Available commands: profile, update, passwd, delete, logout, health, exit")
	assert.Contains(t, out, "Please log in first")
	assert.Contains(t, out, "Unknown command: foobar")
	assert.Contains(t, out, "koulio status> ")
	assert.True(t, strings.HasSuffix(out, "Bye!\n"))
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	exec := &fakeExec{}
	runScript(context.Background(), exec, "register")
	assert.Equal(t, []string{"register"}, exec.calls)
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	out := runScript(ctx, exec, "register", "login")
	assert.Empty(t, exec.calls)
	assert.Empty(t, out)
}

func TestRunREPL_PrintsErrors(t *testing.T) {
	exec := &fakeExec{loggedIn: true, err: &client.APIError{StatusCode: 401, Message: "Current password is incorrect"}}
	out := runScript(context.Background(), exec, "passwd", "quit")
	assert.Contains(t, out, "Error: Current password is incorrect\n")

	exec = &fakeExec{err: errors.New("server unavailable: dial tcp")}
	out = runScript(context.Background(), exec, "health", "quit")
	assert.Contains(t, out, "Error: server unavailable: dial tcp\n")

	exec = &fakeExec{loggedIn: true, err: client.ErrNotLoggedIn}
	out = runScript(context.Background(), exec, "profile", "quit")
	assert.Contains(t, out, "Error: session expired, please log in again\n")
}
