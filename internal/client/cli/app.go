package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/koulio-auth/internal/client/client"
	"github.com/dmitrijs2005/koulio-auth/internal/client/config"
)

// API is the part of client.HTTPClient the commands use.
type API interface {
	IsLoggedIn() bool
	Health(ctx context.Context) (*client.Health, error)
	Register(ctx context.Context, email, password, fullName string) (*client.User, error)
	Login(ctx context.Context, email, password string) (*client.User, error)
	Profile(ctx context.Context) (*client.User, error)
	UpdateProfile(ctx context.Context, fullName, email *string) error
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, password string) error
	Logout(ctx context.Context) error
}

type App struct {
	config    *config.Config
	api       API
	reader    *bufio.Reader
	out       io.Writer
	userEmail string
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) *App {
	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, c.Retries)
	return newApp(c, api, in, out)
}

func newApp(c *config.Config, api API, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: api, reader: bufio.NewReader(in), out: out}
}

// Run blocks in the REPL until the user exits, input ends or ctx is done.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "Welcome to koulio CLI, server %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.api.IsLoggedIn()
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() || a.userEmail == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userEmail)
}
