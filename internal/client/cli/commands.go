package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/koulio-auth/internal/client/client"
	"github.com/dmitrijs2005/koulio-auth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

var errPasswordMismatch = errors.New("passwords do not match")

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

// password reads a password and returns it as a string; the raw bytes are
// wiped once copied.
func (a *App) password(text string) (string, error) {
	pw, err := getPassword(a.reader, text, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// Register prompts for email, full name and password and creates the account.
// The new session is kept, as the server returns tokens on registration.
func (a *App) Register(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	fullName, err := a.prompt("Enter full name")
	if err != nil {
		return err
	}
	password, err := a.password("Enter password")
	if err != nil {
		return err
	}

	u, err := a.api.Register(ctx, email, password, fullName)
	if err != nil {
		return err
	}

	a.userEmail = u.Email
	fmt.Fprintf(a.out, "Registered and logged in as %s\n", u.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := a.password("Enter password")
	if err != nil {
		return err
	}

	u, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.userEmail = u.Email
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	u, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	a.userEmail = u.Email
	printUser(a, u)
	return nil
}

// UpdateProfile asks for a new name and email; empty answers keep the
// current value.
func (a *App) UpdateProfile(ctx context.Context) error {
	fullName, err := a.prompt("New full name (empty to keep)")
	if err != nil {
		return err
	}
	email, err := a.prompt("New email (empty to keep)")
	if err != nil {
		return err
	}

	var namePtr, emailPtr *string
	if fullName != "" {
		namePtr = &fullName
	}
	if email != "" {
		emailPtr = &email
	}
	if namePtr == nil && emailPtr == nil {
		fmt.Fprintln(a.out, "Nothing to update")
		return nil
	}

	if err := a.api.UpdateProfile(ctx, namePtr, emailPtr); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	current, err := a.password("Current password")
	if err != nil {
		return err
	}
	next, err := a.password("New password")
	if err != nil {
		return err
	}
	confirm, err := a.password("Repeat new password")
	if err != nil {
		return err
	}
	if next != confirm {
		return errPasswordMismatch
	}

	if err := a.api.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// DeleteAccount deactivates the account after a password confirmation.
func (a *App) DeleteAccount(ctx context.Context) error {
	password, err := a.password("Confirm with your password")
	if err != nil {
		return err
	}

	if err := a.api.DeleteAccount(ctx, password); err != nil {
		return err
	}
	a.userEmail = ""
	fmt.Fprintln(a.out, "Account deleted")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.userEmail = ""
	if err != nil && !errors.Is(err, client.ErrUnavailable) {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Health(ctx context.Context) error {
	h, err := a.api.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Server is %s (version %s, %s)\n", h.Status, h.Version, h.Timestamp)
	return nil
}

func printUser(a *App, u *client.User) {
	lastLogin := "never"
	if u.LastLogin != nil {
		lastLogin = u.LastLogin.Local().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(a.out, "ID:         %s\n", u.ID)
	fmt.Fprintf(a.out, "Email:      %s\n", u.Email)
	fmt.Fprintf(a.out, "Full name:  %s\n", u.FullName)
	fmt.Fprintf(a.out, "Created:    %s\n", u.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(a.out, "Last login: %s\n", lastLogin)
}
