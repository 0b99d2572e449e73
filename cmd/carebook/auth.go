package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cuemby/carebook/pkg/auth"
	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/notify"
	"github.com/cuemby/carebook/pkg/session"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/cuemby/carebook/pkg/validate"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Sign in with email and password. The password is read from
--password, CAREBOOK_PASSWORD or, when attached to a terminal, a prompt.`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, err := readPassword(cmd, "password")
		if err != nil {
			return err
		}

		if err := a.auth.SignIn(ctx, email, password); err != nil {
			notify.Error(a.notifier, "Login failed: %s", gateway.Detail(err))
			return err
		}

		u := a.auth.User()
		notify.Success(a.notifier, "Signed in as %s (%s)", u.Email, u.Role.Label())
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if err := a.auth.Logout(); err != nil {
			return err
		}
		notify.Success(a.notifier, "Signed out")
		return nil
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a patient or provider account",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		form := &auth.RegistrationForm{}
		form.Email, _ = cmd.Flags().GetString("email")
		form.FirstName, _ = cmd.Flags().GetString("first-name")
		form.LastName, _ = cmd.Flags().GetString("last-name")
		form.Phone, _ = cmd.Flags().GetString("phone")
		role, _ := cmd.Flags().GetString("role")
		form.Role = types.Role(strings.ToUpper(role))

		password, err := readPassword(cmd, "password")
		if err != nil {
			return err
		}
		form.Password = password
		form.ConfirmPassword = password
		if cmd.Flags().Changed("confirm-password") {
			form.ConfirmPassword, _ = cmd.Flags().GetString("confirm-password")
		}

		user, err := a.auth.Register(ctx, form)
		if err != nil {
			var verrs validate.Errors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					notify.Error(a.notifier, "%s", fe.Error())
				}
				return fmt.Errorf("registration form is invalid")
			}
			notify.Error(a.notifier, "Registration failed: %s", gateway.Detail(err))
			return err
		}

		notify.Success(a.notifier, "Account created for %s", user.Email)
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		u, err := a.user(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "ID:     %d\n", u.ID)
		fmt.Fprintf(a.out, "Name:   %s\n", u.FullName())
		fmt.Fprintf(a.out, "Email:  %s\n", u.Email)
		fmt.Fprintf(a.out, "Role:   %s\n", u.Role.Label())
		if u.Phone != "" {
			fmt.Fprintf(a.out, "Phone:  %s\n", u.Phone)
		}
		if p := u.ProviderProfile; p != nil {
			fmt.Fprintf(a.out, "Business: %s\n", p.BusinessName)
			if p.Specialization != "" {
				fmt.Fprintf(a.out, "Specialization: %s\n", p.Specialization)
			}
			fmt.Fprintf(a.out, "Verified: %t\n", p.IsVerified)
		}
		return nil
	}),
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect the stored tokens without contacting the backend",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		access, hasAccess := a.store.Access()
		refresh, hasRefresh := a.store.Refresh()
		if !hasAccess && !hasRefresh {
			fmt.Fprintln(a.out, "No stored session")
			return nil
		}

		if at, ok := a.store.SavedAt(); ok {
			fmt.Fprintf(a.out, "Saved:   %s\n", at.Local().Format(time.RFC1123))
		}
		printToken(a.out, "Access", access, hasAccess)
		printToken(a.out, "Refresh", refresh, hasRefresh)
		return nil
	}),
}

func printToken(w io.Writer, label, token string, ok bool) {
	if !ok {
		fmt.Fprintf(w, "%s: none\n", label)
		return
	}
	claims, err := session.Inspect(token)
	if err != nil {
		fmt.Fprintf(w, "%s: unreadable (%v)\n", label, err)
		return
	}

	state := "valid"
	if claims.Expired(time.Now()) {
		state = "expired"
	}
	fmt.Fprintf(w, "%s: user %d, %s, expires %s\n",
		label, claims.UserID, state, claims.ExpiresAt.Local().Format(time.RFC1123))
}

// readPassword takes the password from the named flag, CAREBOOK_PASSWORD, or
// a terminal prompt, in that order
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v, nil
	}
	if v := os.Getenv("CAREBOOK_PASSWORD"); v != "" {
		return v, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("--%s is required", flag)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password")
	_ = loginCmd.MarkFlagRequired("email")

	registerCmd.Flags().String("email", "", "Account email")
	registerCmd.Flags().String("password", "", "Password (at least 6 characters)")
	registerCmd.Flags().String("confirm-password", "", "Password confirmation (defaults to --password)")
	registerCmd.Flags().String("first-name", "", "First name")
	registerCmd.Flags().String("last-name", "", "Last name")
	registerCmd.Flags().String("phone", "", "Phone number")
	registerCmd.Flags().String("role", "client", "Account type: client or provider")
	_ = registerCmd.MarkFlagRequired("email")
}
