// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idp-client/internal/secrets"
	"github.com/pdiddy/idp-client/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Login exchanges a username and password for a bearer token and stores it,
together with the user record, in the session store. A failed login clears
any stored session.

The password may come from --password, IDP_PASSWORD, or .secrets/idp-password.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Long: `Register creates an account with an email and password, then signs in
with the email as the username. Passwords must be at least 6 characters and
--confirm must match --password.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := session.FromContext(cmd.Context())
		user := mgr.User()
		if err := mgr.Logout(); err != nil {
			return err
		}
		if user != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", user.Username)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
		}
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := session.FromContext(cmd.Context())
		local := mgr.User()
		if local == nil {
			return errors.New("not logged in")
		}

		remote, err := mgr.Whoami(cmd.Context())
		if err != nil {
			if errors.Is(err, session.ErrNotAuthenticated) {
				return err
			}
			return checkAuth(cmd.Context(), err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-9s %s\n", "Username:", remote.Username)
		if remote.Email != "" {
			fmt.Fprintf(out, "%-9s %s\n", "Email:", remote.Email)
		}
		fmt.Fprintf(out, "%-9s %d\n", "User ID:", remote.ID)
		fmt.Fprintf(out, "%-9s %s\n", "Server:", env.client.BaseURL())
		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "", "username or email (default from .secrets/idp-username)")
	loginCmd.Flags().String("password", "", "password (default from IDP_PASSWORD or .secrets/idp-password)")

	registerCmd.Flags().String("email", "", "account email, also used as the username")
	registerCmd.Flags().String("password", "", "password, at least 6 characters")
	registerCmd.Flags().String("confirm", "", "repeat the password")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	username = env.secrets.Default(secrets.Username, username)
	password = env.secrets.Default(secrets.Password, password)

	user, err := session.FromContext(cmd.Context()).Login(cmd.Context(), username, password)
	if err != nil {
		return loginError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Username)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	confirm, _ := cmd.Flags().GetString("confirm")

	user, err := session.FromContext(cmd.Context()).Register(cmd.Context(), email, password, confirm)
	if err != nil {
		return loginError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", user.Username)
	return nil
}

// loginError keeps validation messages as-is and prefixes backend failures.
func loginError(err error) error {
	switch {
	case errors.Is(err, session.ErrMissingCredentials),
		errors.Is(err, session.ErrPasswordMismatch),
		errors.Is(err, session.ErrPasswordTooShort):
		return err
	}
	return fmt.Errorf("authentication failed: %w", err)
}
