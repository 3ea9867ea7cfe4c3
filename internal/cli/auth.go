package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func readCredentials(cmd *cobra.Command, withName bool) (name, email, password string, err error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if withName {
		fmt.Fprint(out, "name: ")
		name, err = reader.ReadString('\n')
		if err != nil {
			return "", "", "", err
		}
		name = strings.TrimSpace(name)
	}

	fmt.Fprint(out, "email: ")
	email, err = reader.ReadString('\n')
	if err != nil {
		return "", "", "", err
	}
	email = strings.TrimSpace(email)

	fmt.Fprint(out, "password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, rerr := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if rerr != nil {
			return "", "", "", rerr
		}
		password = string(raw)
	} else {
		password, err = reader.ReadString('\n')
		if err != nil {
			return "", "", "", err
		}
		password = strings.TrimSpace(password)
	}
	return name, email, password, nil
}

func newLoginCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelInfo)
			if err != nil {
				return err
			}
			_, email, password, err := readCredentials(cmd, false)
			if err != nil {
				return err
			}
			user, err := a.client.Auth().Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.persistCookies(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.Email)
			return nil
		},
	}
}

func newSignupCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelInfo)
			if err != nil {
				return err
			}
			name, email, password, err := readCredentials(cmd, true)
			if err != nil {
				return err
			}
			user, err := a.client.Auth().Signup(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("signup: %w", err)
			}
			if err := a.persistCookies(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "welcome, %s\n", user.Name)
			return nil
		},
	}
}

func newLogoutCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear local session artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelInfo)
			if err != nil {
				return err
			}
			if err := a.client.Auth().Logout(cmd.Context()); err != nil {
				a.log.Warn("server-side logout failed", "error", err)
			}
			// Local artifacts go regardless of what the server said.
			if err := a.store.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
