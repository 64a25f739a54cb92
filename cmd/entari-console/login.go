package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/arcletproject/entari-console/internal/session"
)

func newLoginCommand() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:           "login",
		Short:         "Authenticate against the backend and store the session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLogin,
	}
	loginCmd.Flags().String("name", "", "Operator name")
	loginCmd.Flags().String("password", "", "Password (prompted when omitted)")
	return loginCmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Invalidate the server session and clear stored credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLogout,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	name, _ := cmd.Flags().GetString("name")
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("--name is required")
	}
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := terminal.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := c.api.Login(ctx, name, password)
	if err != nil {
		return err
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "login rejected"
		}
		return fmt.Errorf("login failed: %s", msg)
	}

	c.store.SetAuthData(result.Token, session.UserProfile{
		Name:  result.User.Name,
		Email: result.User.Email,
	}, result.Instances)

	if out.JSON() {
		return out.Print(map[string]any{
			"user":      result.User,
			"instances": len(result.Instances),
		})
	}
	return out.Print(fmt.Sprintf("Logged in as %s (%d instances).", result.User.Name, len(result.Instances)))
}

func runLogout(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	// The local session is cleared even when the server call fails; the
	// credential is invalid to us either way.
	if _, err := c.api.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", err)
	}
	c.store.Logout()

	return out.Print("Logged out.")
}
