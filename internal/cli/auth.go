package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/congo-pay/fraudguard/internal/session"
)

func newLoginCommand(app func() *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordOrPrompt(cmd, password)
			if err != nil {
				return err
			}
			s := app().Session
			if err := s.Login(cmd.Context(), email, pw); err != nil {
				return err
			}
			printIdentity(cmd, "Signed in as", s.View())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password; read from stdin when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCommand(app func() *App) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordOrPrompt(cmd, password)
			if err != nil {
				return err
			}
			s := app().Session
			if err := s.Register(cmd.Context(), name, email, pw); err != nil {
				return err
			}
			printIdentity(cmd, "Account created. Signed in as", s.View())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password; read from stdin when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app().Session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := app().Session.View()
			if !view.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			printIdentity(cmd, "Signed in as", view)
			return nil
		},
	}
}

func printIdentity(cmd *cobra.Command, prefix string, view session.View) {
	out := cmd.OutOrStdout()
	if view.Identity == nil {
		fmt.Fprintln(out, prefix)
		return
	}
	role := view.Identity.Role
	if role == "" {
		role = "unknown role"
	}
	fmt.Fprintf(out, "%s %s (%s)\n", prefix, view.Identity.Subject, role)
	if view.Admin {
		fmt.Fprintln(out, "Administrator access enabled.")
	}
}

func passwordOrPrompt(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" && err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}
