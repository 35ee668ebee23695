package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/GriffinCanCode/formfill/internal/providers/identity"
)

var (
	loginEmail    string
	loginPassword string
)

// loginCmd signs in and stores the session for the relay
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Signs in to the identity provider with email and password and stores
the resulting session where the relay reads it.

The password is read from --password, then FORMFILL_PASSWORD, then stdin.
An interactive terminal is prompted without echo; piped input supplies its
first line.`,
	RunE: runLogin,
}

// logoutCmd removes the stored session
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessionStore().Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	_ = loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		return errors.New("SUPABASE_URL and SUPABASE_ANON_KEY must be set to log in")
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	provider := identity.NewSupabase(cfg.Supabase.URL, cfg.Supabase.AnonKey, 30*time.Second)
	sess, err := provider.PasswordLogin(ctx, loginEmail, password)
	if err != nil {
		return err
	}

	store := sessionStore()
	if err := store.Save(sess); err != nil {
		return err
	}
	logger.Debug("Session stored", zap.String("path", store.Path()), zap.String("user_id", sess.User.ID))
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", sess.User.Email)
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	if loginPassword != "" {
		return loginPassword, nil
	}
	if env := os.Getenv("FORMFILL_PASSWORD"); env != "" {
		return env, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if len(raw) == 0 {
			return "", errors.New("empty password")
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("empty password")
	}
	return line, nil
}
