// Command formfill drives AI field filling from the terminal: it runs the
// relay daemon, attaches HTML documents as pages, and manages the login
// session and stored vendor keys.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/config"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/session"
	"github.com/GriffinCanCode/formfill/internal/shared/paths"
)

var (
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "formfill",
	Short: "Fill form fields with AI-generated text",
	Long: `formfill generates text for HTML form fields.

The relay daemon receives fill triggers, asks the page for the field's
context, calls the generation proxy with your session and sends the text
back to the page, which writes it into the field.

Typical flow:
  formfill login --email you@example.com
  formfill relay
  formfill page form.html --tab 1
  curl -X POST localhost:8787/trigger -d '{"tabId":1,"targetElementId":"bio"}'`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if configFile != "" {
			if err := loaded.Overlay(configFile); err != nil {
				return err
			}
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		if err := resolvePaths(loaded); err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.CLIConfig(level, cfg.Logging.Development))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML file layered over the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(keysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sessionStore() *session.Store {
	return session.NewStore(cfg.Relay.SessionFile)
}

// resolvePaths anchors relative file names under the formfill config directory.
func resolvePaths(c *config.Config) error {
	var err error
	if c.Relay.SessionFile, err = paths.Resolve(c.Relay.SessionFile); err != nil {
		return err
	}
	c.KeyStore.SQLitePath, err = paths.Resolve(c.KeyStore.SQLitePath)
	return err
}
