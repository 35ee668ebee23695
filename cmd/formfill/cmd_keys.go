package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/config"
	"github.com/GriffinCanCode/formfill/internal/providers/keystore"
)

var keysUser string

// keysCmd manages stored vendor API keys
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored vendor API keys",
	Long: `Manage the per-user completion vendor keys the proxy reads.

Available subcommands:
  set    - Store a key for the logged-in user (or --user)
  delete - Remove a key from the local SQLite store`,
}

var keysSetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store a vendor API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysSet,
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a vendor API key from the SQLite store",
	RunE:  runKeysDelete,
}

func init() {
	keysCmd.PersistentFlags().StringVar(&keysUser, "user", "", "User id (default: the logged-in user)")
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysDeleteCmd)
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	apiKey := strings.TrimSpace(args[0])
	if apiKey == "" {
		return errors.New("api key must not be empty")
	}
	userID, err := resolveUser(cmd)
	if err != nil {
		return err
	}

	sealer := keystore.NewSealer(cfg.KeyStore.Secret)
	var writer keystore.Writer
	switch cfg.KeyStore.Backend {
	case config.KeyStoreSQLite:
		store, err := keystore.OpenSQLite(cfg.KeyStore.SQLitePath, sealer)
		if err != nil {
			return err
		}
		defer store.Close()
		writer = store
	default:
		if cfg.Supabase.URL == "" || cfg.Supabase.ServiceRoleKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY must be set for the postgrest key store")
		}
		writer = keystore.NewPostgREST(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, sealer, 30*time.Second)
	}

	if err := writer.PutAPIKey(cmd.Context(), userID, apiKey); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored key for user %s.\n", userID)
	return nil
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	if cfg.KeyStore.Backend != config.KeyStoreSQLite {
		return fmt.Errorf("delete is only supported by the %s backend", config.KeyStoreSQLite)
	}
	userID, err := resolveUser(cmd)
	if err != nil {
		return err
	}

	store, err := keystore.OpenSQLite(cfg.KeyStore.SQLitePath, keystore.NewSealer(cfg.KeyStore.Secret))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteAPIKey(cmd.Context(), userID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted key for user %s.\n", userID)
	return nil
}

// resolveUser returns --user or the id of the stored session's user.
func resolveUser(cmd *cobra.Command) (string, error) {
	if keysUser != "" {
		return keysUser, nil
	}
	sess, err := sessionStore().Current(cmd.Context())
	if err != nil {
		return "", err
	}
	if sess == nil || sess.User.ID == "" {
		return "", errors.New("not logged in; run 'formfill login' or pass --user")
	}
	return sess.User.ID, nil
}
