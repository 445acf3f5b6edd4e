package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"kiwoom-dashboard/src/config"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

var (
	configPath string
	envFile    string
)

// -----------------------------------------------------------------------------

func main() {
	root := &cobra.Command{
		Use:           "kiwoom-dashboard",
		Short:         "Browser dashboard backend for the Kiwoom REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/default.yaml", "path to config file")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with broker credentials (default: ./.env if present)")

	root.AddCommand(newServeCommand(), newTokenCommand(), newConfigCommand())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP facade, push relay and refresh task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setupApp(configPath, envFile)
			if err != nil {
				return err
			}
			err = runServers(cmd.Context(), app)
			app.Close()
			if err != nil {
				app.Logger.Critical("server stopped with error: %v", err)
			}
			return nil
		},
	}
}

// -----------------------------------------------------------------------------

func newTokenCommand() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Manage the broker access token",
	}

	token.AddCommand(&cobra.Command{
		Use:   "issue",
		Short: "Issue a token and store it in the token cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setupApp(configPath, envFile)
			if err != nil {
				return err
			}
			defer app.Close()

			result := app.Gate.Login(cmd.Context())
			if !result.Success {
				return fmt.Errorf("%s", result.Message)
			}
			st := app.Gate.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (expires in %ds)\n", result.Message, st.ExpiresInSeconds)
			return nil
		},
	})

	token.AddCommand(&cobra.Command{
		Use:   "revoke",
		Short: "Revoke the cached token and delete the cache file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setupApp(configPath, envFile)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Gate.Restore() {
				fmt.Fprintln(cmd.OutOrStdout(), "no cached token to revoke")
			}
			result := app.Gate.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	})

	return token
}

// -----------------------------------------------------------------------------

func newConfigCommand() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}
			if dir := filepath.Dir(configPath); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return err
				}
			}
			if err := config.Default().Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s; put broker credentials in .env\n", configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfg.AddCommand(initCmd)

	return cfg
}
