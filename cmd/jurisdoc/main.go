// Package main provides the jurisdoc binary: the decision search API and the
// archive ingestion job.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/jurisdoc/internal/config"
	"github.com/kailas-cloud/jurisdoc/internal/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	env        string
	configPath string
	envFile    string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "jurisdoc",
		Short:         "Court decision archive ingestion and search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(flags.envFile); err != nil {
				return err
			}
			if flags.env == "" {
				flags.env = config.GetEnv()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.env, "env", "", "Environment name: selects config/<env>.yaml (default $ENV or local)")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Explicit config file path (overrides --env lookup)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before config expansion")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(&flags),
		ingestCmd(&flags),
		indexCmd(&flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "jurisdoc version %s\n", version.String())
			},
		},
	)
	return cmd
}
