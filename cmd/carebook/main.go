package main

import (
	"fmt"
	"os"

	"github.com/cuemby/carebook/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "carebook",
	Short: "Carebook - book and manage healthcare appointments",
	Long: `Carebook is the command-line client for the Carebook booking platform.

Patients browse providers, book appointment slots and follow their
bookings. Providers manage the services they offer and confirm, reject
or complete the appointments booked against them.

The session is kept in ~/.carebook between commands.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if dump, _ := cmd.Flags().GetBool("metrics"); dump {
			return metrics.Dump(cmd.ErrOrStderr())
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Carebook version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Carebook version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ~/.carebook/config.yaml)")
	flags.String("api-url", "", "Backend API base URL")
	flags.String("data-dir", "", "Directory holding the session database")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.Bool("metrics", false, "Print client metrics to stderr when the command finishes")
	flags.Bool("ephemeral", false, "Keep the session in memory only")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, whoamiCmd, sessionCmd)
	rootCmd.AddCommand(providersCmd, servicesCmd, applyCmd)
	rootCmd.AddCommand(appointmentsCmd, bookCmd, slotsCmd)
	rootCmd.AddCommand(chatCmd, pingCmd)
}
