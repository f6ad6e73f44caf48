// Package cli defines the coursegate command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coursegate",
		Short: "Authorization boundary for the course platform",
		Long: `Coursegate sits between browser clients and the course platform's
database, enforcing identity verification, role checks, and enrollment
business rules at a single trust boundary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./coursegate.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newRoleCmd())

	return cmd
}

// configPath resolves the config file location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "coursegate.yaml"
}
