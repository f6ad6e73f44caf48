package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coursegate/coursegate/internal/config"
	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/store"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage platform roles",
		Long:  "Grant and list user roles. Every change is written to the role change audit trail.",
	}

	cmd.AddCommand(newRoleGrantCmd())
	cmd.AddCommand(newRoleListCmd())

	return cmd
}

func newRoleGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant <user-id> <role>",
		Short: "Assign a role to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, role := args[0], model.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q (want admin, student, or tutor)", args[1])
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.UpsertRole(cmd.Context(), userID, role, "cli"); err != nil {
				return fmt.Errorf("grant role: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", role, userID)
			return nil
		},
	}
	return cmd
}

func newRoleListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all role assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			assignments, err := st.ListRoleAssignments(cmd.Context())
			if err != nil {
				return fmt.Errorf("list roles: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(assignments)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USER ID\tROLE\tUPDATED")
			for _, a := range assignments {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.UserID, a.Role, a.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}
