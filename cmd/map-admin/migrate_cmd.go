package main

import (
	"github.com/spf13/cobra"

	"github.com/f3nation/f3map/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			applied, err := migrations.Up(cmd.Context(), e.pool)
			if err != nil {
				return withCode(exitDB, err)
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"applied": applied})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			version, err := migrations.Down(cmd.Context(), e.pool)
			if err != nil {
				return withCode(exitDB, err)
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"rolled_back": version})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			statuses, err := migrations.List(cmd.Context(), e.pool)
			if err != nil {
				return withCode(exitDB, err)
			}
			for _, s := range statuses {
				if err := writeJSONLine(cmd.OutOrStdout(), s); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
