package main

import (
	"github.com/spf13/cobra"

	"github.com/f3nation/f3map/modules/org/domain/role"
)

type grantOptions struct {
	userID int64
	orgID  int64
	level  string
}

func newGrantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grants",
		Short: "Manage editor and admin grants",
	}
	cmd.AddCommand(newGrantCmd(), newRevokeCmd(), newListGrantsCmd())
	return cmd
}

func newGrantCmd() *cobra.Command {
	var opts grantOptions
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Create or replace the grant a user holds on an org",
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := role.ParseLevel(opts.level)
			if err != nil {
				return withCode(exitUsage, err)
			}
			e, err := connectApp(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			grant := role.Grant{UserID: opts.userID, OrgID: opts.orgID, Level: lvl}
			if err := e.Roles().Grant(e.Context(cmd.Context()), grant); err != nil {
				return serviceExit(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), grant)
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "User id (required)")
	cmd.Flags().Int64Var(&opts.orgID, "org", 0, "Org id (required)")
	cmd.Flags().StringVar(&opts.level, "level", "editor", "Level: editor or admin")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newRevokeCmd() *cobra.Command {
	var opts grantOptions
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Remove the grant a user holds on an org",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connectApp(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Roles().Revoke(e.Context(cmd.Context()), opts.userID, opts.orgID); err != nil {
				return serviceExit(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"userId": opts.userID, "orgId": opts.orgID, "revoked": true})
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "User id (required)")
	cmd.Flags().Int64Var(&opts.orgID, "org", 0, "Org id (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newListGrantsCmd() *cobra.Command {
	var opts grantOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the grants a user holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connectApp(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			grants, err := e.Roles().GrantsFor(e.Context(cmd.Context()), opts.userID)
			if err != nil {
				return serviceExit(err)
			}
			for _, g := range grants {
				if err := writeJSONLine(cmd.OutOrStdout(), g); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "User id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
