package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/f3nation/f3map/modules/org/infrastructure/persistence"
	"github.com/f3nation/f3map/modules/org/services"
)

type seedOptions struct {
	file   string
	dryRun bool
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load an org tree, users and grants from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Seed YAML file (required)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate the file without touching the database")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(cmd *cobra.Command, opts seedOptions) error {
	fh, err := os.Open(opts.file)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer fh.Close()

	f, err := parseSeed(fh)
	if err != nil {
		return withCode(exitValidation, err)
	}
	if opts.dryRun {
		return writeJSONLine(cmd.OutOrStdout(), map[string]any{"valid": true, "grants": len(f.Grants), "users": len(f.Users)})
	}

	e, err := connectApp(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	w := seedWriter{
		orgs:  persistence.NewOrgRepository(),
		users: persistence.NewUserRepository(),
		roles: persistence.NewRoleRepository(),
	}
	var sum seedSummary
	err = persistence.NewPoolTxRunner(e.pool).InTx(cmd.Context(), func(ctx context.Context) error {
		var err error
		sum, err = w.apply(ctx, f)
		return err
	})
	if err != nil {
		return withCode(exitDB, err)
	}
	e.app.Service(services.OrgTree{}).(*services.OrgTree).Invalidate(cmd.Context(), "seed")
	return writeJSONLine(cmd.OutOrStdout(), sum)
}
