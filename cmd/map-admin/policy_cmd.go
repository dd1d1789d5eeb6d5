package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/pkg/authz"
	"github.com/f3nation/f3map/pkg/configuration"
)

type explainOptions struct {
	kind  string
	level string
}

type explainResult struct {
	Kind    string   `json:"requestType"`
	Level   string   `json:"roleLevel"`
	Allowed bool     `json:"allowed"`
	Matched []string `json:"matched,omitempty"`
}

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the request type policy",
	}

	var opts explainOptions
	explain := &cobra.Command{
		Use:   "explain",
		Short: "Show which levels may commit a request type without review",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := configuration.Load(".env", ".env.local")
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer conf.Unload()

			svc, err := authz.NewService(authz.Config{
				ModelPath:  conf.Authz.ModelPath,
				PolicyPath: conf.Authz.PolicyPath,
				Logger:     conf.Logger(),
			})
			if err != nil {
				return withCode(exitUsage, err)
			}

			kinds := updaterequest.CurrentKinds
			if opts.kind != "" {
				k := updaterequest.Kind(opts.kind)
				if !k.Valid() {
					return withCode(exitUsage, fmt.Errorf("invalid --kind %q", opts.kind))
				}
				kinds = []updaterequest.Kind{k}
			}
			levels := role.Levels
			if opts.level != "" {
				lvl, err := role.ParseLevel(opts.level)
				if err != nil || !lvl.Grantable() {
					return withCode(exitUsage, fmt.Errorf("invalid --level %q", opts.level))
				}
				levels = []role.Level{lvl}
			}

			for _, k := range kinds {
				for _, lvl := range levels {
					res, err := svc.Inspect(cmd.Context(), authz.NewRequest(authz.SubjectForRole(lvl.String()), string(k), authz.ActionCommit))
					if err != nil {
						return withCode(exitUsage, err)
					}
					if err := writeJSONLine(cmd.OutOrStdout(), explainResult{
						Kind:    string(k),
						Level:   lvl.String(),
						Allowed: res.Allowed,
						Matched: res.Trace,
					}); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	explain.Flags().StringVar(&opts.kind, "kind", "", "Request type (default: every type)")
	explain.Flags().StringVar(&opts.level, "level", "", "Role level: editor or admin (default: both)")
	cmd.AddCommand(explain)
	return cmd
}
