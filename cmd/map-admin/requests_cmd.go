package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/modules/org/services"
)

type listRequestsOptions struct {
	asUser   int64
	onlyMine bool
	status   string
	kind     string
	limit    int
}

func newRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect and resolve update requests",
	}
	cmd.AddCommand(newListRequestsCmd())
	cmd.AddCommand(newResolveCmd("approve", "Approve a pending request and apply it", func(l *services.RequestLedger) resolveFunc { return l.Approve }))
	cmd.AddCommand(newResolveCmd("reject", "Reject a pending request", func(l *services.RequestLedger) resolveFunc { return l.Reject }))
	return cmd
}

func newListRequestsCmd() *cobra.Command {
	var opts listRequestsOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List update requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := services.VisibilityFilter{OnlyMine: opts.onlyMine, Limit: opts.limit}
			if opts.status != "" {
				s := updaterequest.Status(opts.status)
				if !s.Valid() {
					return withCode(exitUsage, fmt.Errorf("invalid --status %q", opts.status))
				}
				filter.Status = &s
			}
			if opts.kind != "" {
				k := updaterequest.Kind(opts.kind)
				if !k.Valid() {
					return withCode(exitUsage, fmt.Errorf("invalid --kind %q", opts.kind))
				}
				filter.Kind = &k
			}
			if opts.onlyMine && opts.asUser <= 0 {
				return withCode(exitUsage, fmt.Errorf("--only-mine requires --as"))
			}

			e, err := connectApp(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := e.Context(cmd.Context())
			for {
				page, err := e.Ledger().ListVisibleTo(ctx, opts.asUser, filter)
				if err != nil {
					return serviceExit(err)
				}
				for _, item := range page.Items {
					if err := writeJSONLine(cmd.OutOrStdout(), item); err != nil {
						return err
					}
				}
				if page.NextCursor == nil || opts.limit > 0 {
					return nil
				}
				filter.Cursor = page.NextCursor
			}
		},
	}
	cmd.Flags().Int64Var(&opts.asUser, "as", 0, "Acting user id")
	cmd.Flags().BoolVar(&opts.onlyMine, "only-mine", false, "Only requests within the acting user's grants")
	cmd.Flags().StringVar(&opts.status, "status", "", "Filter by status: pending, approved or rejected")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Filter by request type")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Print a single page of this size (default: every page)")
	return cmd
}

type resolveFunc func(ctx context.Context, id uuid.UUID, actorID int64) (*updaterequest.UpdateRequest, error)

func newResolveCmd(use, short string, pick func(*services.RequestLedger) resolveFunc) *cobra.Command {
	var asUser int64
	cmd := &cobra.Command{
		Use:   use + " <request-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid request id: %w", err))
			}
			e, err := connectApp(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			req, err := pick(e.Ledger())(e.Context(cmd.Context()), id, asUser)
			if err != nil {
				return serviceExit(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), req)
		},
	}
	cmd.Flags().Int64Var(&asUser, "as", 0, "Reviewing user id; needs the request type's level on the target (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
