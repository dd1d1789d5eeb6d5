package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/f3nation/f3map/modules/org"
	"github.com/f3nation/f3map/modules/org/services"
	"github.com/f3nation/f3map/pkg/application"
	"github.com/f3nation/f3map/pkg/composables"
	"github.com/f3nation/f3map/pkg/configuration"
	"github.com/f3nation/f3map/pkg/eventbus"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "map-admin",
		Short:         "Operator tool for the map database: migrations, seeding, grants and the review queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newGrantsCmd())
	cmd.AddCommand(newRequestsCmd())
	cmd.AddCommand(newPolicyCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

// env is the runtime every database-backed command shares.
type env struct {
	conf *configuration.Configuration
	pool *pgxpool.Pool
	app  application.Application
}

func (e *env) Close() {
	e.pool.Close()
	e.conf.Unload()
}

// Context carries the pool so repositories outside a transaction can query.
func (e *env) Context(ctx context.Context) context.Context {
	return composables.WithPool(ctx, e.pool)
}

func (e *env) Ledger() *services.RequestLedger {
	return e.app.Service(services.RequestLedger{}).(*services.RequestLedger)
}

func (e *env) Roles() *services.RoleStore {
	return e.app.Service(services.RoleStore{}).(*services.RoleStore)
}

func connect(ctx context.Context) (*env, error) {
	conf, err := configuration.Load(".env", ".env.local")
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	cfg, err := pgxpool.ParseConfig(conf.Database.Opts)
	if err != nil {
		conf.Unload()
		return nil, withCode(exitUsage, fmt.Errorf("parse database config: %w", err))
	}
	if conf.Database.MaxConns > 0 {
		cfg.MaxConns = conf.Database.MaxConns
	}
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, cfg)
	if err == nil {
		err = pool.Ping(dialCtx)
	}
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		conf.Unload()
		return nil, withCode(exitDB, fmt.Errorf("connect database: %w", err))
	}
	return &env{conf: conf, pool: pool}, nil
}

// connectApp also loads the org module so its services can be looked up.
func connectApp(ctx context.Context) (*env, error) {
	e, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	logger := e.conf.Logger()
	e.app = application.New(&application.ApplicationOptions{
		Pool:     e.pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := application.LoadModules(e.app, org.NewModule()); err != nil {
		e.Close()
		return nil, withCode(exitUsage, err)
	}
	return e, nil
}

// serviceExit maps a service failure to the exit code an operator can act on.
func serviceExit(err error) error {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		return withCode(exitDB, err)
	}
	switch se.Status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusConflict:
		return withCode(exitValidation, fmt.Errorf("%s: %s", se.Code, se.Message))
	case http.StatusForbidden:
		return withCode(exitDenied, fmt.Errorf("%s: %s", se.Code, se.Message))
	default:
		return withCode(exitDB, err)
	}
}
