// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

func newProvider(pool *pgxpool.Pool) (*goose.Provider, *sql.DB, error) {
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, FS)
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "goose provider")
	}
	return provider, db, nil
}

// Up applies every pending migration and returns the versions applied.
func Up(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	provider, db, err := newProvider(pool)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "apply migrations")
	}
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	provider, db, err := newProvider(pool)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	result, err := provider.Down(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "roll back migration")
	}
	return result.Source.Version, nil
}

type Status struct {
	Version int64  `json:"version"`
	Path    string `json:"path"`
	Applied bool   `json:"applied"`
}

func List(ctx context.Context, pool *pgxpool.Pool) ([]Status, error) {
	provider, db, err := newProvider(pool)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migration status")
	}
	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
