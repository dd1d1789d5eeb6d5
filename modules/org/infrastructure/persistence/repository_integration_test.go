package persistence_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/f3nation/f3map/migrations"
	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/modules/org/infrastructure/persistence"
	"github.com/f3nation/f3map/pkg/composables"
)

// newTestDB creates a throwaway database and migrates it. The test is skipped
// unless DB_HOST is set; in CI an unreachable server is a failure.
func newTestDB(tb testing.TB) (context.Context, *pgxpool.Pool) {
	tb.Helper()
	host := strings.TrimSpace(os.Getenv("DB_HOST"))
	if host == "" {
		tb.Skip("DB_HOST not set; skipping postgres integration test")
	}
	isCI := strings.TrimSpace(os.Getenv("CI")) != ""
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", "postgres")
	password := envOr("DB_PASSWORD", "postgres")
	ctx := context.Background()

	adminConn, err := pgx.Connect(ctx, "postgres://"+user+":"+password+"@"+host+":"+port+"/postgres?sslmode=disable")
	if err != nil {
		if isCI {
			require.NoError(tb, err)
		}
		tb.Skip("postgres is not reachable; skipping integration test")
	}

	dbName := "f3map_" + strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, strings.ToLower(tb.Name()))
	_, _ = adminConn.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName)
	_, err = adminConn.Exec(ctx, "CREATE DATABASE "+dbName)
	require.NoError(tb, err)

	pool, err := pgxpool.New(ctx, "postgres://"+user+":"+password+"@"+host+":"+port+"/"+dbName+"?sslmode=disable")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		pool.Close()
		_, _ = adminConn.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName)
		_ = adminConn.Close(ctx)
	})

	applied, err := migrations.Up(ctx, pool)
	require.NoError(tb, err)
	require.NotEmpty(tb, applied)
	return composables.WithPool(ctx, pool), pool
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func createOrg(t *testing.T, ctx context.Context, typ org.Type, parent *int64, name string) int64 {
	t.Helper()
	id, err := persistence.NewOrgRepository().Create(ctx, &org.Node{Type: typ, ParentID: parent, Name: name, IsActive: true})
	require.NoError(t, err)
	return id
}

func TestOrgRepository_Walks(t *testing.T) {
	ctx, _ := newTestDB(t)
	repo := persistence.NewOrgRepository()

	nation := createOrg(t, ctx, org.TypeNation, nil, "Nation")
	sector := createOrg(t, ctx, org.TypeSector, &nation, "Sector")
	region := createOrg(t, ctx, org.TypeRegion, &sector, "Region")
	ao := createOrg(t, ctx, org.TypeAO, &region, "AO")

	chain, err := repo.ListAncestors(ctx, ao)
	require.NoError(t, err)
	ids := make([]int64, 0, len(chain))
	for _, n := range chain {
		ids = append(ids, n.ID)
	}
	require.Equal(t, []int64{ao, region, sector, nation}, ids)
	require.Equal(t, org.TypeAO, chain[0].Type)

	below, err := repo.ListDescendants(ctx, sector)
	require.NoError(t, err)
	require.Len(t, below, 2)
	require.Equal(t, region, below[0].ID)

	_, err = repo.ListAncestors(ctx, 9999)
	require.ErrorIs(t, err, org.ErrNotFound)

	require.NoError(t, repo.SetActive(ctx, ao, false))
	got, err := repo.GetByID(ctx, ao)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestOrgRepository_TreeVersionFollowsCommits(t *testing.T) {
	ctx, pool := newTestDB(t)
	repo := persistence.NewOrgRepository()
	runner := persistence.NewPoolTxRunner(pool)

	start, err := repo.TreeVersion(ctx)
	require.NoError(t, err)
	nation := createOrg(t, ctx, org.TypeNation, nil, "Nation")
	created, err := repo.TreeVersion(ctx)
	require.NoError(t, err)
	require.Greater(t, created, start)

	var inside int64
	err = runner.InTx(context.Background(), func(txCtx context.Context) error {
		if err := repo.SetActive(txCtx, nation, false); err != nil {
			return err
		}
		v, err := repo.TreeVersion(txCtx)
		inside = v
		if err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Greater(t, inside, created)

	current, err := repo.TreeVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, created, current)

	require.NoError(t, repo.SetActive(ctx, nation, false))
	current, err = repo.TreeVersion(ctx)
	require.NoError(t, err)
	require.Greater(t, current, inside, "a rolled back version is never handed out again")
}

func TestRoleRepository_UpsertReplacesLevel(t *testing.T) {
	ctx, _ := newTestDB(t)
	nation := createOrg(t, ctx, org.TypeNation, nil, "Nation")
	require.NoError(t, persistence.NewUserRepository().Upsert(ctx, persistence.User{ID: 7, Email: "q@example.org"}))

	roles := persistence.NewRoleRepository()
	require.NoError(t, roles.Upsert(ctx, role.Grant{UserID: 7, OrgID: nation, Level: role.LevelEditor}))
	require.NoError(t, roles.Upsert(ctx, role.Grant{UserID: 7, OrgID: nation, Level: role.LevelAdmin}))

	grants, err := roles.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []role.Grant{{UserID: 7, OrgID: nation, Level: role.LevelAdmin}}, grants)

	removed, err := roles.Delete(ctx, 7, nation)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = roles.Delete(ctx, 7, nation)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestUpdateRequestRepository_ResolveAndList(t *testing.T) {
	ctx, _ := newTestDB(t)
	nation := createOrg(t, ctx, org.TypeNation, nil, "Nation")
	region := createOrg(t, ctx, org.TypeRegion, &nation, "Region")
	loc, err := persistence.NewLocationRepository().Create(ctx, &location.Location{OrgID: region, Lat: 1, Lng: 2, IsActive: true})
	require.NoError(t, err)

	repo := persistence.NewUpdateRequestRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		req := &updaterequest.UpdateRequest{
			ID:          uuid.New(),
			Kind:        updaterequest.KindCreateEvent,
			TargetOrgID: region,
			Payload:     []byte(`{"eventName":"x"}`),
			SubmittedBy: 1,
			Status:      updaterequest.StatusPending,
			Created:     base.Add(time.Duration(i) * time.Minute),
			Updated:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Insert(ctx, req))
		ids = append(ids, req.ID)
	}

	ok, err := repo.Resolve(ctx, ids[0], updaterequest.StatusApproved, 2, base.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.Resolve(ctx, ids[0], updaterequest.StatusRejected, 3, base.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok, "second resolve must lose")

	require.NoError(t, repo.RecordResult(ctx, ids[0], nil, &loc))
	got, err := repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, updaterequest.StatusApproved, got.Status)
	require.Equal(t, int64(2), *got.ReviewedBy)
	require.Equal(t, loc, *got.NewLocationID)
	require.Nil(t, got.NewOrgID)
	require.JSONEq(t, `{"eventName":"x"}`, string(got.Payload))

	page, err := repo.List(ctx, updaterequest.ListFilter{OrgIDs: []int64{region}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[2], page[0].ID)
	require.Equal(t, ids[1], page[1].ID)

	rest, err := repo.List(ctx, updaterequest.ListFilter{
		OrgIDs: []int64{region},
		Cursor: &updaterequest.Cursor{Created: page[1].Created, ID: page[1].ID},
	})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, ids[0], rest[0].ID)

	pending := updaterequest.StatusPending
	open, err := repo.List(ctx, updaterequest.ListFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, open, 2)

	none, err := repo.List(ctx, updaterequest.ListFilter{OrgIDs: []int64{}})
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, updaterequest.ErrNotFound)
}

func TestPoolTxRunner_RollsBack(t *testing.T) {
	ctx, pool := newTestDB(t)
	runner := persistence.NewPoolTxRunner(pool)
	repo := persistence.NewOrgRepository()

	var created int64
	err := runner.InTx(context.Background(), func(txCtx context.Context) error {
		id, err := repo.Create(txCtx, &org.Node{Type: org.TypeNation, Name: "Gone", IsActive: true})
		created = id
		if err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = repo.GetByID(ctx, created)
	require.ErrorIs(t, err, org.ErrNotFound)
}
