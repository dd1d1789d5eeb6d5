package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

func nodeIDs(nodes []org.Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestOrgTree_AncestorsOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chain, err := f.tree.AncestorsOf(ctx, f.ao)
	require.NoError(t, err)
	require.Equal(t, []int64{f.ao, f.region, f.area, f.sector, f.nation}, nodeIDs(chain))

	_, err = f.tree.AncestorsOf(ctx, 999)
	requireCode(t, err, CodeTargetNotFound)
}

func TestOrgTree_AncestorsOf_InactiveTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Orgs().SetActive(ctx, f.ao, false))
	f.tree.Invalidate(ctx, "test")

	_, err := f.tree.AncestorsOf(ctx, f.ao)
	requireCode(t, err, CodeTargetNotFound)

	chain, err := f.tree.AncestorsOf(ctx, f.ao, IncludeInactive())
	require.NoError(t, err)
	require.Equal(t, f.ao, chain[0].ID)
	require.False(t, chain[0].IsActive)
}

func TestOrgTree_AncestorsOf_DropsInactiveAncestors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Orgs().SetActive(ctx, f.area, false))
	f.tree.Invalidate(ctx, "test")

	chain, err := f.tree.AncestorsOf(ctx, f.ao)
	require.NoError(t, err)
	require.Equal(t, []int64{f.ao, f.region, f.sector, f.nation}, nodeIDs(chain))
}

func TestOrgTree_DescendantsOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.tree.DescendantsOf(ctx, f.sector, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{f.area, f.region, f.otherRegion, f.ao, f.otherAO}, nodeIDs(all))

	aos, err := f.tree.DescendantsOf(ctx, f.sector, []org.Type{org.TypeAO})
	require.NoError(t, err)
	require.Equal(t, []int64{f.ao, f.otherAO}, nodeIDs(aos))

	require.NoError(t, f.store.Orgs().SetActive(ctx, f.otherRegion, false))
	active, err := f.tree.DescendantsOf(ctx, f.sector, []org.Type{org.TypeAO})
	require.NoError(t, err)
	require.Equal(t, []int64{f.ao}, nodeIDs(active))

	withInactive, err := f.tree.DescendantsOf(ctx, f.sector, []org.Type{org.TypeAO}, IncludeInactive())
	require.NoError(t, err)
	require.Equal(t, []int64{f.ao, f.otherAO}, nodeIDs(withInactive))
}

// countingOrgs counts the ancestor walks that reach the store.
type countingOrgs struct {
	org.Repository
	walks atomic.Int32
}

func (c *countingOrgs) ListAncestors(ctx context.Context, id int64) ([]org.Node, error) {
	c.walks.Add(1)
	return c.Repository.ListAncestors(ctx, id)
}

func TestOrgTree_ServesChainsFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := &countingOrgs{Repository: f.store.Orgs()}
	tree := NewOrgTree(repo, NewMemoryAncestorCache())

	for i := 0; i < 3; i++ {
		_, err := tree.AncestorsOf(ctx, f.ao)
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), repo.walks.Load())

	// A write that bypasses this tree still moves the store version.
	node, err := f.store.Orgs().GetByID(ctx, f.region)
	require.NoError(t, err)
	node.Name = "Renamed"
	require.NoError(t, f.store.Orgs().Update(ctx, node))

	chain, err := tree.AncestorsOf(ctx, f.ao)
	require.NoError(t, err)
	require.Equal(t, "Renamed", chain[1].Name)
	require.Equal(t, int32(2), repo.walks.Load())

	tree.Invalidate(ctx, "test")
	_, err = tree.AncestorsOf(ctx, f.ao)
	require.NoError(t, err)
	require.Equal(t, int32(3), repo.walks.Load())
}

func TestOrgTree_SeesMovesCommittedByAnotherInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.newPeer(t)

	lvl, err := f.resolver.Resolve(ctx, userRegionEditor, f.ao)
	require.NoError(t, err)
	require.Equal(t, role.LevelEditor, lvl)

	raw := []byte(fmt.Sprintf(`{"originalRegionId":%d,"originalAoId":%d,"newRegionId":%d}`, f.region, f.ao, f.otherRegion))
	req, err := other.ledger.Submit(ctx, updaterequest.KindMoveAOToDifferentRegion, raw, userSectorAdmin)
	require.NoError(t, err)
	require.Equal(t, updaterequest.StatusApproved, req.Status)

	lvl, err = f.resolver.Resolve(ctx, userRegionEditor, f.ao)
	require.NoError(t, err)
	require.Equal(t, role.LevelNone, lvl)

	raw = []byte(fmt.Sprintf(`{"originalRegionId":%d,"originalEventId":%d}`, f.otherRegion, f.eventID))
	req, err = f.ledger.Submit(ctx, updaterequest.KindDeleteEvent, raw, userRegionEditor)
	require.NoError(t, err)
	require.Equal(t, updaterequest.StatusPending, req.Status)
}

func TestOrgTree_RolledBackWritesDoNotPoisonCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tree.AncestorsOf(ctx, f.ao)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = f.store.InTx(ctx, func(txCtx context.Context) error {
		node, err := f.store.Orgs().GetByID(txCtx, f.region)
		if err != nil {
			return err
		}
		node.Name = "Uncommitted"
		if err := f.store.Orgs().Update(txCtx, node); err != nil {
			return err
		}
		chain, err := f.tree.AncestorsOf(txCtx, f.ao)
		if err != nil {
			return err
		}
		require.Equal(t, "Uncommitted", chain[1].Name)
		return boom
	})
	require.ErrorIs(t, err, boom)

	chain, err := f.tree.AncestorsOf(ctx, f.ao)
	require.NoError(t, err)
	require.Equal(t, "Charlotte", chain[1].Name)

	node, err := f.store.Orgs().GetByID(ctx, f.region)
	require.NoError(t, err)
	node.Name = "Committed"
	require.NoError(t, f.store.Orgs().Update(ctx, node))
	chain, err = f.tree.AncestorsOf(ctx, f.ao)
	require.NoError(t, err)
	require.Equal(t, "Committed", chain[1].Name)
}

func TestMemoryAncestorCache_DropsWritesFromOldGeneration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAncestorCache()
	chain := []org.Node{{ID: 5, Type: org.TypeAO, IsActive: true}}

	gen, ok := c.Generation(ctx)
	require.True(t, ok)
	old := Stamp{Gen: gen, Version: 1}
	c.Invalidate(ctx, "test")
	c.Set(ctx, old, 5, chain)

	next, _ := c.Generation(ctx)
	current := Stamp{Gen: next, Version: 1}
	_, hit := c.Get(ctx, current, 5)
	require.False(t, hit)

	c.Set(ctx, current, 5, chain)
	got, hit := c.Get(ctx, current, 5)
	require.True(t, hit)
	require.Equal(t, chain, got)

	_, hit = c.Get(ctx, old, 5)
	require.False(t, hit)
	_, hit = c.Get(ctx, Stamp{Gen: next, Version: 2}, 5)
	require.False(t, hit, "an entry read under another store version is never served")
}
