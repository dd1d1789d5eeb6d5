package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/f3nation/f3map/modules/org/domain/org"
)

type treeOptions struct {
	includeInactive bool
}

type TreeOption func(*treeOptions)

// IncludeInactive keeps soft-deleted nodes in results. Review flows need it to
// show the current state of an entity that a pending delete targets.
func IncludeInactive() TreeOption {
	return func(o *treeOptions) { o.includeInactive = true }
}

func applyTreeOptions(opts []TreeOption) treeOptions {
	var o treeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OrgTree is a read-only view of the org hierarchy.
type OrgTree struct {
	repo  org.Repository
	cache AncestorCache
}

func NewOrgTree(repo org.Repository, cache AncestorCache) *OrgTree {
	if cache == nil {
		cache = NewNoopAncestorCache()
	}
	return &OrgTree{repo: repo, cache: cache}
}

// rawChain returns the node and all of its ancestors, inactive ones included.
func (t *OrgTree) rawChain(ctx context.Context, orgID int64) ([]org.Node, error) {
	if orgID <= 0 {
		return nil, newTargetNotFound("org", orgID, nil)
	}
	stamp, cacheable := t.stamp(ctx)
	if cacheable {
		if chain, ok := t.cache.Get(ctx, stamp, orgID); ok {
			return chain, nil
		}
	}
	chain, err := t.repo.ListAncestors(ctx, orgID)
	if err != nil {
		if errors.Is(err, org.ErrNotFound) {
			return nil, newTargetNotFound("org", orgID, err)
		}
		return nil, err
	}
	if len(chain) == 0 || chain[0].ID != orgID {
		return nil, newTargetNotFound("org", orgID, nil)
	}
	if cacheable {
		t.cache.Set(ctx, stamp, orgID, chain)
	}
	return chain, nil
}

// stamp must be taken before the chain is read. If the store version cannot
// be read the cache is bypassed.
func (t *OrgTree) stamp(ctx context.Context) (Stamp, bool) {
	gen, ok := t.cache.Generation(ctx)
	if !ok {
		return Stamp{}, false
	}
	version, err := t.repo.TreeVersion(ctx)
	if err != nil {
		logWithFields(ctx, logrus.WarnLevel, "org.cache.version_unavailable", logrus.Fields{"error": err.Error()})
		return Stamp{}, false
	}
	return Stamp{Gen: gen, Version: version}, true
}

// AncestorsOf returns the node itself first and the nation root last.
// Inactive nodes are missing from the result unless IncludeInactive is given,
// and an inactive target is reported as not found.
func (t *OrgTree) AncestorsOf(ctx context.Context, orgID int64, opts ...TreeOption) ([]org.Node, error) {
	o := applyTreeOptions(opts)
	chain, err := t.rawChain(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if o.includeInactive {
		return chain, nil
	}
	if !chain[0].IsActive {
		return nil, newTargetNotFound("org", orgID, nil)
	}
	out := make([]org.Node, 0, len(chain))
	for _, n := range chain {
		if n.IsActive {
			out = append(out, n)
		}
	}
	return out, nil
}

// Get returns a single node under the same visibility rules as AncestorsOf.
func (t *OrgTree) Get(ctx context.Context, orgID int64, opts ...TreeOption) (org.Node, error) {
	chain, err := t.AncestorsOf(ctx, orgID, opts...)
	if err != nil {
		return org.Node{}, err
	}
	return chain[0], nil
}

// DescendantsOf lists the nodes below orgID whose type is in types (all types
// when empty). Parents come before their descendants. Without IncludeInactive
// an inactive node hides its whole subtree.
func (t *OrgTree) DescendantsOf(ctx context.Context, orgID int64, types []org.Type, opts ...TreeOption) ([]org.Node, error) {
	o := applyTreeOptions(opts)
	if _, err := t.Get(ctx, orgID, opts...); err != nil {
		return nil, err
	}
	nodes, err := t.repo.ListDescendants(ctx, orgID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[org.Type]struct{}, len(types))
	for _, typ := range types {
		wanted[typ] = struct{}{}
	}
	hidden := make(map[int64]struct{})
	out := make([]org.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == orgID {
			continue
		}
		if !o.includeInactive {
			if _, ok := hidden[parentOf(n)]; ok || !n.IsActive {
				hidden[n.ID] = struct{}{}
				continue
			}
		}
		if len(wanted) > 0 {
			if _, ok := wanted[n.Type]; !ok {
				continue
			}
		}
		out = append(out, n)
	}
	return out, nil
}

// Invalidate drops every cached chain.
func (t *OrgTree) Invalidate(ctx context.Context, reason string) {
	t.cache.Invalidate(ctx, reason)
}

func parentOf(n org.Node) int64 {
	if n.ParentID == nil {
		return 0
	}
	return *n.ParentID
}
