package memstore

import (
	"context"
	"sort"

	"github.com/f3nation/f3map/modules/org/domain/org"
)

type orgRepository struct{ s *Store }

func cloneNode(n org.Node) org.Node {
	if n.ParentID != nil {
		parent := *n.ParentID
		n.ParentID = &parent
	}
	return n
}

func (r *orgRepository) GetByID(ctx context.Context, id int64) (*org.Node, error) {
	var out *org.Node
	err := r.s.read(ctx, func(st *state) error {
		n, ok := st.orgs[id]
		if !ok {
			return org.ErrNotFound
		}
		n = cloneNode(n)
		out = &n
		return nil
	})
	return out, err
}

func (r *orgRepository) ListAncestors(ctx context.Context, id int64) ([]org.Node, error) {
	var out []org.Node
	err := r.s.read(ctx, func(st *state) error {
		seen := make(map[int64]struct{})
		for cur := id; ; {
			n, ok := st.orgs[cur]
			if !ok {
				if len(out) == 0 {
					return org.ErrNotFound
				}
				return nil
			}
			if _, dup := seen[cur]; dup {
				return nil
			}
			seen[cur] = struct{}{}
			out = append(out, cloneNode(n))
			if n.ParentID == nil {
				return nil
			}
			cur = *n.ParentID
		}
	})
	return out, err
}

func (r *orgRepository) ListDescendants(ctx context.Context, id int64) ([]org.Node, error) {
	var out []org.Node
	err := r.s.read(ctx, func(st *state) error {
		if _, ok := st.orgs[id]; !ok {
			return org.ErrNotFound
		}
		queue := []int64{id}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, child := range childrenOf(st, cur) {
				out = append(out, child)
				queue = append(queue, child.ID)
			}
		}
		return nil
	})
	return out, err
}

func (r *orgRepository) ListChildren(ctx context.Context, parentID int64) ([]org.Node, error) {
	var out []org.Node
	err := r.s.read(ctx, func(st *state) error {
		out = childrenOf(st, parentID)
		return nil
	})
	return out, err
}

func childrenOf(st *state, parentID int64) []org.Node {
	var out []org.Node
	for _, n := range st.orgs {
		if n.ParentID != nil && *n.ParentID == parentID {
			out = append(out, cloneNode(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *orgRepository) Create(ctx context.Context, node *org.Node) (int64, error) {
	var id int64
	err := r.s.write(ctx, func(st *state) error {
		if node.ParentID != nil {
			if _, ok := st.orgs[*node.ParentID]; !ok {
				return org.ErrNotFound
			}
		}
		st.nextOrg++
		id = st.nextOrg
		n := cloneNode(*node)
		n.ID = id
		n.Created = r.s.now().UTC()
		n.Updated = n.Created
		st.orgs[id] = n
		st.treeVersion = r.s.treeSeq.Add(1)
		return nil
	})
	return id, err
}

func (r *orgRepository) Update(ctx context.Context, node *org.Node) error {
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.orgs[node.ID]
		if !ok {
			return org.ErrNotFound
		}
		n := cloneNode(*node)
		n.Created = cur.Created
		n.Updated = r.s.now().UTC()
		st.orgs[n.ID] = n
		st.treeVersion = r.s.treeSeq.Add(1)
		return nil
	})
}

func (r *orgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.write(ctx, func(st *state) error {
		n, ok := st.orgs[id]
		if !ok {
			return org.ErrNotFound
		}
		n = cloneNode(n)
		n.IsActive = active
		n.Updated = r.s.now().UTC()
		st.orgs[id] = n
		st.treeVersion = r.s.treeSeq.Add(1)
		return nil
	})
}

func (r *orgRepository) TreeVersion(ctx context.Context) (int64, error) {
	var version int64
	err := r.s.read(ctx, func(st *state) error {
		version = st.treeVersion
		return nil
	})
	return version, err
}
