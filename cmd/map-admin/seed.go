package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/infrastructure/persistence"
)

// seedFile is the YAML document accepted by `map-admin seed`.
//
//	orgs:
//	  - key: nation
//	    type: nation
//	    name: F3 Nation
//	    children:
//	      - key: southeast
//	        type: sector
//	        name: Southeast
//	users:
//	  - id: 1
//	    email: nantan@example.org
//	grants:
//	  - user_id: 1
//	    org: nation
//	    level: admin
type seedFile struct {
	Orgs   []seedOrg          `yaml:"orgs"`
	Users  []persistence.User `yaml:"users"`
	Grants []seedGrant        `yaml:"grants"`
}

type seedOrg struct {
	Key         string    `yaml:"key"`
	Type        org.Type  `yaml:"type"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Website     string    `yaml:"website"`
	Inactive    bool      `yaml:"inactive"`
	Children    []seedOrg `yaml:"children"`
}

type seedGrant struct {
	UserID int64      `yaml:"user_id"`
	Org    string     `yaml:"org"`
	Level  role.Level `yaml:"level"`
}

func parseSeed(r io.Reader) (*seedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f seedFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &seedFile{}, nil
		}
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *seedFile) validate() error {
	keys := map[string]struct{}{}
	var walk func(nodes []seedOrg, parent *seedOrg) error
	walk = func(nodes []seedOrg, parent *seedOrg) error {
		for i := range nodes {
			n := &nodes[i]
			n.Key = strings.TrimSpace(n.Key)
			if n.Key == "" {
				return fmt.Errorf("seed: org %q has no key", n.Name)
			}
			if _, dup := keys[n.Key]; dup {
				return fmt.Errorf("seed: duplicate org key %q", n.Key)
			}
			keys[n.Key] = struct{}{}
			t, err := org.ParseType(string(n.Type))
			if err != nil {
				return fmt.Errorf("seed: org %q: %w", n.Key, err)
			}
			n.Type = t
			if strings.TrimSpace(n.Name) == "" {
				return fmt.Errorf("seed: org %q has no name", n.Key)
			}
			if parent == nil && t != org.TypeNation {
				return fmt.Errorf("seed: top-level org %q must be a nation, got %s", n.Key, t)
			}
			if parent != nil && !parent.Type.CanParent(t) {
				return fmt.Errorf("seed: org %q (%s) cannot sit under %q (%s)", n.Key, t, parent.Key, parent.Type)
			}
			if err := walk(n.Children, n); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(f.Orgs, nil); err != nil {
		return err
	}

	users := map[int64]struct{}{}
	for _, u := range f.Users {
		if u.ID <= 0 {
			return fmt.Errorf("seed: user %q needs a positive id", u.Email)
		}
		users[u.ID] = struct{}{}
	}
	for _, g := range f.Grants {
		if _, ok := keys[g.Org]; !ok {
			return fmt.Errorf("seed: grant for user %d names unknown org %q", g.UserID, g.Org)
		}
		if _, ok := users[g.UserID]; !ok {
			return fmt.Errorf("seed: grant names user %d not listed under users", g.UserID)
		}
		if !g.Level.Grantable() {
			return fmt.Errorf("seed: grant for user %d on %q must be editor or admin", g.UserID, g.Org)
		}
	}
	return nil
}

type seedSummary struct {
	Orgs   map[string]int64 `json:"orgs"`
	Users  int              `json:"users"`
	Grants int              `json:"grants"`
}

type userWriter interface {
	Upsert(ctx context.Context, u persistence.User) error
}

type seedWriter struct {
	orgs  org.Repository
	users userWriter
	roles role.Repository
}

// apply writes the file parents first. The caller supplies the transaction.
func (w seedWriter) apply(ctx context.Context, f *seedFile) (seedSummary, error) {
	sum := seedSummary{Orgs: map[string]int64{}}

	var create func(nodes []seedOrg, parentID *int64) error
	create = func(nodes []seedOrg, parentID *int64) error {
		for _, n := range nodes {
			id, err := w.orgs.Create(ctx, &org.Node{
				Type:        n.Type,
				ParentID:    parentID,
				Name:        n.Name,
				Description: n.Description,
				Website:     n.Website,
				IsActive:    !n.Inactive,
			})
			if err != nil {
				return fmt.Errorf("seed: create org %q: %w", n.Key, err)
			}
			sum.Orgs[n.Key] = id
			if err := create(n.Children, &id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := create(f.Orgs, nil); err != nil {
		return seedSummary{}, err
	}

	for _, u := range f.Users {
		if err := w.users.Upsert(ctx, u); err != nil {
			return seedSummary{}, fmt.Errorf("seed: upsert user %d: %w", u.ID, err)
		}
		sum.Users++
	}
	for _, g := range f.Grants {
		grant := role.Grant{UserID: g.UserID, OrgID: sum.Orgs[g.Org], Level: g.Level}
		if err := w.roles.Upsert(ctx, grant); err != nil {
			return seedSummary{}, fmt.Errorf("seed: grant user %d on %q: %w", g.UserID, g.Org, err)
		}
		sum.Grants++
	}
	return sum, nil
}
