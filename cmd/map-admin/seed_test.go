package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/infrastructure/memstore"
	"github.com/f3nation/f3map/modules/org/infrastructure/persistence"
	"github.com/f3nation/f3map/modules/org/services"
)

const sampleSeed = `
orgs:
  - key: nation
    type: nation
    name: F3 Nation
    children:
      - key: southeast
        type: sector
        name: Southeast
        children:
          - key: carolinas
            type: area
            name: Carolinas
            children:
              - key: metro
                type: region
                name: F3 Metro
                children:
                  - key: the-yard
                    type: ao
                    name: The Yard
users:
  - id: 1
    email: nantan@example.org
    name: Nantan
  - id: 2
    email: weasel@example.org
grants:
  - user_id: 1
    org: nation
    level: admin
  - user_id: 2
    org: metro
    level: editor
`

type recordingUsers struct {
	got []persistence.User
}

func (r *recordingUsers) Upsert(_ context.Context, u persistence.User) error {
	r.got = append(r.got, u)
	return nil
}

func TestParseSeed(t *testing.T) {
	f, err := parseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)
	require.Len(t, f.Orgs, 1)
	require.Equal(t, org.TypeNation, f.Orgs[0].Type)
	require.Len(t, f.Users, 2)
	require.Equal(t, role.LevelAdmin, f.Grants[0].Level)
	require.Equal(t, role.LevelEditor, f.Grants[1].Level)
}

func TestParseSeed_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "non-nation root",
			doc:  "orgs:\n  - {key: r, type: region, name: R}\n",
			want: "must be a nation",
		},
		{
			name: "child outranks parent",
			doc:  "orgs:\n  - key: n\n    type: nation\n    name: N\n    children:\n      - key: a\n        type: ao\n        name: A\n        children:\n          - {key: r, type: region, name: R}\n",
			want: "cannot sit under",
		},
		{
			name: "duplicate key",
			doc:  "orgs:\n  - key: n\n    type: nation\n    name: N\n    children:\n      - {key: n, type: sector, name: S}\n",
			want: "duplicate org key",
		},
		{
			name: "unknown type",
			doc:  "orgs:\n  - {key: n, type: galaxy, name: N}\n",
			want: "unknown type",
		},
		{
			name: "grant on unknown org",
			doc:  "orgs:\n  - {key: n, type: nation, name: N}\nusers:\n  - {id: 1}\ngrants:\n  - {user_id: 1, org: x, level: admin}\n",
			want: "unknown org",
		},
		{
			name: "grant for unlisted user",
			doc:  "orgs:\n  - {key: n, type: nation, name: N}\ngrants:\n  - {user_id: 9, org: n, level: admin}\n",
			want: "not listed under users",
		},
		{
			name: "grant without level",
			doc:  "orgs:\n  - {key: n, type: nation, name: N}\nusers:\n  - {id: 1}\ngrants:\n  - {user_id: 1, org: n}\n",
			want: "must be editor or admin",
		},
		{
			name: "unknown field",
			doc:  "orgz: []\n",
			want: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(tt.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeedWriter_Apply(t *testing.T) {
	ctx := context.Background()
	f, err := parseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)

	store := memstore.New()
	users := &recordingUsers{}
	w := seedWriter{orgs: store.Orgs(), users: users, roles: store.Roles()}

	var sum seedSummary
	require.NoError(t, store.InTx(ctx, func(ctx context.Context) error {
		var err error
		sum, err = w.apply(ctx, f)
		return err
	}))
	require.Len(t, sum.Orgs, 5)
	require.Equal(t, 2, sum.Users)
	require.Equal(t, 2, sum.Grants)
	require.Len(t, users.got, 2)

	chain, err := store.Orgs().ListAncestors(ctx, sum.Orgs["the-yard"])
	require.NoError(t, err)
	require.Len(t, chain, 5)
	require.Equal(t, sum.Orgs["nation"], chain[4].ID)

	grants, err := store.Roles().ListByUser(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []role.Grant{{UserID: 2, OrgID: sum.Orgs["metro"], Level: role.LevelEditor}}, grants)
}

func TestServiceExit(t *testing.T) {
	denied := &services.ServiceError{Status: http.StatusForbidden, Code: services.CodeForbidden, Message: "no"}
	require.Equal(t, exitDenied, exitCode(serviceExit(denied)))

	invalid := &services.ServiceError{Status: http.StatusUnprocessableEntity, Code: services.CodeValidationFailed, Message: "bad"}
	require.Equal(t, exitValidation, exitCode(serviceExit(invalid)))

	require.Equal(t, exitDB, exitCode(serviceExit(errors.New("connection reset"))))
	require.Equal(t, exitOK, exitCode(nil))
}
