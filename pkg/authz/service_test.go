package authz

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var levels = []string{"editor", "admin"}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{})
	require.NoError(t, err)
	return svc
}

func TestServiceCheck_EmbeddedPolicy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	allowed, err := svc.Check(ctx, NewRequest(SubjectForRole("editor"), "create_event", ActionCommit))
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = svc.Check(ctx, NewRequest(SubjectForRole("editor"), "delete_ao", ActionCommit))
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = svc.Check(ctx, NewRequest(SubjectForRole("admin"), "create_event", ActionCommit))
	require.NoError(t, err)
	require.True(t, allowed, "admin inherits editor permissions")
}

func TestServiceMinimumRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		object string
		want   string
		ok     bool
	}{
		{object: "create_event", want: "editor", ok: true},
		{object: "move_ao_to_different_region", want: "editor", ok: true},
		{object: "delete_ao", want: "admin", ok: true},
		{object: "create_org", want: "admin", ok: true},
		{object: "delete_org", want: "admin", ok: true},
		{object: "edit", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.object, func(t *testing.T) {
			got, ok, err := svc.MinimumRole(ctx, tt.object, ActionCommit, levels)
			require.NoError(t, err)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestServicePolicyOverride(t *testing.T) {
	svc, err := NewService(Config{
		ModelPath:  filepath.Join("defaults", "model.conf"),
		PolicyPath: filepath.Join("testdata", "policy_strict.csv"),
	})
	require.NoError(t, err)

	got, ok, err := svc.MinimumRole(context.Background(), "edit_event", ActionCommit, levels)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "admin", got)

	require.NoError(t, svc.ReloadPolicy(context.Background()))
}

func TestConfigValidate(t *testing.T) {
	_, err := NewService(Config{ModelPath: "custom.conf"})
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Contains(t, err.Error(), "custom.conf")
}

func TestServiceInspect(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Inspect(context.Background(), NewRequest(SubjectForRole("admin"), "delete_ao", ""))
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, []string{"role:admin", "delete_ao", "commit"}, res.Trace)
}

func TestSubjectForRole(t *testing.T) {
	require.Equal(t, "role:editor", SubjectForRole("Editor"))
	require.Equal(t, "role:admin", SubjectForRole("role:admin"))
	require.Equal(t, "role:unnamed", SubjectForRole(" "))
}
