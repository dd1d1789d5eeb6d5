package role

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelOrdering(t *testing.T) {
	require.Less(t, LevelNone, LevelEditor)
	require.Less(t, LevelEditor, LevelAdmin)
	require.False(t, LevelNone.Grantable())
}

func TestLevelJSON(t *testing.T) {
	data, err := json.Marshal(Grant{UserID: 1, OrgID: 2, Level: LevelAdmin})
	require.NoError(t, err)
	require.JSONEq(t, `{"userId":1,"orgId":2,"roleLevel":"admin"}`, string(data))

	var g Grant
	require.NoError(t, json.Unmarshal([]byte(`{"userId":1,"orgId":2,"roleLevel":"editor"}`), &g))
	require.Equal(t, LevelEditor, g.Level)

	require.Error(t, json.Unmarshal([]byte(`{"roleLevel":"owner"}`), &g))
}
