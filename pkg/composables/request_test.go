package composables

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestUseUserID(t *testing.T) {
	_, err := UseUserID(context.Background())
	require.ErrorIs(t, err, ErrNoUser)

	ctx := WithUserID(context.Background(), 42)
	id, err := UseUserID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	_, err = UseUserID(WithUserID(context.Background(), 0))
	require.ErrorIs(t, err, ErrNoUser)
}

func TestUseLogger_FallsBackToStandardLogger(t *testing.T) {
	require.NotNil(t, UseLogger(context.Background()))

	entry := logrus.New().WithField("request_id", "r-1")
	require.Same(t, entry, UseLogger(WithLogger(context.Background(), entry)))
}

func TestUseRequestID(t *testing.T) {
	_, ok := UseRequestID(context.Background())
	require.False(t, ok)

	id, ok := UseRequestID(WithRequestID(context.Background(), "r-1"))
	require.True(t, ok)
	require.Equal(t, "r-1", id)
}

func TestUsePool_Missing(t *testing.T) {
	_, err := UsePool(context.Background())
	require.ErrorIs(t, err, ErrNoPool)

	_, err = UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}
