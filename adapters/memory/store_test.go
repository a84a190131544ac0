package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/domain/core"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Get(ctx, core.KeyLogs)
	assert.True(t, core.IsNotFoundError(err))

	require.NoError(t, s.Set(ctx, core.KeyLogs, []byte(`[]`)))
	require.NoError(t, s.Set(ctx, core.KeyGoals, []byte(`[{"id":"g1"}]`)))

	v, err := s.Get(ctx, core.KeyGoals)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"g1"}]`, string(v))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.StorageKey{core.KeyGoals, core.KeyLogs}, keys)

	require.NoError(t, s.Remove(ctx, core.KeyLogs))
	require.NoError(t, s.Remove(ctx, core.KeyLogs))
	_, err = s.Get(ctx, core.KeyLogs)
	assert.True(t, core.IsNotFoundError(err))
}

func TestStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	in := []byte("abc")
	require.NoError(t, s.Set(ctx, core.KeyChildProfile, in))
	in[0] = 'x'

	out, err := s.Get(ctx, core.KeyChildProfile)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))

	out[1] = 'y'
	again, _ := s.Get(ctx, core.KeyChildProfile)
	assert.Equal(t, "abc", string(again))
}
