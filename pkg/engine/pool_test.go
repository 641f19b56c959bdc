package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/taproot/pkg/engine"
)

func TestLookupPool_Builtins(t *testing.T) {
	static, err := engine.LookupPool("static")
	require.NoError(t, err)
	assert.Equal(t, 1, static.MaxOpen)

	null, err := engine.LookupPool("null")
	require.NoError(t, err)
	assert.Equal(t, -1, null.MaxIdle)

	def, err := engine.LookupPool("default")
	require.NoError(t, err)
	assert.Equal(t, engine.PoolStrategy{}, def)
}

func TestLookupPool_Unknown(t *testing.T) {
	_, err := engine.LookupPool("bespoke")
	assert.ErrorIs(t, err, engine.ErrUnknownPool)
}

func TestRegisterPool(t *testing.T) {
	engine.RegisterPool("test-tiny", engine.PoolStrategy{MaxOpen: 2, MaxIdle: 1})

	got, err := engine.LookupPool("test-tiny")
	require.NoError(t, err)
	assert.Equal(t, engine.PoolStrategy{MaxOpen: 2, MaxIdle: 1}, got)
}
