package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModule_Lifecycle(t *testing.T) {
	var eng InternalEngine
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(Config{DataDir: t.TempDir(), GCInterval: 0}),
		Module(),
		fx.Populate(&eng),
	)
	app.RequireStart()

	s := NewKVStore(eng, []byte("b/p/"))
	require.NoError(t, s.Put([]byte("k"), []byte("v")))

	app.RequireStop()
	_, err := eng.Get([]byte("b/p/k"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "", cfg.DBPath())
	assert.True(t, cfg.ToEngineConfig().InMemory)

	cfg.DataDir = "/tmp/x"
	assert.Equal(t, "/tmp/x/discovery.db", cfg.DBPath())
	assert.False(t, cfg.ToEngineConfig().InMemory)

	cfg.GCInterval = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
