package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/pkg/types"
)

// TestNewConfig 测试默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, types.StrategySimple, cfg.Participant.StrategyValue())
	assert.Equal(t, 10*time.Second/3, cfg.Discovery.Announce(cfg.Participant.LeaseDuration.Duration()))
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Storage.DBPath())
}

func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"250ms","b":1000}`), &v))
	assert.Equal(t, 250*time.Millisecond, v.A.Duration())
	assert.Equal(t, time.Microsecond, v.B.Duration())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"250ms","b":"1µs"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestFromJSON_KeepsDefaults(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"participant": {"strategy": "server", "lease_duration": "20s", "locators": ["udp://10.0.0.1:7400"]},
		"discovery": {"history_depth": 512}
	}`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, types.StrategyServer, cfg.Participant.StrategyValue())
	assert.Equal(t, 20*time.Second, cfg.Participant.LeaseDuration.Duration())
	assert.Equal(t, 512, cfg.Discovery.HistoryDepth)
	assert.Equal(t, DefaultDiscoveryConfig().FlushPeriod, cfg.Discovery.FlushPeriod)
	assert.Equal(t, DefaultDatabaseConfig(), cfg.Database)

	_, err = FromJSON([]byte(`{"participant":`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dds.json")
	cfg := NewConfig()
	require.NoError(t, ApplyPreset(cfg, "backup"))
	cfg.Storage.DataDir = "/var/lib/dds"
	data, err := cfg.ToJSON()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, "/var/lib/dds/discovery.db", loaded.Storage.DBPath())

	require.NoError(t, os.WriteFile(path, []byte(`{"participant":{"strategy":"mesh"}}`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestApplyPreset(t *testing.T) {
	for _, name := range []string{"", "default", "server", "client", "backup", "test"} {
		t.Run("preset_"+name, func(t *testing.T) {
			cfg := NewConfig()
			require.NoError(t, ApplyPreset(cfg, name))
			assert.NoError(t, cfg.Validate())
		})
	}

	cfg := NewConfig()
	require.NoError(t, ApplyPreset(cfg, "backup"))
	assert.Equal(t, types.StrategyBackup, cfg.Participant.StrategyValue())
	assert.True(t, cfg.Storage.SyncWrites)

	assert.Error(t, ApplyPreset(cfg, "mobile"))
	assert.Error(t, ApplyPreset(nil, "server"))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown strategy", func(c *Config) { c.Participant.Strategy = "mesh" }},
		{"zero lease", func(c *Config) { c.Participant.LeaseDuration = 0 }},
		{"bad locator", func(c *Config) { c.Participant.Locators = []string{"10.0.0.1"} }},
		{"zero depth", func(c *Config) { c.Discovery.HistoryDepth = 0 }},
		{"zero flush rate", func(c *Config) { c.Discovery.FlushRate = 0 }},
		{"retry max below base", func(c *Config) { c.Discovery.AckRetryMax = Duration(time.Millisecond) }},
		{"announce beyond lease", func(c *Config) { c.Discovery.AnnouncePeriod = Duration(time.Minute) }},
		{"lease check beyond lease", func(c *Config) { c.Discovery.LeaseCheckPeriod = Duration(time.Minute) }},
		{"zero tombstones", func(c *Config) { c.Database.TombstoneSize = 0 }},
		{"negative gc", func(c *Config) { c.Storage.GCInterval = -1 }},
		{"sync writes without backup", func(c *Config) { c.Storage.SyncWrites = true }},
		{"bad introspect addr", func(c *Config) {
			c.Diagnostics.EnableIntrospect = true
			c.Diagnostics.IntrospectAddr = "localhost"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.Error(t, ValidateAll(nil))
	assert.Panics(t, func() { MustValidate(nil) })
}

func TestClone(t *testing.T) {
	cfg := NewConfig()
	cfg.Participant.Locators = []string{"udp://10.0.0.1:7400"}
	cp := cfg.Clone()
	cp.Participant.Locators[0] = "udp://10.0.0.2:7400"
	cp.Discovery.HistoryDepth = 1

	assert.Equal(t, "udp://10.0.0.1:7400", cfg.Participant.Locators[0])
	assert.Equal(t, 256, cfg.Discovery.HistoryDepth)
	assert.Nil(t, (*Config)(nil).Clone())
}
