package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。示例 JSON:
//
//	{
//	  "participant": {"strategy": "server", "lease_duration": "20s"},
//	  "discovery": {"history_depth": 512}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置并验证
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "default": 对等发现，默认节奏
//   - "server": 发现服务器，更深的历史
//   - "client": 发现客户端
//   - "backup": 带持久化的发现服务器
//   - "test": 短租约、快节奏，用于测试与演示
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "", "default":
		cfg.Participant.Strategy = "simple"
	case "server":
		cfg.Participant.Strategy = "server"
		cfg.Discovery.HistoryDepth = 1024
		cfg.Database.TombstoneSize = 4096
	case "client":
		cfg.Participant.Strategy = "client"
	case "backup":
		cfg.Participant.Strategy = "backup"
		cfg.Discovery.HistoryDepth = 1024
		cfg.Database.TombstoneSize = 4096
		cfg.Storage.SyncWrites = true
	case "test":
		applyTestPreset(cfg)
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
	return nil
}

// applyTestPreset 短租约、快节奏
func applyTestPreset(cfg *Config) {
	cfg.Participant.LeaseDuration = Duration(3 * time.Second)
	cfg.Discovery.HistoryDepth = 64
	cfg.Discovery.FlushPeriod = Duration(50 * time.Millisecond)
	cfg.Discovery.FlushRate = 1000
	cfg.Discovery.FlushBurst = 100
	cfg.Discovery.LeaseCheckPeriod = Duration(250 * time.Millisecond)
	cfg.Discovery.AckRetryBase = Duration(100 * time.Millisecond)
	cfg.Discovery.AckRetryMax = Duration(time.Second)
	cfg.Discovery.BackupPeriod = Duration(time.Second)
	cfg.Storage.GCInterval = 0
}
