package storage

import (
	"path/filepath"
	"time"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// Config Storage 模块配置
//
// 测试代码应使用 t.TempDir() 作为 DataDir。
type Config struct {
	// DataDir 数据目录，空表示纯内存
	DataDir string

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool

	// GCInterval 值日志 GC 间隔
	GCInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		DataDir:    "",
		GCInterval: 10 * time.Minute,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.GCInterval < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// DBPath 返回数据库目录
func (c Config) DBPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "discovery.db")
}

// ToEngineConfig 转换为引擎配置
func (c Config) ToEngineConfig() *engine.Config {
	cfg := engine.DefaultConfig(c.DBPath())
	cfg.InMemory = c.DataDir == ""
	cfg.SyncWrites = c.SyncWrites
	cfg.GCInterval = c.GCInterval
	return cfg
}
