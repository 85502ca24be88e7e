package engine

import (
	"os"
	"path/filepath"
	"time"
)

// Config 存储引擎配置
type Config struct {
	// Path 数据库目录，InMemory 为 true 时忽略
	Path string

	// InMemory 纯内存模式
	InMemory bool

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool

	// GCInterval 值日志 GC 间隔，0 表示禁用
	GCInterval time.Duration

	// GCDiscardRatio 值日志 GC 丢弃比例
	GCDiscardRatio float64

	// ValueLogFileSize 值日志文件大小
	ValueLogFileSize int64
}

// DefaultConfig 返回默认配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:             path,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		ValueLogFileSize: 64 << 20,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return ErrInvalidConfig
	}
	if c.GCInterval < 0 {
		return ErrInvalidConfig
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return ErrInvalidConfig
	}
	if c.ValueLogFileSize < 1<<20 {
		return ErrInvalidConfig
	}
	return nil
}

// EnsureDir 确保数据目录存在
func (c *Config) EnsureDir() error {
	if c.InMemory {
		return nil
	}
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	c.Path = abs
	return os.MkdirAll(c.Path, 0o755)
}
