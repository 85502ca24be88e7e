package config

import "fmt"

// DatabaseConfig 发现数据库配置
type DatabaseConfig struct {
	// TombstoneSize 记住最近销毁实体的数量上限
	// 默认值: 1024
	TombstoneSize int `json:"tombstone_size"`

	// OrphanSize 暂存所属参与者未知的端点变更的数量上限
	// 默认值: 256
	OrphanSize int `json:"orphan_size"`
}

// DefaultDatabaseConfig 返回默认的数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		TombstoneSize: 1024,
		OrphanSize:    256,
	}
}

// Validate 验证数据库配置
func (c DatabaseConfig) Validate() error {
	if c.TombstoneSize <= 0 || c.OrphanSize <= 0 {
		return fmt.Errorf("database: tombstone_size and orphan_size must be positive")
	}
	return nil
}
