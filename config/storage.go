package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// 只有 BACKUP 策略使用存储。数据目录结构：
//
//	${DataDir}/
//	└── discovery.db/       # BadgerDB 数据库
type StorageConfig struct {
	// DataDir 数据目录，空表示纯内存（重启后备份丢失）
	DataDir string `json:"data_dir,omitempty"`

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool `json:"sync_writes,omitempty"`

	// GCInterval 值日志 GC 间隔，0 表示不做 GC
	// 默认值: 10m
	GCInterval Duration `json:"gc_interval"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{GCInterval: Duration(10 * time.Minute)}
}

// Validate 验证存储配置
func (c StorageConfig) Validate() error {
	if c.GCInterval < 0 {
		return fmt.Errorf("storage: gc_interval cannot be negative")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c StorageConfig) DBPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "discovery.db")
}
