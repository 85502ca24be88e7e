// Package engine 定义存储引擎的内部接口
//
// InternalEngine 在 pkg/interfaces.Engine 之上补充批量写入与前缀遍历，
// 供发现数据库的持久化备份使用。所有实现必须并发安全。
package engine

import (
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

// InternalEngine 内部扩展接口
type InternalEngine interface {
	pkgif.Engine

	// NewBatch 创建批量写入对象
	NewBatch() Batch

	// Iterate 按键序遍历具有 prefix 前缀的键值对
	//
	// fn 收到的切片仅在回调期间有效；fn 返回错误时遍历终止并返回该错误。
	Iterate(prefix []byte, fn func(key, value []byte) error) error

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Sync 同步数据到磁盘
	Sync() error
}

// Batch 批量写入，非并发安全
type Batch interface {
	// Put 添加写入操作
	Put(key, value []byte)

	// Delete 添加删除操作
	Delete(key []byte)

	// Write 原子提交所有操作
	Write() error

	// Size 返回操作数量
	Size() int

	// Close 放弃未提交的操作
	Close() error
}
