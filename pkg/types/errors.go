// Package types 定义 go-dds 公共类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              发现数据库错误
// ============================================================================

var (
	// ErrNotFound GUID 尚未被发现
	//
	// 这不是故障：调用方应理解为“尚未发现”。
	ErrNotFound = errors.New("guid not discovered")

	// ErrUnknownGUID 销毁未知 GUID（通常是消息乱序）
	ErrUnknownGUID = errors.New("dispose of unknown guid")

	// ErrDuplicateGUID GUID 已被其他种类的实体占用
	ErrDuplicateGUID = errors.New("guid already in use")

	// ErrStaleChange 变更序列号落后于已知状态
	ErrStaleChange = errors.New("stale discovery change")

	// ErrOrphanEndpoint 端点所属参与者未知
	ErrOrphanEndpoint = errors.New("endpoint owner not discovered")
)

// ============================================================================
//                              负载与资源错误
// ============================================================================

var (
	// ErrMalformedPayload 发现负载无法解析
	ErrMalformedPayload = errors.New("malformed discovery payload")

	// ErrRetryLater 历史已满且无可回收条目，稍后重试
	ErrRetryLater = errors.New("discovery history exhausted, retry later")

	// ErrInvalidProxy Proxy 字段不合法
	ErrInvalidProxy = errors.New("invalid proxy")
)
