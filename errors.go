package dds

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 参与者未启动
	ErrNotStarted = errors.New("participant not started")

	// ErrAlreadyStarted 参与者已启动
	ErrAlreadyStarted = errors.New("participant already started")

	// ErrClosed 参与者已关闭
	ErrClosed = errors.New("participant closed")

	// ErrNoTopic 创建端点时未指定 Topic
	ErrNoTopic = errors.New("endpoint topic is empty")
)
