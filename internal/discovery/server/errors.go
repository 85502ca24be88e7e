package server

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid discovery server config")

	// ErrClosed 服务器已停止
	ErrClosed = errors.New("discovery server closed")

	// ErrNotStarted 服务器尚未启动
	ErrNotStarted = errors.New("discovery server not started")
)
