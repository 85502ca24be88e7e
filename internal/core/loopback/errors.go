package loopback

import "errors"

var (
	// ErrPortClosed 端口已离开网络
	ErrPortClosed = errors.New("loopback port closed")

	// ErrDuplicatePort 前缀已加入网络
	ErrDuplicatePort = errors.New("loopback port already joined")

	// ErrUnknownChannel 写者不是内置发现写者
	ErrUnknownChannel = errors.New("writer is not a builtin discovery writer")
)
