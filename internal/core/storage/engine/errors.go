package engine

import "errors"

var (
	// ErrNotFound 键不存在
	ErrNotFound = errors.New("storage: key not found")

	// ErrEmptyKey 空键
	ErrEmptyKey = errors.New("storage: empty key")

	// ErrClosed 引擎已关闭
	ErrClosed = errors.New("storage: engine closed")

	// ErrBatchClosed 批量对象已关闭
	ErrBatchClosed = errors.New("storage: batch closed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("storage: invalid config")
)

// IsNotFound 检查是否为键不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
