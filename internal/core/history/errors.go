package history

import "errors"

var (
	// ErrHistoryFull 历史已满
	ErrHistoryFull = errors.New("writer history full")

	// ErrInvalidCapacity 容量非法
	ErrInvalidCapacity = errors.New("history capacity must be positive")
)
