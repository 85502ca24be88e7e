package database

import "errors"

// ErrInvalidConfig 无效配置
var ErrInvalidConfig = errors.New("discovery database: invalid config")
