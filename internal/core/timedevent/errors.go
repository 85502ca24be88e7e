package timedevent

import "errors"

var (
	// ErrAlreadyStarted 反应器已启动
	ErrAlreadyStarted = errors.New("timedevent: already started")

	// ErrNotStarted 反应器未启动
	ErrNotStarted = errors.New("timedevent: not started")
)
