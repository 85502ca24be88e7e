package interfaces

import "time"

// TimedEvent 可重置的定时事件句柄
//
// Cancel 是尽力而为的：调用时若回调已经触发，回调仍可能执行一次。
// 回调应自行检查目标是否仍然有效。
type TimedEvent interface {
	// Cancel 取消事件
	Cancel()

	// Restart 以当前间隔重新计时
	Restart()

	// SetInterval 修改间隔并重新计时；已取消的事件保持取消
	SetInterval(d time.Duration)

	// Valid 事件是否仍有效（未取消）
	Valid() bool
}

// Scheduler 单线程反应器提供的定时器服务
//
// 同一 Scheduler 上的回调串行执行，不会并发。
type Scheduler interface {
	// Schedule 周期性事件，每次触发后自动重置
	Schedule(interval time.Duration, cb func()) TimedEvent

	// After 一次性事件
	After(d time.Duration, cb func()) TimedEvent

	// Now 返回调度器时钟的当前时间
	Now() time.Time
}
