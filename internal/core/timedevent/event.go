package timedevent

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// Event 可重置的定时事件
type Event struct {
	s        *Scheduler
	id       uint64
	cb       func()
	interval time.Duration
	periodic bool

	// 以下字段受 s.mu 保护
	deadline time.Time
	index    int

	cancelled atomic.Bool
}

// Cancel 取消事件（尽力而为）
func (e *Event) Cancel() {
	e.cancelled.Store(true)

	e.s.mu.Lock()
	if e.index >= 0 {
		heap.Remove(&e.s.queue, e.index)
	}
	e.s.mu.Unlock()
}

// Restart 以当前间隔重新计时；已取消的事件被重新激活
func (e *Event) Restart() {
	e.s.mu.Lock()
	e.cancelled.Store(false)
	e.deadline = e.s.clock.Now().Add(e.interval)
	if e.index >= 0 {
		heap.Fix(&e.s.queue, e.index)
	} else {
		heap.Push(&e.s.queue, e)
	}
	e.s.mu.Unlock()

	e.s.notify()
}

// SetInterval 修改间隔并重新计时；已取消的事件只更新间隔，保持取消
func (e *Event) SetInterval(d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	e.s.mu.Lock()
	e.interval = d
	e.s.mu.Unlock()

	if e.cancelled.Load() {
		return
	}
	e.Restart()
}

// Interval 返回当前间隔
func (e *Event) Interval() time.Duration {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.interval
}

// Valid 事件是否未被取消
func (e *Event) Valid() bool {
	return !e.cancelled.Load()
}
