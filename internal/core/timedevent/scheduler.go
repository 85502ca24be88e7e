package timedevent

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/lib/log"
)

var logger = log.Logger("core/timedevent")

// idleWait 无事件时反应器的最长等待
const idleWait = time.Hour

// Scheduler 定时事件调度器
type Scheduler struct {
	clock clock.Clock

	mu     sync.Mutex
	queue  eventQueue
	nextID uint64

	// runMu 串行化回调执行
	runMu sync.Mutex

	wake    chan struct{}
	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ pkgif.Scheduler = (*Scheduler)(nil)

// New 创建调度器，clk 为 nil 时使用系统时钟
func New(clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clock: clk,
		wake:  make(chan struct{}, 1),
	}
}

// Clock 返回注入的时钟
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// Now 返回当前时间
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// ============================================================================
//                              事件注册
// ============================================================================

// Schedule 注册周期性事件
func (s *Scheduler) Schedule(interval time.Duration, cb func()) pkgif.TimedEvent {
	return s.add(interval, cb, true)
}

// After 注册一次性事件
func (s *Scheduler) After(d time.Duration, cb func()) pkgif.TimedEvent {
	return s.add(d, cb, false)
}

func (s *Scheduler) add(interval time.Duration, cb func(), periodic bool) *Event {
	if interval <= 0 {
		interval = time.Millisecond
	}

	s.mu.Lock()
	s.nextID++
	e := &Event{
		s:        s,
		id:       s.nextID,
		cb:       cb,
		interval: interval,
		periodic: periodic,
		deadline: s.clock.Now().Add(interval),
		index:    -1,
	}
	heap.Push(&s.queue, e)
	s.mu.Unlock()

	s.notify()
	return e
}

// Len 返回待触发事件数
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// ============================================================================
//                              执行
// ============================================================================

// RunDue 同步执行调用时刻已到期的事件，返回执行的回调数
//
// 周期事件在一轮内最多执行一次，回调耗时超过周期也不会使本轮无限延长。
// 反应器循环与测试共用此入口。回调内不得调用 RunDue。
func (s *Scheduler) RunDue() int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.clock.Now()
	ran := 0
	for {
		e := s.popDue(now)
		if e == nil {
			return ran
		}
		if e.cancelled.Load() {
			continue
		}
		s.invoke(e)
		ran++
	}
}

// popDue 弹出一个到期事件；周期事件在执行前重新入队
func (s *Scheduler) popDue(now time.Time) *Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 || s.queue[0].deadline.After(now) {
		return nil
	}

	e := heap.Pop(&s.queue).(*Event)
	if e.periodic && !e.cancelled.Load() {
		e.deadline = now.Add(e.interval)
		heap.Push(&s.queue, e)
	}
	return e
}

func (s *Scheduler) invoke(e *Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("定时事件回调崩溃", "event", e.id, "panic", r)
		}
	}()
	e.cb()
}

// nextDelay 距离下一个事件的等待时间
func (s *Scheduler) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return idleWait
	}
	d := s.queue[0].deadline.Sub(s.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动反应器 goroutine
func (s *Scheduler) Start(_ context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	// 不使用传入的 ctx：Fx OnStart 的 ctx 在返回后即被取消
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx)

	logger.Debug("定时事件反应器已启动")
	return nil
}

// Stop 停止反应器并等待其退出；已注册事件保留
func (s *Scheduler) Stop() error {
	if !s.started.CompareAndSwap(true, false) {
		return ErrNotStarted
	}
	s.cancel()
	<-s.done

	logger.Debug("定时事件反应器已停止")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	for ctx.Err() == nil {
		timer := s.clock.Timer(s.nextDelay())

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
			s.RunDue()
		}
	}
}
