// Package timedevent 实现定时事件调度器
//
// # 模块概述
//
// Scheduler 是单线程反应器：一个后台 goroutine 按截止时间顺序串行执行
// 所有回调，同一 Scheduler 上的两个回调永远不会并发。发现子系统用它驱动：
//   - 周期性参与者宣告
//   - 存活截止时间扫描
//   - 变更队列的定时刷新
//   - 未确认变更的退避重传
//
// # 时钟注入
//
// 时间源是注入的 clock.Clock（github.com/benbjohnson/clock）。测试中使用
// clock.NewMock()，不启动反应器，推进时间后调用 RunDue() 同步执行到期回调。
//
// # 取消语义
//
// Cancel 是尽力而为的：如果事件已被弹出、回调即将执行，回调仍会执行一次。
// 回调必须自行检查其目标是否已被销毁。
//
// # 使用示例
//
//	s := timedevent.New(clock.New())
//	_ = s.Start(ctx)
//	defer s.Stop()
//
//	ev := s.Schedule(time.Second, func() { flusher.Flush() })
//	ev.SetInterval(500 * time.Millisecond)
//	ev.Cancel()
package timedevent
