// Package eventbus 实现进程内发现事件总线
//
// 事件以指针类型订阅，以值类型发射：
//
//	sub, _ := bus.Subscribe(new(types.EvtParticipantDiscovered))
//	defer sub.Close()
//
//	for evt := range sub.Out() {
//	    e := evt.(types.EvtParticipantDiscovered)
//	    ...
//	}
//
// 发射永不阻塞：订阅者缓冲区满时事件被丢弃并按采样告警。
// Publisher 把发现数据库产生的五类事件绑定到同一总线。
package eventbus
