// Package interfaces 定义 go-dds 发现核心的外部契约
//
// 发现核心只决定哪些变更进入/离开写者与读者历史，
// 物理传输、重传与确认交换由外部协作者负责。
//
// # 消费的接口
//
//   - reliable.go   - ReliableWriter / ReaderListener / AckListener（可靠投递）
//   - scheduler.go  - Scheduler / TimedEvent（定时事件）
//   - storage.go    - Engine（BACKUP 策略持久化）
//
// # 暴露的接口
//
//   - discovery.go  - Discovery（查询与本地生命周期钩子）
//   - eventbus.go   - EventBus（发现事件订阅）
package interfaces
