package metrics

import "github.com/dep2p/go-dds/pkg/types"

// Reporter 发现层指标记录接口
type Reporter interface {
	// ChangeEnqueued 变更进入发现队列
	ChangeEnqueued(target string)

	// ChangesFlushed 一次刷新写入历史的条目数
	ChangesFlushed(target string, n int)

	// ChangeReceived 收到远端变更
	ChangeReceived(target string, kind types.ChangeKind)

	// MalformedPayload 丢弃无法解析的负载
	MalformedPayload(target string)

	// Retransmitted 向未确认对端补发
	Retransmitted(target string, peers int)

	// HistoryExhausted 历史耗尽导致条目被放回队列
	HistoryExhausted(target string)

	// SetDatabase 更新数据库规模
	SetDatabase(participants, endpoints, pendingAcks, queueLen int)
}

// Nop 不记录任何指标
type Nop struct{}

var _ Reporter = Nop{}

// ChangeEnqueued 实现 Reporter
func (Nop) ChangeEnqueued(string) {}

// ChangesFlushed 实现 Reporter
func (Nop) ChangesFlushed(string, int) {}

// ChangeReceived 实现 Reporter
func (Nop) ChangeReceived(string, types.ChangeKind) {}

// MalformedPayload 实现 Reporter
func (Nop) MalformedPayload(string) {}

// Retransmitted 实现 Reporter
func (Nop) Retransmitted(string, int) {}

// HistoryExhausted 实现 Reporter
func (Nop) HistoryExhausted(string) {}

// SetDatabase 实现 Reporter
func (Nop) SetDatabase(int, int, int, int) {}
