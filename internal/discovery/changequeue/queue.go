// Package changequeue 实现待传播发现变更的先进先出队列
//
// 队列把本地实体生命周期事件与可靠历史的插入顺序解耦：
// 刷新周期按到达顺序取出条目并插入对应 PDP/EDP 写者历史，
// 这一插入顺序就是远端观察到同一 GUID 变更的顺序。
package changequeue

import (
	"sync"

	"github.com/dep2p/go-dds/pkg/types"
)

// Target 条目的目标发现服务器
type Target uint8

const (
	// TargetPDP 参与者发现
	TargetPDP Target = iota + 1
	// TargetEDP 端点发现
	TargetEDP
)

// String 返回目标名称
func (t Target) String() string {
	switch t {
	case TargetPDP:
		return "pdp"
	case TargetEDP:
		return "edp"
	default:
		return "unknown"
	}
}

// TargetFor 根据变更主体选择目标
func TargetFor(subject types.GUID) Target {
	if subject.IsParticipant() {
		return TargetPDP
	}
	return TargetEDP
}

// Entry 队列条目，被一次刷新恰好消费一次
type Entry struct {
	Change *types.DiscoveryChange
	Target Target

	// Local 变更是否源自本地实体
	Local bool
}

// Queue 发现变更队列（无容量上限）
type Queue struct {
	mu      sync.Mutex
	entries []Entry
}

// New 创建队列
func New() *Queue {
	return &Queue{}
}

// Push 追加条目
func (q *Queue) Push(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, e)
}

// PushFront 将未能处理的条目按原顺序放回队首
func (q *Queue) PushFront(es []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(es) == 0 {
		return
	}
	merged := make([]Entry, 0, len(es)+len(q.entries))
	merged = append(merged, es...)
	merged = append(merged, q.entries...)
	q.entries = merged
}

// Drain 按到达顺序取出全部条目
func (q *Queue) Drain() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.entries
	q.entries = nil
	return out
}

// CancelAlive 移除 subject 尚未刷新的 ALIVE 条目，返回移除数量
func (q *Queue) CancelAlive(subject types.GUID) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if e.Change.Subject == subject && e.Change.Kind == types.ChangeAlive {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = Entry{}
	}
	q.entries = kept
	return removed
}

// Contains 队列中是否有 subject 的条目
func (q *Queue) Contains(subject types.GUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.Change.Subject == subject {
			return true
		}
	}
	return false
}

// PendingFor 返回指定目标的待刷新条目数
func (q *Queue) PendingFor(t Target) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.Target == t {
			n++
		}
	}
	return n
}

// Len 返回条目数
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}
