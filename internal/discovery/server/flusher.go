package server

import (
	"sync"

	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/internal/discovery/database"
)

// ============================================================================
//                              Flusher
// ============================================================================

// Flusher 把变更队列刷新到 PDP/EDP 写者历史
//
// Flush 可以从任意 goroutine 调用，多次调用互斥执行。
type Flusher struct {
	mu sync.Mutex

	db       *database.DB
	pdp      *PDP
	edp      *EDP
	reporter metrics.Reporter
}

// NewFlusher 创建刷新器
func NewFlusher(db *database.DB, pdp *PDP, edp *EDP, reporter metrics.Reporter) *Flusher {
	if reporter == nil {
		reporter = metrics.Nop{}
	}
	return &Flusher{db: db, pdp: pdp, edp: edp, reporter: reporter}
}

func (f *Flusher) route(t changequeue.Target) *builtin {
	if t == changequeue.TargetPDP {
		return f.pdp.builtin
	}
	return f.edp.builtin
}

// Flush 执行一次刷新，返回写入历史的条目数
//
// 条目按到达顺序写入；某条目因历史耗尽无法写入时，该条目及其后所有
// 条目按原顺序放回队首，本次刷新停止。
func (f *Flusher) Flush() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.db.Drain()
	var pdpN, edpN int
	for i, e := range entries {
		if err := f.route(e.Target).write(e.Change); err != nil {
			f.db.Requeue(entries[i:])
			f.reporter.HistoryExhausted(e.Target.String())
			exhaustedLog.Warn("发现历史已满，剩余条目放回队列",
				"target", e.Target,
				"requeued", len(entries)-i,
				"error", err)
			break
		}
		if e.Target == changequeue.TargetPDP {
			pdpN++
		} else {
			edpN++
		}
	}
	if pdpN > 0 {
		f.reporter.ChangesFlushed(changequeue.TargetPDP.String(), pdpN)
	}
	if edpN > 0 {
		f.reporter.ChangesFlushed(changequeue.TargetEDP.String(), edpN)
	}

	for _, g := range f.db.PurgeCompleted() {
		f.route(changequeue.TargetFor(g)).purge(g)
	}
	return pdpN + edpN
}
