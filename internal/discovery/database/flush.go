package database

import (
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              刷新周期
// ============================================================================

// Drain 按到达顺序取出全部待刷新条目
func (db *DB) Drain() []changequeue.Entry {
	db.mu.Lock()
	defer db.mu.Unlock()

	entries := db.queue.Drain()
	for _, e := range entries {
		if !e.Local || e.Change.Kind != types.ChangeAlive {
			continue
		}
		if r := db.recordLocked(e.Change.Subject); r != nil {
			r.drained = r.announced
			r.announced = true
		}
	}
	db.reportLocked()
	return entries
}

// Requeue 把未能写入历史的条目按原顺序放回队首
func (db *DB) Requeue(entries []changequeue.Entry) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, e := range entries {
		if !e.Local || e.Change.Kind != types.ChangeAlive {
			continue
		}
		if r := db.recordLocked(e.Change.Subject); r != nil {
			r.announced = r.drained
		}
	}
	db.queue.PushFront(entries)
	db.reportLocked()
}

// QueueLen 队列长度
func (db *DB) QueueLen() int {
	return db.queue.Len()
}

// PendingFor 指定目标的待刷新条目数
func (db *DB) PendingFor(t changequeue.Target) int {
	return db.queue.PendingFor(t)
}

// PurgeCompleted 回收已销毁且完全确认的实体，返回被回收的 GUID
func (db *DB) PurgeCompleted() []types.GUID {
	db.mu.Lock()
	defer db.mu.Unlock()

	done := db.tracker.Collectable()
	for _, g := range done {
		db.tracker.Forget(g)
	}
	if len(done) > 0 {
		logger.Debug("回收已确认的销毁实体", "count", len(done))
		db.reportLocked()
	}
	return done
}

func (db *DB) recordLocked(guid types.GUID) *record {
	if guid.IsParticipant() {
		if pe, ok := db.participants[guid.Prefix]; ok {
			return &pe.record
		}
		return nil
	}
	if ee, ok := db.endpoints[guid]; ok {
		return &ee.record
	}
	return nil
}
