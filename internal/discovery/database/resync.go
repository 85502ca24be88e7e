package database

import (
	"sort"

	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              晚加入者
// ============================================================================

// Resync 为新发现的对端准备需要补发的最新 ALIVE 变更
//
// 包含本地实体；服务器类策略还包含转发的远端实体（不含 peer 自身的实体）。
// 对端只被加入仍在等待确认的实体的相关集合；已完全确认的实体保持完全确认。
// 参与者变更排在端点变更之前。
func (db *DB) Resync(peer types.GUIDPrefix) []*types.DiscoveryChange {
	db.mu.Lock()
	defer db.mu.Unlock()

	pe, ok := db.participants[peer]
	if !ok || pe.local {
		return nil
	}
	if db.strategy == types.StrategyClient && !pe.proxy.IsServer {
		return nil
	}

	var parts, eps []*types.DiscoveryChange
	for prefix, pe := range db.participants {
		if db.resyncableLocked(&pe.record, prefix, peer) {
			parts = append(parts, pe.alive.Clone())
		}
	}
	for guid, ee := range db.endpoints {
		if db.resyncableLocked(&ee.record, guid.Prefix, peer) {
			eps = append(eps, ee.alive.Clone())
		}
	}
	bySubject := func(cs []*types.DiscoveryChange) {
		sort.Slice(cs, func(i, j int) bool {
			return cs[i].Subject.String() < cs[j].Subject.String()
		})
	}
	bySubject(parts)
	bySubject(eps)
	out := append(parts, eps...)

	for _, dc := range out {
		if st, ok := db.tracker.Get(dc.Subject); ok && st.Sequence == dc.Sequence && !st.Disposed {
			db.tracker.Extend(dc.Subject, peer)
		}
	}
	if len(out) > 0 {
		logger.Debug("为晚加入者补发", "peer", peer.ShortString(), "changes", len(out))
		db.reportLocked()
	}
	return out
}

func (db *DB) resyncableLocked(r *record, owner, peer types.GUIDPrefix) bool {
	if r.alive == nil || owner == peer {
		return false
	}
	if r.local {
		return r.announced
	}
	return db.strategy.IsServer()
}

// Reannounce 把历史中已不存在的 ALIVE 变更重新放入队列
//
// 不改变确认状态。
func (db *DB) Reannounce(changes []*types.DiscoveryChange) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, dc := range changes {
		target := changequeue.TargetFor(dc.Subject)
		db.queue.Push(changequeue.Entry{Change: dc, Target: target, Local: dc.Origin == db.local})
		db.reporter.ChangeEnqueued(target.String())
	}
	db.reportLocked()
}

// LocalAnnouncement 返回本地参与者最近一次 ALIVE 变更，尚未创建时返回 nil
func (db *DB) LocalAnnouncement() *types.DiscoveryChange {
	db.mu.Lock()
	defer db.mu.Unlock()

	pe, ok := db.participants[db.local]
	if !ok || pe.alive == nil {
		return nil
	}
	return pe.alive.Clone()
}
