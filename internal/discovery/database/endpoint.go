package database

import (
	"fmt"

	"github.com/dep2p/go-dds/internal/core/codec"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              端点
// ============================================================================

// AddOrUpdateEndpoint 记录端点代理
//
// origin 等于本地前缀时视为本地端点，序列号由数据库分配；
// 所属参与者未知时返回 types.ErrOrphanEndpoint（远端端点被暂存，
// 待参与者被发现后自动应用）。
func (db *DB) AddOrUpdateEndpoint(e *types.EndpointProxy, origin types.GUIDPrefix, seq uint64) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.reportLocked()

	if origin == db.local {
		return db.putLocalEndpointLocked(e)
	}
	dc := &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  e.GUID,
		Origin:   origin,
		Sequence: seq,
		Topic:    e.Topic,
		Payload:  codec.EncodeEndpoint(e),
	}
	return db.putRemoteEndpointLocked(origin, e, dc)
}

func (db *DB) putLocalEndpointLocked(e *types.EndpointProxy) (bool, error) {
	if e.Participant() != db.local {
		return false, fmt.Errorf("%w: local endpoint %s does not belong to %s",
			types.ErrInvalidProxy, e.GUID, db.local)
	}
	owner, ok := db.participants[db.local]
	if !ok {
		return false, types.ErrOrphanEndpoint
	}
	if db.tombstones.Contains(e.GUID) {
		return false, fmt.Errorf("%w: %s", types.ErrDuplicateGUID, e.GUID)
	}

	ee, exists := db.endpoints[e.GUID]
	if exists && ee.proxy.SameAnnouncement(e) {
		return false, nil
	}
	if !exists {
		ee = &endpointEntry{record: record{local: true}}
	}
	ee.seq++
	ee.alive = &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  e.GUID,
		Origin:   db.local,
		Sequence: ee.seq,
		Topic:    e.Topic,
		Payload:  codec.EncodeEndpoint(e),
	}
	db.storeEndpointLocked(owner, ee, e)
	db.enqueueLocked(ee.alive.Clone(), true)

	db.pub.EndpointDiscovered(ee.proxy.Clone(), exists)
	logger.Debug("本地端点已记录", "guid", e.GUID.ShortString(), "topic", e.Topic, "seq", ee.seq)
	return true, nil
}

func (db *DB) putRemoteEndpointLocked(from types.GUIDPrefix, e *types.EndpointProxy, dc *types.DiscoveryChange) (bool, error) {
	if e.Participant() == db.local {
		return false, nil
	}
	if dc.Sequence == 0 || db.staleLocked(e.GUID, dc.Sequence) {
		return false, types.ErrStaleChange
	}

	owner, ok := db.participants[e.Participant()]
	if !ok {
		db.orphans.Add(e.GUID, orphan{from: from, change: dc.Clone()})
		return false, types.ErrOrphanEndpoint
	}

	ee, exists := db.endpoints[e.GUID]
	if exists {
		switch {
		case dc.Sequence < ee.seq:
			return false, types.ErrStaleChange
		case dc.Sequence == ee.seq:
			return false, nil
		}
	} else {
		ee = &endpointEntry{}
	}
	ee.seq = dc.Sequence
	ee.alive = dc.Clone()
	db.storeEndpointLocked(owner, ee, e)
	db.relayLocked(dc)

	db.pub.EndpointDiscovered(ee.proxy.Clone(), exists)
	if !exists {
		logger.Debug("发现远端端点",
			"local", db.local.ShortString(),
			"guid", e.GUID.ShortString(),
			"kind", e.Kind,
			"topic", e.Topic)
	}
	return true, nil
}

// storeEndpointLocked 写入代理并重新计算匹配
func (db *DB) storeEndpointLocked(owner *participantEntry, ee *endpointEntry, e *types.EndpointProxy) {
	proxy := e.Clone()
	if ee.proxy != nil {
		db.unmatchLocked(ee)
	}
	proxy.Matched = make(map[types.GUID]struct{})
	ee.proxy = proxy
	db.endpoints[e.GUID] = ee
	owner.proxy.Endpoints[e.GUID] = struct{}{}
	db.matchLocked(ee)
}

// matchLocked 与所有已知端点比较，建立匹配关系
func (db *DB) matchLocked(ee *endpointEntry) {
	for guid, other := range db.endpoints {
		if guid == ee.proxy.GUID || !ee.proxy.Matches(other.proxy) {
			continue
		}
		ee.proxy.Matched[guid] = struct{}{}
		other.proxy.Matched[ee.proxy.GUID] = struct{}{}
		db.publishMatchLocked(ee, other, true)
	}
}

// unmatchLocked 解除 ee 的全部匹配关系
func (db *DB) unmatchLocked(ee *endpointEntry) {
	for guid := range ee.proxy.Matched {
		other, ok := db.endpoints[guid]
		if !ok {
			continue
		}
		delete(other.proxy.Matched, ee.proxy.GUID)
		db.publishMatchLocked(ee, other, false)
	}
	ee.proxy.Matched = make(map[types.GUID]struct{})
}

func (db *DB) publishMatchLocked(a, b *endpointEntry, matched bool) {
	switch {
	case a.local:
		db.pub.EndpointMatched(a.proxy.GUID, b.proxy.GUID, matched)
	case b.local:
		db.pub.EndpointMatched(b.proxy.GUID, a.proxy.GUID, matched)
	}
}

// dropEndpointLocked 从数据库删除端点（不入队、不记录销毁）
func (db *DB) dropEndpointLocked(ee *endpointEntry) {
	guid := ee.proxy.GUID
	db.unmatchLocked(ee)
	delete(db.endpoints, guid)
	if owner, ok := db.participants[guid.Prefix]; ok {
		delete(owner.proxy.Endpoints, guid)
	}
	db.pub.EndpointRemoved(guid)
}

// RemoveEndpoint 移除端点
//
// 本地端点：若其 ALIVE 仍在队列中且从未被刷新，直接撤销该 ALIVE，
// 不产生任何变更；否则入队 DISPOSED。
// 远端端点：seq 为 DISPOSED 变更的序列号，过期或未知的销毁被忽略。
func (db *DB) RemoveEndpoint(guid types.GUID, origin types.GUIDPrefix, seq uint64) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.reportLocked()

	if origin == db.local {
		return db.removeLocalEndpointLocked(guid)
	}
	removed, _ := db.removeRemoteEndpointLocked(&types.DiscoveryChange{
		Kind:     types.ChangeDisposed,
		Subject:  guid,
		Origin:   origin,
		Sequence: seq,
	})
	return removed
}

func (db *DB) removeLocalEndpointLocked(guid types.GUID) bool {
	ee, ok := db.endpoints[guid]
	if !ok || !ee.local {
		logger.Debug("销毁未知本地端点", "guid", guid.ShortString())
		return false
	}
	db.dropEndpointLocked(ee)

	if db.queue.CancelAlive(guid) > 0 && !ee.announced {
		db.tracker.Forget(guid)
		db.tombstoneLocked(guid, ee.seq)
		logger.Debug("撤销未刷新的端点宣告", "guid", guid.ShortString())
		return true
	}

	seq := ee.seq + 1
	db.tombstoneLocked(guid, seq)
	db.enqueueLocked(&types.DiscoveryChange{
		Kind:     types.ChangeDisposed,
		Subject:  guid,
		Origin:   db.local,
		Sequence: seq,
		Topic:    ee.proxy.Topic,
	}, true)
	return true
}

func (db *DB) removeRemoteEndpointLocked(dc *types.DiscoveryChange) (bool, error) {
	guid := dc.Subject
	ee, ok := db.endpoints[guid]
	if !ok {
		db.orphans.Remove(guid)
		return false, types.ErrUnknownGUID
	}
	if ee.local {
		return false, nil
	}
	if dc.Sequence < ee.seq {
		return false, types.ErrStaleChange
	}

	db.dropEndpointLocked(ee)
	db.tracker.Forget(guid)
	db.tombstoneLocked(guid, dc.Sequence)
	db.relayLocked(dc)
	return true, nil
}
