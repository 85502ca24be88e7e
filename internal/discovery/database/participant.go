package database

import (
	"fmt"

	"github.com/dep2p/go-dds/internal/core/codec"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              参与者
// ============================================================================

// AddOrUpdateParticipant 记录参与者代理
//
// origin 等于本地前缀时视为本地参与者，序列号由数据库分配，seq 被忽略；
// 否则 seq 为远端变更的序列号。返回状态是否发生变化。
func (db *DB) AddOrUpdateParticipant(p *types.ParticipantProxy, origin types.GUIDPrefix, seq uint64) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.reportLocked()

	if origin == db.local {
		return db.putLocalParticipantLocked(p)
	}
	dc := &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  p.GUID,
		Origin:   origin,
		Sequence: seq,
		Payload:  codec.EncodeParticipant(p),
	}
	return db.putRemoteParticipantLocked(origin, p, dc)
}

func (db *DB) putLocalParticipantLocked(p *types.ParticipantProxy) (bool, error) {
	if p.Prefix() != db.local {
		return false, fmt.Errorf("%w: local participant %s does not match prefix %s",
			types.ErrInvalidProxy, p.GUID, db.local)
	}
	if db.tombstones.Contains(p.GUID) {
		return false, fmt.Errorf("%w: %s", types.ErrDuplicateGUID, p.GUID)
	}

	pe, exists := db.participants[db.local]
	if exists && pe.proxy.SameAnnouncement(p) {
		return false, nil
	}

	proxy := p.Clone()
	if exists {
		proxy.Endpoints = pe.proxy.Endpoints
	} else {
		pe = &participantEntry{record: record{local: true}}
		db.participants[db.local] = pe
	}
	pe.proxy = proxy
	pe.seq++
	pe.alive = &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  p.GUID,
		Origin:   db.local,
		Sequence: pe.seq,
		Payload:  codec.EncodeParticipant(proxy),
	}
	db.enqueueLocked(pe.alive.Clone(), true)

	db.pub.ParticipantDiscovered(proxy.Clone(), exists)
	logger.Debug("本地参与者已记录", "guid", p.GUID.ShortString(), "seq", pe.seq)
	return true, nil
}

func (db *DB) putRemoteParticipantLocked(from types.GUIDPrefix, p *types.ParticipantProxy, dc *types.DiscoveryChange) (bool, error) {
	prefix := p.Prefix()
	if prefix == db.local {
		return false, nil
	}
	if dc.Sequence == 0 || db.staleLocked(p.GUID, dc.Sequence) {
		return false, types.ErrStaleChange
	}

	now := db.clock.Now()
	pe, exists := db.participants[prefix]
	if exists {
		switch {
		case dc.Sequence < pe.seq:
			return false, types.ErrStaleChange
		case dc.Sequence == pe.seq:
			// 重复宣告只续租
			pe.proxy.Deadline = now.Add(pe.proxy.LeaseDuration)
			return false, nil
		}
	}

	proxy := p.Clone()
	proxy.Deadline = now.Add(proxy.LeaseDuration)
	if exists {
		proxy.Endpoints = pe.proxy.Endpoints
	} else {
		pe = &participantEntry{}
		db.participants[prefix] = pe
	}
	pe.proxy = proxy
	pe.seq = dc.Sequence
	pe.alive = dc.Clone()
	db.relayLocked(dc)

	db.pub.ParticipantDiscovered(proxy.Clone(), exists)
	if !exists {
		logger.Info("发现远端参与者",
			"local", db.local.ShortString(),
			"remote", prefix.ShortString(),
			"name", proxy.Name,
			"via", from.ShortString())
		db.adoptOrphansLocked(prefix)
	}
	return true, nil
}

// adoptOrphansLocked 应用先于参与者到达的端点变更
func (db *DB) adoptOrphansLocked(prefix types.GUIDPrefix) {
	for _, guid := range db.orphans.Keys() {
		if guid.Prefix != prefix {
			continue
		}
		o, ok := db.orphans.Peek(guid)
		db.orphans.Remove(guid)
		if !ok {
			continue
		}
		if _, err := db.applyLocked(o.from, o.change); err != nil {
			logger.Debug("暂存端点变更应用失败", "guid", guid.ShortString(), "error", err)
		}
	}
}

// RemoveParticipant 移除参与者
//
// 同一次加锁内：移除其拥有的全部端点、把该参与者从所有相关集合中
// 清除（视为隐式确认）、记录销毁。本地参与者移除时入队其 DISPOSED 变更，
// 服务器类策略移除远端参与者时向其他对端转发 DISPOSED。
func (db *DB) RemoveParticipant(prefix types.GUIDPrefix, reason types.RemovalReason) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.reportLocked()
	return db.removeParticipantLocked(prefix, reason, nil)
}

func (db *DB) removeParticipantLocked(prefix types.GUIDPrefix, reason types.RemovalReason, dc *types.DiscoveryChange) bool {
	pe, ok := db.participants[prefix]
	if !ok {
		logger.Debug("移除未知参与者", "prefix", prefix.ShortString(), "error", types.ErrUnknownGUID)
		return false
	}
	guid := pe.proxy.GUID

	for eguid := range pe.proxy.Endpoints {
		if ee, ok := db.endpoints[eguid]; ok {
			db.queue.CancelAlive(eguid)
			db.tracker.Forget(eguid)
			db.dropEndpointLocked(ee)
			db.tombstoneLocked(eguid, ee.seq)
		}
	}
	delete(db.participants, prefix)
	for _, g := range db.orphans.Keys() {
		if g.Prefix == prefix {
			db.orphans.Remove(g)
		}
	}

	completed := db.tracker.PurgePeer(prefix)

	switch {
	case pe.local:
		cancelled := db.queue.CancelAlive(guid)
		if cancelled > 0 && !pe.announced {
			db.tracker.Forget(guid)
			db.tombstoneLocked(guid, pe.seq)
			break
		}
		db.tombstoneLocked(guid, pe.seq+1)
		db.enqueueLocked(&types.DiscoveryChange{
			Kind:     types.ChangeDisposed,
			Subject:  guid,
			Origin:   db.local,
			Sequence: pe.seq + 1,
		}, true)
	case dc != nil:
		db.tracker.Forget(guid)
		db.tombstoneLocked(guid, dc.Sequence)
		db.relayLocked(dc)
	default:
		db.tracker.Forget(guid)
		db.tombstoneLocked(guid, pe.seq)
		db.relayLocked(&types.DiscoveryChange{
			Kind:     types.ChangeDisposed,
			Subject:  guid,
			Origin:   db.local,
			Sequence: pe.seq + 1,
		})
	}

	db.pub.ParticipantRemoved(guid, reason)
	logger.Info("参与者已移除",
		"local", db.local.ShortString(),
		"remote", prefix.ShortString(),
		"reason", reason,
		"completed", len(completed))
	return true
}

// RenewLease 续租远端参与者，返回参与者是否已知
func (db *DB) RenewLease(prefix types.GUIDPrefix) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	pe, ok := db.participants[prefix]
	if !ok || pe.local {
		return false
	}
	pe.proxy.Deadline = db.clock.Now().Add(pe.proxy.LeaseDuration)
	return true
}

// ExpireParticipants 移除租约已过期的远端参与者，返回被移除的前缀
//
// CLIENT 策略只检查服务器的租约，其他参与者的销毁由服务器转发。
func (db *DB) ExpireParticipants() []types.GUIDPrefix {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.reportLocked()

	now := db.clock.Now()
	var expired []types.GUIDPrefix
	for prefix, pe := range db.participants {
		if pe.local || (db.strategy == types.StrategyClient && !pe.proxy.IsServer) {
			continue
		}
		if now.After(pe.proxy.Deadline) {
			expired = append(expired, prefix)
		}
	}
	sortPrefixes(expired)
	for _, prefix := range expired {
		db.removeParticipantLocked(prefix, types.RemovedLeaseExpired, nil)
	}
	return expired
}
