package database

import (
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/discovery/ackstatus"
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/pkg/lib/log"
	"github.com/dep2p/go-dds/pkg/types"
)

var logger = log.Logger("discovery/database")

// ============================================================================
//                              记录
// ============================================================================

// record 代理之外的发现元数据
type record struct {
	// seq 最近一次应用的变更序列号
	seq uint64
	// alive 最近一次 ALIVE 变更（转发、备份使用）
	alive *types.DiscoveryChange
	local bool
	// announced 本地实体的 ALIVE 是否已被刷新取走过
	announced bool
	// drained Drain 之前的 announced，条目被放回队列时恢复
	drained bool
}

type participantEntry struct {
	record
	proxy *types.ParticipantProxy
}

type endpointEntry struct {
	record
	proxy *types.EndpointProxy
}

// orphan 所属参与者尚未发现的端点变更
type orphan struct {
	from   types.GUIDPrefix
	change *types.DiscoveryChange
}

// ============================================================================
//                              DB
// ============================================================================

// DB 发现数据库
type DB struct {
	mu sync.Mutex

	local    types.GUIDPrefix
	strategy types.Strategy
	clock    clock.Clock
	pub      *eventbus.Publisher
	reporter metrics.Reporter

	participants map[types.GUIDPrefix]*participantEntry
	endpoints    map[types.GUID]*endpointEntry

	tracker *ackstatus.Tracker
	queue   *changequeue.Queue

	// tombstones 最近销毁的实体及其最后序列号，防止迟到的 ALIVE 复活实体
	tombstones *lru.Cache[types.GUID, uint64]
	orphans    *lru.Cache[types.GUID, orphan]
}

// New 创建发现数据库
func New(local types.GUIDPrefix, cfg Config, opts ...Option) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tombstones, err := lru.New[types.GUID, uint64](cfg.TombstoneSize)
	if err != nil {
		return nil, err
	}
	orphans, err := lru.New[types.GUID, orphan](cfg.OrphanSize)
	if err != nil {
		return nil, err
	}

	db := &DB{
		local:        local,
		participants: make(map[types.GUIDPrefix]*participantEntry),
		endpoints:    make(map[types.GUID]*endpointEntry),
		tracker:      ackstatus.New(),
		queue:        changequeue.New(),
		tombstones:   tombstones,
		orphans:      orphans,
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.clock == nil {
		db.clock = clock.New()
	}
	if db.reporter == nil {
		db.reporter = metrics.Nop{}
	}
	return db, nil
}

// Local 返回本地参与者前缀
func (db *DB) Local() types.GUIDPrefix {
	return db.local
}

// Strategy 返回发现策略
func (db *DB) Strategy() types.Strategy {
	return db.strategy
}

// ============================================================================
//                              查询
// ============================================================================

// Lookup 查询 GUID 对应的代理副本
//
// 未发现返回 types.ErrNotFound，调用方应理解为“尚未发现”。
func (db *DB) Lookup(guid types.GUID) (types.Proxy, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if guid.IsParticipant() {
		if pe, ok := db.participants[guid.Prefix]; ok {
			return pe.proxy.Clone(), nil
		}
		return nil, types.ErrNotFound
	}
	if ee, ok := db.endpoints[guid]; ok {
		return ee.proxy.Clone(), nil
	}
	return nil, types.ErrNotFound
}

// IsFullyAcked 实体最新变更是否已被所有相关对端确认
//
// 已知但未被跟踪的实体（远端实体、已回收的销毁实体）没有待确认的变更，返回 true；
// 从未见过的 GUID 返回 false。
func (db *DB) IsFullyAcked(guid types.GUID) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if st, ok := db.tracker.Get(guid); ok {
		return st.FullyAcked()
	}
	if db.knownLocked(guid) {
		return true
	}
	return db.tombstones.Contains(guid)
}

// IsSettled 实体完全确认且向晚加入者的补发均已确认，历史条目可回收
func (db *DB) IsSettled(guid types.GUID) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if st, ok := db.tracker.Get(guid); ok {
		return st.Settled()
	}
	if db.knownLocked(guid) {
		return true
	}
	return db.tombstones.Contains(guid)
}

func (db *DB) knownLocked(guid types.GUID) bool {
	if guid.IsParticipant() {
		_, ok := db.participants[guid.Prefix]
		return ok
	}
	_, ok := db.endpoints[guid]
	return ok
}

// IsKnownPeer 前缀是否为已知远端参与者
func (db *DB) IsKnownPeer(prefix types.GUIDPrefix) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	pe, ok := db.participants[prefix]
	return ok && !pe.local
}

// Peers 返回已知的远端参与者前缀
func (db *DB) Peers() []types.GUIDPrefix {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]types.GUIDPrefix, 0, len(db.participants))
	for prefix, pe := range db.participants {
		if !pe.local {
			out = append(out, prefix)
		}
	}
	sortPrefixes(out)
	return out
}

// Participants 返回所有参与者代理副本（按 GUID 排序）
func (db *DB) Participants() []*types.ParticipantProxy {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.participantsLocked()
}

func (db *DB) participantsLocked() []*types.ParticipantProxy {
	out := make([]*types.ParticipantProxy, 0, len(db.participants))
	for _, pe := range db.participants {
		out = append(out, pe.proxy.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GUID.String() < out[j].GUID.String()
	})
	return out
}

// Endpoints 返回所有端点代理副本（按 GUID 排序）
func (db *DB) Endpoints() []*types.EndpointProxy {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.endpointsLocked()
}

func (db *DB) endpointsLocked() []*types.EndpointProxy {
	out := make([]*types.EndpointProxy, 0, len(db.endpoints))
	for _, ee := range db.endpoints {
		out = append(out, ee.proxy.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GUID.String() < out[j].GUID.String()
	})
	return out
}

// PendingAck 尚未完全确认的实体
type PendingAck struct {
	Subject  types.GUID
	Sequence uint64
	Disposed bool
	// Peers 尚未确认的相关对端
	Peers []types.GUIDPrefix
}

// Unacked 返回所有尚未完全确认的实体
func (db *DB) Unacked() []PendingAck {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.unackedLocked()
}

func (db *DB) unackedLocked() []PendingAck {
	sts := db.tracker.Unacked()
	out := make([]PendingAck, 0, len(sts))
	for _, st := range sts {
		out = append(out, PendingAck{
			Subject:  st.Subject,
			Sequence: st.Sequence,
			Disposed: st.Disposed,
			Peers:    st.Pending(),
		})
	}
	return out
}

// Snapshot 数据库一致性快照
type Snapshot struct {
	Local        types.GUIDPrefix
	Strategy     types.Strategy
	Participants []*types.ParticipantProxy
	Endpoints    []*types.EndpointProxy
	Pending      []PendingAck
	QueueLen     int
}

// Snapshot 在一次加锁内取得全部状态
func (db *DB) Snapshot() Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return Snapshot{
		Local:        db.local,
		Strategy:     db.strategy,
		Participants: db.participantsLocked(),
		Endpoints:    db.endpointsLocked(),
		Pending:      db.unackedLocked(),
		QueueLen:     db.queue.Len(),
	}
}

// ============================================================================
//                              内部辅助
// ============================================================================

// relevantLocked 返回 subject 当前的相关对端
//
// 相关对端为已知远端参与者，排除 subject 自身所属参与者；
// CLIENT 策略只以服务器为相关对端。
func (db *DB) relevantLocked(subject types.GUID) []types.GUIDPrefix {
	out := make([]types.GUIDPrefix, 0, len(db.participants))
	for prefix, pe := range db.participants {
		if pe.local || prefix == subject.Prefix {
			continue
		}
		if db.strategy == types.StrategyClient && !pe.proxy.IsServer {
			continue
		}
		out = append(out, prefix)
	}
	return out
}

// enqueueLocked 变更入队并进入 pending-acks 状态
func (db *DB) enqueueLocked(dc *types.DiscoveryChange, local bool) {
	target := changequeue.TargetFor(dc.Subject)
	db.queue.Push(changequeue.Entry{Change: dc, Target: target, Local: local})
	db.tracker.Track(dc.Subject, dc.Sequence, dc.Kind == types.ChangeDisposed, db.relevantLocked(dc.Subject))
	db.reporter.ChangeEnqueued(target.String())
}

// relayLocked 服务器类策略转发远端变更
func (db *DB) relayLocked(dc *types.DiscoveryChange) {
	if db.strategy.IsServer() {
		db.enqueueLocked(dc.Clone(), false)
	}
}

// tombstoneLocked 记住销毁实体
func (db *DB) tombstoneLocked(guid types.GUID, seq uint64) {
	db.tombstones.Add(guid, seq)
}

// staleLocked 序列号是否落后于已销毁实体
func (db *DB) staleLocked(guid types.GUID, seq uint64) bool {
	last, ok := db.tombstones.Peek(guid)
	return ok && seq <= last
}

// reportLocked 更新规模指标
func (db *DB) reportLocked() {
	db.reporter.SetDatabase(len(db.participants), len(db.endpoints), len(db.tracker.Unacked()), db.queue.Len())
}

func sortPrefixes(ps []types.GUIDPrefix) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].String() < ps[j].String()
	})
}
