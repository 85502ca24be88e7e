package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-dds/internal/core/codec"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/core/storage/kv"
	"github.com/dep2p/go-dds/internal/core/timedevent"
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/internal/discovery/database"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/lib/log"
	"github.com/dep2p/go-dds/pkg/types"
)

var logger = log.Logger("discovery/server")

var (
	// malformedLog 无效负载告警，每秒最多五条
	malformedLog = log.NewSampled(logger, time.Second, 5)
	// exhaustedLog 历史耗尽告警，每秒最多一条
	exhaustedLog = log.NewSampled(logger, time.Second, 1)
)

// ============================================================================
//                              Server
// ============================================================================

// Server 组合 PDP、EDP 与刷新周期
//
// Server 实现 pkgif.Discovery：本地实体生命周期事件写入发现数据库后
// 触发（限流的）立即刷新。
type Server struct {
	config   *Config
	db       *database.DB
	sched    pkgif.Scheduler
	reporter metrics.Reporter
	backup   *kv.Store

	pdp     *PDP
	edp     *EDP
	flusher *Flusher
	limiter *rate.Limiter

	mu       sync.Mutex
	events   []pkgif.TimedEvent
	ackEvent pkgif.TimedEvent

	// 以下字段只在调度器回调中访问
	backoff     *timedevent.Backoff
	ackInterval time.Duration

	started atomic.Bool
	closed  atomic.Bool
}

var _ pkgif.Discovery = (*Server)(nil)

// Option 构造选项
type Option func(*Server)

// WithReporter 设置指标
func WithReporter(r metrics.Reporter) Option {
	return func(s *Server) {
		s.reporter = r
	}
}

// WithBackup 设置 BACKUP 策略的持久化存储
//
// 其他策略下忽略。
func WithBackup(store *kv.Store) Option {
	return func(s *Server) {
		s.backup = store
	}
}

// New 创建发现服务器并在 tr 上注册 PDP/EDP 内置读写者
func New(db *database.DB, sched pkgif.Scheduler, tr Transport, cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config: cfg.Clone(),
		db:     db,
		sched:  sched,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = metrics.Nop{}
	}
	if db.Strategy() != types.StrategyBackup {
		s.backup = nil
	}

	pdp, err := NewPDP(db, tr, cfg.HistoryDepth, s.reporter)
	if err != nil {
		return nil, fmt.Errorf("create pdp: %w", err)
	}
	edp, err := NewEDP(db, tr, cfg.HistoryDepth, s.reporter)
	if err != nil {
		return nil, fmt.Errorf("create edp: %w", err)
	}
	pdp.onNewPeer = s.onNewPeer
	edp.onNewPeer = s.onNewPeer

	s.pdp = pdp
	s.edp = edp
	s.flusher = NewFlusher(db, pdp, edp, s.reporter)
	s.limiter = rate.NewLimiter(rate.Limit(cfg.FlushRate), cfg.FlushBurst)
	s.backoff = timedevent.NewBackoff(cfg.AckRetryBase, cfg.AckRetryMax)
	s.ackInterval = cfg.AckRetryBase
	return s, nil
}

// DB 返回发现数据库
func (s *Server) DB() *database.DB {
	return s.db
}

// PDP 返回参与者发现服务器
func (s *Server) PDP() *PDP {
	return s.pdp
}

// EDP 返回端点发现服务器
func (s *Server) EDP() *EDP {
	return s.edp
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 恢复备份并注册定时事件
func (s *Server) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	if s.backup != nil {
		if n, err := s.restoreBackup(); err != nil {
			logger.Warn("恢复发现备份失败", "error", err)
		} else if n > 0 {
			logger.Info("已恢复发现备份", "records", n)
		}
	}

	cfg := s.config
	s.mu.Lock()
	s.events = append(s.events,
		s.sched.Schedule(cfg.FlushPeriod, s.periodicFlush),
		s.sched.Schedule(cfg.AnnouncePeriod, s.announce),
		s.sched.Schedule(cfg.LeaseCheckPeriod, s.checkLeases),
	)
	s.ackEvent = s.sched.Schedule(cfg.AckRetryBase, s.retryAcks)
	s.events = append(s.events, s.ackEvent)
	if s.backup != nil {
		s.events = append(s.events, s.sched.Schedule(cfg.BackupPeriod, s.periodicBackup))
	}
	s.mu.Unlock()

	logger.Info("发现服务器已启动",
		"local", s.db.Local().ShortString(),
		"strategy", s.db.Strategy())
	return nil
}

// Stop 取消定时事件；BACKUP 策略保存最后一次备份
func (s *Server) Stop() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	for _, e := range s.events {
		e.Cancel()
	}
	s.events = nil
	s.mu.Unlock()

	if s.backup != nil && s.started.Load() {
		if err := s.saveBackup(); err != nil {
			return fmt.Errorf("save discovery backup: %w", err)
		}
	}
	logger.Info("发现服务器已停止", "local", s.db.Local().ShortString())
	return nil
}

// ============================================================================
//                              pkgif.Discovery
// ============================================================================

// Lookup 实现 pkgif.Discovery
func (s *Server) Lookup(guid types.GUID) (types.Proxy, error) {
	return s.db.Lookup(guid)
}

// IsFullyAcked 实现 pkgif.Discovery
func (s *Server) IsFullyAcked(guid types.GUID) bool {
	return s.db.IsFullyAcked(guid)
}

// OnLocalEntityCreated 记录本地实体并触发刷新
//
// 目标历史已满且没有可回收条目时返回 types.ErrRetryLater，状态不变。
func (s *Server) OnLocalEntityCreated(proxy types.Proxy) error {
	if s.closed.Load() {
		return ErrClosed
	}

	var err error
	switch p := proxy.(type) {
	case *types.ParticipantProxy:
		if err = s.pdp.admit(p.GUID); err == nil {
			_, err = s.db.AddOrUpdateParticipant(p, s.db.Local(), 0)
		}
	case *types.EndpointProxy:
		if err = s.edp.admit(p.GUID); err == nil {
			_, err = s.db.AddOrUpdateEndpoint(p, s.db.Local(), 0)
		}
	default:
		err = fmt.Errorf("%w: unsupported proxy %T", types.ErrInvalidProxy, proxy)
	}
	if err != nil {
		return err
	}
	s.triggerFlush()
	return nil
}

// OnLocalEntityDisposed 销毁本地实体并触发刷新
func (s *Server) OnLocalEntityDisposed(guid types.GUID) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if guid.Prefix != s.db.Local() {
		return fmt.Errorf("%w: %s is not a local entity", types.ErrInvalidProxy, guid)
	}

	var removed bool
	if guid.IsParticipant() {
		removed = s.db.RemoveParticipant(guid.Prefix, types.RemovedDisposed)
	} else {
		removed = s.db.RemoveEndpoint(guid, s.db.Local(), 0)
	}
	if !removed {
		return fmt.Errorf("%w: %s", types.ErrNotFound, guid)
	}
	s.triggerFlush()
	return nil
}

// ============================================================================
//                              刷新与重传
// ============================================================================

// Flush 立即执行一次刷新，返回写入历史的条目数
func (s *Server) Flush() int {
	return s.flusher.Flush()
}

// triggerFlush 限流的立即刷新，被限流时由周期刷新覆盖
func (s *Server) triggerFlush() {
	if s.limiter.AllowN(s.sched.Now(), 1) {
		s.flusher.Flush()
	}
}

// RetransmitPending 向未确认的相关对端补发历史中的变更，返回补发的变更数
func (s *Server) RetransmitPending() int {
	n := 0
	for _, p := range s.db.Unacked() {
		if s.route(p.Subject).retransmit(p.Subject, p.Sequence, p.Peers) {
			n++
		}
	}
	return n
}

func (s *Server) route(subject types.GUID) *builtin {
	return s.flusher.route(changequeue.TargetFor(subject))
}

// ============================================================================
//                              定时回调
// ============================================================================

// Stop 之后已出队的事件仍可能执行一次，回调先检查 closed

func (s *Server) periodicFlush() {
	if s.closed.Load() {
		return
	}
	s.Flush()
}

func (s *Server) announce() {
	if s.closed.Load() {
		return
	}
	s.pdp.Announce()
}

func (s *Server) periodicBackup() {
	if s.closed.Load() {
		return
	}
	if err := s.saveBackup(); err != nil {
		logger.Warn("保存发现备份失败", "error", err)
	}
}

// retryAcks 退避重传：有补发时间隔翻倍，全部确认后恢复基础间隔
func (s *Server) retryAcks() {
	if s.closed.Load() {
		return
	}
	if s.RetransmitPending() == 0 {
		s.backoff.Reset()
		if s.ackInterval != s.config.AckRetryBase {
			s.ackInterval = s.config.AckRetryBase
			s.ackEvent.SetInterval(s.ackInterval)
		}
		return
	}
	s.ackInterval = s.backoff.Next()
	s.ackEvent.SetInterval(s.ackInterval)
}

// checkLeases 移除租约过期的参与者
func (s *Server) checkLeases() {
	if s.closed.Load() {
		return
	}
	expired := s.db.ExpireParticipants()
	if len(expired) == 0 {
		return
	}
	logger.Info("参与者租约过期", "local", s.db.Local().ShortString(), "count", len(expired))
	s.triggerFlush()
}

// onNewPeer 向新发现的参与者补发本地（及转发的）实体
func (s *Server) onNewPeer(peer types.GUIDPrefix) {
	changes := s.db.Resync(peer)
	if len(changes) == 0 {
		return
	}
	var parts, eps []*types.DiscoveryChange
	for _, dc := range changes {
		if dc.IsParticipant() {
			parts = append(parts, dc)
		} else {
			eps = append(eps, dc)
		}
	}
	missing := append(s.pdp.resync(peer, parts), s.edp.resync(peer, eps)...)
	if len(missing) > 0 {
		s.db.Reannounce(missing)
		s.triggerFlush()
	}
}

// ============================================================================
//                              备份
// ============================================================================

// saveBackup 以数据库中远端实体的最新 ALIVE 替换存储内容
func (s *Server) saveBackup() error {
	records := s.db.Records()
	items := make(map[string][]byte, len(records))
	for _, dc := range records {
		items[string(dc.Subject.Bytes())] = codec.EncodeChange(dc)
	}
	return s.backup.Replace(items)
}

// restoreBackup 读取存储并恢复到数据库，返回恢复的记录数
func (s *Server) restoreBackup() (int, error) {
	var records []*types.DiscoveryChange
	err := s.backup.Iterate(func(_, v []byte) error {
		dc, err := codec.DecodeChange(v)
		if err != nil {
			logger.Warn("跳过无效的备份记录", "error", err)
			return nil
		}
		records = append(records, dc)
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].IsParticipant() && !records[j].IsParticipant()
	})
	return s.db.Restore(records), nil
}
