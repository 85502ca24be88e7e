package server

import (
	"errors"

	"github.com/dep2p/go-dds/internal/core/codec"
	"github.com/dep2p/go-dds/internal/core/history"
	"github.com/dep2p/go-dds/internal/core/loopback"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/internal/discovery/database"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// Transport 为内置发现通道提供可靠投递协作者
//
// loopback.Port 是仓库内的实现。
type Transport interface {
	// Writer 注册内置写者，acks 接收对端确认
	Writer(ch loopback.Channel, acks pkgif.AckListener) pkgif.ReliableWriter

	// Reader 注册内置读者
	Reader(ch loopback.Channel, l pkgif.ReaderListener)
}

// ============================================================================
//                              builtin 公共基础
// ============================================================================

// builtin PDP 与 EDP 共享的写者历史与投递协作者
type builtin struct {
	target   changequeue.Target
	guid     types.GUID
	db       *database.DB
	history  *history.WriterHistory
	writer   pkgif.ReliableWriter
	reporter metrics.Reporter

	// onNewPeer 读端回调发现新参与者时调用
	onNewPeer func(types.GUIDPrefix)
}

func newBuiltin(target changequeue.Target, entity types.EntityID, db *database.DB, depth int, reporter metrics.Reporter) (*builtin, error) {
	guid := types.GUID{Prefix: db.Local(), Entity: entity}
	h, err := history.New(guid, depth)
	if err != nil {
		return nil, err
	}
	return &builtin{
		target:   target,
		guid:     guid,
		db:       db,
		history:  h,
		reporter: reporter,
	}, nil
}

// GUID 返回内置写者 GUID
func (b *builtin) GUID() types.GUID {
	return b.guid
}

// History 返回写者历史
func (b *builtin) History() *history.WriterHistory {
	return b.history
}

// ============================================================================
//                              写端
// ============================================================================

// write 把一条发现变更写入历史并发布
//
// 历史已满时回收最旧的完全确认条目后重试一次。
func (b *builtin) write(dc *types.DiscoveryChange) error {
	payload := codec.EncodeChange(dc)
	added, superseded, err := b.history.Add(dc, payload)
	if errors.Is(err, history.ErrHistoryFull) {
		if ev := b.history.EvictOldest(b.evictable); ev != nil {
			b.writer.Withdraw(ev.Writer, ev.Sequence)
			logger.Debug("回收已确认的历史条目",
				"target", b.target,
				"subject", ev.Subject.ShortString(),
				"seq", ev.Sequence)
			added, superseded, err = b.history.Add(dc, payload)
		}
	}
	if err != nil {
		return err
	}
	if superseded != nil {
		b.writer.Withdraw(superseded.Writer, superseded.Sequence)
	}
	if err := b.writer.Publish(added); err != nil {
		// 变更已在历史中，由重传补发
		logger.Warn("发布发现变更失败", "target", b.target, "change", dc, "error", err)
	}
	return nil
}

// evictable 条目的实体已完全确认，且晚加入者的补发也已确认
func (b *builtin) evictable(cc *types.CacheChange) bool {
	return b.db.IsSettled(cc.Subject)
}

// admit 判断历史能否接收 subject 的新条目
//
// 已在历史中的主体复用其槽位；否则空闲槽位与可回收条目之和
// 必须多于已排队的条目。
func (b *builtin) admit(subject types.GUID) error {
	if _, ok := b.history.Lookup(subject); ok {
		return nil
	}
	room := b.history.Free()
	for _, cc := range b.history.Changes() {
		if b.evictable(cc) {
			room++
		}
	}
	if room-b.db.PendingFor(b.target) <= 0 {
		b.reporter.HistoryExhausted(b.target.String())
		return types.ErrRetryLater
	}
	return nil
}

// purge 从历史移除已回收实体的条目
func (b *builtin) purge(subject types.GUID) {
	if cc := b.history.RemoveSubject(subject); cc != nil {
		b.writer.Withdraw(cc.Writer, cc.Sequence)
	}
}

// retransmit 向未确认对端补发 subject 的第 seq 号变更
//
// 变更仍在队列中（尚未写入历史）时返回 false。
func (b *builtin) retransmit(subject types.GUID, seq uint64, peers []types.GUIDPrefix) bool {
	cc, ok := b.history.Lookup(subject)
	if !ok || cc.SubjectSequence != seq || len(peers) == 0 {
		return false
	}
	if err := b.writer.Retransmit(cc, peers); err != nil {
		logger.Debug("重传失败", "target", b.target, "subject", subject.ShortString(), "error", err)
		return false
	}
	b.reporter.Retransmitted(b.target.String(), len(peers))
	return true
}

// resync 向晚加入者补发 changes，返回历史中已不存在、需要重新入队的变更
func (b *builtin) resync(peer types.GUIDPrefix, changes []*types.DiscoveryChange) []*types.DiscoveryChange {
	var missing []*types.DiscoveryChange
	peers := []types.GUIDPrefix{peer}
	for _, dc := range changes {
		if !b.retransmit(dc.Subject, dc.Sequence, peers) {
			missing = append(missing, dc)
		}
	}
	return missing
}

// ============================================================================
//                              确认与读端
// ============================================================================

// OnAcked 实现 pkgif.AckListener
//
// 写者序列号映射回历史条目，确认记入该条目对应实体的变更。
func (b *builtin) OnAcked(writer types.GUID, seq uint64, reader types.GUIDPrefix) {
	if writer != b.guid {
		return
	}
	cc, ok := b.history.Get(seq)
	if !ok {
		return
	}
	b.db.Ack(cc.Subject, cc.SubjectSequence, reader)
}

// receive 解码并应用远端变更，返回解码结果（负载无效时为 nil）
func (b *builtin) receive(from types.GUIDPrefix, cc *types.CacheChange) *types.DiscoveryChange {
	dc, err := codec.DecodeChange(cc.Payload)
	if err == nil && changequeue.TargetFor(dc.Subject) != b.target {
		err = types.ErrMalformedPayload
	}
	if err != nil {
		b.malformed(from, err)
		return nil
	}
	b.reporter.ChangeReceived(b.target.String(), dc.Kind)

	newPeer := dc.IsParticipant() && dc.Kind == types.ChangeAlive && !b.db.IsKnownPeer(dc.Subject.Prefix)
	if _, err := b.db.ApplyChange(from, dc); err != nil {
		b.malformed(from, err)
		return nil
	}
	if newPeer && b.onNewPeer != nil && b.db.IsKnownPeer(dc.Subject.Prefix) {
		b.onNewPeer(dc.Subject.Prefix)
	}
	return dc
}

func (b *builtin) malformed(from types.GUIDPrefix, err error) {
	b.reporter.MalformedPayload(b.target.String())
	malformedLog.Warn("丢弃无法解析的发现负载",
		"target", b.target,
		"from", from.ShortString(),
		"error", err)
}
