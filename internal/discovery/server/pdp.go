package server

import (
	"github.com/dep2p/go-dds/internal/core/codec"
	"github.com/dep2p/go-dds/internal/core/loopback"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/internal/discovery/database"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              PDP
// ============================================================================

// PDP 参与者发现服务器
//
// 负责参与者级负载（租约、定位器、服务器标记）：周期宣告本地参与者，
// 收到任何参与者变更时为发送方续租。
type PDP struct {
	*builtin
}

var (
	_ pkgif.AckListener    = (*PDP)(nil)
	_ pkgif.ReaderListener = (*PDP)(nil)
)

// NewPDP 创建 PDP 并在 tr 上注册内置读写者
func NewPDP(db *database.DB, tr Transport, depth int, reporter metrics.Reporter) (*PDP, error) {
	b, err := newBuiltin(changequeue.TargetPDP, types.EntityIDPDPWriter, db, depth, reporter)
	if err != nil {
		return nil, err
	}
	p := &PDP{builtin: b}
	p.writer = tr.Writer(loopback.ChannelPDP, p)
	tr.Reader(loopback.ChannelPDP, p)
	return p, nil
}

// OnDataAvailable 实现 pkgif.ReaderListener
func (p *PDP) OnDataAvailable(from types.GUIDPrefix, cc *types.CacheChange) {
	if p.receive(from, cc) == nil {
		return
	}
	// 发送方仍然存活（可能是转发变更的服务器）
	p.db.RenewLease(from)
}

// Announce 尽力而为地广播本地参与者最新的 ALIVE
//
// 本地参与者尚未创建时返回 false。
func (p *PDP) Announce() bool {
	dc := p.db.LocalAnnouncement()
	if dc == nil {
		return false
	}
	cc, ok := p.history.Lookup(dc.Subject)
	if !ok || cc.SubjectSequence != dc.Sequence {
		cc = &types.CacheChange{
			Writer:          p.guid,
			Sequence:        p.history.LastSequence(),
			Kind:            dc.Kind,
			Subject:         dc.Subject,
			SubjectSequence: dc.Sequence,
			Payload:         codec.EncodeChange(dc),
		}
	}
	if err := p.writer.Announce(cc); err != nil {
		logger.Debug("参与者宣告失败", "error", err)
		return false
	}
	return true
}
