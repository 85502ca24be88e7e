package server

import (
	"github.com/dep2p/go-dds/internal/core/loopback"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/internal/discovery/database"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// EDP 端点发现服务器
//
// 负责端点级负载（主题、类型、QoS），匹配关系由发现数据库维护。
type EDP struct {
	*builtin
}

var (
	_ pkgif.AckListener    = (*EDP)(nil)
	_ pkgif.ReaderListener = (*EDP)(nil)
)

// NewEDP 创建 EDP 并在 tr 上注册内置读写者
func NewEDP(db *database.DB, tr Transport, depth int, reporter metrics.Reporter) (*EDP, error) {
	b, err := newBuiltin(changequeue.TargetEDP, types.EntityIDEDPWriter, db, depth, reporter)
	if err != nil {
		return nil, err
	}
	e := &EDP{builtin: b}
	e.writer = tr.Writer(loopback.ChannelEDP, e)
	tr.Reader(loopback.ChannelEDP, e)
	return e, nil
}

// OnDataAvailable 实现 pkgif.ReaderListener
func (e *EDP) OnDataAvailable(from types.GUIDPrefix, cc *types.CacheChange) {
	e.receive(from, cc)
}
