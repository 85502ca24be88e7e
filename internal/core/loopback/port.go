package loopback

import (
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// Port 参与者在网络上的接入点
type Port struct {
	net    *Network
	prefix types.GUIDPrefix

	// 以下字段由 net.mu 保护
	readers  map[Channel]pkgif.ReaderListener
	acks     map[Channel]pkgif.AckListener
	released []heldAck
	closed   bool
}

// Prefix 返回端口前缀
func (p *Port) Prefix() types.GUIDPrefix {
	return p.prefix
}

// Writer 注册内置写者并返回其可靠投递协作者
func (p *Port) Writer(ch Channel, acks pkgif.AckListener) pkgif.ReliableWriter {
	p.net.mu.Lock()
	defer p.net.mu.Unlock()
	p.acks[ch] = acks
	return &writer{port: p, ch: ch}
}

// Reader 注册内置读者
func (p *Port) Reader(ch Channel, l pkgif.ReaderListener) {
	p.net.mu.Lock()
	defer p.net.mu.Unlock()
	p.readers[ch] = l
}

// Close 离开网络
func (p *Port) Close() error {
	p.net.Leave(p.prefix)
	return nil
}

// writer 实现 pkgif.ReliableWriter
type writer struct {
	port *Port
	ch   Channel
}

var _ pkgif.ReliableWriter = (*writer)(nil)

func (w *writer) check(cc *types.CacheChange) error {
	if w.port.closed {
		return ErrPortClosed
	}
	if ch, ok := ChannelOf(cc.Writer.Entity); !ok || ch != w.ch {
		return ErrUnknownChannel
	}
	return nil
}

// Publish 可靠发布给所有其他端口
func (w *writer) Publish(cc *types.CacheChange) error {
	n := w.port.net
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := w.check(cc); err != nil {
		return err
	}
	n.enqueueLocked(w.port.prefix, n.peersLocked(), cc, true)
	return nil
}

// Retransmit 可靠补发给指定端口
func (w *writer) Retransmit(cc *types.CacheChange, peers []types.GUIDPrefix) error {
	n := w.port.net
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := w.check(cc); err != nil {
		return err
	}
	n.enqueueLocked(w.port.prefix, peers, cc, true)
	return nil
}

// Withdraw 停止投递
func (w *writer) Withdraw(writer types.GUID, seq uint64) {
	n := w.port.net
	n.mu.Lock()
	defer n.mu.Unlock()
	n.withdrawLocked(writer, seq)
}

// Announce 尽力而为广播
func (w *writer) Announce(cc *types.CacheChange) error {
	n := w.port.net
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := w.check(cc); err != nil {
		return err
	}
	n.enqueueLocked(w.port.prefix, n.peersLocked(), cc, false)
	return nil
}

func (n *Network) peersLocked() []types.GUIDPrefix {
	out := make([]types.GUIDPrefix, 0, len(n.ports))
	for p := range n.ports {
		out = append(out, p)
	}
	sortPrefixes(out)
	return out
}
