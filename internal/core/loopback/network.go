package loopback

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/lib/log"
	"github.com/dep2p/go-dds/pkg/types"
)

var logger = log.Logger("core/loopback")

// Channel 内置发现通道
type Channel uint8

const (
	// ChannelPDP 参与者发现通道
	ChannelPDP Channel = iota + 1
	// ChannelEDP 端点发现通道
	ChannelEDP
)

// ChannelOf 根据内置写者实体返回通道
func ChannelOf(writer types.EntityID) (Channel, bool) {
	switch writer {
	case types.EntityIDPDPWriter:
		return ChannelPDP, true
	case types.EntityIDEDPWriter:
		return ChannelEDP, true
	default:
		return 0, false
	}
}

// DropFunc 丢包判定，返回 true 时丢弃该次投递
type DropFunc func(from, to types.GUIDPrefix, cc *types.CacheChange) bool

type pair struct {
	a, b types.GUIDPrefix
}

func orderedPair(a, b types.GUIDPrefix) pair {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return pair{a: a, b: b}
}

func sortPrefixes(ps []types.GUIDPrefix) {
	slices.SortFunc(ps, func(a, b types.GUIDPrefix) int {
		return bytes.Compare(a[:], b[:])
	})
}

type delivery struct {
	from     types.GUIDPrefix
	to       types.GUIDPrefix
	change   *types.CacheChange
	reliable bool
}

type heldAck struct {
	writerPort types.GUIDPrefix
	writer     types.GUID
	seq        uint64
}

// Stats 网络统计
type Stats struct {
	Delivered int
	Dropped   int
	Acked     int
	Pending   int
}

// Network 进程内投递网络
type Network struct {
	mu sync.Mutex

	ports      map[types.GUIDPrefix]*Port
	queue      []delivery
	partitions map[pair]struct{}
	holdAcks   map[types.GUIDPrefix][]heldAck
	drop       DropFunc

	stats Stats

	// pumpMu 串行化 Pump，保证投递顺序
	pumpMu sync.Mutex
}

// NewNetwork 创建网络
func NewNetwork() *Network {
	return &Network{
		ports:      make(map[types.GUIDPrefix]*Port),
		partitions: make(map[pair]struct{}),
		holdAcks:   make(map[types.GUIDPrefix][]heldAck),
	}
}

// Join 以 prefix 加入网络
func (n *Network) Join(prefix types.GUIDPrefix) (*Port, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.ports[prefix]; ok {
		return nil, ErrDuplicatePort
	}
	p := &Port{
		net:     n,
		prefix:  prefix,
		readers: make(map[Channel]pkgif.ReaderListener),
		acks:    make(map[Channel]pkgif.AckListener),
	}
	n.ports[prefix] = p
	logger.Debug("端口加入网络", "prefix", prefix.ShortString())
	return p, nil
}

// Leave 端口离开网络（模拟崩溃：不发送任何告别消息）
func (n *Network) Leave(prefix types.GUIDPrefix) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, ok := n.ports[prefix]
	if !ok {
		return
	}
	p.closed = true
	delete(n.ports, prefix)
	delete(n.holdAcks, prefix)

	kept := n.queue[:0]
	for _, d := range n.queue {
		if d.from != prefix && d.to != prefix {
			kept = append(kept, d)
		}
	}
	n.queue = kept
	logger.Debug("端口离开网络", "prefix", prefix.ShortString())
}

// Peers 返回当前在网的前缀
func (n *Network) Peers() []types.GUIDPrefix {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peersLocked()
}

// Partition 切断 a 与 b 之间的双向投递
func (n *Network) Partition(a, b types.GUIDPrefix) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partitions[orderedPair(a, b)] = struct{}{}
}

// Heal 恢复 a 与 b 之间的投递
func (n *Network) Heal(a, b types.GUIDPrefix) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.partitions, orderedPair(a, b))
}

// Partitioned a 与 b 是否被切断
func (n *Network) Partitioned(a, b types.GUIDPrefix) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.partitions[orderedPair(a, b)]
	return ok
}

// HoldAcks 开启或关闭对 reader 所发确认的扣留
//
// 关闭时被扣留的确认在下一次 Pump 中补发。
func (n *Network) HoldAcks(reader types.GUIDPrefix, hold bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if hold {
		if _, ok := n.holdAcks[reader]; !ok {
			n.holdAcks[reader] = nil
		}
		return
	}
	held, ok := n.holdAcks[reader]
	if !ok {
		return
	}
	delete(n.holdAcks, reader)
	if p, ok := n.ports[reader]; ok {
		p.released = append(p.released, held...)
	}
}

// SetDrop 设置丢包判定，nil 表示不丢包
func (n *Network) SetDrop(fn DropFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drop = fn
}

// Stats 返回统计快照
func (n *Network) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.stats
	s.Pending = len(n.queue)
	return s
}

// Pending 队列中待投递的消息数
func (n *Network) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// Pump 投递队列中的消息直到队列为空，返回投递次数
//
// 投递回调可能产生新消息（转发、确认触发的发布），这些消息在同一次
// Pump 中继续投递。maxRounds 限制轮数，避免转发环路无限循环，
// 小于等于 0 表示使用默认值 64。
func (n *Network) Pump(maxRounds int) int {
	if maxRounds <= 0 {
		maxRounds = 64
	}
	n.pumpMu.Lock()
	defer n.pumpMu.Unlock()

	delivered := 0
	for round := 0; round < maxRounds; round++ {
		batch, acks := n.take()
		if len(batch) == 0 && len(acks) == 0 {
			break
		}
		for _, a := range acks {
			a()
		}
		for _, d := range batch {
			if n.deliver(d) {
				delivered++
			}
		}
	}
	return delivered
}

// Run 以 interval 周期泵送，直到 ctx 结束
func (n *Network) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Pump(0)
		}
	}
}

// take 取出当前队列与已释放的确认
func (n *Network) take() ([]delivery, []func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	batch := n.queue
	n.queue = nil

	var acks []func()
	for _, p := range n.ports {
		for _, h := range p.released {
			if fn := n.ackFuncLocked(h, p.prefix); fn != nil {
				acks = append(acks, fn)
			}
		}
		p.released = nil
	}
	return batch, acks
}

// deliver 投递一条消息，返回是否送达
func (n *Network) deliver(d delivery) bool {
	ch, ok := ChannelOf(d.change.Writer.Entity)
	if !ok {
		return false
	}

	n.mu.Lock()
	to, ok := n.ports[d.to]
	_, cut := n.partitions[orderedPair(d.from, d.to)]
	dropped := n.drop != nil && n.drop(d.from, d.to, d.change)
	if !ok || cut || dropped {
		n.stats.Dropped++
		n.mu.Unlock()
		return false
	}
	reader := to.readers[ch]
	n.stats.Delivered++
	n.mu.Unlock()

	if reader != nil {
		reader.OnDataAvailable(d.from, d.change)
	}
	if !d.reliable {
		return true
	}

	h := heldAck{writerPort: d.from, writer: d.change.Writer, seq: d.change.Sequence}
	n.mu.Lock()
	if held, hold := n.holdAcks[d.to]; hold {
		n.holdAcks[d.to] = append(held, h)
		n.mu.Unlock()
		return true
	}
	_, cut = n.partitions[orderedPair(d.from, d.to)]
	var ack func()
	if !cut {
		ack = n.ackFuncLocked(h, d.to)
	}
	n.mu.Unlock()

	if ack != nil {
		ack()
	}
	return true
}

// ackFuncLocked 构造向写者回送确认的闭包，调用方持有 n.mu
func (n *Network) ackFuncLocked(h heldAck, reader types.GUIDPrefix) func() {
	wp, ok := n.ports[h.writerPort]
	if !ok {
		return nil
	}
	ch, ok := ChannelOf(h.writer.Entity)
	if !ok {
		return nil
	}
	l := wp.acks[ch]
	if l == nil {
		return nil
	}
	n.stats.Acked++
	return func() { l.OnAcked(h.writer, h.seq, reader) }
}

// enqueue 追加投递，调用方持有 n.mu
func (n *Network) enqueueLocked(from types.GUIDPrefix, to []types.GUIDPrefix, cc *types.CacheChange, reliable bool) {
	for _, p := range to {
		if p == from {
			continue
		}
		n.queue = append(n.queue, delivery{from: from, to: p, change: cc, reliable: reliable})
	}
}

// withdrawLocked 移除尚未投递的 writer/seq 消息，调用方持有 n.mu
func (n *Network) withdrawLocked(writer types.GUID, seq uint64) {
	kept := n.queue[:0]
	for _, d := range n.queue {
		if d.reliable && d.change.Writer == writer && d.change.Sequence == seq {
			continue
		}
		kept = append(kept, d)
	}
	n.queue = kept
}
