package loopback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type recorder struct {
	mu       sync.Mutex
	received []*types.CacheChange
	from     []types.GUIDPrefix
	acks     []types.GUIDPrefix
}

func (r *recorder) OnDataAvailable(from types.GUIDPrefix, cc *types.CacheChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, cc)
	r.from = append(r.from, from)
}

func (r *recorder) OnAcked(_ types.GUID, _ uint64, reader types.GUIDPrefix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, reader)
}

func (r *recorder) count() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received), len(r.acks)
}

type node struct {
	prefix types.GUIDPrefix
	port   *Port
	rec    *recorder
}

func (n *node) change(seq uint64) *types.CacheChange {
	return &types.CacheChange{
		Writer:   types.GUID{Prefix: n.prefix, Entity: types.EntityIDPDPWriter},
		Sequence: seq,
		Kind:     types.ChangeAlive,
		Subject:  types.ParticipantGUID(n.prefix),
	}
}

func join(t *testing.T, net *Network) *node {
	t.Helper()
	prefix := types.NewGUIDPrefix()
	port, err := net.Join(prefix)
	require.NoError(t, err)
	rec := &recorder{}
	port.Reader(ChannelPDP, rec)
	return &node{prefix: prefix, port: port, rec: rec}
}

// ============================================================================
//                              投递测试
// ============================================================================

func TestPublish_DeliversAndAcks(t *testing.T) {
	net := NewNetwork()
	a, b, c := join(t, net), join(t, net), join(t, net)
	w := a.port.Writer(ChannelPDP, a.rec)

	require.NoError(t, w.Publish(a.change(1)))
	require.NoError(t, w.Publish(a.change(2)))
	assert.Equal(t, 4, net.Pending())

	assert.Equal(t, 4, net.Pump(0))

	for _, n := range []*node{b, c} {
		got, _ := n.rec.count()
		assert.Equal(t, 2, got)
		assert.Equal(t, uint64(1), n.rec.received[0].Sequence)
		assert.Equal(t, uint64(2), n.rec.received[1].Sequence)
		assert.Equal(t, a.prefix, n.rec.from[0])
	}
	self, acks := a.rec.count()
	assert.Equal(t, 0, self)
	assert.Equal(t, 4, acks)
}

func TestAnnounce_NoAck(t *testing.T) {
	net := NewNetwork()
	a, b := join(t, net), join(t, net)
	w := a.port.Writer(ChannelPDP, a.rec)

	require.NoError(t, w.Announce(a.change(1)))
	net.Pump(0)

	got, _ := b.rec.count()
	assert.Equal(t, 1, got)
	_, acks := a.rec.count()
	assert.Equal(t, 0, acks)
}

func TestWrongChannel(t *testing.T) {
	net := NewNetwork()
	a := join(t, net)
	w := a.port.Writer(ChannelEDP, a.rec)
	assert.ErrorIs(t, w.Publish(a.change(1)), ErrUnknownChannel)
}

func TestDuplicateJoin(t *testing.T) {
	net := NewNetwork()
	a := join(t, net)
	_, err := net.Join(a.prefix)
	assert.ErrorIs(t, err, ErrDuplicatePort)
}

// ============================================================================
//                              故障注入测试
// ============================================================================

func TestPartitionAndRetransmit(t *testing.T) {
	net := NewNetwork()
	a, b := join(t, net), join(t, net)
	w := a.port.Writer(ChannelPDP, a.rec)

	net.Partition(a.prefix, b.prefix)
	assert.True(t, net.Partitioned(b.prefix, a.prefix))

	cc := a.change(1)
	require.NoError(t, w.Publish(cc))
	assert.Equal(t, 0, net.Pump(0))
	got, _ := b.rec.count()
	assert.Equal(t, 0, got)
	assert.Equal(t, 1, net.Stats().Dropped)

	net.Heal(a.prefix, b.prefix)
	require.NoError(t, w.Retransmit(cc, []types.GUIDPrefix{b.prefix}))
	assert.Equal(t, 1, net.Pump(0))
	_, acks := a.rec.count()
	assert.Equal(t, 1, acks)
}

func TestHoldAcks(t *testing.T) {
	net := NewNetwork()
	a, b := join(t, net), join(t, net)
	w := a.port.Writer(ChannelPDP, a.rec)

	net.HoldAcks(b.prefix, true)
	require.NoError(t, w.Publish(a.change(1)))
	net.Pump(0)

	got, _ := b.rec.count()
	assert.Equal(t, 1, got)
	_, acks := a.rec.count()
	assert.Equal(t, 0, acks)

	net.HoldAcks(b.prefix, false)
	net.Pump(0)
	_, acks = a.rec.count()
	assert.Equal(t, 1, acks)
}

func TestDropAndWithdraw(t *testing.T) {
	net := NewNetwork()
	a, b := join(t, net), join(t, net)
	w := a.port.Writer(ChannelPDP, a.rec)

	net.SetDrop(func(_, _ types.GUIDPrefix, cc *types.CacheChange) bool {
		return cc.Sequence == 1
	})
	require.NoError(t, w.Publish(a.change(1)))
	require.NoError(t, w.Publish(a.change(2)))
	w.Withdraw(a.change(2).Writer, 2)
	net.Pump(0)

	got, _ := b.rec.count()
	assert.Equal(t, 0, got)
	assert.Equal(t, 1, net.Stats().Dropped)
}

func TestLeave(t *testing.T) {
	net := NewNetwork()
	a, b := join(t, net), join(t, net)
	w := a.port.Writer(ChannelPDP, a.rec)

	require.NoError(t, w.Publish(a.change(1)))
	require.NoError(t, b.port.Close())
	assert.Equal(t, 0, net.Pending())
	assert.Len(t, net.Peers(), 1)

	require.NoError(t, a.port.Close())
	assert.ErrorIs(t, w.Publish(a.change(2)), ErrPortClosed)
}
