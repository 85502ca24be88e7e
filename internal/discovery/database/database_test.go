package database

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/internal/core/codec"
	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/internal/discovery/changequeue"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

const lease = 10 * time.Second

func newDB(t *testing.T, opts ...Option) (*DB, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	opts = append([]Option{WithClock(mock)}, opts...)
	db, err := New(types.NewGUIDPrefix(), DefaultConfig(), opts...)
	require.NoError(t, err)
	return db, mock
}

func participant(prefix types.GUIDPrefix) *types.ParticipantProxy {
	return &types.ParticipantProxy{
		GUID:          types.ParticipantGUID(prefix),
		Name:          "p-" + prefix.ShortString(),
		LeaseDuration: lease,
	}
}

func endpoint(prefix types.GUIDPrefix, key uint32, kind types.EndpointKind, topic string) *types.EndpointProxy {
	return &types.EndpointProxy{
		GUID:     types.GUID{Prefix: prefix, Entity: types.NewEntityID(key, kind.EntityKind())},
		Kind:     kind,
		Topic:    topic,
		TypeName: "T",
	}
}

func addLocal(t *testing.T, db *DB) {
	t.Helper()
	changed, err := db.AddOrUpdateParticipant(participant(db.Local()), db.Local(), 0)
	require.NoError(t, err)
	require.True(t, changed)
}

func addRemote(t *testing.T, db *DB, prefix types.GUIDPrefix) {
	t.Helper()
	changed, err := db.AddOrUpdateParticipant(participant(prefix), prefix, 1)
	require.NoError(t, err)
	require.True(t, changed)
}

func kinds(entries []changequeue.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Change.String()
	}
	return out
}

// ============================================================================
//                              基础操作
// ============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(types.NewGUIDPrefix(), Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLocalEntities_Enqueue(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)

	w := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	changed, err := db.AddOrUpdateEndpoint(w, db.Local(), 0)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := db.Lookup(w.GUID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.(*types.EndpointProxy).Topic)

	p, err := db.Lookup(types.ParticipantGUID(db.Local()))
	require.NoError(t, err)
	assert.Contains(t, p.(*types.ParticipantProxy).Endpoints, w.GUID)

	assert.Equal(t, 1, db.PendingFor(changequeue.TargetPDP))
	assert.Equal(t, 1, db.PendingFor(changequeue.TargetEDP))

	entries := db.Drain()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Change.IsParticipant())
	assert.Equal(t, uint64(1), entries[1].Change.Sequence)
	assert.True(t, entries[1].Local)

	decoded, err := codec.DecodeEndpoint(entries[1].Change.Payload)
	require.NoError(t, err)
	assert.True(t, w.SameAnnouncement(decoded))
}

func TestLookup_NotFound(t *testing.T) {
	db, _ := newDB(t)
	_, err := db.Lookup(types.ParticipantGUID(types.NewGUIDPrefix()))
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.False(t, db.IsFullyAcked(types.ParticipantGUID(types.NewGUIDPrefix())))
}

func TestLocalEndpoint_Validation(t *testing.T) {
	db, _ := newDB(t)

	w := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(w, db.Local(), 0)
	assert.ErrorIs(t, err, types.ErrOrphanEndpoint)

	addLocal(t, db)
	foreign := endpoint(types.NewGUIDPrefix(), 1, types.EndpointWriter, "T")
	_, err = db.AddOrUpdateEndpoint(foreign, db.Local(), 0)
	assert.ErrorIs(t, err, types.ErrInvalidProxy)

	bad := endpoint(db.Local(), 2, types.EndpointWriter, "")
	_, err = db.AddOrUpdateEndpoint(bad, db.Local(), 0)
	assert.ErrorIs(t, err, types.ErrInvalidProxy)
}

// TestDuplicateAnnouncement 重复宣告是幂等的
func TestDuplicateAnnouncement(t *testing.T) {
	db, mock := newDB(t)
	addLocal(t, db)

	changed, err := db.AddOrUpdateParticipant(participant(db.Local()), db.Local(), 0)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, db.QueueLen())

	remote := types.NewGUIDPrefix()
	addRemote(t, db, remote)
	mock.Add(lease / 2)

	changed, err = db.AddOrUpdateParticipant(participant(remote), remote, 1)
	require.NoError(t, err)
	assert.False(t, changed)

	// 重复宣告续租
	p, err := db.Lookup(types.ParticipantGUID(remote))
	require.NoError(t, err)
	assert.Equal(t, mock.Now().Add(lease), p.(*types.ParticipantProxy).Deadline)
}

// TestStaleAndTombstone 过期变更被忽略，已销毁实体不会被迟到的 ALIVE 复活
func TestStaleAndTombstone(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)
	remote := types.NewGUIDPrefix()
	addRemote(t, db, remote)

	r := endpoint(remote, 1, types.EndpointReader, "T")
	_, err := db.AddOrUpdateEndpoint(r, remote, 3)
	require.NoError(t, err)

	_, err = db.AddOrUpdateEndpoint(r, remote, 2)
	assert.ErrorIs(t, err, types.ErrStaleChange)

	assert.True(t, db.RemoveEndpoint(r.GUID, remote, 4))
	_, err = db.Lookup(r.GUID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = db.AddOrUpdateEndpoint(r, remote, 3)
	assert.ErrorIs(t, err, types.ErrStaleChange)
	_, err = db.Lookup(r.GUID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUnknownDisposeIgnored(t *testing.T) {
	db, _ := newDB(t)
	remote := types.NewGUIDPrefix()

	applied, err := db.ApplyChange(remote, &types.DiscoveryChange{
		Kind:     types.ChangeDisposed,
		Subject:  types.GUID{Prefix: remote, Entity: types.NewEntityID(9, types.EntityKindWriter)},
		Origin:   remote,
		Sequence: 2,
	})
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, db.RemoveParticipant(remote, types.RemovedDisposed))
}

func TestApplyChange_Malformed(t *testing.T) {
	db, _ := newDB(t)
	remote := types.NewGUIDPrefix()

	_, err := db.ApplyChange(remote, &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  types.ParticipantGUID(remote),
		Origin:   remote,
		Sequence: 1,
		Payload:  []byte{0xff, 0xff},
	})
	assert.ErrorIs(t, err, types.ErrMalformedPayload)
	assert.Empty(t, db.Peers())
}

// TestApplyChange_MalformedIsNotAck 无法解析的负载不计入确认，零租约被拒绝
func TestApplyChange_MalformedIsNotAck(t *testing.T) {
	db, _ := newDB(t, WithStrategy(types.StrategyServer))
	y, z := types.NewGUIDPrefix(), types.NewGUIDPrefix()
	addRemote(t, db, z)
	addRemote(t, db, y)

	pguid := types.ParticipantGUID(y)
	require.False(t, db.IsFullyAcked(pguid))

	bad := participant(y)
	bad.LeaseDuration = 0
	_, err := db.ApplyChange(z, &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  pguid,
		Origin:   y,
		Sequence: 1,
		Payload:  codec.EncodeParticipant(bad),
	})
	assert.ErrorIs(t, err, types.ErrMalformedPayload)
	assert.False(t, db.IsFullyAcked(pguid))

	p, err := db.Lookup(pguid)
	require.NoError(t, err)
	assert.Equal(t, lease, p.(*types.ParticipantProxy).LeaseDuration)

	_, err = db.ApplyChange(z, &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  pguid,
		Origin:   y,
		Sequence: 1,
		Payload:  codec.EncodeParticipant(participant(y)),
	})
	require.NoError(t, err)
	assert.True(t, db.IsFullyAcked(pguid))
}

// TestOrphanEndpointAdopted 先于参与者到达的端点在参与者被发现后生效
func TestOrphanEndpointAdopted(t *testing.T) {
	db, _ := newDB(t)
	remote := types.NewGUIDPrefix()
	w := endpoint(remote, 1, types.EndpointWriter, "T")

	applied, err := db.ApplyChange(remote, &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  w.GUID,
		Origin:   remote,
		Sequence: 1,
		Topic:    w.Topic,
		Payload:  codec.EncodeEndpoint(w),
	})
	require.NoError(t, err)
	assert.False(t, applied)
	_, err = db.Lookup(w.GUID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	addRemote(t, db, remote)
	_, err = db.Lookup(w.GUID)
	assert.NoError(t, err)
}

// ============================================================================
//                              匹配
// ============================================================================

func TestMatching(t *testing.T) {
	bus := eventbus.NewBus()
	pub, err := eventbus.NewPublisher(bus, nil)
	require.NoError(t, err)
	sub, err := bus.Subscribe(new(types.EvtEndpointMatched))
	require.NoError(t, err)
	defer sub.Close()

	db, _ := newDB(t, WithPublisher(pub))
	addLocal(t, db)
	remote := types.NewGUIDPrefix()
	addRemote(t, db, remote)

	w := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err = db.AddOrUpdateEndpoint(w, db.Local(), 0)
	require.NoError(t, err)

	r := endpoint(remote, 1, types.EndpointReader, "T")
	_, err = db.AddOrUpdateEndpoint(r, remote, 1)
	require.NoError(t, err)

	other := endpoint(remote, 2, types.EndpointReader, "Other")
	_, err = db.AddOrUpdateEndpoint(other, remote, 1)
	require.NoError(t, err)

	got, err := db.Lookup(w.GUID)
	require.NoError(t, err)
	assert.Equal(t, map[types.GUID]struct{}{r.GUID: {}}, got.(*types.EndpointProxy).Matched)

	evt := (<-sub.Out()).(types.EvtEndpointMatched)
	assert.Equal(t, w.GUID, evt.Local)
	assert.Equal(t, r.GUID, evt.Remote)
	assert.True(t, evt.Matched)

	assert.True(t, db.RemoveEndpoint(r.GUID, remote, 2))
	evt = (<-sub.Out()).(types.EvtEndpointMatched)
	assert.False(t, evt.Matched)

	got, err = db.Lookup(w.GUID)
	require.NoError(t, err)
	assert.Empty(t, got.(*types.EndpointProxy).Matched)
}

// ============================================================================
//                              确认状态
// ============================================================================

// TestAck_ExplicitAndImplicit 显式确认与收到变更时的隐式确认
func TestAck_ExplicitAndImplicit(t *testing.T) {
	db, _ := newDB(t)
	y, z := types.NewGUIDPrefix(), types.NewGUIDPrefix()
	addRemote(t, db, y)
	addRemote(t, db, z)
	addLocal(t, db)

	pguid := types.ParticipantGUID(db.Local())
	assert.False(t, db.IsFullyAcked(pguid))

	assert.False(t, db.Ack(pguid, 1, y))
	// 未知对端的确认被忽略
	assert.False(t, db.Ack(pguid, 1, types.NewGUIDPrefix()))
	assert.False(t, db.IsFullyAcked(pguid))

	// z 回送了我们的参与者变更（例如经服务器转发）
	_, err := db.ApplyChange(z, &types.DiscoveryChange{
		Kind:     types.ChangeAlive,
		Subject:  pguid,
		Origin:   db.Local(),
		Sequence: 1,
		Payload:  codec.EncodeParticipant(participant(db.Local())),
	})
	require.NoError(t, err)
	assert.True(t, db.IsFullyAcked(pguid))
	assert.Empty(t, db.Unacked())
}

// TestRemoveParticipant_PurgesAcks 移除对端与清理确认状态在同一事务中完成
func TestRemoveParticipant_PurgesAcks(t *testing.T) {
	db, _ := newDB(t)
	y, z := types.NewGUIDPrefix(), types.NewGUIDPrefix()
	addRemote(t, db, y)
	addRemote(t, db, z)
	addLocal(t, db)

	e := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(e, db.Local(), 0)
	require.NoError(t, err)

	yr := endpoint(y, 1, types.EndpointReader, "T")
	_, err = db.AddOrUpdateEndpoint(yr, y, 1)
	require.NoError(t, err)

	db.Ack(e.GUID, 1, z)
	assert.False(t, db.IsFullyAcked(e.GUID))

	require.True(t, db.RemoveParticipant(y, types.RemovedLeaseExpired))
	assert.True(t, db.IsFullyAcked(e.GUID))

	_, err = db.Lookup(yr.GUID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	got, err := db.Lookup(e.GUID)
	require.NoError(t, err)
	assert.Empty(t, got.(*types.EndpointProxy).Matched)

	for _, p := range db.Unacked() {
		assert.NotContains(t, p.Peers, y)
	}
}

func TestExpireParticipants(t *testing.T) {
	bus := eventbus.NewBus()
	pub, err := eventbus.NewPublisher(bus, nil)
	require.NoError(t, err)
	sub, err := bus.Subscribe(new(types.EvtParticipantRemoved))
	require.NoError(t, err)
	defer sub.Close()

	db, mock := newDB(t, WithPublisher(pub))
	addLocal(t, db)
	y, z := types.NewGUIDPrefix(), types.NewGUIDPrefix()
	addRemote(t, db, y)
	addRemote(t, db, z)

	mock.Add(lease - time.Second)
	assert.True(t, db.RenewLease(z))
	assert.False(t, db.RenewLease(db.Local()))
	assert.Empty(t, db.ExpireParticipants())

	mock.Add(2 * time.Second)
	assert.Equal(t, []types.GUIDPrefix{y}, db.ExpireParticipants())
	assert.Equal(t, []types.GUIDPrefix{z}, db.Peers())

	evt := (<-sub.Out()).(types.EvtParticipantRemoved)
	assert.Equal(t, types.ParticipantGUID(y), evt.GUID)
	assert.Equal(t, types.RemovedLeaseExpired, evt.Reason)
}

// ============================================================================
//                              撤销策略
// ============================================================================

// TestDispose_CancelsUnflushedAlive 未刷新的 ALIVE 被撤销，不产生任何变更
func TestDispose_CancelsUnflushedAlive(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)
	db.Drain()

	w := endpoint(db.Local(), 2, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(w, db.Local(), 0)
	require.NoError(t, err)
	require.True(t, db.RemoveEndpoint(w.GUID, db.Local(), 0))

	assert.Empty(t, db.Drain())
	assert.True(t, db.IsFullyAcked(w.GUID))
	_, err = db.Lookup(w.GUID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	// 同一 GUID 不可在本会话内复用
	_, err = db.AddOrUpdateEndpoint(w, db.Local(), 0)
	assert.ErrorIs(t, err, types.ErrDuplicateGUID)
}

// TestDispose_AfterFlush 已刷新的实体销毁时入队 DISPOSED
func TestDispose_AfterFlush(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)
	y := types.NewGUIDPrefix()
	addRemote(t, db, y)

	w := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(w, db.Local(), 0)
	require.NoError(t, err)
	assert.Len(t, db.Drain(), 2)

	// 更新仍在队列中时销毁：更新被撤销，DISPOSED 入队
	w2 := w.Clone()
	w2.QoS.Reliability = types.Reliable
	_, err = db.AddOrUpdateEndpoint(w2, db.Local(), 0)
	require.NoError(t, err)
	require.True(t, db.RemoveEndpoint(w.GUID, db.Local(), 0))

	entries := db.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, types.ChangeDisposed, entries[0].Change.Kind)
	assert.Equal(t, uint64(3), entries[0].Change.Sequence)

	assert.False(t, db.IsFullyAcked(w.GUID))
	assert.Empty(t, db.PurgeCompleted())
	db.Ack(w.GUID, 3, y)
	assert.Equal(t, []types.GUID{w.GUID}, db.PurgeCompleted())
	assert.True(t, db.IsFullyAcked(w.GUID))
}

// TestRemoveLocalParticipant 本地参与者销毁只入队参与者 DISPOSED
func TestRemoveLocalParticipant(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)
	w := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(w, db.Local(), 0)
	require.NoError(t, err)
	db.Drain()

	r := endpoint(db.Local(), 2, types.EndpointReader, "T")
	_, err = db.AddOrUpdateEndpoint(r, db.Local(), 0)
	require.NoError(t, err)

	require.True(t, db.RemoveParticipant(db.Local(), types.RemovedDisposed))
	entries := db.Drain()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Change.IsParticipant())
	assert.Equal(t, types.ChangeDisposed, entries[0].Change.Kind)
	assert.Empty(t, db.Endpoints())
}

// TestLocalAddDispose_NoDuplicateProxies 任意本地增删序列下不存在重复代理
func TestLocalAddDispose_NoDuplicateProxies(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)

	rng := rand.New(rand.NewSource(7))
	live := map[types.GUID]bool{}
	next := uint32(1)
	for i := 0; i < 500; i++ {
		switch rng.Intn(4) {
		case 0, 1:
			e := endpoint(db.Local(), next, types.EndpointWriter, "T")
			next++
			_, err := db.AddOrUpdateEndpoint(e, db.Local(), 0)
			require.NoError(t, err)
			live[e.GUID] = true
		case 2:
			for g := range live {
				require.True(t, db.RemoveEndpoint(g, db.Local(), 0))
				delete(live, g)
				break
			}
		case 3:
			db.Drain()
		}

		seen := map[types.GUID]bool{}
		for _, e := range db.Endpoints() {
			require.False(t, seen[e.GUID])
			seen[e.GUID] = true
		}
		require.Len(t, seen, len(live))
	}
}

// ============================================================================
//                              策略
// ============================================================================

func TestServerRelaysRemoteChanges(t *testing.T) {
	db, _ := newDB(t, WithStrategy(types.StrategyServer))
	y, z := types.NewGUIDPrefix(), types.NewGUIDPrefix()
	addRemote(t, db, y)
	addRemote(t, db, z)

	entries := db.Drain()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Local)

	// z 的参与者变更只需 y 确认
	assert.False(t, db.IsFullyAcked(types.ParticipantGUID(z)))
	assert.True(t, db.Ack(types.ParticipantGUID(z), 1, y))
	assert.True(t, db.IsFullyAcked(types.ParticipantGUID(z)))

	require.True(t, db.RemoveParticipant(y, types.RemovedLeaseExpired))
	entries = db.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, types.ChangeDisposed, entries[0].Change.Kind)
	assert.Equal(t, uint64(2), entries[0].Change.Sequence)
}

func TestSimpleDoesNotRelay(t *testing.T) {
	db, _ := newDB(t)
	addRemote(t, db, types.NewGUIDPrefix())
	assert.Empty(t, db.Drain())
}

func TestClientOnlyServersRelevant(t *testing.T) {
	db, mock := newDB(t, WithStrategy(types.StrategyClient))
	server := types.NewGUIDPrefix()
	sp := participant(server)
	sp.IsServer = true
	_, err := db.AddOrUpdateParticipant(sp, server, 1)
	require.NoError(t, err)
	addRemote(t, db, types.NewGUIDPrefix())
	addLocal(t, db)

	pending := db.Unacked()
	require.Len(t, pending, 1)
	assert.Equal(t, []types.GUIDPrefix{server}, pending[0].Peers)

	// 非服务器参与者的租约不由客户端检查
	mock.Add(2 * lease)
	assert.Equal(t, []types.GUIDPrefix{server}, db.ExpireParticipants())
	assert.Len(t, db.Peers(), 1)
}

// ============================================================================
//                              晚加入者
// ============================================================================

func TestResync(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)
	w := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(w, db.Local(), 0)
	require.NoError(t, err)
	db.Drain()
	require.True(t, db.IsFullyAcked(w.GUID))

	late := types.NewGUIDPrefix()
	assert.Nil(t, db.Resync(late))
	addRemote(t, db, late)

	changes := db.Resync(late)
	require.Len(t, changes, 2)
	assert.True(t, changes[0].IsParticipant())
	assert.Equal(t, w.GUID, changes[1].Subject)

	db.Reannounce(changes[1:])
	entries := db.Drain()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Local)
	assert.NotNil(t, db.LocalAnnouncement())
}

// TestResync_FullyAckedStaysAcked 晚加入者只扩展仍在等待确认的实体
func TestResync_FullyAckedStaysAcked(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)
	y := types.NewGUIDPrefix()
	addRemote(t, db, y)

	w1 := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(w1, db.Local(), 0)
	require.NoError(t, err)
	w2 := endpoint(db.Local(), 2, types.EndpointWriter, "T")
	_, err = db.AddOrUpdateEndpoint(w2, db.Local(), 0)
	require.NoError(t, err)
	db.Drain()

	require.True(t, db.Ack(w1.GUID, 1, y))
	require.True(t, db.IsFullyAcked(w1.GUID))
	require.False(t, db.IsFullyAcked(w2.GUID))

	z := types.NewGUIDPrefix()
	addRemote(t, db, z)
	changes := db.Resync(z)
	require.NotEmpty(t, changes)

	assert.True(t, db.IsFullyAcked(w1.GUID))
	assert.False(t, db.IsSettled(w1.GUID))
	assert.False(t, db.Ack(w1.GUID, 1, z))
	assert.True(t, db.IsSettled(w1.GUID))

	for _, p := range db.Unacked() {
		if p.Subject == w2.GUID {
			assert.Equal(t, sortedPrefixes(y, z), p.Peers)
		}
	}
	assert.False(t, db.Ack(w2.GUID, 1, y))
	assert.True(t, db.Ack(w2.GUID, 1, z))
	assert.True(t, db.IsFullyAcked(w1.GUID))
}

func sortedPrefixes(ps ...types.GUIDPrefix) []types.GUIDPrefix {
	sortPrefixes(ps)
	return ps
}

// ============================================================================
//                              备份
// ============================================================================

func TestRecordsAndRestore(t *testing.T) {
	src, _ := newDB(t, WithStrategy(types.StrategyBackup))
	addLocal(t, src)
	y := types.NewGUIDPrefix()
	addRemote(t, src, y)
	r := endpoint(y, 1, types.EndpointReader, "T")
	_, err := src.AddOrUpdateEndpoint(r, y, 1)
	require.NoError(t, err)

	records := src.Records()
	require.Len(t, records, 2)
	assert.True(t, records[0].IsParticipant())

	dst, mock := newDB(t, WithStrategy(types.StrategyBackup))
	assert.Equal(t, 2, dst.Restore(records))

	p, err := dst.Lookup(types.ParticipantGUID(y))
	require.NoError(t, err)
	assert.Equal(t, mock.Now().Add(lease), p.(*types.ParticipantProxy).Deadline)
	_, err = dst.Lookup(r.GUID)
	assert.NoError(t, err)

	snap := dst.Snapshot()
	assert.Len(t, snap.Participants, 1)
	assert.Len(t, snap.Endpoints, 1)
	assert.Equal(t, types.StrategyBackup, snap.Strategy)
}

// TestRequeue_RestoresAnnounced 放回队列的 ALIVE 仍可被撤销
func TestRequeue_RestoresAnnounced(t *testing.T) {
	db, _ := newDB(t)
	addLocal(t, db)
	w := endpoint(db.Local(), 1, types.EndpointWriter, "T")
	_, err := db.AddOrUpdateEndpoint(w, db.Local(), 0)
	require.NoError(t, err)

	entries := db.Drain()
	require.Len(t, entries, 2)
	db.Requeue(entries[1:])
	assert.Equal(t, 1, db.QueueLen())

	require.True(t, db.RemoveEndpoint(w.GUID, db.Local(), 0))
	assert.Equal(t, 0, db.QueueLen())
}
