package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              Bus 测试
// ============================================================================

func TestBus_SubscribeValidation(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = bus.Subscribe(types.EvtEndpointRemoved{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	_, err = bus.Emitter(types.EvtEndpointRemoved{})
	assert.ErrorIs(t, err, ErrNonPointerType)
}

func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(types.EvtEndpointRemoved))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(types.EvtEndpointRemoved))
	require.NoError(t, err)
	defer em.Close()

	guid := types.GUID{Prefix: types.NewGUIDPrefix(), Entity: types.NewEntityID(1, types.EntityKindWriter)}
	require.NoError(t, em.Emit(types.EvtEndpointRemoved{GUID: guid}))

	select {
	case evt := <-sub.Out():
		assert.Equal(t, guid, evt.(types.EvtEndpointRemoved).GUID)
	case <-time.After(time.Second):
		t.Fatal("event not received")
	}
}

// TestBus_SlowConsumer 测试缓冲区满时丢弃而不阻塞
func TestBus_SlowConsumer(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(types.EvtEndpointRemoved), pkgif.BufSize(1))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(types.EvtEndpointRemoved))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, em.Emit(types.EvtEndpointRemoved{}))
	}
	assert.Equal(t, int64(2), bus.Dropped(new(types.EvtEndpointRemoved)))
	require.NoError(t, em.Close())
}

// TestBus_Stateful 测试有状态发射器
func TestBus_Stateful(t *testing.T) {
	bus := NewBus()

	em, err := bus.Emitter(new(types.EvtParticipantRemoved), pkgif.Stateful())
	require.NoError(t, err)
	defer em.Close()
	require.NoError(t, em.Emit(types.EvtParticipantRemoved{Reason: types.RemovedLeaseExpired}))

	sub, err := bus.Subscribe(new(types.EvtParticipantRemoved))
	require.NoError(t, err)
	defer sub.Close()

	evt := <-sub.Out()
	assert.Equal(t, types.RemovedLeaseExpired, evt.(types.EvtParticipantRemoved).Reason)
}

func TestEmitter_Closed(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(types.EvtEndpointMatched))
	require.NoError(t, err)

	require.NoError(t, em.Close())
	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(types.EvtEndpointMatched{}), ErrClosed)
}

func TestSubscription_CloseTwice(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(new(types.EvtEndpointMatched))
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, open := <-sub.Out()
	assert.False(t, open)
}

// ============================================================================
//                              Publisher 测试
// ============================================================================

func TestPublisher(t *testing.T) {
	bus := NewBus()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	pub, err := NewPublisher(bus, func() time.Time { return now })
	require.NoError(t, err)
	defer pub.Close()

	sub, err := bus.Subscribe(new(types.EvtParticipantDiscovered))
	require.NoError(t, err)
	defer sub.Close()

	proxy := &types.ParticipantProxy{GUID: types.ParticipantGUID(types.NewGUIDPrefix())}
	pub.ParticipantDiscovered(proxy, false)

	evt := (<-sub.Out()).(types.EvtParticipantDiscovered)
	assert.Equal(t, types.EventParticipantDiscovered, evt.Type())
	assert.Equal(t, now, evt.Timestamp())
	assert.Same(t, proxy, evt.Proxy)
	assert.False(t, evt.Updated)
}

func TestPublisher_Nil(t *testing.T) {
	var pub *Publisher
	pub.ParticipantRemoved(types.EmptyGUID, types.RemovedDisposed)
	pub.EndpointMatched(types.EmptyGUID, types.EmptyGUID, true)
	assert.NoError(t, pub.Close())
}
