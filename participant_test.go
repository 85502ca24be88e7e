package dds

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/pkg/types"
)

// startPair 在共享网络上启动两个参与者并完成互相发现
func startPair(t *testing.T, opts ...Option) (*Network, *Participant, *Participant) {
	t.Helper()
	net := NewNetwork()
	clk := clock.NewMock()

	newP := func(name string) *Participant {
		p, err := New(append([]Option{
			WithPreset("test"),
			WithName(name),
			WithNetwork(net),
			WithClock(clk),
		}, opts...)...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })
		return p
	}
	a, b := newP("a"), newP("b")

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))
	net.Pump(0)
	return net, a, b
}

func TestParticipant_DiscoverEachOther(t *testing.T) {
	_, a, b := startPair(t)

	_, err := a.Lookup(b.GUID())
	require.NoError(t, err)
	_, err = b.Lookup(a.GUID())
	require.NoError(t, err)

	assert.True(t, a.IsFullyAcked(a.GUID()))
	assert.True(t, b.IsFullyAcked(b.GUID()))
	assert.Len(t, a.Participants(), 2)
}

func TestParticipant_WriterReaderMatched(t *testing.T) {
	net, a, b := startPair(t)

	w, err := a.CreateWriter("chatter", "std_msgs::String", WithReliability(types.Reliable))
	require.NoError(t, err)
	r, err := b.CreateReader("chatter", "std_msgs::String")
	require.NoError(t, err)
	net.Pump(0)

	matched, err := a.Matched(w)
	require.NoError(t, err)
	assert.Equal(t, []types.GUID{r}, matched)

	matched, err = b.Matched(r)
	require.NoError(t, err)
	assert.Equal(t, []types.GUID{w}, matched)

	assert.True(t, a.IsFullyAcked(w))
	assert.True(t, b.IsFullyAcked(r))

	snap := a.Snapshot()
	assert.Equal(t, a.Prefix(), snap.Local)
	assert.Len(t, snap.Endpoints, 2)
	assert.Empty(t, snap.Pending)
	assert.Zero(t, snap.QueueLen)
}

func TestParticipant_DeleteEndpoint(t *testing.T) {
	net, a, b := startPair(t)

	w, err := a.CreateWriter("chatter", "T")
	require.NoError(t, err)
	net.Pump(0)
	_, err = b.Lookup(w)
	require.NoError(t, err)

	require.NoError(t, a.DeleteEndpoint(w))
	net.Pump(0)

	_, err = b.Lookup(w)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = a.Lookup(w)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, a.DeleteEndpoint(w), types.ErrNotFound)
	assert.ErrorIs(t, a.DeleteEndpoint(a.GUID()), types.ErrInvalidProxy)
}

func TestParticipant_StopSendsGoodbye(t *testing.T) {
	_, a, b := startPair(t)

	w, err := a.CreateWriter("chatter", "T")
	require.NoError(t, err)
	r, err := b.CreateReader("chatter", "T")
	require.NoError(t, err)
	a.Network().Pump(0)

	sub, err := a.Subscribe(new(types.EvtParticipantRemoved))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Stop(context.Background()))
	assert.Equal(t, StateClosed, b.State())

	_, err = a.Lookup(b.GUID())
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = a.Lookup(r)
	assert.ErrorIs(t, err, types.ErrNotFound)

	matched, err := a.Matched(w)
	require.NoError(t, err)
	assert.Empty(t, matched)

	select {
	case ev := <-sub.Out():
		removed := ev.(types.EvtParticipantRemoved)
		assert.Equal(t, b.GUID(), removed.GUID)
		assert.Equal(t, types.RemovedDisposed, removed.Reason)
	case <-time.After(time.Second):
		t.Fatal("participant removal not published")
	}

	assert.NotContains(t, a.Network().Peers(), b.Prefix())
}

func TestParticipant_SubscribeMatched(t *testing.T) {
	net, a, b := startPair(t)

	sub, err := a.Subscribe(new(types.EvtEndpointMatched))
	require.NoError(t, err)
	defer sub.Close()

	w, err := a.CreateWriter("chatter", "T")
	require.NoError(t, err)
	r, err := b.CreateReader("chatter", "T")
	require.NoError(t, err)
	net.Pump(0)

	select {
	case ev := <-sub.Out():
		m := ev.(types.EvtEndpointMatched)
		assert.Equal(t, w, m.Local)
		assert.Equal(t, r, m.Remote)
		assert.True(t, m.Matched)
	case <-time.After(time.Second):
		t.Fatal("match not published")
	}
}

func TestParticipant_LifecycleErrors(t *testing.T) {
	p, err := New(WithPreset("test"), WithClock(clock.NewMock()))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, p.State())

	_, err = p.CreateWriter("t", "T")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, p.Stop(context.Background()), ErrNotStarted)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	assert.ErrorIs(t, p.Start(ctx), ErrAlreadyStarted)

	_, err = p.CreateReader("", "T")
	assert.ErrorIs(t, err, ErrNoTopic)

	require.NoError(t, p.Stop(ctx))
	assert.ErrorIs(t, p.Stop(ctx), ErrClosed)
	assert.ErrorIs(t, p.Start(ctx), ErrClosed)
	_, err = p.CreateWriter("t", "T")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, p.Close())
}

func TestParticipant_CloseIdle(t *testing.T) {
	net := NewNetwork()
	p, err := New(WithNetwork(net))
	require.NoError(t, err)
	assert.Contains(t, net.Peers(), p.Prefix())

	require.NoError(t, p.Close())
	assert.NotContains(t, net.Peers(), p.Prefix())
	assert.Equal(t, StateClosed, p.State())
	assert.NoError(t, p.Close())
}

func TestStart_Shortcut(t *testing.T) {
	p, err := Start(context.Background(), WithName("solo"), WithClock(clock.NewMock()))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, StateRunning, p.State())
	assert.Equal(t, types.StrategySimple, p.Strategy())
	proxy, err := p.Lookup(p.GUID())
	require.NoError(t, err)
	assert.Equal(t, "solo", proxy.(*types.ParticipantProxy).Name)
}

func TestOptions(t *testing.T) {
	t.Run("unknown preset", func(t *testing.T) {
		_, err := New(WithPreset("bogus"))
		assert.Error(t, err)
	})

	t.Run("invalid lease", func(t *testing.T) {
		_, err := New(WithLease(0))
		assert.Error(t, err)
	})

	t.Run("invalid locator", func(t *testing.T) {
		_, err := New(WithLocators("carrier-pigeon://nowhere"))
		assert.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := New(WithConfigFile(filepath.Join(t.TempDir(), "absent.json")))
		assert.Error(t, err)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dds.json")
		require.NoError(t, os.WriteFile(path,
			[]byte(`{"participant":{"name":"from-file","strategy":"server"}}`), 0o600))

		p, err := New(WithConfigFile(path))
		require.NoError(t, err)
		defer p.Close()
		assert.Equal(t, types.StrategyServer, p.Strategy())
	})

	t.Run("prefix and locators", func(t *testing.T) {
		prefix := types.NewGUIDPrefix()
		p, err := Start(context.Background(),
			WithPrefix(prefix),
			WithLocators("udpv4://127.0.0.1:7400"),
			WithClock(clock.NewMock()))
		require.NoError(t, err)
		defer p.Close()

		assert.Equal(t, prefix, p.Prefix())
		proxy, err := p.Lookup(p.GUID())
		require.NoError(t, err)
		locators := proxy.(*types.ParticipantProxy).Locators
		require.Len(t, locators, 1)
		assert.Equal(t, uint32(7400), locators[0].Port)
	})

	t.Run("metrics disabled", func(t *testing.T) {
		p, err := New(WithMetrics(false))
		require.NoError(t, err)
		defer p.Close()
		assert.Nil(t, p.Metrics())
	})

	t.Run("metrics enabled", func(t *testing.T) {
		p, err := Start(context.Background(), WithClock(clock.NewMock()))
		require.NoError(t, err)
		defer p.Close()

		reg := p.Metrics()
		require.NotNil(t, reg)
		families, err := reg.Gather()
		require.NoError(t, err)
		assert.NotEmpty(t, families)
	})
}

func TestParticipant_BackupStrategy(t *testing.T) {
	dir := t.TempDir()
	net := NewNetwork()
	clk := clock.NewMock()
	ctx := context.Background()

	srv, err := Start(ctx, WithPreset("test"), WithStrategy(types.StrategyBackup),
		WithDataDir(dir), WithNetwork(net), WithClock(clk))
	require.NoError(t, err)
	peer, err := Start(ctx, WithPreset("test"), WithNetwork(net), WithClock(clk))
	require.NoError(t, err)
	defer peer.Close()

	w, err := peer.CreateWriter("chatter", "T")
	require.NoError(t, err)
	net.Pump(0)
	_, err = srv.Lookup(w)
	require.NoError(t, err)

	// 直接停止应用，不发送告别，模拟服务器重启
	require.NoError(t, srv.app.Stop(ctx))

	restored, err := New(WithPreset("test"), WithStrategy(types.StrategyBackup),
		WithDataDir(dir), WithNetwork(NewNetwork()), WithClock(clk))
	require.NoError(t, err)
	require.NoError(t, restored.Start(ctx))
	defer restored.Close()

	_, err = restored.Lookup(peer.GUID())
	assert.NoError(t, err)
	_, err = restored.Lookup(w)
	assert.NoError(t, err)
}
