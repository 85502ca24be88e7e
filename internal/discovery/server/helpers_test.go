package server

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/internal/core/loopback"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/core/timedevent"
	"github.com/dep2p/go-dds/internal/discovery/database"
	"github.com/dep2p/go-dds/pkg/types"
)

const lease = 3 * time.Second

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.FlushPeriod = 100 * time.Millisecond
	cfg.FlushRate = 1e6
	cfg.FlushBurst = 1 << 20
	cfg.AnnouncePeriod = lease / 3
	cfg.LeaseCheckPeriod = 250 * time.Millisecond
	cfg.AckRetryBase = 200 * time.Millisecond
	cfg.AckRetryMax = time.Second
	cfg.BackupPeriod = time.Second
	return cfg
}

// throttledConfig 立即刷新只允许一次，之后只能显式 Flush
func throttledConfig() *Config {
	cfg := testConfig()
	cfg.FlushRate = 1e-9
	cfg.FlushBurst = 1
	return cfg
}

type node struct {
	prefix   types.GUIDPrefix
	db       *database.DB
	srv      *Server
	sched    *timedevent.Scheduler
	metrics  *metrics.Collector
	isServer bool
	crashed  bool
}

type cluster struct {
	t     *testing.T
	net   *loopback.Network
	clk   *clock.Mock
	nodes []*node
}

func newCluster(t *testing.T) *cluster {
	return &cluster{t: t, net: loopback.NewNetwork(), clk: clock.NewMock()}
}

// add 创建并启动一个参与者，宣告其参与者代理
func (c *cluster) add(strategy types.Strategy, cfg *Config, opts ...Option) *node {
	c.t.Helper()
	prefix := types.NewGUIDPrefix()
	collector := metrics.NewCollector(prefix.ShortString())

	db, err := database.New(prefix, database.DefaultConfig(),
		database.WithClock(c.clk),
		database.WithStrategy(strategy),
		database.WithReporter(collector))
	require.NoError(c.t, err)
	port, err := c.net.Join(prefix)
	require.NoError(c.t, err)

	sched := timedevent.New(c.clk)
	srv, err := New(db, sched, port, cfg, append([]Option{WithReporter(collector)}, opts...)...)
	require.NoError(c.t, err)
	require.NoError(c.t, srv.Start(context.Background()))
	c.t.Cleanup(func() { _ = srv.Stop() })

	n := &node{
		prefix:   prefix,
		db:       db,
		srv:      srv,
		sched:    sched,
		metrics:  collector,
		isServer: strategy.IsServer(),
	}
	require.NoError(c.t, srv.OnLocalEntityCreated(n.participant()))
	c.nodes = append(c.nodes, n)
	c.net.Pump(0)
	return n
}

// advance 以 50ms 步长推进时钟，每步执行到期事件并泵送网络
func (c *cluster) advance(d time.Duration) {
	const step = 50 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		c.clk.Add(step)
		for _, n := range c.nodes {
			if !n.crashed {
				n.sched.RunDue()
			}
		}
		c.net.Pump(0)
	}
}

// crash 参与者停止并离开网络，不发送任何销毁
func (c *cluster) crash(n *node) {
	require.NoError(c.t, n.srv.Stop())
	c.net.Leave(n.prefix)
	n.crashed = true
}

func (n *node) participant() *types.ParticipantProxy {
	return &types.ParticipantProxy{
		GUID:          types.ParticipantGUID(n.prefix),
		Name:          "p-" + n.prefix.ShortString(),
		LeaseDuration: lease,
		IsServer:      n.isServer,
	}
}

func (n *node) endpoint(key uint32, kind types.EndpointKind, topic string) *types.EndpointProxy {
	return &types.EndpointProxy{
		GUID:     types.GUID{Prefix: n.prefix, Entity: types.NewEntityID(key, kind.EntityKind())},
		Kind:     kind,
		Topic:    topic,
		TypeName: "T",
	}
}

func (n *node) knows(guid types.GUID) bool {
	_, err := n.db.Lookup(guid)
	return err == nil
}

func (n *node) metric(name string) float64 {
	snap, err := n.metrics.Snapshot()
	if err != nil {
		return 0
	}
	return snap["dds_discovery_"+name]
}

// spy 记录到达 to 的 subject 变更种类
func spy(c *cluster, to types.GUIDPrefix, subject types.GUID) *[]types.ChangeKind {
	var seen []types.ChangeKind
	c.net.SetDrop(func(_, dst types.GUIDPrefix, cc *types.CacheChange) bool {
		if dst == to && cc.Subject == subject {
			seen = append(seen, cc.Kind)
		}
		return false
	})
	return &seen
}
