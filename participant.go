package dds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/internal/core/loopback"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/core/storage/engine"
	"github.com/dep2p/go-dds/internal/core/timedevent"
	"github.com/dep2p/go-dds/internal/discovery/database"
	"github.com/dep2p/go-dds/internal/discovery/server"
	"github.com/dep2p/go-dds/pkg/lib/log"
	"github.com/dep2p/go-dds/pkg/types"
)

var logger = log.Logger("dds")

// ════════════════════════════════════════════════════════════════════════════
//                              参与者状态
// ════════════════════════════════════════════════════════════════════════════

// State 参与者状态
type State int

const (
	// StateIdle 已创建，未启动
	StateIdle State = iota

	// StateRunning 运行中
	StateRunning

	// StateClosed 已关闭，不可重新启动
	StateClosed
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// stopTimeout Close 内部停止 Fx 应用的超时
const stopTimeout = 10 * time.Second

// Participant 发现参与者
//
// Participant 是用户与发现核心交互的主入口，聚合发现数据库、
// PDP/EDP 服务器、定时事件调度器与事件总线。
//
// 停止是终态：本地参与者被销毁后其 GUID 不能再次宣告，
// 需要重新加入时请创建新的 Participant。
type Participant struct {
	config *config.Config
	prefix types.GUIDPrefix
	// network 投递网络，未指定时为私有网络
	network *Network
	app     *fx.App

	// ────────────────────────────────────────────────────────────────────────
	// 核心组件（由 Fx 注入）
	// ────────────────────────────────────────────────────────────────────────

	db       *database.DB
	server   *server.Server
	sched    *timedevent.Scheduler
	bus      *eventbus.Bus
	reporter metrics.Reporter
	port     *loopback.Port
	engine   engine.InternalEngine

	// nextKey 用户实体计数器
	nextKey atomic.Uint32

	mu    sync.Mutex
	state State
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建参与者
//
// 创建但不启动，需要调用 Start()。
//
// 示例：
//
//	p, err := dds.New(
//	    dds.WithNetwork(net),
//	    dds.WithStrategy(types.StrategyServer),
//	    dds.WithLease(20*time.Second),
//	)
func New(opts ...Option) (*Participant, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	p := &Participant{
		config:  o.config,
		prefix:  o.prefix,
		network: o.network,
	}
	if p.prefix.IsEmpty() {
		p.prefix = types.NewGUIDPrefix()
	}
	if p.network == nil {
		p.network = NewNetwork()
	}

	p.app = buildFxApp(o, p)
	if err := p.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return p, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Participant, error) {
	p, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动内部组件并宣告本地参与者
func (p *Participant) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateClosed:
		return ErrClosed
	case StateRunning:
		return ErrAlreadyStarted
	}

	if err := p.app.Start(ctx); err != nil {
		logger.Error("参与者启动失败", "error", err)
		return fmt.Errorf("start fx app: %w", err)
	}
	if err := p.server.OnLocalEntityCreated(p.proxy()); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return multierr.Append(
			fmt.Errorf("announce participant: %w", err),
			p.app.Stop(stopCtx))
	}

	p.state = StateRunning
	logger.Info("参与者已启动",
		"prefix", p.prefix.ShortString(),
		"name", p.config.Participant.Name,
		"strategy", p.config.Participant.Strategy)
	return nil
}

// Stop 宣告本地参与者销毁并停止内部组件
//
// 告别消息在离开网络前投递给当前在网的对端。
func (p *Participant) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateClosed:
		return ErrClosed
	case StateIdle:
		return ErrNotStarted
	}
	return p.stopLocked(ctx)
}

func (p *Participant) stopLocked(ctx context.Context) error {
	var errs error
	if err := p.server.OnLocalEntityDisposed(types.ParticipantGUID(p.prefix)); err != nil &&
		!errors.Is(err, types.ErrNotFound) {
		errs = multierr.Append(errs, fmt.Errorf("dispose participant: %w", err))
	}
	p.server.Flush()
	p.network.Pump(0)

	if err := p.app.Stop(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("stop fx app: %w", err))
	}
	p.state = StateClosed
	logger.Info("参与者已停止", "prefix", p.prefix.ShortString())
	return errs
}

// Close 关闭参与者并释放所有资源
//
// 未启动的参与者只离开网络并关闭存储；重复调用返回 nil。
func (p *Participant) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateClosed:
		return nil
	case StateIdle:
		p.state = StateClosed
		err := p.port.Close()
		if p.engine != nil {
			err = multierr.Append(err, p.engine.Close())
		}
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return p.stopLocked(ctx)
}

// State 返回当前状态
func (p *Participant) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              访问器
// ════════════════════════════════════════════════════════════════════════════

// Prefix 返回参与者 GUID 前缀
func (p *Participant) Prefix() types.GUIDPrefix {
	return p.prefix
}

// GUID 返回参与者 GUID
func (p *Participant) GUID() types.GUID {
	return types.ParticipantGUID(p.prefix)
}

// Strategy 返回发现策略
func (p *Participant) Strategy() types.Strategy {
	return p.config.Participant.StrategyValue()
}

// Network 返回参与者所在的投递网络
func (p *Participant) Network() *Network {
	return p.network
}

// Metrics 返回指标 Registry，禁用指标时返回 nil
func (p *Participant) Metrics() *prometheus.Registry {
	if c, ok := p.reporter.(*metrics.Collector); ok {
		return c.Registry()
	}
	return nil
}

// proxy 构造本地参与者代理
func (p *Participant) proxy() *types.ParticipantProxy {
	pc := p.config.Participant
	proxy := &types.ParticipantProxy{
		GUID:          p.GUID(),
		Name:          pc.Name,
		LeaseDuration: pc.LeaseDuration.Duration(),
		IsServer:      pc.StrategyValue().IsServer(),
	}
	for _, s := range pc.Locators {
		// 配置校验时已解析过
		if l, err := types.ParseLocator(s); err == nil {
			proxy.Locators = append(proxy.Locators, l)
		}
	}
	return proxy
}
