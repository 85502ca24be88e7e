package dds

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/internal/core/introspect"
	"github.com/dep2p/go-dds/internal/core/loopback"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/core/storage"
	"github.com/dep2p/go-dds/internal/core/storage/engine"
	"github.com/dep2p/go-dds/internal/core/storage/kv"
	"github.com/dep2p/go-dds/internal/core/timedevent"
	"github.com/dep2p/go-dds/internal/discovery/database"
	"github.com/dep2p/go-dds/internal/discovery/server"
	"github.com/dep2p/go-dds/pkg/lib/log"
	"github.com/dep2p/go-dds/pkg/types"
)

var fxLogger = log.Logger("dds/fx")

// backupPrefix BACKUP 记录在存储中的键前缀
var backupPrefix = []byte("discovery/backup/")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置注入
//  2. 存储（仅 BACKUP 策略）
//  3. 基础组件 EventBus → Metrics → TimedEvent，发现数据库，投递端口 → 发现服务器 → 自省服务
//  4. 用户扩展与组件注入
func buildFxApp(o *options, p *Participant) *fx.App {
	cfg := o.config
	strategy := cfg.Participant.StrategyValue()

	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置注入
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(fx.Annotate(p.prefix, fx.ResultTags(`name:"local"`))),
		fx.Supply(strategy),
		fx.Supply(databaseConfig(cfg)),
		fx.Supply(serverConfig(cfg)),
		fx.Supply(metrics.Config{
			Enabled:     cfg.Metrics.Enabled,
			Participant: p.prefix.ShortString(),
		}),
		fx.Supply(p.network),
	}
	if o.clock != nil {
		modules = append(modules, fx.Supply(fx.Annotate(o.clock, fx.As(new(clock.Clock)))))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 持久化（BACKUP 策略）
	//
	// 存储须先于发现服务器注册生命周期，停止时服务器先保存备份
	// ════════════════════════════════════════════════════════════════════════
	if strategy == types.StrategyBackup {
		modules = append(modules,
			fx.Supply(storageConfig(cfg)),
			storage.Module(),
			fx.Provide(fx.Annotate(provideBackupStore, fx.ResultTags(`name:"backup"`))),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		eventbus.Module(),
		metrics.Module,
		timedevent.Module(),
		database.Module,
		fx.Provide(provideTransport),
		server.Module,
		introspect.Module(),
	)
	if cfg.Diagnostics.EnableIntrospect {
		modules = append(modules, fx.Supply(&introspect.Config{Addr: cfg.Diagnostics.IntrospectAddr}))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展与组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.fxOptions...)
	modules = append(modules, fx.Invoke(injectParticipant(p)))

	// 禁用 Fx 日志输出（避免干扰用户日志）
	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}))

	return fx.New(modules...)
}

// ════════════════════════════════════════════════════════════════════════════
// 配置转换
// ════════════════════════════════════════════════════════════════════════════

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		TombstoneSize: cfg.Database.TombstoneSize,
		OrphanSize:    cfg.Database.OrphanSize,
	}
}

func serverConfig(cfg *config.Config) *server.Config {
	d := cfg.Discovery
	return &server.Config{
		HistoryDepth:     d.HistoryDepth,
		FlushPeriod:      d.FlushPeriod.Duration(),
		FlushRate:        d.FlushRate,
		FlushBurst:       d.FlushBurst,
		AnnouncePeriod:   d.Announce(cfg.Participant.LeaseDuration.Duration()),
		LeaseCheckPeriod: d.LeaseCheckPeriod.Duration(),
		AckRetryBase:     d.AckRetryBase.Duration(),
		AckRetryMax:      d.AckRetryMax.Duration(),
		BackupPeriod:     d.BackupPeriod.Duration(),
	}
}

func storageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		DataDir:    cfg.Storage.DataDir,
		SyncWrites: cfg.Storage.SyncWrites,
		GCInterval: cfg.Storage.GCInterval.Duration(),
	}
}

// ════════════════════════════════════════════════════════════════════════════
// 组件提供
// ════════════════════════════════════════════════════════════════════════════

type transportParams struct {
	fx.In

	Network *loopback.Network
	Local   types.GUIDPrefix `name:"local"`
}

type transportResult struct {
	fx.Out

	Port      *loopback.Port
	Transport server.Transport
}

// provideTransport 在网络上注册本参与者的端口，停止时离开网络
func provideTransport(lc fx.Lifecycle, p transportParams) (transportResult, error) {
	port, err := p.Network.Join(p.Local)
	if err != nil {
		return transportResult{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			fxLogger.Debug("端口离开网络", "prefix", p.Local.ShortString())
			return port.Close()
		},
	})
	return transportResult{Port: port, Transport: port}, nil
}

func provideBackupStore(eng engine.InternalEngine) *kv.Store {
	return storage.NewKVStore(eng, backupPrefix)
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入
// ════════════════════════════════════════════════════════════════════════════

type participantInjectParams struct {
	fx.In

	DB        *database.DB
	Server    *server.Server
	Scheduler *timedevent.Scheduler
	Bus       *eventbus.Bus
	Reporter  metrics.Reporter
	Port      *loopback.Port
	Engine    engine.InternalEngine `optional:"true"`
}

func injectParticipant(p *Participant) func(participantInjectParams) {
	return func(in participantInjectParams) {
		p.db = in.DB
		p.server = in.Server
		p.sched = in.Scheduler
		p.bus = in.Bus
		p.reporter = in.Reporter
		p.port = in.Port
		p.engine = in.Engine
		fxLogger.Debug("参与者组件已注入", "prefix", p.prefix.ShortString())
	}
}
