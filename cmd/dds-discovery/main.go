// Package main 提供 dds-discovery 命令行入口
//
// 在一个进程内投递网络上运行若干参与者，每个参与者创建一个写者和一个读者，
// 运行指定时长后打印各自的发现数据库快照与确认状态。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	dds "github.com/dep2p/go-dds"
	"github.com/dep2p/go-dds/pkg/lib/log"
	"github.com/dep2p/go-dds/pkg/types"
)

var logger = log.Logger("dds/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	participants = flag.Int("participants", 3, "参与者数量")
	servers      = flag.Int("servers", 0, "其中作为发现服务器运行的参与者数量（client 策略需要）")
	topic        = flag.String("topic", "chatter", "写者与读者使用的主题")
	typeName     = flag.String("type", "std_msgs::String", "主题类型名")
	strategy     = flag.String("strategy", "simple", "发现策略 (simple/server/client/backup)")
	duration     = flag.Duration("duration", 3*time.Second, "运行时长")
	configFile   = flag.String("config", "", "配置文件路径")
	preset       = flag.String("preset", "test", "预设配置 (default/server/client/backup/test)")
	dataDir      = flag.String("data-dir", "", "BACKUP 策略数据目录（每个参与者一个子目录）")
	introspect   = flag.String("introspect", "", "第一个参与者的自省服务地址（如 127.0.0.1:6060）")
	pumpInterval = flag.Duration("pump", 5*time.Millisecond, "网络投递间隔")
	logLevel     = flag.String("log-level", "warn", "日志级别 (debug/info/warn/error)")
	showVersion  = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(dds.VersionInfo())
		return nil
	}
	log.SetOutputWithLevel(os.Stderr, log.ParseLevel(*logLevel))

	if *participants <= 0 {
		return errors.New("participants must be positive")
	}
	if *servers < 0 || *servers > *participants {
		return fmt.Errorf("servers must be between 0 and %d", *participants)
	}
	s, ok := types.ParseStrategy(*strategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q", *strategy)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	net := dds.NewNetwork()
	nodes, err := startAll(ctx, net, s)
	defer func() {
		for _, n := range nodes {
			if n.p != nil {
				_ = n.p.Close()
			}
		}
	}()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()
	go net.Run(runCtx, *pumpInterval)

	fmt.Printf("📦 %s\n", dds.VersionInfo())
	fmt.Printf("已启动 %d 个参与者，运行 %s...\n", len(nodes), *duration)
	<-runCtx.Done()

	for _, n := range nodes {
		printReport(n)
	}
	return stopAll(nodes)
}

// node 一个参与者及其本地端点
type node struct {
	p      *dds.Participant
	writer types.GUID
	reader types.GUID
}

// startAll 并发启动全部参与者，各自创建写者与读者
func startAll(ctx context.Context, net *dds.Network, s types.Strategy) ([]*node, error) {
	nodes := make([]*node, *participants)
	for i := range nodes {
		nodes[i] = &node{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, n := range nodes {
		g.Go(func() error {
			p, err := dds.Start(gctx, participantOptions(i, net, s)...)
			if err != nil {
				return fmt.Errorf("participant %d: %w", i, err)
			}
			n.p = p
			if n.writer, err = p.CreateWriter(*topic, *typeName); err != nil {
				return fmt.Errorf("participant %d writer: %w", i, err)
			}
			if n.reader, err = p.CreateReader(*topic, *typeName); err != nil {
				return fmt.Errorf("participant %d reader: %w", i, err)
			}
			logger.Info("参与者就绪", "index", i, "prefix", p.Prefix().ShortString())
			return nil
		})
	}
	return nodes, g.Wait()
}

// participantOptions 配置文件 → 预设 → 命令行参数，后者覆盖前者
func participantOptions(i int, net *dds.Network, s types.Strategy) []dds.Option {
	var opts []dds.Option
	if *configFile != "" {
		opts = append(opts, dds.WithConfigFile(*configFile))
	}
	opts = append(opts,
		dds.WithPreset(*preset),
		dds.WithName(fmt.Sprintf("p%d", i)),
		dds.WithNetwork(net),
	)

	if i < *servers {
		opts = append(opts, dds.WithStrategy(types.StrategyServer))
	} else {
		opts = append(opts, dds.WithStrategy(s))
	}
	if i == 0 && *introspect != "" {
		opts = append(opts, dds.WithIntrospect(*introspect))
	}
	if s == types.StrategyBackup && *dataDir != "" {
		opts = append(opts, dds.WithDataDir(filepath.Join(*dataDir, fmt.Sprintf("p%d", i))))
	}
	return opts
}

// stopAll 依次停止参与者，每个参与者离开前发送告别
func stopAll(nodes []*node) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs error
	for _, n := range nodes {
		errs = multierr.Append(errs, n.p.Stop(ctx))
	}
	fmt.Println("全部参与者已停止")
	return errs
}

// ═══════════════════════════════════════════════════════════════════════════
// 输出
// ═══════════════════════════════════════════════════════════════════════════

func printReport(n *node) {
	p := n.p
	snap := p.Snapshot()

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Printf("参与者 %s  策略 %s\n", p.Prefix(), snap.Strategy)
	fmt.Println("───────────────────────────────────────────────────────")

	fmt.Printf("已知参与者 (%d):\n", len(snap.Participants))
	for _, pp := range snap.Participants {
		acked := "✓"
		if !p.IsFullyAcked(pp.GUID) {
			acked = "…"
		}
		server := ""
		if pp.IsServer {
			server = " [server]"
		}
		fmt.Printf("  %s %-8s %s%s\n", acked, pp.Name, pp.GUID.Prefix.ShortString(), server)
	}

	fmt.Printf("已知端点 (%d):\n", len(snap.Endpoints))
	for _, e := range snap.Endpoints {
		acked := "✓"
		if !p.IsFullyAcked(e.GUID) {
			acked = "…"
		}
		fmt.Printf("  %s %-6s %s topic=%s matched=%d\n",
			acked, e.Kind, e.GUID.ShortString(), e.Topic, len(e.Matched))
	}

	if matched, err := p.Matched(n.writer); err == nil {
		fmt.Printf("本地写者 %s 匹配读者: %d\n", n.writer.ShortString(), len(matched))
	}

	if len(snap.Pending) > 0 {
		fmt.Printf("待确认变更 (%d):\n", len(snap.Pending))
		for _, pa := range snap.Pending {
			fmt.Printf("  %s seq=%d peers=%d\n", pa.Subject.ShortString(), pa.Sequence, len(pa.Peers))
		}
	}
	if snap.QueueLen > 0 {
		fmt.Printf("队列中变更: %d\n", snap.QueueLen)
	}
}
