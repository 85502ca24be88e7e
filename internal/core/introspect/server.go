package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-dds/internal/discovery/database"
	"github.com/dep2p/go-dds/pkg/lib/log"
	"github.com/dep2p/go-dds/pkg/types"
)

var logger = log.Logger("core/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// Source 发现状态来源
type Source interface {
	Snapshot() database.Snapshot
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Source 可选的发现数据库
	Source Source

	// Gatherer 可选的指标来源，设置后提供 /metrics
	Gatherer prometheus.Gatherer

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地自省 HTTP 服务
type Server struct {
	config Config

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{config: cfg}
}

// Handler 返回路由，不启动监听
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/participants", s.handleParticipants)
	mux.HandleFunc("/debug/introspect/endpoints", s.handleEndpoints)
	mux.HandleFunc("/debug/introspect/pending", s.handlePending)
	mux.HandleFunc("/debug/introspect/runtime", s.handleRuntime)

	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/health", s.handleHealth)

	for path, handler := range s.config.CustomHandlers {
		mux.HandleFunc(path, handler)
	}
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Uptime    string         `json:"uptime"`
	Discovery *DiscoveryInfo `json:"discovery,omitempty"`
	Runtime   *RuntimeInfo   `json:"runtime,omitempty"`
}

// DiscoveryInfo 发现数据库概要
type DiscoveryInfo struct {
	Local        string            `json:"local"`
	Strategy     string            `json:"strategy"`
	Participants []ParticipantInfo `json:"participants"`
	Endpoints    []EndpointInfo    `json:"endpoints"`
	Pending      []PendingInfo     `json:"pending"`
	QueueLen     int               `json:"queue_len"`
}

// ParticipantInfo 参与者信息
type ParticipantInfo struct {
	GUID      string   `json:"guid"`
	Name      string   `json:"name,omitempty"`
	Lease     string   `json:"lease"`
	Server    bool     `json:"server"`
	Locators  []string `json:"locators,omitempty"`
	Endpoints int      `json:"endpoints"`
}

// EndpointInfo 端点信息
type EndpointInfo struct {
	GUID     string   `json:"guid"`
	Kind     string   `json:"kind"`
	Topic    string   `json:"topic"`
	TypeName string   `json:"type_name"`
	Matched  []string `json:"matched,omitempty"`
}

// PendingInfo 未完全确认的变更
type PendingInfo struct {
	Subject  string   `json:"subject"`
	Sequence uint64   `json:"sequence"`
	Disposed bool     `json:"disposed,omitempty"`
	Peers    []string `json:"peers"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
		Discovery: s.collectDiscoveryInfo(),
		Runtime:   collectRuntimeInfo(),
	})
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	s.handleDiscoveryPart(w, r, func(d *DiscoveryInfo) interface{} { return d.Participants })
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	s.handleDiscoveryPart(w, r, func(d *DiscoveryInfo) interface{} { return d.Endpoints })
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	s.handleDiscoveryPart(w, r, func(d *DiscoveryInfo) interface{} { return d.Pending })
}

func (s *Server) handleDiscoveryPart(w http.ResponseWriter, r *http.Request, part func(*DiscoveryInfo) interface{}) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info := s.collectDiscoveryInfo()
	if info == nil {
		http.Error(w, "Discovery info not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, part(info))
}

func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, collectRuntimeInfo())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}
	if s.config.Source == nil {
		health.Status = "degraded"
	}
	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) collectDiscoveryInfo() *DiscoveryInfo {
	if s.config.Source == nil {
		return nil
	}
	snap := s.config.Source.Snapshot()

	info := &DiscoveryInfo{
		Local:        snap.Local.String(),
		Strategy:     snap.Strategy.String(),
		Participants: make([]ParticipantInfo, 0, len(snap.Participants)),
		Endpoints:    make([]EndpointInfo, 0, len(snap.Endpoints)),
		Pending:      make([]PendingInfo, 0, len(snap.Pending)),
		QueueLen:     snap.QueueLen,
	}
	for _, p := range snap.Participants {
		pi := ParticipantInfo{
			GUID:      p.GUID.String(),
			Name:      p.Name,
			Lease:     p.LeaseDuration.String(),
			Server:    p.IsServer,
			Endpoints: len(p.Endpoints),
		}
		for _, l := range p.Locators {
			pi.Locators = append(pi.Locators, l.String())
		}
		info.Participants = append(info.Participants, pi)
	}
	for _, e := range snap.Endpoints {
		ei := EndpointInfo{
			GUID:     e.GUID.String(),
			Kind:     e.Kind.String(),
			Topic:    e.Topic,
			TypeName: e.TypeName,
		}
		for g := range e.Matched {
			ei.Matched = append(ei.Matched, g.String())
		}
		info.Endpoints = append(info.Endpoints, ei)
	}
	for _, p := range snap.Pending {
		info.Pending = append(info.Pending, PendingInfo{
			Subject:  p.Subject.String(),
			Sequence: p.Sequence,
			Disposed: p.Disposed,
			Peers:    prefixStrings(p.Peers),
		})
	}
	return info
}

func prefixStrings(ps []types.GUIDPrefix) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

func (s *Server) uptime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return "0s"
	}
	return time.Since(s.startTime).String()
}

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
