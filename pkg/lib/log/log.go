// Package log 提供 go-dds 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，按组件输出结构化日志。
//
// 使用方式：
//
//	var logger = log.Logger("discovery/database")
//	logger.Info("参与者已发现", "guid", guid, "lease", lease)
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// SetOutputWithLevel 设置默认 logger 的输出目标和级别
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetJSONOutput 以 JSON 格式输出
func SetJSONOutput(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLevel 设置日志级别，输出到 stderr
func SetLevel(level slog.Level) {
	SetOutputWithLevel(os.Stderr, level)
}

// Discard 丢弃所有日志（测试用）
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ParseLevel 解析级别名称，未知名称返回 info
func ParseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler，
// 支持在运行时动态切换日志输出目标。
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) get() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.get().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.get().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.get().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.get().Error(msg, args...)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.get().With(args...)
}

// ============================================================================
//                              Sampled
// ============================================================================

// Sampled 限频日志
//
// 用于可能被远端刷屏的告警（如畸形负载），超出速率的日志只计数。
type Sampled struct {
	logger     *LazyLogger
	limiter    *rate.Limiter
	mu         sync.Mutex
	suppressed int
}

// NewSampled 创建限频日志，每 interval 最多输出 burst 条
func NewSampled(l *LazyLogger, interval time.Duration, burst int) *Sampled {
	return &Sampled{
		logger:  l,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Warn 限频输出 Warn 日志
func (s *Sampled) Warn(msg string, args ...any) {
	if !s.limiter.Allow() {
		s.mu.Lock()
		s.suppressed++
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.suppressed > 0 {
		args = append(args, "suppressed", s.suppressed)
		s.suppressed = 0
	}
	s.mu.Unlock()

	s.logger.Warn(msg, args...)
}
